// Package ledgerapi is the JSON client for the emotion ledger API.
package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"emoledger/internal/core"
	"emoledger/internal/log"
)

// DefaultBaseURL is used when no base address is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

const (
	expensesPath  = "/expenses"
	analyticsPath = "/analytics/emotions"
	maxErrorBody  = 4 << 10
)

var errDecode = errors.New("decode response")

// HTTPError represents a non-2xx answer from the ledger API
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to the three ledger endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout for every request
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger used for request logs
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API at baseURL (DefaultBaseURL when empty).
func New(baseURL string, options ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     log.New(log.DefaultConfig()),
	}
	for _, option := range options {
		option(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentClient)
	return c
}

// BaseURL returns the API base address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListExpenses fetches every expense in the order the API returns them.
func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var expenses []core.Expense
	if err := c.do(ctx, http.MethodGet, expensesPath, nil, &expenses); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return expenses, nil
}

// EmotionAnalytics fetches the per-emotion count and total mapping.
func (c *Client) EmotionAnalytics(ctx context.Context) (core.Analytics, error) {
	var analytics core.Analytics
	if err := c.do(ctx, http.MethodGet, analyticsPath, nil, &analytics); err != nil {
		return core.Analytics{}, fmt.Errorf("emotion analytics: %w", err)
	}
	return analytics, nil
}

// CreateExpense stores a new expense. Only the status decides success; the
// returned record is decoded when the API sends one.
func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	var created core.Expense
	err := c.do(ctx, http.MethodPost, expensesPath, e, &created)
	if errors.Is(err, errDecode) {
		c.logger.DebugContext(ctx, "Create expense response not decoded", log.FieldError, err)
		return core.Expense{}, nil
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return created, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	start := time.Now()
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Ledger API request failed",
			log.FieldMethod, method,
			log.FieldURL, fullURL,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldDuration, time.Since(start).Milliseconds())
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{
			Method:     method,
			URL:        fullURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
		c.logger.WarnContext(ctx, "Ledger API error response",
			log.FieldMethod, method,
			log.FieldURL, fullURL,
			log.FieldStatusCode, resp.StatusCode,
			log.FieldErrorType, log.ErrorTypeUpstream,
			log.FieldDuration, time.Since(start).Milliseconds())
		return httpErr
	}

	c.logger.DebugContext(ctx, "Ledger API request successful",
		log.FieldMethod, method,
		log.FieldURL, fullURL,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}
