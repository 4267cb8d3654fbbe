package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"emoledger/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
	requests  *log.StructuredLogger

	total        atomic.Int64
	serverErrors atomic.Int64
	totalMicros  atomic.Int64
}

// Metrics is a snapshot of the traced traffic since start.
type Metrics struct {
	TotalRequests     int64 `json:"total_requests"`
	ServerErrors      int64 `json:"server_errors"`
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    logger,
		requests:  log.NewStructuredLogger(logger),
	}
}

// Middleware returns HTTP middleware for request tracing. Handlers further
// down find a request-scoped logger with log.FromContext.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, m.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		m.requests.LogHTTPStart(ctx, r, requestID, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.total.Add(1)
		m.totalMicros.Add(elapsed.Microseconds())
		if rw.statusCode >= http.StatusInternalServerError {
			m.serverErrors.Add(1)
		}

		m.requests.LogHTTPEnd(ctx, r, requestID, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns the counters collected so far.
func (m *Middleware) GetMetrics() Metrics {
	total := m.total.Load()
	out := Metrics{
		TotalRequests: total,
		ServerErrors:  m.serverErrors.Load(),
	}
	if total > 0 {
		out.AverageDurationMs = m.totalMicros.Load() / total / 1000
	}
	return out
}
