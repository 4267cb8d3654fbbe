// Package view is the controller behind the entry page: it owns the draft,
// the loaded expenses and analytics, and coordinates reads and writes
// against the ledger API.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"emoledger/internal/core"
	"emoledger/internal/log"
)

// Backend is the ledger API as seen by the view.
type Backend interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	EmotionAnalytics(ctx context.Context) (core.Analytics, error)
	CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
}

// User-visible messages.
const (
	AlertMissingFields = "請先選情緒，再輸入金額"
	AlertInvalidAmount = "金額必須係正數"
	ErrorSaveFailed    = "記錄失敗，請稍後再試"
	ErrorLoadFailed    = "載入資料失敗，顯示緊嘅可能唔係最新資料"
	AnalyticsEmpty     = "未有資料"
)

// RecentLimit is how many expenses the recent list shows.
const RecentLimit = 5

// Outcome classifies a submission.
type Outcome int

const (
	// OutcomeInvalid means validation failed and nothing was sent.
	OutcomeInvalid Outcome = iota
	// OutcomeFailed means the write request failed; the draft is kept.
	OutcomeFailed
	// OutcomeSaved means the expense was stored and the data reloaded.
	OutcomeSaved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	case OutcomeSaved:
		return "saved"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SubmitResult reports what Submit did.
type SubmitResult struct {
	Outcome Outcome
	// Message is the alert (invalid) or error (failed) to show the user.
	Message string
	// Err is the validation or write error.
	Err error
	// ReloadErr is set when the expense was saved but the reload failed.
	ReloadErr error
}

// View holds the state of one entry page.
type View struct {
	backend Backend
	logger  *log.Logger

	mu        sync.Mutex
	shown     bool
	loaded    bool
	draft     core.Draft
	expenses  []core.Expense
	analytics core.Analytics
	loadErr   error
}

// Option configures a View
type Option func(*View)

// WithLogger sets the view logger
func WithLogger(logger *log.Logger) Option {
	return func(v *View) {
		v.logger = logger
	}
}

// New creates a view backed by backend.
func New(backend Backend, options ...Option) *View {
	v := &View{
		backend: backend,
		logger:  log.New(log.DefaultConfig()),
	}
	for _, option := range options {
		option(v)
	}
	v.logger = v.logger.WithComponent(log.ComponentView)
	return v
}

// Show loads the data the first time the view is shown. Later calls do
// nothing once a load has succeeded; until then each call retries.
func (v *View) Show(ctx context.Context) error {
	v.mu.Lock()
	if v.shown && v.loaded {
		v.mu.Unlock()
		return nil
	}
	v.shown = true
	v.mu.Unlock()

	return v.Load(ctx)
}

// Shown reports whether Show has run.
func (v *View) Shown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shown
}

// Load fetches the expense list and the analytics concurrently and replaces
// both only when both succeed.
func (v *View) Load(ctx context.Context) error {
	var (
		expenses  []core.Expense
		analytics core.Analytics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = v.backend.ListExpenses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		analytics, err = v.backend.EmotionAnalytics(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		v.mu.Lock()
		v.loadErr = err
		v.mu.Unlock()
		v.logger.ErrorContext(ctx, "Failed to load ledger data",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return fmt.Errorf("load data: %w", err)
	}

	v.mu.Lock()
	v.expenses = expenses
	v.analytics = analytics
	v.loadErr = nil
	v.loaded = true
	v.mu.Unlock()

	v.logger.DebugContext(ctx, "Ledger data loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldCount, len(expenses),
		"emotions", analytics.Len())
	return nil
}

// SelectEmotion makes code the selected emotion. Selecting the current
// emotion again keeps it selected.
func (v *View) SelectEmotion(code string) error {
	if !core.IsEmotion(code) {
		return fmt.Errorf("select %q: %w", code, core.ErrUnknownEmotion)
	}
	v.mu.Lock()
	v.draft.Emotion = code
	v.mu.Unlock()
	return nil
}

// UpdateDraft records the amount and reason typed so far.
func (v *View) UpdateDraft(amount, reason string) {
	v.mu.Lock()
	v.draft.Amount = amount
	v.draft.Reason = reason
	v.mu.Unlock()
}

// Draft returns a copy of the current draft.
func (v *View) Draft() core.Draft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Submit validates the draft and sends it. On success the draft is reset
// and the data reloaded once; otherwise the draft is left as it was.
func (v *View) Submit(ctx context.Context) SubmitResult {
	draft := v.Draft()

	req, err := draft.ToNewExpense()
	if err != nil {
		msg := AlertMissingFields
		if errors.Is(err, core.ErrInvalidAmount) {
			msg = AlertInvalidAmount
		}
		v.logger.InfoContext(ctx, "Submission rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err)
		return SubmitResult{Outcome: OutcomeInvalid, Message: msg, Err: err}
	}

	created, err := v.backend.CreateExpense(ctx, req)
	if err != nil {
		v.logger.ErrorContext(ctx, "Failed to save expense",
			log.FieldOperation, log.OpSubmit,
			log.FieldEmotion, req.Emotion,
			log.FieldAmount, req.Amount,
			log.FieldError, err)
		return SubmitResult{Outcome: OutcomeFailed, Message: ErrorSaveFailed, Err: err}
	}

	v.mu.Lock()
	v.draft.Reset()
	v.mu.Unlock()

	v.logger.InfoContext(ctx, "Expense saved",
		log.FieldOperation, log.OpSubmit,
		log.FieldExpenseID, created.ID,
		log.FieldEmotion, req.Emotion,
		log.FieldAmount, req.Amount)

	result := SubmitResult{Outcome: OutcomeSaved}
	if err := v.Load(ctx); err != nil {
		result.ReloadErr = err
	}
	return result
}

// LoadErr returns the error of the last failed load, or nil once a load
// has succeeded.
func (v *View) LoadErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}
