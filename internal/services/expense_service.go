// Package services holds the ledger use cases shared by the API handlers.
package services

import (
	"context"
	"errors"
	"fmt"

	"emoledger/internal/core"
	"emoledger/internal/log"
)

// Store persists expenses.
type Store interface {
	CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	Close() error
}

// Publisher announces stored expenses.
type Publisher interface {
	PublishExpenseRecorded(ctx context.Context, e core.Expense) error
	Close() error
}

// ExpenseService orchestrates expense operations across storage and AMQP
type ExpenseService struct {
	storage   Store
	publisher Publisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

// Option configures an ExpenseService
type Option func(*ExpenseService)

// WithPublisher enables expense events.
func WithPublisher(p Publisher) Option {
	return func(s *ExpenseService) {
		s.publisher = p
	}
}

// WithLogger sets the service logger
func WithLogger(logger *log.Logger) Option {
	return func(s *ExpenseService) {
		s.logger = logger
	}
}

func NewExpenseService(storage Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		storage: storage,
		logger:  log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = log.NewStructuredLogger(s.logger)
	s.logger = s.logger.WithComponent(log.ComponentExpense)
	return s
}

// CreateExpense saves an expense and then publishes its event. A publish
// failure is logged; the expense stays saved.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.events.LogExpenseCreated(ctx, created.ID, created.Emotion, created.Amount)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping expense event")
		return created, nil
	}
	if err := s.publisher.PublishExpenseRecorded(ctx, created); err != nil {
		s.events.LogError(ctx, "Failed to publish expense event", err, log.ComponentExpense, log.OpPublish,
			log.NewFields().WithExpense(created.ID, created.Emotion, created.Amount).WithErrorType(log.ErrorTypeNetwork))
	}

	return created, nil
}

// GetExpense returns one expense.
func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// ListExpenses returns all expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx)
}

// EmotionAnalytics aggregates all expenses per emotion, in the order each
// emotion first appears in the newest-first list.
func (s *ExpenseService) EmotionAnalytics(ctx context.Context) (core.Analytics, error) {
	expenses, err := s.storage.ListExpenses(ctx)
	if err != nil {
		return core.Analytics{}, fmt.Errorf("emotion analytics: %w", err)
	}
	return core.Summarize(expenses), nil
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
