// Package storage persists expenses in a sqlite database whose schema is
// managed by embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"emoledger/internal/core"
	"emoledger/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an expense does not exist.
var ErrNotFound = errors.New("expense not found")

// timeLayout has a fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// Option configures a SQLiteRepository
type Option func(*SQLiteRepository)

// WithLogger sets the repository logger
func WithLogger(logger *log.Logger) Option {
	return func(r *SQLiteRepository) {
		r.logger = logger
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) {
		r.now = now
	}
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer; one connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  log.New(log.DefaultConfig()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(repo)
	}
	repo.logger = repo.logger.WithComponent(log.ComponentStorage)

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateExpense stores e with the current UTC time and returns the stored row.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	var reason sql.NullString
	if e.Reason != nil {
		reason = sql.NullString{String: *e.Reason, Valid: true}
	}

	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Amount:    e.Amount,
		Emotion:   e.Emotion,
		Reason:    reason,
		CreatedAt: r.now().UTC().Format(timeLayout),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	expense, err := toExpense(row)
	if err != nil {
		return core.Expense{}, err
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldOperation, log.OpCreate,
		log.FieldExpenseID, expense.ID,
		log.FieldEmotion, expense.Emotion,
		log.FieldAmount, expense.Amount)

	return expense, nil
}

// GetExpense returns the expense with id or ErrNotFound.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return toExpense(row)
}

// ListExpenses returns every expense, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toExpense(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// CountExpenses returns the number of stored expenses.
func (r *SQLiteRepository) CountExpenses(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func toExpense(row ExpenseRow) (core.Expense, error) {
	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at of expense %d: %w", row.ID, err)
	}

	e := core.Expense{
		ID:        row.ID,
		Emotion:   row.Emotion,
		Amount:    row.Amount,
		CreatedAt: core.Timestamp{Time: createdAt.UTC()},
	}
	if row.Reason.Valid {
		reason := row.Reason.String
		e.Reason = &reason
	}
	return e, nil
}
