package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL used by the repository.
type Queries struct {
	db DBTX
}

// New returns queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ExpenseRow is a row of the expenses table.
type ExpenseRow struct {
	ID        int64
	Amount    float64
	Emotion   string
	Reason    sql.NullString
	CreatedAt string
}

const createExpense = `
INSERT INTO expenses (amount, emotion, reason, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, amount, emotion, reason, created_at
`

// CreateExpenseParams are the columns of a new expense.
type CreateExpenseParams struct {
	Amount    float64
	Emotion   string
	Reason    sql.NullString
	CreatedAt string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense, arg.Amount, arg.Emotion, arg.Reason, arg.CreatedAt)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.Amount, &i.Emotion, &i.Reason, &i.CreatedAt)
	return i, err
}

const getExpense = `
SELECT id, amount, emotion, reason, created_at
FROM expenses
WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id int64) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.Amount, &i.Emotion, &i.Reason, &i.CreatedAt)
	return i, err
}

const listExpenses = `
SELECT id, amount, emotion, reason, created_at
FROM expenses
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.Amount, &i.Emotion, &i.Reason, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExpenses).Scan(&n)
	return n, err
}
