package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emoledger/internal/core"
	"emoledger/internal/log"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRepo(t *testing.T, opts ...Option) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	repo, err := NewSQLiteRepository(path, append([]Option{WithLogger(log.Discard())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetExpense(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, WithClock(clock.now))
	ctx := context.Background()

	created, err := repo.CreateExpense(ctx, core.NewExpense{Emotion: "😄", Amount: 12.5, Reason: strPtr("lunch")})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "😄", created.Emotion)
	assert.Equal(t, 12.5, created.Amount)
	assert.Equal(t, "lunch", created.ReasonText())
	assert.True(t, created.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC)))

	got, err := repo.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt.Time))
}

func TestCreateWithoutReason(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreateExpense(context.Background(), core.NewExpense{Emotion: "😐", Amount: 0})
	require.NoError(t, err)
	assert.Nil(t, created.Reason)
}

func TestCreateRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateExpense(ctx, core.NewExpense{Emotion: " ", Amount: 1})
	assert.ErrorIs(t, err, core.ErrEmptyEmotion)

	_, err = repo.CreateExpense(ctx, core.NewExpense{Emotion: "😄", Amount: -1})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	n, err := repo.CountExpenses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetExpenseNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetExpense(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListExpensesNewestFirst(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := &stepClock{t: fixed}
	repo := newTestRepo(t, WithClock(clock.now))
	ctx := context.Background()

	for _, emotion := range []string{"😄", "😠", "😢"} {
		_, err := repo.CreateExpense(ctx, core.NewExpense{Emotion: emotion, Amount: 1})
		require.NoError(t, err)
	}

	list, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"😢", "😠", "😄"}, []string{list[0].Emotion, list[1].Emotion, list[2].Emotion})
}

func TestListExpensesSameTimestampUsesID(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	first, err := repo.CreateExpense(ctx, core.NewExpense{Emotion: "😄", Amount: 1})
	require.NoError(t, err)
	second, err := repo.CreateExpense(ctx, core.NewExpense{Emotion: "😤", Amount: 2})
	require.NoError(t, err)

	list, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListExpensesEmpty(t *testing.T) {
	repo := newTestRepo(t)
	list, err := repo.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path, WithLogger(log.Discard()))
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, core.NewExpense{Emotion: "😞", Amount: 3})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, WithLogger(log.Discard()))
	require.NoError(t, err)
	defer repo.Close()

	n, err := repo.CountExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, repo.Ping(ctx))
}
