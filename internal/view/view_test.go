package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emoledger/internal/core"
	"emoledger/internal/log"
)

type fakeBackend struct {
	mu        sync.Mutex
	expenses  []core.Expense
	analytics core.Analytics
	created   []core.NewExpense

	listErr      error
	analyticsErr error
	createErr    error

	listCalls      atomic.Int32
	analyticsCalls atomic.Int32
	createCalls    atomic.Int32
}

func (f *fakeBackend) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Expense(nil), f.expenses...), nil
}

func (f *fakeBackend) EmotionAnalytics(ctx context.Context) (core.Analytics, error) {
	f.analyticsCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analyticsErr != nil {
		return core.Analytics{}, f.analyticsErr
	}
	return f.analytics, nil
}

func (f *fakeBackend) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	f.createCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.Expense{}, f.createErr
	}
	f.created = append(f.created, e)
	stored := core.Expense{
		ID:        int64(len(f.created)),
		Emotion:   e.Emotion,
		Amount:    e.Amount,
		Reason:    e.Reason,
		CreatedAt: core.Timestamp{Time: time.Now().UTC()},
	}
	f.expenses = append([]core.Expense{stored}, f.expenses...)
	f.analytics = core.Summarize(f.expenses)
	return stored, nil
}

func newTestView(backend Backend) *View {
	return New(backend, WithLogger(log.Discard()))
}

func expense(id int64, emotion string, amount float64) core.Expense {
	return core.Expense{ID: id, Emotion: emotion, Amount: amount}
}

func TestShowLoadsOnce(t *testing.T) {
	backend := &fakeBackend{}
	v := newTestView(backend)
	ctx := context.Background()

	require.False(t, v.Shown())
	require.NoError(t, v.Show(ctx))
	require.NoError(t, v.Show(ctx))

	assert.True(t, v.Shown())
	assert.Equal(t, int32(1), backend.listCalls.Load())
	assert.Equal(t, int32(1), backend.analyticsCalls.Load())
}

func TestShowRetriesUntilFirstLoadSucceeds(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("connection refused")}
	v := newTestView(backend)
	ctx := context.Background()

	require.Error(t, v.Show(ctx))
	require.Error(t, v.Show(ctx))
	assert.Equal(t, int32(2), backend.listCalls.Load())
	assert.Equal(t, ErrorLoadFailed, v.Page().LoadError)

	backend.mu.Lock()
	backend.listErr = nil
	backend.expenses = []core.Expense{expense(1, "😄", 10)}
	backend.mu.Unlock()

	require.NoError(t, v.Show(ctx))
	assert.Len(t, v.Page().Recent, 1)
	assert.Empty(t, v.Page().LoadError)

	// Loaded once; later shows keep the data without calling the backend.
	require.NoError(t, v.Show(ctx))
	assert.Equal(t, int32(3), backend.listCalls.Load())
}

func TestEmptyBackendShowsPlaceholder(t *testing.T) {
	v := newTestView(&fakeBackend{})
	require.NoError(t, v.Show(context.Background()))

	page := v.Page()
	assert.True(t, page.AnalyticsEmpty)
	assert.Equal(t, "未有資料", page.Placeholder)
	assert.Empty(t, page.Analytics)
	assert.Empty(t, page.Recent)
	assert.Empty(t, page.LoadError)
}

func TestPageGridHasSixOptionsAndOneSelection(t *testing.T) {
	v := newTestView(&fakeBackend{})

	page := v.Page()
	require.Len(t, page.Emotions, 6)
	for _, b := range page.Emotions {
		assert.False(t, b.Selected, b.Value)
	}

	require.NoError(t, v.SelectEmotion("😠"))
	require.NoError(t, v.SelectEmotion("😢"))
	require.NoError(t, v.SelectEmotion("😢"))

	selected := 0
	for _, b := range v.Page().Emotions {
		if b.Selected {
			selected++
			assert.Equal(t, "😢", b.Value)
		}
	}
	assert.Equal(t, 1, selected)
	assert.Equal(t, "😢", v.Draft().Emotion)
}

func TestSelectUnknownEmotion(t *testing.T) {
	v := newTestView(&fakeBackend{})
	require.NoError(t, v.SelectEmotion("😄"))

	err := v.SelectEmotion("🤖")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownEmotion)
	assert.Equal(t, "😄", v.Draft().Emotion)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		emotion string
		amount  string
		alert   string
	}{
		{name: "nothing", alert: AlertMissingFields},
		{name: "no emotion", amount: "50", alert: AlertMissingFields},
		{name: "no amount", emotion: "😄", alert: AlertMissingFields},
		{name: "blank amount", emotion: "😄", amount: "   ", alert: AlertMissingFields},
		{name: "not a number", emotion: "😄", amount: "abc", alert: AlertInvalidAmount},
		{name: "negative", emotion: "😄", amount: "-5", alert: AlertInvalidAmount},
		{name: "nan", emotion: "😄", amount: "NaN", alert: AlertInvalidAmount},
		{name: "beyond float range", emotion: "😄", amount: "1e400", alert: AlertInvalidAmount},
		{name: "above cap", emotion: "😄", amount: "2000000000000", alert: AlertInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			v := newTestView(backend)
			if tt.emotion != "" {
				require.NoError(t, v.SelectEmotion(tt.emotion))
			}
			v.UpdateDraft(tt.amount, "why")

			result := v.Submit(context.Background())

			assert.Equal(t, OutcomeInvalid, result.Outcome)
			assert.Equal(t, tt.alert, result.Message)
			assert.Error(t, result.Err)
			assert.Zero(t, backend.createCalls.Load())
			assert.Zero(t, backend.listCalls.Load())

			draft := v.Draft()
			assert.Equal(t, tt.emotion, draft.Emotion)
			assert.Equal(t, tt.amount, draft.Amount)
			assert.Equal(t, "why", draft.Reason)
		})
	}
}

func TestSubmitSavedResetsAndReloadsOnce(t *testing.T) {
	backend := &fakeBackend{}
	v := newTestView(backend)
	ctx := context.Background()
	require.NoError(t, v.Show(ctx))

	require.NoError(t, v.SelectEmotion("😤"))
	v.UpdateDraft("50", "lunch")

	result := v.Submit(ctx)

	require.Equal(t, OutcomeSaved, result.Outcome)
	assert.NoError(t, result.Err)
	assert.NoError(t, result.ReloadErr)
	assert.Empty(t, result.Message)

	assert.Equal(t, core.Draft{}, v.Draft())
	assert.Equal(t, int32(1), backend.createCalls.Load())
	assert.Equal(t, int32(2), backend.listCalls.Load())
	assert.Equal(t, int32(2), backend.analyticsCalls.Load())

	require.Len(t, backend.created, 1)
	sent := backend.created[0]
	assert.Equal(t, "😤", sent.Emotion)
	assert.Equal(t, 50.0, sent.Amount)
	require.NotNil(t, sent.Reason)
	assert.Equal(t, "lunch", *sent.Reason)

	page := v.Page()
	require.Len(t, page.Analytics, 1)
	assert.Equal(t, "😤 → 1 次 / $50", page.Analytics[0].Text())
	require.Len(t, page.Recent, 1)
	assert.Equal(t, "😤 $50", page.Recent[0].Text())
	assert.Equal(t, "lunch", page.Recent[0].Reason)
	for _, b := range page.Emotions {
		assert.False(t, b.Selected)
	}
}

func TestSubmitSendsEmptyReason(t *testing.T) {
	backend := &fakeBackend{}
	v := newTestView(backend)
	require.NoError(t, v.SelectEmotion("😄"))
	v.UpdateDraft("12.5", "")

	result := v.Submit(context.Background())
	require.Equal(t, OutcomeSaved, result.Outcome)

	require.Len(t, backend.created, 1)
	assert.Equal(t, 12.5, backend.created[0].Amount)
	require.NotNil(t, backend.created[0].Reason)
	assert.Equal(t, "", *backend.created[0].Reason)
}

func TestSubmitFailedKeepsDraft(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("connection refused")}
	v := newTestView(backend)
	ctx := context.Background()
	require.NoError(t, v.Show(ctx))

	require.NoError(t, v.SelectEmotion("😞"))
	v.UpdateDraft("99", "impulse")

	result := v.Submit(ctx)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, ErrorSaveFailed, result.Message)
	assert.EqualError(t, result.Err, "connection refused")
	assert.Equal(t, core.Draft{Emotion: "😞", Amount: "99", Reason: "impulse"}, v.Draft())
	assert.Equal(t, int32(1), backend.listCalls.Load())
}

func TestSubmitSavedButReloadFails(t *testing.T) {
	backend := &fakeBackend{}
	v := newTestView(backend)
	require.NoError(t, v.SelectEmotion("😄"))
	v.UpdateDraft("5", "")

	backend.analyticsErr = errors.New("boom")
	result := v.Submit(context.Background())

	assert.Equal(t, OutcomeSaved, result.Outcome)
	assert.Error(t, result.ReloadErr)
	assert.Equal(t, core.Draft{}, v.Draft())
	assert.Equal(t, ErrorLoadFailed, v.Page().LoadError)
}

func TestLoadIsAllOrNothing(t *testing.T) {
	var analytics core.Analytics
	analytics.Set("😄", core.EmotionStats{Count: 1, Total: 10})
	backend := &fakeBackend{
		expenses:  []core.Expense{expense(1, "😄", 10)},
		analytics: analytics,
	}
	v := newTestView(backend)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	backend.mu.Lock()
	backend.expenses = []core.Expense{expense(2, "😠", 20), expense(1, "😄", 10)}
	backend.listErr = nil
	backend.analyticsErr = errors.New("analytics down")
	backend.mu.Unlock()

	err := v.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analytics down")

	page := v.Page()
	require.Len(t, page.Recent, 1)
	assert.Equal(t, int64(1), page.Recent[0].ID)
	require.Len(t, page.Analytics, 1)
	assert.Equal(t, ErrorLoadFailed, page.LoadError)

	backend.mu.Lock()
	backend.analyticsErr = nil
	backend.mu.Unlock()

	require.NoError(t, v.Load(ctx))
	page = v.Page()
	assert.Len(t, page.Recent, 2)
	assert.Empty(t, page.LoadError)
}

func TestRecentIsCappedAtFive(t *testing.T) {
	var expenses []core.Expense
	for i := int64(7); i >= 1; i-- {
		expenses = append(expenses, expense(i, "😐", float64(i)))
	}
	v := newTestView(&fakeBackend{expenses: expenses})
	require.NoError(t, v.Load(context.Background()))

	recent := v.Page().Recent
	require.Len(t, recent, RecentLimit)
	for i, r := range recent {
		assert.Equal(t, expenses[i].ID, r.ID)
	}
}

func TestAnalyticsRowsFollowBackendOrder(t *testing.T) {
	var analytics core.Analytics
	analytics.Set("😢", core.EmotionStats{Count: 2, Total: 0.3})
	analytics.Set("😄", core.EmotionStats{Count: 1, Total: 12.5})
	analytics.Set("😠", core.EmotionStats{Count: 3, Total: 150})
	v := newTestView(&fakeBackend{analytics: analytics})
	require.NoError(t, v.Load(context.Background()))

	page := v.Page()
	assert.False(t, page.AnalyticsEmpty)

	var lines []string
	for _, r := range page.Analytics {
		lines = append(lines, r.Text())
	}
	assert.Equal(t, []string{
		"😢 → 2 次 / $0.3",
		"😄 → 1 次 / $12.5",
		"😠 → 3 次 / $150",
	}, lines)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "invalid", OutcomeInvalid.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "saved", OutcomeSaved.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
