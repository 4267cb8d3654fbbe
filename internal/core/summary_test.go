package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsDecodeKeepsOrder(t *testing.T) {
	var a Analytics
	err := json.Unmarshal([]byte(`{"😄": {"count": 3, "total": 150}, "😠": {"count": 1, "total": 20}}`), &a)
	require.NoError(t, err)

	entries := a.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "😄", entries[0].Emotion)
	assert.Equal(t, EmotionStats{Count: 3, Total: 150}, entries[0].Stats)
	assert.Equal(t, "😠", entries[1].Emotion)

	// order is not sorted
	err = json.Unmarshal([]byte(`{"😠": {"count": 1, "total": 20}, "😄": {"count": 3, "total": 150}}`), &a)
	require.NoError(t, err)
	assert.Equal(t, "😠", a.Entries()[0].Emotion)
}

func TestAnalyticsDecodeEmpty(t *testing.T) {
	var a Analytics
	require.NoError(t, json.Unmarshal([]byte(`{}`), &a))
	assert.Equal(t, 0, a.Len())
	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	assert.Equal(t, 0, a.Len())
}

func TestAnalyticsDecodeRejectsArray(t *testing.T) {
	var a Analytics
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &a))
}

func TestAnalyticsEncode(t *testing.T) {
	var a Analytics
	a.Add("😢", 10)
	a.Add("😄", 5)
	a.Add("😢", 2.5)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"😢":{"count":2,"total":12.5},"😄":{"count":1,"total":5}}`, string(out))

	empty, err := json.Marshal(Analytics{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestSummarize(t *testing.T) {
	a := Summarize([]Expense{
		{Emotion: "😠", Amount: 20},
		{Emotion: "😄", Amount: 0.1},
		{Emotion: "😄", Amount: 0.2},
	})
	require.Equal(t, 2, a.Len())
	assert.Equal(t, "😠", a.Entries()[0].Emotion)
	stats, ok := a.Get("😄")
	require.True(t, ok)
	assert.Equal(t, EmotionStats{Count: 2, Total: 0.3}, stats)

	_, ok = a.Get("😞")
	assert.False(t, ok)
}

func TestSummarizeOverflowDoesNotPanic(t *testing.T) {
	huge := []Expense{
		{Emotion: "😄", Amount: 1e308},
		{Emotion: "😄", Amount: 1e308},
		{Emotion: "😄", Amount: 1e308},
	}
	var a Analytics
	require.NotPanics(t, func() { a = Summarize(huge) })

	stats, ok := a.Get("😄")
	require.True(t, ok)
	assert.Equal(t, 3, stats.Count)

	_, err := json.Marshal(a)
	assert.Error(t, err)
}
