package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EmotionStats aggregates the expenses recorded under one emotion.
type EmotionStats struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// AnalyticsEntry is one row of the analytics mapping.
type AnalyticsEntry struct {
	Emotion string
	Stats   EmotionStats
}

// Analytics maps emotion codes to their stats, keeping the order in which
// emotions were first added or decoded. The zero value is an empty mapping.
type Analytics struct {
	entries []AnalyticsEntry
	index   map[string]int
}

// Len returns the number of emotions in the mapping.
func (a Analytics) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the rows in mapping order.
func (a Analytics) Entries() []AnalyticsEntry {
	return append([]AnalyticsEntry(nil), a.entries...)
}

// Get returns the stats for emotion.
func (a Analytics) Get(emotion string) (EmotionStats, bool) {
	i, ok := a.index[emotion]
	if !ok {
		return EmotionStats{}, false
	}
	return a.entries[i].Stats, true
}

// Set stores stats for emotion; a new emotion is appended at the end.
func (a *Analytics) Set(emotion string, stats EmotionStats) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[emotion]; ok {
		a.entries[i].Stats = stats
		return
	}
	a.index[emotion] = len(a.entries)
	a.entries = append(a.entries, AnalyticsEntry{Emotion: emotion, Stats: stats})
}

// Add counts one expense of amount under emotion.
func (a *Analytics) Add(emotion string, amount float64) {
	stats, _ := a.Get(emotion)
	stats.Count++
	stats.Total = AddAmounts(stats.Total, amount)
	a.Set(emotion, stats)
}

// Summarize builds the analytics mapping for a list of expenses, in the
// order emotions first appear in the list.
func Summarize(expenses []Expense) Analytics {
	var a Analytics
	for _, e := range expenses {
		a.Add(e.Emotion, e.Amount)
	}
	return a
}

// MarshalJSON writes the mapping as a JSON object with keys in mapping order.
func (a Analytics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range a.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Emotion)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Stats)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (a *Analytics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Analytics{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("analytics: expected object, got %v", tok)
	}

	var out Analytics
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("analytics: expected string key, got %v", tok)
		}
		var stats EmotionStats
		if err := dec.Decode(&stats); err != nil {
			return fmt.Errorf("analytics %q: %w", key, err)
		}
		out.Set(key, stats)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}
