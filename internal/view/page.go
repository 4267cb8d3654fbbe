package view

import (
	"fmt"

	"emoledger/internal/core"
)

// EmotionButton is one cell of the emotion grid.
type EmotionButton struct {
	Label    string
	Value    string
	Selected bool
}

// AnalyticsRow is one line of the per-emotion summary.
type AnalyticsRow struct {
	Emotion string
	Count   int
	Total   string
}

// Text renders the row as "<emotion> → <count> 次 / $<total>".
func (r AnalyticsRow) Text() string {
	return fmt.Sprintf("%s → %d 次 / $%s", r.Emotion, r.Count, r.Total)
}

// RecentRow is one entry of the recent expenses list.
type RecentRow struct {
	ID      int64
	Emotion string
	Amount  string
	Reason  string
}

// Text renders the row as "<emotion> $<amount>".
func (r RecentRow) Text() string {
	return fmt.Sprintf("%s $%s", r.Emotion, r.Amount)
}

// Page is the render model of the entry page.
type Page struct {
	Emotions []EmotionButton
	Amount   string
	Reason   string

	Analytics      []AnalyticsRow
	AnalyticsEmpty bool
	Placeholder    string

	Recent []RecentRow

	// Alert and Error are filled in by whoever renders a submission result.
	Alert     string
	Error     string
	LoadError string
}

// Page builds the render model from the current state.
func (v *View) Page() Page {
	v.mu.Lock()
	draft := v.draft
	expenses := v.expenses
	analytics := v.analytics
	loadErr := v.loadErr
	v.mu.Unlock()

	options := core.EmotionOptions()
	page := Page{
		Emotions:    make([]EmotionButton, 0, len(options)),
		Amount:      draft.Amount,
		Reason:      draft.Reason,
		Placeholder: AnalyticsEmpty,
	}

	for _, o := range options {
		page.Emotions = append(page.Emotions, EmotionButton{
			Label:    o.Label,
			Value:    o.Value,
			Selected: o.Value == draft.Emotion,
		})
	}

	for _, e := range analytics.Entries() {
		page.Analytics = append(page.Analytics, AnalyticsRow{
			Emotion: e.Emotion,
			Count:   e.Stats.Count,
			Total:   core.FormatAmount(e.Stats.Total),
		})
	}
	page.AnalyticsEmpty = len(page.Analytics) == 0

	n := min(len(expenses), RecentLimit)
	for _, e := range expenses[:n] {
		page.Recent = append(page.Recent, RecentRow{
			ID:      e.ID,
			Emotion: e.Emotion,
			Amount:  core.FormatAmount(e.Amount),
			Reason:  e.ReasonText(),
		})
	}

	if loadErr != nil {
		page.LoadError = ErrorLoadFailed
	}
	return page
}
