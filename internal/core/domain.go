package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

type (
	// EmotionOption is one entry of the emotion picker.
	EmotionOption struct {
		Label string // emoji + localized word
		Value string // canonical emotion code
	}

	// Expense is a stored spending entry as returned by the ledger API.
	Expense struct {
		ID        int64     `json:"id"`
		Emotion   string    `json:"emotion"`
		Amount    float64   `json:"amount"`
		Reason    *string   `json:"reason"`
		CreatedAt Timestamp `json:"created_at"`
	}

	// NewExpense is the body of a create request.
	NewExpense struct {
		Emotion string  `json:"emotion"`
		Amount  float64 `json:"amount"`
		Reason  *string `json:"reason"`
	}
)

var emotionOptions = []EmotionOption{
	{Label: "😄 開心", Value: "😄"},
	{Label: "😐 麻木", Value: "😐"},
	{Label: "😠 憤怒", Value: "😠"},
	{Label: "😢 內疚", Value: "😢"},
	{Label: "😤 壓力", Value: "😤"},
	{Label: "😞 後悔", Value: "😞"},
}

var (
	ErrMissingFields  = errors.New("emotion and amount are required")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrUnknownEmotion = errors.New("unknown emotion")
	ErrEmptyEmotion   = errors.New("empty emotion")
)

// EmotionOptions returns the fixed picker options in display order.
func EmotionOptions() []EmotionOption {
	return append([]EmotionOption(nil), emotionOptions...)
}

// IsEmotion reports whether code is one of the picker values.
func IsEmotion(code string) bool {
	for _, o := range emotionOptions {
		if o.Value == code {
			return true
		}
	}
	return false
}

// ReasonText returns the reason or "" when absent.
func (e Expense) ReasonText() string {
	if e.Reason == nil {
		return ""
	}
	return *e.Reason
}

// Validate checks a create request before it is stored. Any emotion code is
// accepted so that entries written by other clients stay readable.
func (n NewExpense) Validate() error {
	if strings.TrimSpace(n.Emotion) == "" {
		return ErrEmptyEmotion
	}
	if math.IsNaN(n.Amount) || n.Amount < 0 || n.Amount > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

// Timestamp is a time.Time that also accepts ISO timestamps without a zone,
// which is how some ledger backends serialize naive UTC datetimes.
type Timestamp struct {
	time.Time
}

const naiveLayout = "2006-01-02T15:04:05.999999999"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.Time.UTC().MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
