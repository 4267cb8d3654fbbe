package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"emoledger/internal/core"
)

// ExpenseRecordedMessage announces that an expense has been stored.
type ExpenseRecordedMessage struct {
	ID        int64     `json:"id"`
	Emotion   string    `json:"emotion"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage builds the message for a stored expense. The
// timestamp is the expense creation time, or now when that is unknown.
func NewExpenseRecordedMessage(e core.Expense) *ExpenseRecordedMessage {
	ts := e.CreatedAt.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ExpenseRecordedMessage{
		ID:        e.ID,
		Emotion:   e.Emotion,
		Amount:    e.Amount,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON decodes and checks a message body.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, errors.New("message has no expense id")
	}
	if strings.TrimSpace(msg.Emotion) == "" {
		return nil, errors.New("message has no emotion")
	}
	return &msg, nil
}
