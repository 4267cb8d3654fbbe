package core

import "strings"

// Draft is the unsaved input of the entry form.
type Draft struct {
	Emotion string
	Amount  string
	Reason  string
}

// Reset clears every field of the draft.
func (d *Draft) Reset() {
	*d = Draft{}
}

// Validate checks the draft is ready to be sent. A missing emotion or amount
// returns ErrMissingFields; an amount that is not a non-negative number
// returns ErrInvalidAmount.
func (d Draft) Validate() error {
	if d.Emotion == "" || strings.TrimSpace(d.Amount) == "" {
		return ErrMissingFields
	}
	if _, err := ParseAmount(d.Amount); err != nil {
		return err
	}
	return nil
}

// ToNewExpense converts a valid draft into a create request. The reason is
// always sent, as an empty string when left blank.
func (d Draft) ToNewExpense() (NewExpense, error) {
	if err := d.Validate(); err != nil {
		return NewExpense{}, err
	}
	amount, _ := ParseAmount(d.Amount)
	f, _ := amount.Float64()
	reason := d.Reason
	return NewExpense{
		Emotion: d.Emotion,
		Amount:  f,
		Reason:  &reason,
	}, nil
}
