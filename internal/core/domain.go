package core

import (
	"errors"
	"math"
	"strings"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

type (
	TransactionType string

	// Transaction is a single ledger entry. Amount is always non-negative,
	// the sign comes from Type.
	Transaction struct {
		ID       string          `json:"id"`
		Amount   float64         `json:"amount"`
		Category string          `json:"category"`
		Note     string          `json:"note"`
		Date     string          `json:"date"`
		Type     TransactionType `json:"type"`
		Emoji    string          `json:"emoji,omitempty"`
	}

	// TransactionDraft is a transaction that has not been stored yet.
	TransactionDraft struct {
		Amount   float64         `json:"amount"`
		Category string          `json:"category"`
		Note     string          `json:"note"`
		Date     string          `json:"date"`
		Type     TransactionType `json:"type"`
		Emoji    string          `json:"emoji,omitempty"`
	}

	SavingsGoal struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		TargetAmount float64 `json:"targetAmount"`
		SavedAmount  float64 `json:"savedAmount"`
		Emoji        string  `json:"emoji"`
		Color        string  `json:"color"`
	}

	GoalDraft struct {
		Name         string  `json:"name"`
		TargetAmount float64 `json:"targetAmount"`
		Emoji        string  `json:"emoji"`
		Color        string  `json:"color"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty goal name")
	ErrInvalidTarget = errors.New("invalid target amount")
)

// IsValid reports whether t is one of the two known transaction types.
func (t TransactionType) IsValid() bool {
	return t == Expense || t == Income
}

// ParseTransactionType maps free text to a type. Anything that is not
// "income" (case-insensitive) is an expense.
func ParseTransactionType(s string) TransactionType {
	if strings.EqualFold(strings.TrimSpace(s), string(Income)) {
		return Income
	}
	return Expense
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (d TransactionDraft) Validate() error {
	if !validAmount(d.Amount) {
		return ErrInvalidAmount
	}
	if !d.Type.IsValid() {
		return ErrInvalidType
	}
	if !IsDate(d.Date) {
		return ErrInvalidDate
	}
	return nil
}

// WithID materializes the draft as a stored transaction.
func (d TransactionDraft) WithID(id string) Transaction {
	return Transaction{
		ID:       id,
		Amount:   d.Amount,
		Category: d.Category,
		Note:     d.Note,
		Date:     d.Date,
		Type:     d.Type,
		Emoji:    d.Emoji,
	}
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() float64 {
	if t.Type == Income {
		return t.Amount
	}
	return -t.Amount
}

// Glyph returns the emoji to render, falling back to the default one.
func (t Transaction) Glyph() string {
	if t.Emoji != "" {
		return t.Emoji
	}
	return DefaultTransactionEmoji
}

func (d GoalDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if d.TargetAmount <= 0 || math.IsNaN(d.TargetAmount) || math.IsInf(d.TargetAmount, 0) {
		return ErrInvalidTarget
	}
	return nil
}

// WithID materializes the draft as a goal with nothing saved yet.
func (d GoalDraft) WithID(id string) SavingsGoal {
	emoji := d.Emoji
	if emoji == "" {
		emoji = DefaultGoalEmoji
	}
	return SavingsGoal{
		ID:           id,
		Name:         strings.TrimSpace(d.Name),
		TargetAmount: d.TargetAmount,
		SavedAmount:  0,
		Emoji:        emoji,
		Color:        d.Color,
	}
}
