package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"qmoney/internal/core"
)

// EventKind names the mutation a LedgerEvent describes.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
	GoalCreated        EventKind = "goal.created"
	GoalDeposited      EventKind = "goal.deposited"
	GoalDeleted        EventKind = "goal.deleted"
)

// IsValid reports whether k is one of the known kinds.
func (k EventKind) IsValid() bool {
	switch k {
	case TransactionCreated, TransactionDeleted, GoalCreated, GoalDeposited, GoalDeleted:
		return true
	}
	return false
}

// LedgerEvent is published after every successful mutation. Transaction and
// Goal carry the record as it looked right after the change (or right before
// removal).
type LedgerEvent struct {
	Kind        EventKind         `json:"kind"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Goal        *core.SavingsGoal `json:"goal,omitempty"`
	GoalID      string            `json:"goalId,omitempty"`
	Amount      float64           `json:"amount,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, t core.Transaction) *LedgerEvent {
	return &LedgerEvent{Kind: kind, Transaction: &t, Timestamp: time.Now()}
}

func NewGoalEvent(kind EventKind, g core.SavingsGoal) *LedgerEvent {
	return &LedgerEvent{Kind: kind, Goal: &g, GoalID: g.ID, Timestamp: time.Now()}
}

// NewDepositEvent records amount moved into g; g is the goal after the deposit.
func NewDepositEvent(g core.SavingsGoal, amount float64) *LedgerEvent {
	return &LedgerEvent{Kind: GoalDeposited, Goal: &g, GoalID: g.ID, Amount: amount, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Kind.IsValid() {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	switch e.Kind {
	case TransactionCreated, TransactionDeleted:
		if e.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction", e.Kind)
		}
	case GoalCreated, GoalDeleted:
		if e.Goal == nil {
			return nil, fmt.Errorf("%s event without goal", e.Kind)
		}
	case GoalDeposited:
		if e.Goal == nil && e.GoalID == "" {
			return nil, fmt.Errorf("%s event without goal", e.Kind)
		}
	}
	return &e, nil
}
