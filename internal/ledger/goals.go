package ledger

import (
	"fmt"
	"math"
	"sync"

	"qmoney/internal/core"
)

// GoalStore keeps savings goals in creation order.
type GoalStore struct {
	mu    sync.RWMutex
	ids   IDGenerator
	items []core.SavingsGoal
}

func NewGoalStore(ids IDGenerator) *GoalStore {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &GoalStore{ids: ids}
}

// Add validates the draft and appends a goal with nothing saved. An empty
// colour is filled from the goal palette.
func (s *GoalStore) Add(d core.GoalDraft) (core.SavingsGoal, error) {
	if err := d.Validate(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("validate goal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := freshID(s.ids, s.hasLocked)
	if !ok {
		return core.SavingsGoal{}, ErrIDExhausted
	}
	g := d.WithID(id)
	if g.Color == "" {
		g.Color = core.GoalColor(len(s.items))
	}
	s.items = append(s.items, g)
	return g, nil
}

// Deposit adds amount to the goal's saved amount. Non-positive amounts are
// rejected; an unknown id is a no-op and reports false.
func (s *GoalStore) Deposit(id string, amount float64) (bool, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false, core.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].SavedAmount = core.SumAmounts(s.items[i].SavedAmount, amount)
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes the goal with the given id, reporting whether it existed.
func (s *GoalStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.items {
		if g.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *GoalStore) Get(id string) (core.SavingsGoal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.items {
		if g.ID == id {
			return g, true
		}
	}
	return core.SavingsGoal{}, false
}

// List returns a snapshot of the goals.
func (s *GoalStore) List() []core.SavingsGoal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.SavingsGoal, len(s.items))
	copy(out, s.items)
	return out
}

// Replace swaps the whole collection, used when restoring persisted state.
func (s *GoalStore) Replace(all []core.SavingsGoal) {
	items := make([]core.SavingsGoal, len(all))
	copy(items, all)
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

func (s *GoalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *GoalStore) hasLocked(id string) bool {
	for _, g := range s.items {
		if g.ID == id {
			return true
		}
	}
	return false
}
