package ledger

import (
	"errors"
	"fmt"
	"sync"

	"qmoney/internal/core"
)

// ErrIDExhausted is returned when no unused id could be generated.
var ErrIDExhausted = errors.New("could not generate a unique id")

// TransactionStore keeps transactions newest-insertion first.
type TransactionStore struct {
	mu    sync.RWMutex
	ids   IDGenerator
	items []core.Transaction
}

func NewTransactionStore(ids IDGenerator) *TransactionStore {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &TransactionStore{ids: ids}
}

// Add validates the draft, assigns a fresh id and prepends the record.
func (s *TransactionStore) Add(d core.TransactionDraft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := freshID(s.ids, s.hasLocked)
	if !ok {
		return core.Transaction{}, ErrIDExhausted
	}
	tx := d.WithID(id)

	items := make([]core.Transaction, 0, len(s.items)+1)
	items = append(items, tx)
	s.items = append(items, s.items...)
	return tx, nil
}

// Remove deletes the transaction with the given id. A missing id is not an
// error; the return value only reports whether something was removed.
func (s *TransactionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a snapshot of the collection.
func (s *TransactionStore) List() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

// Get looks up a transaction by id.
func (s *TransactionStore) Get(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.items {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

// Replace swaps the whole collection, used when restoring persisted state.
func (s *TransactionStore) Replace(all []core.Transaction) {
	items := make([]core.Transaction, len(all))
	copy(items, all)
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *TransactionStore) hasLocked(id string) bool {
	for _, tx := range s.items {
		if tx.ID == id {
			return true
		}
	}
	return false
}
