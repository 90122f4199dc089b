package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"qmoney/internal/core"
)

func sequence(prefix string) IDGenerator {
	var mu sync.Mutex
	n := 0
	return IDFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	})
}

func draft(amount float64, typ core.TransactionType) core.TransactionDraft {
	return core.TransactionDraft{Amount: amount, Category: "餐饮", Date: "2024-05-10", Type: typ}
}

func TestTransactionStoreAddPrepends(t *testing.T) {
	s := NewTransactionStore(sequence("t"))
	a, err := s.Add(draft(1, core.Expense))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := s.Add(draft(2, core.Income))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids must be unique, got %q twice", a.ID)
	}

	list := s.List()
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestTransactionStoreRejectsInvalidDraft(t *testing.T) {
	s := NewTransactionStore(nil)
	_, err := s.Add(draft(-5, core.Expense))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("invalid draft must not be stored")
	}
}

func TestTransactionStoreRemove(t *testing.T) {
	s := NewTransactionStore(sequence("t"))
	a, _ := s.Add(draft(1, core.Expense))
	b, _ := s.Add(draft(2, core.Expense))
	c, _ := s.Add(draft(3, core.Expense))

	if !s.Remove(b.ID) {
		t.Fatalf("expected removal of %q", b.ID)
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != c.ID || list[1].ID != a.ID {
		t.Fatalf("order not preserved after remove: %+v", list)
	}

	before := s.List()
	if s.Remove("missing") {
		t.Fatalf("missing id must report false")
	}
	after := s.List()
	if len(before) != len(after) {
		t.Fatalf("remove of missing id changed the collection")
	}
}

func TestTransactionStoreListIsSnapshot(t *testing.T) {
	s := NewTransactionStore(sequence("t"))
	_, _ = s.Add(draft(1, core.Expense))
	list := s.List()
	list[0].Amount = 999
	if got := s.List()[0].Amount; got != 1 {
		t.Fatalf("mutating a snapshot leaked into the store: %v", got)
	}
}

func TestTransactionStoreRetriesCollidingIDs(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	s := NewTransactionStore(IDFunc(func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}))
	first, _ := s.Add(draft(1, core.Expense))
	second, err := s.Add(draft(2, core.Expense))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID != "dup" || second.ID != "fresh" {
		t.Fatalf("unexpected ids %q, %q", first.ID, second.ID)
	}

	stuck := NewTransactionStore(IDFunc(func() string { return "same" }))
	_, _ = stuck.Add(draft(1, core.Expense))
	if _, err := stuck.Add(draft(1, core.Expense)); !errors.Is(err, ErrIDExhausted) {
		t.Fatalf("expected ErrIDExhausted, got %v", err)
	}
}

func TestTransactionStoreConcurrentAdds(t *testing.T) {
	s := NewTransactionStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(draft(1, core.Expense))
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, tx := range s.List() {
		if seen[tx.ID] {
			t.Fatalf("duplicate id %q", tx.ID)
		}
		seen[tx.ID] = true
	}
	if len(seen) != 50 {
		t.Fatalf("expected 50 transactions, got %d", len(seen))
	}
}

func TestGoalStoreAddAppends(t *testing.T) {
	s := NewGoalStore(sequence("g"))
	a, err := s.Add(core.GoalDraft{Name: "新手机", TargetAmount: 6000})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, _ := s.Add(core.GoalDraft{Name: "旅行", TargetAmount: 3000, Color: "#000000"})

	list := s.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("expected creation order, got %+v", list)
	}
	if a.SavedAmount != 0 {
		t.Fatalf("new goal must start at zero, got %v", a.SavedAmount)
	}
	if a.Color != core.GoalPalette[0] || b.Color != "#000000" {
		t.Fatalf("unexpected colours %q, %q", a.Color, b.Color)
	}
}

func TestGoalStoreAddRejectsInvalid(t *testing.T) {
	s := NewGoalStore(nil)
	if _, err := s.Add(core.GoalDraft{Name: "", TargetAmount: 10}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := s.Add(core.GoalDraft{Name: "x", TargetAmount: 0}); !errors.Is(err, core.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestGoalStoreDeposit(t *testing.T) {
	s := NewGoalStore(sequence("g"))
	g, _ := s.Add(core.GoalDraft{Name: "新手机", TargetAmount: 6000})

	tests := []struct {
		name    string
		id      string
		amount  float64
		found   bool
		wantErr error
		saved   float64
	}{
		{"first deposit", g.ID, 1500, true, nil, 1500},
		{"second deposit", g.ID, 0.5, true, nil, 1500.5},
		{"zero rejected", g.ID, 0, false, core.ErrInvalidAmount, 1500.5},
		{"negative rejected", g.ID, -10, false, core.ErrInvalidAmount, 1500.5},
		{"unknown id is a no-op", "nope", 10, false, nil, 1500.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := s.Deposit(tt.id, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			got, _ := s.Get(g.ID)
			if got.SavedAmount != tt.saved {
				t.Fatalf("saved = %v, want %v", got.SavedAmount, tt.saved)
			}
		})
	}
}

func TestGoalStoreDepositBeyondTarget(t *testing.T) {
	s := NewGoalStore(nil)
	g, _ := s.Add(core.GoalDraft{Name: "x", TargetAmount: 100})
	if _, err := s.Deposit(g.ID, 250); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	got, _ := s.Get(g.ID)
	if got.SavedAmount != 250 {
		t.Fatalf("saved amount must not be capped, got %v", got.SavedAmount)
	}
}

func TestGoalStoreRemoveAndReplace(t *testing.T) {
	s := NewGoalStore(sequence("g"))
	a, _ := s.Add(core.GoalDraft{Name: "a", TargetAmount: 1})
	b, _ := s.Add(core.GoalDraft{Name: "b", TargetAmount: 1})
	if !s.Remove(a.ID) || s.Remove(a.ID) {
		t.Fatalf("remove should succeed once")
	}
	if list := s.List(); len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("unexpected goals after remove: %+v", list)
	}

	s.Replace([]core.SavingsGoal{{ID: "x", Name: "restored", TargetAmount: 5}})
	if s.Len() != 1 {
		t.Fatalf("replace: expected 1 goal, got %d", s.Len())
	}
	if _, ok := s.Get("x"); !ok {
		t.Fatalf("restored goal not found")
	}
}
