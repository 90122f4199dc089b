package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"qmoney/internal/amqp"
	"qmoney/internal/core"
	"qmoney/internal/kv"
	"qmoney/internal/kv/memory"
	"qmoney/internal/ledger"
	applog "qmoney/internal/log"
	"qmoney/internal/query"
)

var testNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.Local)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, s.err }
func (s failingStore) Set(context.Context, string, []byte) error        { return s.err }
func (s failingStore) Ping(context.Context) error                      { return s.err }
func (s failingStore) Close() error                                    { return nil }

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func sequentialIDs() ledger.IDGenerator {
	n := 0
	var mu sync.Mutex
	return ledger.IDFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func newTestTracker(t *testing.T, store kv.Store, pub Publisher) *Tracker {
	t.Helper()
	tr := NewTracker(store, pub, TrackerConfig{}, quietLogger(),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()))
	return tr
}

func storedTransactions(t *testing.T, store kv.Store) []core.Transaction {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), "qmoney_transactions")
	if err != nil || !ok {
		t.Fatalf("transactions not persisted: ok=%v err=%v", ok, err)
	}
	var txs []core.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		t.Fatalf("persisted value is not JSON: %v", err)
	}
	return txs
}

func storedGoals(t *testing.T, store kv.Store) []core.SavingsGoal {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), "qmoney_goals")
	if err != nil || !ok {
		t.Fatalf("goals not persisted: ok=%v err=%v", ok, err)
	}
	var goals []core.SavingsGoal
	if err := json.Unmarshal(raw, &goals); err != nil {
		t.Fatalf("persisted value is not JSON: %v", err)
	}
	return goals
}

func TestTracker_LoadSeedsEmptyStore(t *testing.T) {
	store := memory.New()
	tr := newTestTracker(t, store, nil)
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	txs := tr.Transactions()
	if len(txs) != 3 {
		t.Fatalf("expected 3 seed transactions, got %d", len(txs))
	}
	wantDates := []string{"2024-05-10", "2024-05-08", "2024-05-09"}
	for i, tx := range txs {
		if tx.Date != wantDates[i] {
			t.Errorf("seed %d date = %s, want %s", i, tx.Date, wantDates[i])
		}
	}
	goals := tr.Goals()
	if len(goals) != 1 || goals[0].Name != "新手机" || goals[0].SavedAmount != 1500 || goals[0].TargetAmount != 6000 {
		t.Fatalf("unexpected seed goals %+v", goals)
	}

	if got := storedTransactions(t, store); len(got) != 3 {
		t.Fatalf("seed not written back, got %d", len(got))
	}
	if got := storedGoals(t, store); len(got) != 1 {
		t.Fatalf("seed goals not written back, got %d", len(got))
	}
}

func TestTracker_LoadExistingData(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.Set(ctx, "qmoney_transactions", []byte(`[{"id":"a","amount":12,"category":"交通","note":"地铁","date":"2024-05-01","type":"expense"}]`))
	_ = store.Set(ctx, "qmoney_goals", []byte(`[]`))

	tr := newTestTracker(t, store, nil)
	if err := tr.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if txs := tr.Transactions(); len(txs) != 1 || txs[0].ID != "a" {
		t.Fatalf("unexpected transactions %+v", txs)
	}
	if len(tr.Goals()) != 0 {
		t.Fatal("an empty stored list must not be replaced by seed data")
	}
}

func TestTracker_LoadCorruptValueFallsBackToSeed(t *testing.T) {
	store := memory.New()
	_ = store.Set(context.Background(), "qmoney_transactions", []byte(`{not json`))

	tr := newTestTracker(t, store, nil)
	if err := tr.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.Transactions()) != 3 {
		t.Fatal("expected seed data for corrupt value")
	}
}

func TestTracker_LoadStoreErrorKeepsDatabaseUntouched(t *testing.T) {
	boom := errors.New("database unavailable")
	tr := newTestTracker(t, failingStore{err: boom}, nil)
	err := tr.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(tr.Transactions()) != 3 {
		t.Fatal("seed data should still be served in memory")
	}
}

func TestTracker_TransactionLifecycle(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	tr := newTestTracker(t, store, pub)
	ctx := context.Background()
	_ = tr.Load(ctx)

	tx, err := tr.AddTransaction(ctx, core.TransactionDraft{Amount: 32, Category: "交通", Note: "打车", Date: "2024-05-10", Type: core.Expense})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if tx.ID != "id-1" {
		t.Fatalf("unexpected id %q", tx.ID)
	}
	if got := tr.Transactions(); got[0].ID != tx.ID {
		t.Fatal("new transaction should be first")
	}
	if got := storedTransactions(t, store); len(got) != 4 || got[0].ID != tx.ID {
		t.Fatalf("persisted snapshot not updated: %+v", got)
	}

	if !tr.RemoveTransaction(ctx, tx.ID) {
		t.Fatal("RemoveTransaction() = false")
	}
	if tr.RemoveTransaction(ctx, tx.ID) {
		t.Fatal("second removal should be a no-op")
	}
	if got := storedTransactions(t, store); len(got) != 3 {
		t.Fatalf("removal not persisted, %d left", len(got))
	}

	want := []amqp.EventKind{amqp.TransactionCreated, amqp.TransactionDeleted}
	if got := pub.kinds(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestTracker_InvalidTransactionRejected(t *testing.T) {
	pub := &recordingPublisher{}
	tr := newTestTracker(t, memory.New(), pub)
	_ = tr.Load(context.Background())

	_, err := tr.AddTransaction(context.Background(), core.TransactionDraft{Amount: -1, Date: "2024-05-10", Type: core.Expense})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(tr.Transactions()) != 3 || len(pub.kinds()) != 0 {
		t.Fatal("rejected draft must not change state or publish")
	}
}

func TestTracker_GoalLifecycle(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	tr := newTestTracker(t, store, pub)
	ctx := context.Background()
	_ = tr.Load(ctx)

	g, err := tr.AddGoal(ctx, core.GoalDraft{Name: " 旅行 ", TargetAmount: 1000})
	if err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}
	if g.Name != "旅行" || g.SavedAmount != 0 || g.Emoji != core.DefaultGoalEmoji || g.Color == "" {
		t.Fatalf("unexpected goal %+v", g)
	}

	updated, ok, err := tr.Deposit(ctx, g.ID, 1200)
	if err != nil || !ok {
		t.Fatalf("Deposit() = %v, %v", ok, err)
	}
	if updated.SavedAmount != 1200 {
		t.Fatalf("saved = %v, want 1200", updated.SavedAmount)
	}
	overview := tr.GoalsOverview()
	if overview.Completed != 1 || overview.Goals[1].Progress.Percent != 100 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	if _, _, err := tr.Deposit(ctx, g.ID, 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero deposit, got %v", err)
	}
	if _, ok, err := tr.Deposit(ctx, "missing", 10); ok || err != nil {
		t.Fatalf("unknown goal should be a silent no-op, got %v %v", ok, err)
	}

	if !tr.RemoveGoal(ctx, g.ID) || tr.RemoveGoal(ctx, g.ID) {
		t.Fatal("RemoveGoal should succeed once")
	}
	if got := storedGoals(t, store); len(got) != 1 {
		t.Fatalf("goal removal not persisted: %+v", got)
	}

	want := []amqp.EventKind{amqp.GoalCreated, amqp.GoalDeposited, amqp.GoalDeleted}
	if got := pub.kinds(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestTracker_SideEffectFailuresDoNotFailMutations(t *testing.T) {
	tr := newTestTracker(t, failingStore{err: errors.New("disk full")}, &recordingPublisher{err: errors.New("broker down")})
	_ = tr.Load(context.Background())

	if _, err := tr.AddTransaction(context.Background(), core.TransactionDraft{Amount: 5, Date: "2024-05-10", Type: core.Expense}); err != nil {
		t.Fatalf("mutation should succeed despite side-effect failures: %v", err)
	}
	if len(tr.Transactions()) != 4 {
		t.Fatal("mutation not applied")
	}
}

func TestTracker_SideEffectFailuresAreCategorised(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(failingStore{err: errors.New("disk full")}, &recordingPublisher{err: errors.New("broker down")},
		TrackerConfig{}, applog.New(applog.Config{Output: &buf}),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()))
	_ = tr.Load(context.Background())

	if _, err := tr.AddTransaction(context.Background(), core.TransactionDraft{Amount: 5, Date: "2024-05-10", Type: core.Expense}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"operation=load",
		"error_type=database_error",
		"operation=persist",
		"error_type=upstream_error",
		"operation=publish",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestTracker_CancelledRequestStillPersists(t *testing.T) {
	store := memory.New()
	tr := newTestTracker(t, store, nil)
	_ = tr.Load(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.AddTransaction(ctx, core.TransactionDraft{Amount: 5, Date: "2024-05-10", Type: core.Expense}); err != nil {
		t.Fatal(err)
	}
	if len(storedTransactions(t, store)) != 4 {
		t.Fatal("snapshot should be written even when the request context is gone")
	}
}

func TestTracker_Views(t *testing.T) {
	tr := newTestTracker(t, memory.New(), nil)
	_ = tr.Load(context.Background())

	d := tr.Dashboard(0)
	if d.Balance != 15000-25-80 || d.Income != 15000 || d.Expense != 105 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if len(d.Recent) != 3 || d.Recent[0].Date != "2024-05-10" || d.Recent[2].Date != "2024-05-08" {
		t.Fatalf("recent not ordered by date: %+v", d.Recent)
	}
	if d.Greeting != "下午好" || d.Today != "2024-05-10" {
		t.Fatalf("unexpected greeting/today %q %q", d.Greeting, d.Today)
	}
	if len(tr.Dashboard(1).Recent) != 1 {
		t.Fatal("explicit recent count ignored")
	}

	s, err := tr.Stats(0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Daily) != 7 || s.Daily[6].Date != "2024-05-10" || s.Daily[6].Total != 25 || s.Daily[5].Total != 80 {
		t.Fatalf("unexpected daily series %+v", s.Daily)
	}
	if s.Daily[6].Weekday != "周五" {
		t.Fatalf("weekday label = %q", s.Daily[6].Weekday)
	}
	if len(s.Categories) != 2 || s.Categories[0].Category != "娱乐" || s.Categories[0].Color != "#E0BBE4" || s.Categories[0].Emoji != "🎮" {
		t.Fatalf("unexpected categories %+v", s.Categories)
	}
	if s.TotalExpense != 105 {
		t.Fatalf("total expense = %v", s.TotalExpense)
	}
	if _, err := tr.Stats(7, "10/05/2024"); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	res := tr.Search(query.Filter{Search: "汉堡"})
	if res.Count != 1 || res.Groups[0].Date != "2024-05-10" {
		t.Fatalf("unexpected search %+v", res)
	}
	if cats := tr.ActiveCategories(); len(cats) != 4 || cats[0] != query.AllCategories {
		t.Fatalf("unexpected active categories %v", cats)
	}
	if len(tr.Categories()) != 9 {
		t.Fatal("registry should have nine entries")
	}
}

func TestTracker_RevisionTracksTransactionChanges(t *testing.T) {
	tr := newTestTracker(t, memory.New(), nil)
	ctx := context.Background()
	if err := tr.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded := tr.Revision()

	tx, err := tr.AddTransaction(ctx, core.TransactionDraft{Amount: 10, Category: "餐饮", Date: "2024-05-10", Type: core.Expense})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	added := tr.Revision()
	if added == loaded {
		t.Fatal("revision unchanged after add")
	}

	if _, err := tr.AddGoal(ctx, core.GoalDraft{Name: "旅行", TargetAmount: 100}); err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if tr.RemoveTransaction(ctx, "missing") || tr.Revision() != added {
		t.Fatal("goal changes and missing ids must not bump the revision")
	}

	tr.RemoveTransaction(ctx, tx.ID)
	if tr.Revision() == added {
		t.Fatal("revision unchanged after remove")
	}
}
