// Package services wires the in-memory ledger to persistence, ledger events
// and the natural-language parser.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"qmoney/internal/amqp"
	"qmoney/internal/core"
	"qmoney/internal/kv"
	"qmoney/internal/ledger"
	applog "qmoney/internal/log"
)

const persistTimeout = 5 * time.Second

// Publisher delivers ledger events. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.LedgerEvent) error
}

type TrackerConfig struct {
	TransactionsKey string
	GoalsKey        string
	RecentCount     int
	StatsDays       int
}

// Tracker owns the two ledger stores for the lifetime of the process.
// Every mutation is applied in memory first; the resulting snapshot is then
// written to the key-value store and an event is published. Neither of
// those side effects can undo or fail the mutation.
type Tracker struct {
	txs   *ledger.TransactionStore
	goals *ledger.GoalStore
	store kv.Store
	pub   Publisher
	cfg   TrackerConfig
	now   func() time.Time
	audit *applog.StructuredLogger

	logger *slog.Logger

	// snapshots are taken under persistMu so an older one never lands last
	persistMu sync.Mutex
	// bumped whenever the transaction list changes
	rev atomic.Uint64
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator replaces the UUID generator of both stores.
func WithIDGenerator(ids ledger.IDGenerator) Option {
	return func(t *Tracker) {
		t.txs = ledger.NewTransactionStore(ids)
		t.goals = ledger.NewGoalStore(ids)
	}
}

// NewTracker builds a tracker with empty stores; call Load before serving.
// pub may be nil, in which case no events are published.
func NewTracker(store kv.Store, pub Publisher, cfg TrackerConfig, logger *applog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if cfg.TransactionsKey == "" {
		cfg.TransactionsKey = "qmoney_transactions"
	}
	if cfg.GoalsKey == "" {
		cfg.GoalsKey = "qmoney_goals"
	}
	if cfg.RecentCount <= 0 {
		cfg.RecentCount = 3
	}
	if cfg.StatsDays <= 0 {
		cfg.StatsDays = 7
	}

	t := &Tracker{
		txs:    ledger.NewTransactionStore(ledger.UUIDGenerator{}),
		goals:  ledger.NewGoalStore(ledger.UUIDGenerator{}),
		store:  store,
		pub:    pub,
		cfg:    cfg,
		now:    time.Now,
		audit:  applog.NewStructuredLogger(logger.WithComponent(applog.ComponentTransaction)),
		logger: logger.WithComponent(applog.ComponentStorage).Slog(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today is the current calendar date according to the tracker's clock.
func (t *Tracker) Today() string {
	return core.FormatDate(t.now())
}

// Load reads both collections once. A missing or unreadable document is
// replaced by the seed data, which is then written back. An error from the
// store itself is returned and leaves the seed data in memory without
// writing it, so a temporarily unreachable database is never overwritten.
func (t *Tracker) Load(ctx context.Context) error {
	txs, txsOK, txErr := loadJSON[[]core.Transaction](ctx, t.store, t.cfg.TransactionsKey, t.logger)
	goals, goalsOK, goalErr := loadJSON[[]core.SavingsGoal](ctx, t.store, t.cfg.GoalsKey, t.logger)

	seedTxs, seedGoals := SeedData(t.Today())

	if txsOK {
		t.txs.Replace(txs)
	} else {
		t.txs.Replace(seedTxs)
		if txErr == nil {
			t.persistTransactions(ctx)
		}
	}
	if goalsOK {
		t.goals.Replace(goals)
	} else {
		t.goals.Replace(seedGoals)
		if goalErr == nil {
			t.persistGoals(ctx)
		}
	}

	t.rev.Add(1)

	t.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldOperation, applog.OpLoad,
		"transactions", t.txs.Len(),
		"goals", t.goals.Len(),
		"transactions_seeded", !txsOK,
		"goals_seeded", !goalsOK)

	if txErr != nil {
		return fmt.Errorf("load transactions: %w", txErr)
	}
	if goalErr != nil {
		return fmt.Errorf("load goals: %w", goalErr)
	}
	return nil
}

// loadJSON returns ok=false for a missing or undecodable value; err is
// only set when the store itself failed.
func loadJSON[T any](ctx context.Context, store kv.Reader, key string, logger *slog.Logger) (T, bool, error) {
	var zero T
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.WarnContext(ctx, "Stored value is not valid JSON, using seed data", applog.FieldKey, key, "error", err)
		return zero, false, nil
	}
	return v, true, nil
}

// SeedData is the sample ledger shown on first start.
func SeedData(today string) ([]core.Transaction, []core.SavingsGoal) {
	day := func(offset int) string {
		d, err := core.AddDays(today, offset)
		if err != nil {
			return today
		}
		return d
	}
	txs := []core.Transaction{
		{ID: "1", Amount: 25, Category: "餐饮", Note: "午餐汉堡", Date: day(0), Type: core.Expense, Emoji: "🍔"},
		{ID: "2", Amount: 15000, Category: "薪资", Note: "发工资啦", Date: day(-2), Type: core.Income, Emoji: "💰"},
		{ID: "3", Amount: 80, Category: "娱乐", Note: "看电影", Date: day(-1), Type: core.Expense, Emoji: "🎬"},
	}
	goals := []core.SavingsGoal{
		{ID: "1", Name: "新手机", TargetAmount: 6000, SavedAmount: 1500, Emoji: "📱", Color: "#C1E1FF"},
	}
	return txs, goals
}

func (t *Tracker) AddTransaction(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	tx, err := t.txs.Add(d)
	if err != nil {
		return core.Transaction{}, err
	}
	t.rev.Add(1)
	t.audit.LogTransactionCreated(ctx, tx.ID, tx.Amount, tx.Category, string(tx.Type), tx.Date)

	t.persistTransactions(ctx)
	t.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, tx))
	return tx, nil
}

// RemoveTransaction deletes by id. Unknown ids are a no-op reported as false.
func (t *Tracker) RemoveTransaction(ctx context.Context, id string) bool {
	tx, ok := t.txs.Get(id)
	if !ok || !t.txs.Remove(id) {
		return false
	}
	t.rev.Add(1)
	t.logger.InfoContext(ctx, "Transaction removed", applog.FieldTransaction, id, applog.FieldOperation, applog.OpDelete)

	t.persistTransactions(ctx)
	t.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionDeleted, tx))
	return true
}

func (t *Tracker) AddGoal(ctx context.Context, d core.GoalDraft) (core.SavingsGoal, error) {
	g, err := t.goals.Add(d)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	t.logger.InfoContext(ctx, "Goal created", applog.FieldGoal, g.ID, "name", g.Name, "target", g.TargetAmount)

	t.persistGoals(ctx)
	t.publish(ctx, amqp.NewGoalEvent(amqp.GoalCreated, g))
	return g, nil
}

// Deposit adds amount to a goal. A non-positive amount is rejected with
// core.ErrInvalidAmount; an unknown id returns ok=false and no error.
func (t *Tracker) Deposit(ctx context.Context, id string, amount float64) (core.SavingsGoal, bool, error) {
	ok, err := t.goals.Deposit(id, amount)
	if err != nil || !ok {
		return core.SavingsGoal{}, ok, err
	}
	g, ok := t.goals.Get(id)
	if !ok {
		// removed concurrently between the two calls
		return core.SavingsGoal{}, false, nil
	}
	t.audit.LogGoalDeposit(ctx, id, amount, g.SavedAmount >= g.TargetAmount)

	t.persistGoals(ctx)
	t.publish(ctx, amqp.NewDepositEvent(g, amount))
	return g, true, nil
}

func (t *Tracker) RemoveGoal(ctx context.Context, id string) bool {
	g, ok := t.goals.Get(id)
	if !ok || !t.goals.Remove(id) {
		return false
	}
	t.logger.InfoContext(ctx, "Goal removed", applog.FieldGoal, id, applog.FieldOperation, applog.OpDelete)

	t.persistGoals(ctx)
	t.publish(ctx, amqp.NewGoalEvent(amqp.GoalDeleted, g))
	return true
}

func (t *Tracker) persistTransactions(ctx context.Context) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	t.persist(ctx, t.cfg.TransactionsKey, t.txs.List())
}

func (t *Tracker) persistGoals(ctx context.Context) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	t.persist(ctx, t.cfg.GoalsKey, t.goals.List())
}

func (t *Tracker) persist(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		t.audit.LogError(ctx, "Failed to encode snapshot", err, applog.ComponentStorage, applog.OpPersist,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal).With(applog.FieldKey, key))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := t.store.Set(ctx, key, raw); err != nil {
		t.audit.LogError(ctx, "Failed to persist snapshot", err, applog.ComponentStorage, applog.OpPersist,
			applog.NewFields().WithErrorType(applog.ErrorTypeDatabase).With(applog.FieldKey, key))
	}
}

func (t *Tracker) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if t.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := t.pub.Publish(ctx, event); err != nil {
		t.audit.LogError(ctx, "Failed to publish ledger event", err, applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithErrorType(applog.ErrorTypeUpstream).With(applog.FieldEventKind, event.Kind))
	}
}

// Revision changes every time the transaction list does.
func (t *Tracker) Revision() uint64 {
	return t.rev.Load()
}

// Ping checks the key-value store.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}
