package worker

import (
	"context"
	"fmt"
	"log/slog"

	"qmoney/internal/amqp"
	applog "qmoney/internal/log"
	"qmoney/internal/sheets"
)

// ErrUnknownEvent is returned for events the journal cannot map. It wraps
// amqp.ErrRejected so the consumer drops the delivery instead of requeuing it.
var ErrUnknownEvent = fmt.Errorf("%w: unknown ledger event", amqp.ErrRejected)

// JournalWorker appends one journal row per ledger event.
type JournalWorker struct {
	journal sheets.JournalWriter
	logger  *slog.Logger
}

func NewJournalWorker(journal sheets.JournalWriter, logger *slog.Logger) *JournalWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalWorker{
		journal: journal,
		logger:  logger.With(applog.FieldComponent, applog.ComponentJournal),
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	row, err := EventRow(ev)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventKind, ev.Kind,
		"id", row.RecordID)

	ref, err := w.journal.Append(ctx, row)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to append journal row",
			applog.FieldEventKind, ev.Kind,
			"id", row.RecordID,
			applog.FieldError, err)
		return fmt.Errorf("append journal row: %w", err)
	}

	w.logger.InfoContext(ctx, "Journal row appended",
		applog.FieldEventKind, ev.Kind,
		"id", row.RecordID,
		"ref", ref)
	return nil
}

// EventRow maps an event to its journal row. Deleted transactions keep
// their amount so the journal can be reconciled by hand.
func EventRow(ev *amqp.LedgerEvent) (sheets.Row, error) {
	if ev == nil {
		return sheets.Row{}, fmt.Errorf("%w: nil event", ErrUnknownEvent)
	}
	row := sheets.Row{Timestamp: ev.Timestamp, Kind: string(ev.Kind)}

	switch ev.Kind {
	case amqp.TransactionCreated, amqp.TransactionDeleted:
		if ev.Transaction == nil {
			return sheets.Row{}, fmt.Errorf("%w: %s without transaction", ErrUnknownEvent, ev.Kind)
		}
		t := ev.Transaction
		row.RecordID = t.ID
		row.Type = string(t.Type)
		row.Date = t.Date
		row.Category = t.Category
		row.Note = t.Note
		row.Amount = t.Amount
	case amqp.GoalCreated, amqp.GoalDeleted:
		if ev.Goal == nil {
			return sheets.Row{}, fmt.Errorf("%w: %s without goal", ErrUnknownEvent, ev.Kind)
		}
		row.RecordID = ev.Goal.ID
		row.Goal = ev.Goal.Name
		row.Amount = ev.Goal.TargetAmount
	case amqp.GoalDeposited:
		row.RecordID = ev.GoalID
		row.Amount = ev.Amount
		if ev.Goal != nil {
			row.Goal = ev.Goal.Name
		}
	default:
		return sheets.Row{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	return row, nil
}
