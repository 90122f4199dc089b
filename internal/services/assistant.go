package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"qmoney/internal/core"
	applog "qmoney/internal/log"
	"qmoney/internal/parser"
)

var (
	ErrEmptyInput    = errors.New("nothing to parse")
	ErrParseFailed   = errors.New("could not understand the input, please retry")
	ErrParseInFlight = errors.New("a parse is already in progress")
	ErrAmountMissing = errors.New("amount missing from parsed input")
)

// ParsedDraft is a transaction draft filled from parser output. When
// AmountMissing is set the amount is 0 and must be supplied before saving.
type ParsedDraft struct {
	core.TransactionDraft
	AmountMissing bool `json:"amountMissing"`
}

// Assistant turns free text into transaction drafts. Only one parse runs at
// a time; concurrent requests are turned away instead of queued.
type Assistant struct {
	parser  parser.Parser
	tracker *Tracker
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

func NewAssistant(p parser.Parser, tracker *Tracker, logger *applog.Logger) *Assistant {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Assistant{
		parser:  p,
		tracker: tracker,
		sem:     semaphore.NewWeighted(1),
		logger:  logger.WithComponent(applog.ComponentAssistant).Slog(),
	}
}

// Draft parses text and applies the defaults for every field the parser
// left out. It never touches the ledger.
func (a *Assistant) Draft(ctx context.Context, text string) (ParsedDraft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedDraft{}, ErrEmptyInput
	}
	if !a.sem.TryAcquire(1) {
		return ParsedDraft{}, ErrParseInFlight
	}
	defer a.sem.Release(1)

	res, err := a.parser.Parse(ctx, text)
	if errors.Is(err, parser.ErrEmptyInput) {
		return ParsedDraft{}, ErrEmptyInput
	}
	if err == nil && res == nil {
		err = parser.ErrEmptyResponse
	}
	if err != nil {
		a.logger.WarnContext(ctx, "Parse failed",
			applog.FieldOperation, applog.OpParse,
			applog.FieldErrorType, applog.ErrorTypeUpstream,
			"error", err)
		return ParsedDraft{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	draft := applyDefaults(res, a.tracker.Today())
	a.logger.DebugContext(ctx, "Parsed input",
		applog.FieldCategory, draft.Category,
		applog.FieldType, draft.Type,
		"amount_missing", draft.AmountMissing)
	return draft, nil
}

// Commit parses text and stores the result, provided the parser found an
// amount.
func (a *Assistant) Commit(ctx context.Context, text string) (core.Transaction, ParsedDraft, error) {
	draft, err := a.Draft(ctx, text)
	if err != nil {
		return core.Transaction{}, draft, err
	}
	if draft.AmountMissing {
		return core.Transaction{}, draft, ErrAmountMissing
	}
	tx, err := a.tracker.AddTransaction(ctx, draft.TransactionDraft)
	if err != nil {
		return core.Transaction{}, draft, err
	}
	return tx, draft, nil
}

func applyDefaults(res *parser.Result, today string) ParsedDraft {
	var d ParsedDraft

	if res.Amount != nil {
		d.Amount = *res.Amount
	} else {
		d.AmountMissing = true
	}

	matched := core.OtherCategory()
	if res.Category != nil {
		if opt, ok := core.LookupCategory(*res.Category); ok {
			matched = opt
		} else if opt, ok := core.LookupCategoryByID(strings.ToLower(*res.Category)); ok {
			matched = opt
		}
	}
	d.Category = matched.Name

	d.Type = core.Expense
	if res.Type != nil {
		d.Type = core.ParseTransactionType(*res.Type)
	}

	if res.Note != nil {
		d.Note = *res.Note
	}

	d.Date = today
	if res.Date != nil && core.IsDate(*res.Date) {
		d.Date = *res.Date
	}

	switch {
	case res.Emoji != nil:
		d.Emoji = *res.Emoji
	case matched.Emoji != "":
		d.Emoji = matched.Emoji
	default:
		d.Emoji = core.DefaultParsedEmoji
	}

	return d
}
