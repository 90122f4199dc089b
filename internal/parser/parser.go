// Package parser turns a free-form sentence such as "午餐汉堡花了25" into a
// partially filled transaction. Every field of Result is optional; callers
// apply their own defaults.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qmoney/internal/core"
)

// Parser extracts transaction fields from text.
type Parser interface {
	Parse(ctx context.Context, text string) (*Result, error)
}

// Result holds whatever the parser managed to recognise. Nil means absent.
type Result struct {
	Amount   *float64 `json:"amount,omitempty"`
	Category *string  `json:"category,omitempty"`
	Type     *string  `json:"type,omitempty"`
	Note     *string  `json:"note,omitempty"`
	Date     *string  `json:"date,omitempty"`
	Emoji    *string  `json:"emoji,omitempty"`
}

var (
	// ErrEmptyResponse is returned when a model answers with no usable text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrEmptyInput is returned for blank input without calling any model.
	ErrEmptyInput = errors.New("empty input")
)

type wireResult struct {
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Note     string          `json:"note"`
	Date     string          `json:"date"`
	Emoji    string          `json:"emoji"`
}

// Decode reads a model answer. Markdown code fences around the JSON are
// tolerated, the amount may be a number or a numeric string, and blank
// strings count as absent.
func Decode(raw string) (*Result, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var w wireResult
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	res := &Result{
		Category: optional(w.Category),
		Type:     optional(w.Type),
		Note:     optional(w.Note),
		Date:     optional(w.Date),
		Emoji:    optional(w.Emoji),
	}
	if amount, ok := decodeAmount(w.Amount); ok {
		res.Amount = &amount
	}
	return res, nil
}

func decodeAmount(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
