// Package core provides money parsing and handling utilities.
//
// Amounts are stored as float64 to match the persisted format. Parsing and
// display go through decimal arithmetic so that user input like "19.99" is
// never shown as 19.98.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const CurrencySymbol = "¥"

// ParseAmount converts user input to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Negative, empty and non-numeric input is rejected
// with ErrInvalidAmount. Zero is accepted; callers decide whether it is
// meaningful.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	v, _ := d.Float64()
	if !validAmount(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders v with exactly two decimals, truncating any further
// digits instead of rounding them.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).Truncate(2).StringFixed(2)
}

// FormatCurrency renders v with the currency symbol, e.g. "¥25.00".
func FormatCurrency(v float64) string {
	if v < 0 {
		return "-" + CurrencySymbol + FormatAmount(-v)
	}
	return CurrencySymbol + FormatAmount(v)
}

// FormatSigned renders a transaction amount with its direction, e.g. "-¥25.00".
func FormatSigned(t Transaction) string {
	if t.Type == Income {
		return "+" + CurrencySymbol + FormatAmount(t.Amount)
	}
	return "-" + CurrencySymbol + FormatAmount(t.Amount)
}

// SumAmounts adds values with decimal precision and returns the float result.
func SumAmounts(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}
