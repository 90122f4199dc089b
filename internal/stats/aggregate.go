// Package stats derives totals, series and progress figures from snapshots
// of the ledger. Every function is pure and never mutates its input.
package stats

import (
	"sort"

	"qmoney/internal/core"
)

// TotalBalance is the sum of income minus the sum of expenses.
func TotalBalance(txs []core.Transaction) float64 {
	var balance float64
	for _, t := range txs {
		balance += t.Signed()
	}
	return balance
}

// TotalByType sums the amounts of transactions of the given type.
func TotalByType(txs []core.Transaction, typ core.TransactionType) float64 {
	var total float64
	for _, t := range txs {
		if t.Type == typ {
			total += t.Amount
		}
	}
	return total
}

// Recent returns up to n transactions ordered by date, newest first.
// Transactions sharing a date keep their collection order.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	if n <= 0 || len(txs) == 0 {
		return []core.Transaction{}
	}
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// ByCategoryTotals groups expenses by their literal category and orders
// the groups by total, largest first. Equal totals keep discovery order.
func ByCategoryTotals(txs []core.Transaction) []core.CategoryTotal {
	index := map[string]int{}
	out := []core.CategoryTotal{}
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, core.CategoryTotal{Category: t.Category})
		}
		out[i].Total += t.Amount
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

// DailySeries returns the expense total of each of the days dates ending at
// referenceDate, oldest first. Dates without expenses report zero.
func DailySeries(txs []core.Transaction, days int, referenceDate string) ([]core.DailyTotal, error) {
	if days <= 0 {
		return []core.DailyTotal{}, nil
	}
	ref, err := core.ParseDate(referenceDate)
	if err != nil {
		return nil, err
	}

	byDate := map[string]float64{}
	for _, t := range txs {
		if t.Type == core.Expense {
			byDate[t.Date] += t.Amount
		}
	}

	out := make([]core.DailyTotal, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := core.FormatDate(ref.AddDate(0, 0, -i))
		out = append(out, core.DailyTotal{Date: d, Total: byDate[d]})
	}
	return out, nil
}
