// Package query filters the ledger and groups the result by date.
package query

import (
	"sort"
	"strconv"
	"strings"

	"qmoney/internal/core"
)

// AllCategories is the category filter value that matches everything.
const AllCategories = "all"

// Filter combines the three independent predicates of the ledger search.
// Zero values disable a predicate.
type Filter struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

// Matches reports whether t satisfies all active predicates.
func (f Filter) Matches(t core.Transaction) bool {
	if term := f.Search; term != "" {
		noteHit := strings.Contains(strings.ToLower(t.Note), strings.ToLower(term))
		amountHit := strings.Contains(AmountText(t.Amount), term)
		if !noteHit && !amountHit {
			return false
		}
	}
	if f.Category != "" && f.Category != AllCategories && t.Category != f.Category {
		return false
	}
	if f.Date != "" && t.Date != f.Date {
		return false
	}
	return true
}

// AmountText is the shortest decimal form of an amount, e.g. 25 -> "25",
// 12.5 -> "12.5". Search terms are matched against it.
func AmountText(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FilterAndGroup applies f and buckets the survivors by exact date. Buckets
// are ordered by date descending; inside a bucket the input order is kept.
func FilterAndGroup(txs []core.Transaction, f Filter) []core.DateGroup {
	index := map[string]int{}
	groups := []core.DateGroup{}
	for _, t := range txs {
		if !f.Matches(t) {
			continue
		}
		i, ok := index[t.Date]
		if !ok {
			i = len(groups)
			index[t.Date] = i
			groups = append(groups, core.DateGroup{Date: t.Date})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})
	return groups
}

// Count returns the number of transactions across all groups.
func Count(groups []core.DateGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Transactions)
	}
	return n
}

// DistinctCategories lists the categories in use, first-seen order, with
// the AllCategories sentinel in front.
func DistinctCategories(txs []core.Transaction) []string {
	seen := map[string]bool{}
	out := []string{AllCategories}
	for _, t := range txs {
		if seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}
