package services

import (
	"qmoney/internal/core"
	"qmoney/internal/query"
	"qmoney/internal/stats"
)

type (
	DashboardView struct {
		stats.Dashboard
		Greeting string `json:"greeting"`
		Today    string `json:"today"`
	}

	CategorySlice struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
		Share    float64 `json:"share"`
		Color    string  `json:"color"`
		Emoji    string  `json:"emoji"`
	}

	DailyPoint struct {
		core.DailyTotal
		Weekday string `json:"weekday"`
	}

	StatsView struct {
		Reference    string          `json:"reference"`
		TotalExpense float64         `json:"totalExpense"`
		Categories   []CategorySlice `json:"categories"`
		Daily        []DailyPoint    `json:"daily"`
	}

	SearchView struct {
		Filter query.Filter     `json:"filter"`
		Count  int              `json:"count"`
		Groups []core.DateGroup `json:"groups"`
	}
)

func (t *Tracker) Transactions() []core.Transaction { return t.txs.List() }

func (t *Tracker) Goals() []core.SavingsGoal { return t.goals.List() }

// Dashboard summarises the ledger with the n most recent entries; n <= 0
// uses the configured default.
func (t *Tracker) Dashboard(n int) DashboardView {
	if n <= 0 {
		n = t.cfg.RecentCount
	}
	now := t.now()
	return DashboardView{
		Dashboard: stats.Summarize(t.txs.List(), n),
		Greeting:  stats.Greeting(now.Hour()),
		Today:     core.FormatDate(now),
	}
}

// Stats returns the expense breakdown by category and the daily series of
// the given number of days ending at reference. days <= 0 uses the
// configured default and an empty reference means today.
func (t *Tracker) Stats(days int, reference string) (StatsView, error) {
	if days <= 0 {
		days = t.cfg.StatsDays
	}
	if reference == "" {
		reference = t.Today()
	}
	txs := t.txs.List()

	daily, err := stats.DailySeries(txs, days, reference)
	if err != nil {
		return StatsView{}, err
	}

	totals := stats.ByCategoryTotals(txs)
	expense := stats.TotalByType(txs, core.Expense)
	view := StatsView{
		Reference:    reference,
		TotalExpense: expense,
		Categories:   make([]CategorySlice, 0, len(totals)),
		Daily:        make([]DailyPoint, 0, len(daily)),
	}
	for rank, ct := range totals {
		slice := CategorySlice{
			Category: ct.Category,
			Total:    ct.Total,
			Color:    core.CategoryColor(ct.Category, rank),
			Emoji:    core.OtherCategory().Emoji,
		}
		if opt, ok := core.LookupCategory(ct.Category); ok {
			slice.Emoji = opt.Emoji
		}
		if expense > 0 {
			slice.Share = ct.Total / expense * 100
		}
		view.Categories = append(view.Categories, slice)
	}
	for _, d := range daily {
		view.Daily = append(view.Daily, DailyPoint{DailyTotal: d, Weekday: core.WeekdayLabel(d.Date)})
	}
	return view, nil
}

func (t *Tracker) Search(f query.Filter) SearchView {
	groups := query.FilterAndGroup(t.txs.List(), f)
	return SearchView{Filter: f, Count: query.Count(groups), Groups: groups}
}

// ActiveCategories lists the category filter options for the current ledger.
func (t *Tracker) ActiveCategories() []string {
	return query.DistinctCategories(t.txs.List())
}

func (t *Tracker) Categories() []core.CategoryOption { return core.Categories() }

func (t *Tracker) GoalsOverview() stats.GoalsOverview {
	return stats.Overview(t.goals.List())
}
