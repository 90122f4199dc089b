package stats

import (
	"math"

	"qmoney/internal/core"
)

// Progress reports how far a goal is. The percentage is capped at 100 while
// the saved amount itself is not; completion compares the raw amounts.
func Progress(g core.SavingsGoal) core.GoalProgress {
	completed := g.SavedAmount >= g.TargetAmount
	if g.TargetAmount == 0 {
		return core.GoalProgress{Percent: 0, Completed: completed}
	}
	pct := g.SavedAmount / g.TargetAmount * 100
	if math.IsNaN(pct) || pct < 0 {
		pct = 0
	}
	return core.GoalProgress{Percent: math.Min(100, pct), Completed: completed}
}

// Remaining is what is left to save, never negative.
func Remaining(g core.SavingsGoal) float64 {
	return math.Max(0, g.TargetAmount-g.SavedAmount)
}

type (
	GoalStatus struct {
		core.SavingsGoal
		Progress  core.GoalProgress `json:"progress"`
		Remaining float64           `json:"remaining"`
	}

	GoalsOverview struct {
		Goals       []GoalStatus `json:"goals"`
		TotalSaved  float64      `json:"totalSaved"`
		TotalTarget float64      `json:"totalTarget"`
		Completed   int          `json:"completed"`
	}
)

// Overview annotates each goal with its progress and sums the collection.
func Overview(goals []core.SavingsGoal) GoalsOverview {
	ov := GoalsOverview{Goals: make([]GoalStatus, 0, len(goals))}
	for _, g := range goals {
		p := Progress(g)
		ov.Goals = append(ov.Goals, GoalStatus{SavingsGoal: g, Progress: p, Remaining: Remaining(g)})
		ov.TotalSaved += g.SavedAmount
		ov.TotalTarget += g.TargetAmount
		if p.Completed {
			ov.Completed++
		}
	}
	return ov
}
