package stats

import "qmoney/internal/core"

// DefaultRecentCount is how many transactions the dashboard lists.
const DefaultRecentCount = 3

type Dashboard struct {
	Balance float64            `json:"balance"`
	Income  float64            `json:"income"`
	Expense float64            `json:"expense"`
	Recent  []core.Transaction `json:"recent"`
}

// Summarize computes the dashboard figures from a ledger snapshot.
func Summarize(txs []core.Transaction, recent int) Dashboard {
	return Dashboard{
		Balance: TotalBalance(txs),
		Income:  TotalByType(txs, core.Income),
		Expense: TotalByType(txs, core.Expense),
		Recent:  Recent(txs, recent),
	}
}

// Greeting picks the salutation for the given hour of day (0-23).
func Greeting(hour int) string {
	switch {
	case hour < 9:
		return "早上好"
	case hour < 12:
		return "上午好"
	case hour < 18:
		return "下午好"
	default:
		return "晚上好"
	}
}
