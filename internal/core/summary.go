package core

type (
	// CategoryTotal is the expense total of one category.
	CategoryTotal struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}

	// DailyTotal is the expense total of one calendar date.
	DailyTotal struct {
		Date  string  `json:"date"`
		Total float64 `json:"total"`
	}

	GoalProgress struct {
		Percent   float64 `json:"percent"`
		Completed bool    `json:"completed"`
	}

	// DateGroup is a bucket of transactions sharing the same date.
	DateGroup struct {
		Date         string        `json:"date"`
		Transactions []Transaction `json:"transactions"`
	}
)
