package core

// CategoryOption is an entry of the static category registry. The registry
// drives suggestions, icons and colours; it never rejects input.
type CategoryOption struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Emoji string          `json:"emoji"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color"`
}

const (
	DefaultTransactionEmoji = "💸"
	DefaultGoalEmoji        = "✈️"
	DefaultParsedEmoji      = "✨"

	OtherCategoryID = "other"
)

var categories = []CategoryOption{
	{ID: "food", Name: "餐饮", Emoji: "🍔", Type: Expense, Color: "#FFB7C5"},
	{ID: "transport", Name: "交通", Emoji: "🚌", Type: Expense, Color: "#C1E1FF"},
	{ID: "shopping", Name: "购物", Emoji: "🛍️", Type: Expense, Color: "#FFF5BA"},
	{ID: "entertainment", Name: "娱乐", Emoji: "🎮", Type: Expense, Color: "#E0BBE4"},
	{ID: "bills", Name: "账单", Emoji: "🧾", Type: Expense, Color: "#957DAD"},
	{ID: "health", Name: "医疗", Emoji: "💊", Type: Expense, Color: "#FEC8D8"},
	{ID: "salary", Name: "薪资", Emoji: "💰", Type: Income, Color: "#B5EAD7"},
	{ID: "gift", Name: "人情", Emoji: "🎁", Type: Income, Color: "#FFDAC1"},
	{ID: OtherCategoryID, Name: "其他", Emoji: "✨", Type: Expense, Color: "#E2F0CB"},
}

// GoalPalette holds the colours offered for new goals, default first.
var GoalPalette = []string{"#FFD1DC", "#C1E1FF", "#FFF5BA", "#E0BBE4", "#B5EAD7"}

// ChartPalette colours chart slices for categories missing from the registry.
var ChartPalette = []string{"#FFB7C5", "#C1E1FF", "#FFF5BA", "#E0BBE4", "#957DAD", "#FEC8D8", "#B5EAD7"}

// Categories returns a copy of the registry in display order.
func Categories() []CategoryOption {
	out := make([]CategoryOption, len(categories))
	copy(out, categories)
	return out
}

// CategoriesFor returns the registry entries of the given type. The
// catch-all "other" entry is offered for both types.
func CategoriesFor(t TransactionType) []CategoryOption {
	var out []CategoryOption
	for _, c := range categories {
		if c.Type == t || c.ID == OtherCategoryID {
			out = append(out, c)
		}
	}
	return out
}

// LookupCategory finds a registry entry by display name.
func LookupCategory(name string) (CategoryOption, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryOption{}, false
}

func LookupCategoryByID(id string) (CategoryOption, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return CategoryOption{}, false
}

// OtherCategory is the catch-all entry used when nothing else matches.
func OtherCategory() CategoryOption {
	c, _ := LookupCategoryByID(OtherCategoryID)
	return c
}

// CategoryNames lists registry names in order.
func CategoryNames() []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Name)
	}
	return out
}

// CategoryColor resolves the chart colour for a category. Registry entries
// keep their own colour, anything else cycles through ChartPalette by rank.
func CategoryColor(name string, rank int) string {
	if c, ok := LookupCategory(name); ok {
		return c.Color
	}
	if rank < 0 {
		rank = 0
	}
	return ChartPalette[rank%len(ChartPalette)]
}

// GoalColor picks the palette colour for the n-th goal.
func GoalColor(n int) string {
	if n < 0 {
		n = 0
	}
	return GoalPalette[n%len(GoalPalette)]
}
