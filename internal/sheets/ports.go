package sheets

import (
	"context"
	"time"
)

// Ports for outbound adapters.
type (
	// Row is one journal line. Columns follow Header.
	Row struct {
		Timestamp time.Time
		Kind      string
		RecordID  string
		Type      string
		Date      string
		Category  string
		Note      string
		Amount    float64
		Goal      string
	}

	JournalWriter interface {
		Append(ctx context.Context, r Row) (rowRef string, err error)
	}
)

// Header names the journal columns in sheet order.
var Header = []string{"Timestamp", "Event", "ID", "Type", "Date", "Category", "Note", "Amount", "Goal"}

// Values returns the cells of r in Header order.
func (r Row) Values() []any {
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Kind,
		r.RecordID,
		r.Type,
		r.Date,
		r.Category,
		r.Note,
		r.Amount,
		r.Goal,
	}
}
