package memory

import (
	"context"
	"fmt"
	"sync"

	"qmoney/internal/sheets"
)

// Journal keeps appended rows in memory.
type Journal struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.JournalWriter = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

// Append stores the row and returns a synthetic row reference.
func (j *Journal) Append(_ context.Context, r sheets.Row) (string, error) {
	if r.Kind == "" {
		return "", fmt.Errorf("append: empty event kind")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, r)
	return fmt.Sprintf("mem:%d", len(j.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (j *Journal) Rows() []sheets.Row {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sheets.Row(nil), j.rows...)
}
