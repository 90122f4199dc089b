// Package ledger holds the two in-memory collections of the tracker: the
// transaction ledger and the savings goals. Both are safe for concurrent use.
package ledger

import "github.com/google/uuid"

// IDGenerator produces identifiers for new records.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

// maxIDAttempts bounds the collision retry loop when picking a fresh id.
const maxIDAttempts = 8

func freshID(gen IDGenerator, taken func(string) bool) (string, bool) {
	for i := 0; i < maxIDAttempts; i++ {
		id := gen.NewID()
		if id != "" && !taken(id) {
			return id, true
		}
	}
	return "", false
}
