// Package kv defines the key-value persistence contract used to snapshot the
// ledger. Values are opaque byte slices (JSON documents in practice).
package kv

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned by backends when asked for an empty key.
var ErrEmptyKey = errors.New("empty key")

// Reader loads a value. A missing key is reported with ok=false and no error.
type Reader interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
}

// Writer stores a value, replacing any previous one.
type Writer interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Store is the full contract implemented by every backend.
type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
	Close() error
}
