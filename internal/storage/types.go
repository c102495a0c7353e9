package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "memory": process-local map backend, not durable (tests, dry runs)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the durable state behind the two ledgers. It is the sole source
// of truth for "already handled" and "rate limited" decisions; nothing in
// memory is authoritative across restarts.
type Store interface {
	// HasHandled reports whether a notification id was ever recorded.
	HasHandled(ctx context.Context, id string) (bool, error)
	// MarkHandled records a notification id. Inserting an already-present id
	// is a no-op, never an error; the first handled_at timestamp wins.
	MarkHandled(ctx context.Context, id string, at time.Time) error

	// LastGranted returns the timestamp of the last granted analysis for a DID.
	LastGranted(ctx context.Context, did string) (at time.Time, ok bool, err error)
	// PutGrant upserts the grant timestamp for a DID, overwriting any prior value.
	PutGrant(ctx context.Context, did string, at time.Time) error

	Close() error
}
