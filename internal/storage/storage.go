// Package storage reads and writes dispensary record sets.
//
// CSV is the system of record; every step reads a CSV and writes one back.
// Additional sinks (MongoDB) can mirror each written set.
package storage

import (
	"context"

	"github.com/IshaanNene/njbuds/internal/types"
)

// Sink is the interface for all record backends.
type Sink interface {
	// Store persists the full current record set. Calling Store again
	// replaces (CSV) or upserts (MongoDB) what was stored before.
	Store(ctx context.Context, records []types.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}
