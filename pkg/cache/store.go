// Package cache persists aggregated traffic reports keyed by range class
// and calendar period. Staleness is evaluated by the caller against the
// policy table in the domain package; the store itself only records when an
// entry was written.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one persisted cache record. Payload is the JSON-encoded report;
// Timestamp is when it was written. An entry's payload is only ever
// overwritten whole, never partially updated.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is the key-value cache the range controllers read and write.
// Get returns nil for a missing entry; undecodable entries are removed and
// reported as missing rather than surfaced.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, payload interface{}) error
	Remove(ctx context.Context, key string) error
}
