package ports

import (
	"context"

	"funnelab/domain/event"
)

// EventStore is the write side of the warehouse: append-only event
// persistence with idempotent inserts.
type EventStore interface {
	// InsertEvents appends events, skipping any whose event_id is
	// already stored. Returns (inserted, duplicates).
	InsertEvents(ctx context.Context, events []event.Event) (int, int, error)

	// CountEvents returns the total number of stored events.
	CountEvents(ctx context.Context) (int, error)
}
