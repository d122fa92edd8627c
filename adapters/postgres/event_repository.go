package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"funnelab/domain/event"
	"funnelab/internal/errors"
	"funnelab/ports"
)

// EventRepositoryImpl implements the append-only event store for
// PostgreSQL. Idempotency comes from the primary key on event_id:
// replayed events are counted as duplicates, never rewritten.
type EventRepositoryImpl struct {
	db *sqlx.DB
}

// NewEventRepository creates a new PostgreSQL event repository
func NewEventRepository(db *sqlx.DB) ports.EventStore {
	return &EventRepositoryImpl{db: db}
}

// InsertEvents appends a batch of events, skipping duplicates. The
// whole batch runs inside one transaction so a mid-batch failure never
// leaves partial data behind.
func (r *EventRepositoryImpl) InsertEvents(ctx context.Context, events []event.Event) (int, int, error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to begin insert transaction")
	}
	defer tx.Rollback()

	inserted := 0
	duplicates := 0

	for i := range events {
		props, err := json.Marshal(events[i].Properties)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "failed to encode properties for event %s", events[i].EventID)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO raw_events (event_id, user_id, event_type, occurred_at, properties)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id) DO NOTHING
		`, events[i].EventID, events[i].UserID, string(events[i].Type), events[i].Timestamp, props)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "failed to insert event %s", events[i].EventID)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, errors.Wrap(err, "failed to read rows affected")
		}
		if n == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, errors.Wrap(err, "failed to commit event batch")
	}
	return inserted, duplicates, nil
}

// CountEvents returns the total number of events in the warehouse
func (r *EventRepositoryImpl) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM raw_events`); err != nil {
		return 0, errors.Wrap(err, "failed to count events")
	}
	return count, nil
}
