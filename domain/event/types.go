package event

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"funnelab/internal/errors"
)

// Type classifies an analytics event.
type Type string

const (
	TypePageView             Type = "page_view"
	TypeClick                Type = "click"
	TypeSignup               Type = "signup"
	TypePurchase             Type = "purchase"
	TypeExperimentAssignment Type = "experiment_assignment"
	TypeCustom               Type = "custom"
)

// Valid reports whether t is one of the known event types.
func (t Type) Valid() bool {
	switch t {
	case TypePageView, TypeClick, TypeSignup, TypePurchase, TypeExperimentAssignment, TypeCustom:
		return true
	}
	return false
}

// Properties used by the experiment aggregation queries.
const (
	PropExperimentID = "experiment_id"
	PropVariant      = "variant"
)

// Event is the common envelope every analytics event shares: a unique
// id, a user, a type, a timestamp, and an open-ended properties bag for
// event-specific fields.
type Event struct {
	EventID    string                 `json:"event_id" db:"event_id"`
	UserID     string                 `json:"user_id" db:"user_id"`
	Type       Type                   `json:"event_type" db:"event_type"`
	Timestamp  time.Time              `json:"timestamp" db:"occurred_at"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// NewID returns a time-ordered unique event id. UUID v7 keeps ids
// sortable by creation time; falls back to v4 if v7 generation fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// Normalize fills defaults a client may omit: a fresh event id, the
// current timestamp, and a trimmed user id.
func (e *Event) Normalize(now time.Time) {
	if e.EventID == "" {
		e.EventID = NewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.UserID = strings.TrimSpace(e.UserID)
}

// Validate checks the envelope against the ingestion rules. Call
// Normalize first so defaults are in place.
func (e *Event) Validate(now time.Time) error {
	if e.UserID == "" {
		return errors.ValidationError("user_id must not be empty")
	}
	if !e.Type.Valid() {
		return errors.ValidationError("unknown event_type: " + string(e.Type))
	}
	if e.Timestamp.After(now) {
		return errors.ValidationError("timestamp must not be in the future")
	}
	return nil
}

// MaxBatchSize is the default upper bound on a single ingest request.
const MaxBatchSize = 1000

// Batch is a set of events submitted in one ingest request.
type Batch struct {
	Events []Event `json:"events"`
}

// Validate normalizes and validates every event in the batch. The batch
// is rejected as a whole if any event is invalid, so a failed ingest
// never leaves partial data behind.
func (b *Batch) Validate(now time.Time, maxSize int) error {
	if maxSize <= 0 {
		maxSize = MaxBatchSize
	}
	if len(b.Events) == 0 {
		return errors.ValidationError("batch must contain at least one event")
	}
	if len(b.Events) > maxSize {
		return errors.ValidationError("batch exceeds maximum size")
	}
	for i := range b.Events {
		b.Events[i].Normalize(now)
		if err := b.Events[i].Validate(now); err != nil {
			return err
		}
	}
	return nil
}
