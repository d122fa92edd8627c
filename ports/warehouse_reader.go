package ports

import (
	"context"
)

// VariantCount is one row of the experiment aggregation: assigned users
// and converted users for a single experiment arm.
type VariantCount struct {
	ExperimentID string `db:"experiment_id" json:"experiment_id"`
	Variant      string `db:"variant" json:"variant"`
	Users        int    `db:"users" json:"users"`
	Conversions  int    `db:"conversions" json:"conversions"`
}

// FunnelStep is one step of the page_view -> signup -> purchase funnel.
type FunnelStep struct {
	Step      string `db:"step" json:"step"`
	StepOrder int    `db:"step_order" json:"step_order"`
	Users     int    `db:"users" json:"users"`
}

// EventTypeSummary aggregates stored events per type.
type EventTypeSummary struct {
	EventType   string `db:"event_type" json:"event_type"`
	Count       int    `db:"count" json:"count"`
	UniqueUsers int    `db:"unique_users" json:"unique_users"`
}

// WarehouseReader is the read side of the warehouse: SQL aggregations
// over the raw event log. Implementations must return consistent
// snapshots; the decision engine assumes its input counts were
// aggregated together.
type WarehouseReader interface {
	// ExperimentCounts groups experiment assignments by experiment and
	// variant, joining against distinct purchasers for conversions.
	ExperimentCounts(ctx context.Context) ([]VariantCount, error)

	// FunnelSteps computes per-user journey flags and aggregates them
	// into ordered funnel steps.
	FunnelSteps(ctx context.Context) ([]FunnelStep, error)

	// EventSummary counts events and unique users per event type.
	EventSummary(ctx context.Context) ([]EventTypeSummary, error)

	// ConversionLatencies returns, for each converted user, the seconds
	// between their first page view and first purchase.
	ConversionLatencies(ctx context.Context) ([]float64, error)
}
