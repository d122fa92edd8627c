package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"funnelab/internal/errors"
	"funnelab/ports"
)

// Aggregation queries over the raw event log. These mirror the marts
// the dashboard consumes: assignments joined to distinct purchasers for
// experiments, per-user journey flags for the funnel.

const experimentCountsQuery = `
WITH assignments AS (
    SELECT
        user_id,
        properties->>'experiment_id' AS experiment_id,
        properties->>'variant' AS variant
    FROM raw_events
    WHERE event_type = 'experiment_assignment'
),
purchases AS (
    SELECT DISTINCT user_id
    FROM raw_events
    WHERE event_type = 'purchase'
)
SELECT
    a.experiment_id,
    a.variant,
    COUNT(*) AS users,
    SUM(CASE WHEN p.user_id IS NOT NULL THEN 1 ELSE 0 END) AS conversions
FROM assignments a
LEFT JOIN purchases p ON a.user_id = p.user_id
WHERE a.experiment_id IS NOT NULL AND a.variant IS NOT NULL
GROUP BY a.experiment_id, a.variant
ORDER BY a.experiment_id, a.variant
`

const funnelStepsQuery = `
WITH user_journey AS (
    SELECT
        user_id,
        MAX(CASE WHEN event_type = 'page_view' THEN 1 ELSE 0 END) AS reached_page_view,
        MAX(CASE WHEN event_type = 'signup' THEN 1 ELSE 0 END) AS reached_signup,
        MAX(CASE WHEN event_type = 'purchase' THEN 1 ELSE 0 END) AS reached_purchase
    FROM raw_events
    GROUP BY user_id
)
SELECT 'page_view' AS step, 1 AS step_order, COALESCE(SUM(reached_page_view), 0) AS users
FROM user_journey
UNION ALL
SELECT 'signup', 2, COALESCE(SUM(reached_signup), 0)
FROM user_journey
UNION ALL
SELECT 'purchase', 3, COALESCE(SUM(reached_purchase), 0)
FROM user_journey
ORDER BY step_order
`

const eventSummaryQuery = `
SELECT
    event_type,
    COUNT(*) AS count,
    COUNT(DISTINCT user_id) AS unique_users
FROM raw_events
GROUP BY event_type
ORDER BY count DESC
`

const conversionLatenciesQuery = `
WITH first_view AS (
    SELECT user_id, MIN(occurred_at) AS viewed_at
    FROM raw_events
    WHERE event_type = 'page_view'
    GROUP BY user_id
),
first_purchase AS (
    SELECT user_id, MIN(occurred_at) AS purchased_at
    FROM raw_events
    WHERE event_type = 'purchase'
    GROUP BY user_id
)
SELECT EXTRACT(EPOCH FROM (fp.purchased_at - fv.viewed_at)) AS seconds
FROM first_purchase fp
JOIN first_view fv ON fv.user_id = fp.user_id
WHERE fp.purchased_at >= fv.viewed_at
ORDER BY seconds
`

// AggregateRepositoryImpl implements WarehouseReader for PostgreSQL
type AggregateRepositoryImpl struct {
	db *sqlx.DB
}

// NewAggregateRepository creates a new PostgreSQL aggregate repository
func NewAggregateRepository(db *sqlx.DB) ports.WarehouseReader {
	return &AggregateRepositoryImpl{db: db}
}

// ExperimentCounts returns per-variant assignment and conversion counts
func (r *AggregateRepositoryImpl) ExperimentCounts(ctx context.Context) ([]ports.VariantCount, error) {
	var rows []ports.VariantCount
	if err := r.db.SelectContext(ctx, &rows, experimentCountsQuery); err != nil {
		return nil, errors.Wrap(err, "failed to aggregate experiment counts")
	}
	return rows, nil
}

// FunnelSteps returns the ordered acquisition funnel
func (r *AggregateRepositoryImpl) FunnelSteps(ctx context.Context) ([]ports.FunnelStep, error) {
	var rows []ports.FunnelStep
	if err := r.db.SelectContext(ctx, &rows, funnelStepsQuery); err != nil {
		return nil, errors.Wrap(err, "failed to aggregate funnel steps")
	}
	return rows, nil
}

// EventSummary returns counts and unique users per event type
func (r *AggregateRepositoryImpl) EventSummary(ctx context.Context) ([]ports.EventTypeSummary, error) {
	var rows []ports.EventTypeSummary
	if err := r.db.SelectContext(ctx, &rows, eventSummaryQuery); err != nil {
		return nil, errors.Wrap(err, "failed to aggregate event summary")
	}
	return rows, nil
}

// ConversionLatencies returns first-view to first-purchase durations in
// seconds for every converted user
func (r *AggregateRepositoryImpl) ConversionLatencies(ctx context.Context) ([]float64, error) {
	var rows []float64
	if err := r.db.SelectContext(ctx, &rows, conversionLatenciesQuery); err != nil {
		return nil, errors.Wrap(err, "failed to compute conversion latencies")
	}
	return rows, nil
}
