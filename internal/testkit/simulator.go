package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"funnelab/domain/event"
)

// SimulatorConfig configures the synthetic event generator
type SimulatorConfig struct {
	UserCount    int     `json:"user_count"`
	SignupRate   float64 `json:"signup_rate"`
	ExperimentID string  `json:"experiment_id"`

	// ControlConversionRate is the purchase probability for signed-up
	// control users; treatment users get it multiplied by (1 + Lift).
	ControlConversionRate float64 `json:"control_conversion_rate"`
	TreatmentLift         float64 `json:"treatment_lift"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Seed      int64     `json:"seed"`
}

// DefaultSimulatorConfig returns sensible defaults for a demo dataset
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		UserCount:             5000,
		SignupRate:            0.4,
		ExperimentID:          "checkout_redesign",
		ControlConversionRate: 0.10,
		TreatmentLift:         0.25,
		StartDate:             time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
		Seed:                  42,
	}
}

// EventSimulator generates realistic analytics event journeys:
// page_view, then maybe signup, experiment assignment, and purchase.
// Deterministic for a fixed seed, which keeps fixtures stable.
type EventSimulator struct {
	config SimulatorConfig
	rng    *rand.Rand
}

// NewEventSimulator creates a new simulator
func NewEventSimulator(config SimulatorConfig) *EventSimulator {
	return &EventSimulator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateEvents generates the complete event set for all users.
func (g *EventSimulator) GenerateEvents() []event.Event {
	var events []event.Event
	for i := 0; i < g.config.UserCount; i++ {
		userID := fmt.Sprintf("user_%05d", i+1)
		events = append(events, g.generateJourney(userID)...)
	}
	return events
}

// generateJourney generates one user's funnel walk.
func (g *EventSimulator) generateJourney(userID string) []event.Event {
	var events []event.Event

	visitTime := g.randomTimeInRange(g.config.StartDate, g.config.EndDate)
	events = append(events, g.newEvent(userID, event.TypePageView, visitTime, nil))

	// Everyone browses; a fraction signs up a little later.
	if g.rng.Float64() >= g.config.SignupRate {
		return events
	}
	signupTime := visitTime.Add(g.randomDelay(10*time.Minute, 2*time.Hour))
	events = append(events, g.newEvent(userID, event.TypeSignup, signupTime, nil))

	// Signed-up users enter the experiment with a 50/50 split.
	variant := "control"
	conversionRate := g.config.ControlConversionRate
	if g.rng.Float64() < 0.5 {
		variant = "treatment"
		conversionRate = g.config.ControlConversionRate * (1 + g.config.TreatmentLift)
	}
	assignTime := signupTime.Add(g.randomDelay(time.Minute, 10*time.Minute))
	events = append(events, g.newEvent(userID, event.TypeExperimentAssignment, assignTime, map[string]interface{}{
		event.PropExperimentID: g.config.ExperimentID,
		event.PropVariant:      variant,
	}))

	if g.rng.Float64() < conversionRate {
		purchaseTime := assignTime.Add(g.randomDelay(30*time.Minute, 72*time.Hour))
		events = append(events, g.newEvent(userID, event.TypePurchase, purchaseTime, map[string]interface{}{
			"amount_usd": 10 + g.rng.Float64()*90,
		}))
	}
	return events
}

func (g *EventSimulator) newEvent(userID string, t event.Type, at time.Time, props map[string]interface{}) event.Event {
	return event.Event{
		EventID:    fmt.Sprintf("%s_%s_%d", userID, t, at.UnixNano()),
		UserID:     userID,
		Type:       t,
		Timestamp:  at,
		Properties: props,
	}
}

func (g *EventSimulator) randomTimeInRange(start, end time.Time) time.Time {
	if !end.After(start) {
		return start
	}
	span := end.Sub(start)
	return start.Add(time.Duration(g.rng.Int63n(int64(span))))
}

func (g *EventSimulator) randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(g.rng.Int63n(int64(max-min)))
}
