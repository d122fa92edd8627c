package experiment

import (
	"funnelab/internal/errors"
)

// Decision is the ship verdict for one experiment comparison.
type Decision string

const (
	DecisionShip         Decision = "SHIP"
	DecisionDoNotShip    Decision = "DO NOT SHIP"
	DecisionInconclusive Decision = "INCONCLUSIVE"
)

// VariantStats holds the raw counts for one arm of an A/B test.
// It is a value object: construct it once from aggregated warehouse
// counts and never mutate it.
type VariantStats struct {
	Name        string `json:"name"`
	Users       int    `json:"users"`
	Conversions int    `json:"conversions"`
}

// NewVariantStats validates counts at the boundary so the engine never
// has to. Negative counts and conversions > users are rejected here.
func NewVariantStats(name string, users, conversions int) (VariantStats, error) {
	if users < 0 {
		return VariantStats{}, errors.InvalidInput("users must be non-negative")
	}
	if conversions < 0 {
		return VariantStats{}, errors.InvalidInput("conversions must be non-negative")
	}
	if conversions > users {
		return VariantStats{}, errors.InvalidInput("conversions cannot exceed users")
	}
	return VariantStats{Name: name, Users: users, Conversions: conversions}, nil
}

// ConversionRate returns conversions/users, or 0.0 for an empty variant.
// The zero-users case is a policy choice, not a mathematical identity.
func (v VariantStats) ConversionRate() float64 {
	if v.Users == 0 {
		return 0.0
	}
	return float64(v.Conversions) / float64(v.Users)
}

// Result bundles one experiment comparison with all derived statistics.
// Produced exactly once per analysis call; fields are never re-derived
// from partial state. CILower <= AbsoluteUplift <= CIUpper holds for any
// comparison that cleared the sample-size gate.
type Result struct {
	ExperimentID string       `json:"experiment_id"`
	Control      VariantStats `json:"control"`
	Treatment    VariantStats `json:"treatment"`

	AbsoluteUplift  float64  `json:"absolute_uplift"`
	RelativeUplift  float64  `json:"relative_uplift"`
	PValue          float64  `json:"p_value"`
	ConfidenceLevel float64  `json:"confidence_level"`
	CILower         float64  `json:"ci_lower"`
	CIUpper         float64  `json:"ci_upper"`
	IsSignificant   bool     `json:"is_significant"`
	Decision        Decision `json:"decision"`
	Reason          string   `json:"reason"`
}
