package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelab/domain/experiment"
)

func variant(t *testing.T, name string, users, conversions int) experiment.VariantStats {
	t.Helper()
	v, err := experiment.NewVariantStats(name, users, conversions)
	require.NoError(t, err)
	return v
}

func TestAnalyze_SignificantPositiveEffectShips(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("checkout_redesign",
		variant(t, "control", 5000, 500),
		variant(t, "treatment", 5000, 650))

	assert.Equal(t, experiment.DecisionShip, r.Decision)
	assert.True(t, r.IsSignificant)
	assert.Equal(t, 0.03, r.AbsoluteUplift)
	assert.Equal(t, 0.3, r.RelativeUplift)
	assert.Less(t, r.PValue, 0.05)
	assert.Greater(t, r.CILower, 0.0)
	assert.InDelta(t, 0.0175, r.CILower, 0.0005)
	assert.InDelta(t, 0.0425, r.CIUpper, 0.0005)
	assert.Contains(t, r.Reason, "positive effect")
}

func TestAnalyze_SignificantNegativeEffectDoesNotShip(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("checkout_redesign",
		variant(t, "control", 5000, 500),
		variant(t, "treatment", 5000, 350))

	assert.Equal(t, experiment.DecisionDoNotShip, r.Decision)
	assert.True(t, r.IsSignificant)
	assert.Negative(t, r.AbsoluteUplift)
	assert.Less(t, r.CIUpper, 0.0)
	assert.Contains(t, r.Reason, "NEGATIVE")
}

func TestAnalyze_SmallLiftNotSignificant(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("tiny_lift",
		variant(t, "control", 500, 50),
		variant(t, "treatment", 500, 52))

	assert.Equal(t, experiment.DecisionDoNotShip, r.Decision)
	assert.False(t, r.IsSignificant)
	assert.GreaterOrEqual(t, r.PValue, 0.05)
	assert.Contains(t, r.Reason, "Not statistically significant")
}

func TestAnalyze_SampleSizeGate(t *testing.T) {
	engine := NewEngine(0.95, 100)

	r := engine.Analyze("early_days",
		variant(t, "control", 20, 2),
		variant(t, "treatment", 20, 5))

	assert.Equal(t, experiment.DecisionInconclusive, r.Decision)
	assert.False(t, r.IsSignificant)
	assert.Equal(t, 1.0, r.PValue)
	assert.Zero(t, r.CILower)
	assert.Zero(t, r.CIUpper)
	assert.Contains(t, r.Reason, "Insufficient sample size")
	// Point estimate survives the gate, unrounded.
	assert.InDelta(t, 0.15, r.AbsoluteUplift, 1e-12)
}

func TestAnalyze_SampleSizeGateWinsRegardlessOfCounts(t *testing.T) {
	engine := NewEngine(0.95, 100)

	// One undersized arm gates the whole comparison even when the other
	// arm is huge and the effect is enormous.
	r := engine.Analyze("lopsided",
		variant(t, "control", 99, 0),
		variant(t, "treatment", 100000, 90000))
	assert.Equal(t, experiment.DecisionInconclusive, r.Decision)

	r = engine.Analyze("lopsided_other_arm",
		variant(t, "control", 100000, 10),
		variant(t, "treatment", 99, 99))
	assert.Equal(t, experiment.DecisionInconclusive, r.Decision)
}

func TestAnalyze_EqualRatesNeverShip(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("null_effect",
		variant(t, "control", 1000, 100),
		variant(t, "treatment", 1000, 100))

	assert.Equal(t, 0.0, r.AbsoluteUplift)
	assert.Equal(t, experiment.DecisionDoNotShip, r.Decision)
	assert.InDelta(t, 1.0, r.PValue, 1e-9)
}

func TestAnalyze_BoundaryRatesDoNotPanic(t *testing.T) {
	engine := NewEngine(0.95, 100)

	// Zero conversions in both arms: pooled variance collapses to zero.
	r := engine.Analyze("all_zero",
		variant(t, "control", 1000, 0),
		variant(t, "treatment", 1000, 0))
	assert.Equal(t, 0.0, r.AbsoluteUplift)
	assert.Equal(t, 1.0, r.PValue)
	assert.Equal(t, experiment.DecisionDoNotShip, r.Decision)

	// Full conversion in both arms behaves the same way.
	r = engine.Analyze("all_one",
		variant(t, "control", 1000, 1000),
		variant(t, "treatment", 1000, 1000))
	assert.Equal(t, 0.0, r.AbsoluteUplift)
	assert.Equal(t, 1.0, r.PValue)
	assert.Equal(t, experiment.DecisionDoNotShip, r.Decision)
}

func TestAnalyze_EmptyVariantsDoNotPanic(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("no_traffic",
		variant(t, "control", 0, 0),
		variant(t, "treatment", 0, 0))

	assert.Equal(t, experiment.DecisionInconclusive, r.Decision)
	assert.Equal(t, 0.0, r.AbsoluteUplift)
	assert.Equal(t, 0.0, r.RelativeUplift)
}

func TestAnalyze_ZeroControlRateRelativeUpliftConvention(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("from_nothing",
		variant(t, "control", 1000, 0),
		variant(t, "treatment", 1000, 100))

	// Relative uplift is defined as 0.0 when the control rate is zero.
	assert.Equal(t, 0.0, r.RelativeUplift)
	assert.Equal(t, 0.1, r.AbsoluteUplift)
	assert.True(t, r.IsSignificant)
	assert.Equal(t, experiment.DecisionShip, r.Decision)
}

func TestAnalyze_CIContainsPointEstimate(t *testing.T) {
	engine := NewEngine(0.95, 100)
	cases := []struct {
		name          string
		cUsers, cConv int
		tUsers, tConv int
	}{
		{"positive", 5000, 500, 5000, 650},
		{"negative", 5000, 500, 5000, 350},
		{"tiny", 500, 50, 500, 52},
		{"equal", 1000, 100, 1000, 100},
		{"extreme", 200, 199, 200, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := engine.Analyze(tc.name,
				variant(t, "control", tc.cUsers, tc.cConv),
				variant(t, "treatment", tc.tUsers, tc.tConv))
			assert.LessOrEqual(t, r.CILower, r.AbsoluteUplift)
			assert.GreaterOrEqual(t, r.CIUpper, r.AbsoluteUplift)
		})
	}
}

func TestAnalyze_HigherConfidenceWidensInterval(t *testing.T) {
	control := variant(t, "control", 5000, 500)
	treatment := variant(t, "treatment", 5000, 650)

	r95 := NewEngine(0.95, 100).Analyze("exp", control, treatment)
	r99 := NewEngine(0.99, 100).Analyze("exp", control, treatment)

	width95 := r95.CIUpper - r95.CILower
	width99 := r99.CIUpper - r99.CILower
	assert.Greater(t, width99, width95)
}

func TestAnalyze_OutputsAreRounded(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("rounding",
		variant(t, "control", 3000, 299),
		variant(t, "treatment", 3000, 341))

	assert.Equal(t, roundTo(r.AbsoluteUplift, 6), r.AbsoluteUplift)
	assert.Equal(t, roundTo(r.RelativeUplift, 4), r.RelativeUplift)
	assert.Equal(t, roundTo(r.PValue, 6), r.PValue)
	assert.Equal(t, roundTo(r.CILower, 6), r.CILower)
	assert.Equal(t, roundTo(r.CIUpper, 6), r.CIUpper)
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(0, 0)
	assert.Equal(t, DefaultConfidenceLevel, e.ConfidenceLevel)
	assert.Equal(t, DefaultMinSampleSize, e.MinSampleSize)

	e = NewEngine(1.5, -3)
	assert.Equal(t, DefaultConfidenceLevel, e.ConfidenceLevel)
	assert.Equal(t, DefaultMinSampleSize, e.MinSampleSize)
}

func TestAnalyze_ReasonMentionsRelativeChange(t *testing.T) {
	engine := NewEngine(0.95, 100)
	r := engine.Analyze("exp",
		variant(t, "control", 5000, 500),
		variant(t, "treatment", 5000, 650))
	assert.True(t, strings.Contains(r.Reason, "+30.0%"), "reason %q should state the relative uplift", r.Reason)
}
