package stats

import (
	"fmt"
	"math"

	"funnelab/domain/experiment"
)

// Default analysis parameters. 100 users per arm is the floor below
// which the normal approximation behind the z-test stops being
// trustworthy.
const (
	DefaultConfidenceLevel = 0.95
	DefaultMinSampleSize   = 100
)

// Engine runs a two-proportion z-test between a control and a treatment
// variant and turns the outcome into a ship decision. It is stateless
// and safe for concurrent use.
//
// Two different standard errors are in play on purpose: the test
// statistic uses the pooled SE (variance under the null of equal
// rates), the confidence interval uses the unpooled Wald SE. Near the
// significance boundary the two can disagree; the decision policy
// resolves that disagreement conservatively.
type Engine struct {
	ConfidenceLevel float64
	MinSampleSize   int
}

// NewEngine creates an engine with the given parameters. Zero values
// fall back to the defaults.
func NewEngine(confidenceLevel float64, minSampleSize int) *Engine {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = DefaultConfidenceLevel
	}
	if minSampleSize <= 0 {
		minSampleSize = DefaultMinSampleSize
	}
	return &Engine{ConfidenceLevel: confidenceLevel, MinSampleSize: minSampleSize}
}

// Analyze compares treatment against control and returns the full
// decision record. It never fails for variants with valid counts: every
// degenerate input (empty arms, all-or-nothing conversion, identical
// rates) degrades to a well-defined result instead of an error.
func (e *Engine) Analyze(experimentID string, control, treatment experiment.VariantStats) experiment.Result {
	pc := control.ConversionRate()
	pt := treatment.ConversionRate()
	nc := control.Users
	nt := treatment.Users

	absoluteUplift := pt - pc
	relativeUplift := 0.0
	if pc > 0 {
		relativeUplift = absoluteUplift / pc
	}

	// Below the sample floor the test is skipped entirely. The point
	// estimate is still reported, unrounded, so callers can see the raw
	// direction even when no inference is possible.
	if nc < e.MinSampleSize || nt < e.MinSampleSize {
		return experiment.Result{
			ExperimentID:    experimentID,
			Control:         control,
			Treatment:       treatment,
			AbsoluteUplift:  absoluteUplift,
			RelativeUplift:  relativeUplift,
			PValue:          1.0,
			ConfidenceLevel: e.ConfidenceLevel,
			CILower:         0.0,
			CIUpper:         0.0,
			IsSignificant:   false,
			Decision:        experiment.DecisionInconclusive,
			Reason: fmt.Sprintf(
				"Insufficient sample size (need >=%d per variant, got control=%d, treatment=%d)",
				e.MinSampleSize, nc, nt),
		}
	}

	// Pooled proportion under the null hypothesis of equal rates.
	pPool := float64(control.Conversions+treatment.Conversions) / float64(nc+nt)
	seTest := math.Sqrt(pPool * (1 - pPool) * (1/float64(nc) + 1/float64(nt)))

	// Zero pooled variance means every user converted in both arms, or
	// none did. Treat as no evidence of an effect rather than an error.
	pValue := 1.0
	if seTest > 0 {
		zStat := absoluteUplift / seTest
		pValue = 2 * (1 - normCDF(math.Abs(zStat)))
	}

	// Wald interval on the absolute difference, unpooled SE.
	seCI := math.Sqrt(pc*(1-pc)/float64(nc) + pt*(1-pt)/float64(nt))
	zCrit := normQuantile(1 - (1-e.ConfidenceLevel)/2)
	ciLower := absoluteUplift - zCrit*seCI
	ciUpper := absoluteUplift + zCrit*seCI

	isSignificant := pValue < (1 - e.ConfidenceLevel)

	decision, reason := decide(decisionInput{
		IsSignificant:   isSignificant,
		AbsoluteUplift:  absoluteUplift,
		RelativeUplift:  relativeUplift,
		PValue:          pValue,
		CILower:         ciLower,
		CIUpper:         ciUpper,
		ConfidenceLevel: e.ConfidenceLevel,
	})

	// Rounding happens once, at the output boundary, after the decision
	// is taken. Rounding is monotonic, so the CI still brackets the
	// point estimate.
	return experiment.Result{
		ExperimentID:    experimentID,
		Control:         control,
		Treatment:       treatment,
		AbsoluteUplift:  roundTo(absoluteUplift, 6),
		RelativeUplift:  roundTo(relativeUplift, 4),
		PValue:          roundTo(pValue, 6),
		ConfidenceLevel: e.ConfidenceLevel,
		CILower:         roundTo(ciLower, 6),
		CIUpper:         roundTo(ciUpper, 6),
		IsSignificant:   isSignificant,
		Decision:        decision,
		Reason:          reason,
	}
}

// roundTo rounds x to the given number of decimal places for stable,
// reproducible serialization.
func roundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
