package stats

import (
	"fmt"

	"funnelab/domain/experiment"
)

// decisionInput carries everything the policy needs. The policy itself
// is a pure function: no I/O, no state, first matching rule wins.
type decisionInput struct {
	IsSignificant   bool
	AbsoluteUplift  float64
	RelativeUplift  float64
	PValue          float64
	CILower         float64
	CIUpper         float64
	ConfidenceLevel float64
}

// decide maps statistical outputs to a ship verdict plus rationale.
//
// Significance alone is not enough to ship: the CI sign check guards
// against results that are distinguishable from zero but whose
// direction is ambiguous. That can happen because the test uses the
// pooled SE while the interval uses the unpooled one; when they
// disagree near the boundary, the verdict goes to DO NOT SHIP.
func decide(in decisionInput) (experiment.Decision, string) {
	alpha := 1 - in.ConfidenceLevel

	if !in.IsSignificant {
		return experiment.DecisionDoNotShip, fmt.Sprintf(
			"Not statistically significant (p=%.4f >= %.2f). "+
				"Cannot confidently attribute the observed %+.1f%% change to the treatment.",
			in.PValue, alpha, in.RelativeUplift*100)
	}

	if in.AbsoluteUplift > 0 && in.CILower > 0 {
		return experiment.DecisionShip, fmt.Sprintf(
			"Statistically significant positive effect (p=%.4f). "+
				"Treatment increases conversion by %+.1f%% (%.0f%% CI: [%+.4f, %+.4f]).",
			in.PValue, in.RelativeUplift*100, in.ConfidenceLevel*100, in.CILower, in.CIUpper)
	}

	if in.AbsoluteUplift < 0 && in.CIUpper < 0 {
		return experiment.DecisionDoNotShip, fmt.Sprintf(
			"Statistically significant NEGATIVE effect (p=%.4f). "+
				"Treatment decreases conversion by %+.1f%%.",
			in.PValue, in.RelativeUplift*100)
	}

	return experiment.DecisionDoNotShip, fmt.Sprintf(
		"Significant result (p=%.4f) but confidence interval crosses zero "+
			"[%+.4f, %+.4f]. Effect direction uncertain.",
		in.PValue, in.CILower, in.CIUpper)
}
