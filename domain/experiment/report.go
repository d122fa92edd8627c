package experiment

import (
	"fmt"
	"strings"
)

// FormatReport renders a result as the fixed-layout console report:
// header, variant summary, statistical results, decision.
func FormatReport(r Result) string {
	rule := strings.Repeat("=", 60)
	lines := []string{
		rule,
		fmt.Sprintf("EXPERIMENT ANALYSIS: %s", r.ExperimentID),
		rule,
		"",
		"VARIANT SUMMARY",
		fmt.Sprintf("  Control:   %d/%d = %.2f%% conversion rate",
			r.Control.Conversions, r.Control.Users, r.Control.ConversionRate()*100),
		fmt.Sprintf("  Treatment: %d/%d = %.2f%% conversion rate",
			r.Treatment.Conversions, r.Treatment.Users, r.Treatment.ConversionRate()*100),
		"",
		"STATISTICAL RESULTS",
		fmt.Sprintf("  Absolute uplift:  %+.4f (%+.1f%% relative)",
			r.AbsoluteUplift, r.RelativeUplift*100),
		fmt.Sprintf("  p-value:          %.4f", r.PValue),
		fmt.Sprintf("  %.0f%% CI:           [%+.4f, %+.4f]",
			r.ConfidenceLevel*100, r.CILower, r.CIUpper),
		fmt.Sprintf("  Significant:      %s", yesNo(r.IsSignificant)),
		"",
		fmt.Sprintf("DECISION: %s", r.Decision),
		fmt.Sprintf("  %s", r.Reason),
		rule,
	}
	return strings.Join(lines, "\n")
}

// FormatMarkdown renders the same report as markdown for the dashboard
// export, where it is converted to HTML.
func FormatMarkdown(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Experiment: %s\n\n", r.ExperimentID)
	fmt.Fprintf(&b, "| Variant | Users | Conversions | Rate |\n")
	fmt.Fprintf(&b, "|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %d | %d | %.2f%% |\n",
		r.Control.Name, r.Control.Users, r.Control.Conversions, r.Control.ConversionRate()*100)
	fmt.Fprintf(&b, "| %s | %d | %d | %.2f%% |\n\n",
		r.Treatment.Name, r.Treatment.Users, r.Treatment.Conversions, r.Treatment.ConversionRate()*100)
	fmt.Fprintf(&b, "- Absolute uplift: **%+.4f** (%+.1f%% relative)\n", r.AbsoluteUplift, r.RelativeUplift*100)
	fmt.Fprintf(&b, "- p-value: %.4f\n", r.PValue)
	fmt.Fprintf(&b, "- %.0f%% CI: [%+.4f, %+.4f]\n", r.ConfidenceLevel*100, r.CILower, r.CIUpper)
	fmt.Fprintf(&b, "- Significant: %s\n\n", yesNo(r.IsSignificant))
	fmt.Fprintf(&b, "**Decision: %s**: %s\n", r.Decision, r.Reason)
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
