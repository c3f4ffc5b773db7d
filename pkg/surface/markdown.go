package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
)

// MarkdownRenderer produces a Markdown audit report from a BatchResult.
type MarkdownRenderer struct {
	TopClaims int
}

func (r *MarkdownRenderer) Render(w io.Writer, result *scoring.BatchResult) error {
	_, err := io.WriteString(w, r.BuildReport(result))
	return err
}

// BuildReport returns the Markdown report as a string.
func (r *MarkdownRenderer) BuildReport(result *scoring.BatchResult) string {
	var sb strings.Builder
	s := result.Summary

	fmt.Fprintf(&sb, "## Claimscore: %d claims, %d HIGH\n\n", s.Claims, s.ByLabel[claim.LabelHigh])

	sb.WriteString("### Labels\n\n")
	sb.WriteString("| Label | Claims |\n|-------|--------|\n")
	for _, l := range claim.Labels {
		fmt.Fprintf(&sb, "| %s %s | %d |\n", labelIcon(l), l, s.ByLabel[l])
	}
	fmt.Fprintf(&sb, "\nMean score %.2f, max raw score %.1f. Thresholds %g/%g, %s normalization.\n\n",
		s.MeanScore, s.MaxRawScore, result.Thresholds.High, result.Thresholds.Medium, result.Normalization)

	if len(s.TopRules) > 0 {
		sb.WriteString("### Top Rules\n\n")
		sb.WriteString("| Rule | Fired | Points |\n|------|-------|--------|\n")
		for _, rc := range s.TopRules {
			fmt.Fprintf(&sb, "| %s (`%s`) | %d | %.0f |\n", rc.Name, rc.Key, rc.Fired, rc.Points)
		}
		sb.WriteString("\n")
	}

	if len(s.Hotspots) > 0 {
		sb.WriteString("### Provider Hotspots\n\n")
		for _, hs := range s.Hotspots {
			fmt.Fprintf(&sb, "- **%s**: %s, mean score %.2f\n", hs.ProviderID, hs.Reason, hs.MeanScore)
			if len(hs.RuleKeys) > 0 {
				fmt.Fprintf(&sb, "  - rules: `%s`\n", strings.Join(hs.RuleKeys, "`, `"))
			}
		}
		sb.WriteString("\n")
	}

	n := r.TopClaims
	if n <= 0 {
		n = DefaultTopClaims
	}
	claims := topClaims(result, n)
	if len(claims) > 0 && claims[0].Label != claim.LabelNormal {
		sb.WriteString("### Riskiest Claims\n\n")
		for _, c := range claims {
			if c.Label == claim.LabelNormal {
				break
			}
			fmt.Fprintf(&sb, "- %s **%s** (%s) %.2f\n", labelIcon(c.Label), claimName(c), c.ProviderID, c.FraudScore)
			for _, ct := range c.Contributions {
				fmt.Fprintf(&sb, "  - %s +%g _%s_\n", ct.Name, ct.Points, strings.ToLower(string(ct.Tier)))
			}
		}
	}

	return sb.String()
}

func labelIcon(l claim.Label) string {
	switch l {
	case claim.LabelHigh:
		return ":red_circle:"
	case claim.LabelMedium:
		return ":orange_circle:"
	default:
		return ":green_circle:"
	}
}
