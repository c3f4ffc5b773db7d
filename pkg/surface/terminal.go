package surface

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
)

// TerminalRenderer renders a BatchResult as colored terminal output.
// TopClaims limits the riskiest-claims section; zero uses DefaultTopClaims
// and a negative value hides it.
type TerminalRenderer struct {
	TopClaims int
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func labelColor(l claim.Label) string {
	if noColor() {
		return ""
	}
	switch l {
	case claim.LabelHigh:
		return colorRed
	case claim.LabelMedium:
		return colorYellow
	case claim.LabelNormal:
		return colorGreen
	default:
		return ""
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func itoa(n int) string { return strconv.Itoa(n) }

func (r *TerminalRenderer) Render(w io.Writer, result *scoring.BatchResult) error {
	s := result.Summary

	// Header
	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("Claimscore: %d claims scored", s.Claims)))

	counts := make([]string, 0, len(claim.Labels))
	for _, l := range claim.Labels {
		counts = append(counts, fmt.Sprintf("%s %d", colored(string(l), labelColor(l)), s.ByLabel[l]))
	}
	fmt.Fprintf(w, "Labels:  %s\n", strings.Join(counts, " / "))
	fmt.Fprintf(w, "Scores:  max raw %.1f, mean %.2f (%s normalization, thresholds %g/%g)\n\n",
		s.MaxRawScore, s.MeanScore, result.Normalization, result.Thresholds.High, result.Thresholds.Medium)

	// Rules
	if len(s.TopRules) == 0 {
		fmt.Fprintln(w, "No rules fired.")
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Top rules:")
		for _, rc := range s.TopRules {
			fmt.Fprintf(w, "  %5d  %s %s\n", rc.Fired, bold(rc.Name), dim(fmt.Sprintf("(%s, %.0f pts total)", rc.Key, rc.Points)))
		}
		fmt.Fprintln(w)
	}

	// Hotspots
	if len(s.Hotspots) > 0 {
		fmt.Fprintln(w, "Hotspots:")
		for _, hs := range s.Hotspots {
			fmt.Fprintf(w, "  %s %s: %s\n",
				colored("●", colorRed), bold(hs.ProviderID), hs.Reason)
			if len(hs.RuleKeys) > 0 {
				fmt.Fprintf(w, "    %s\n", dim("mostly "+strings.Join(hs.RuleKeys, ", ")))
			}
		}
		fmt.Fprintln(w)
	}

	n := r.TopClaims
	if n == 0 {
		n = DefaultTopClaims
	}
	if n < 0 {
		return nil
	}

	var risky []scoring.ClaimResult
	for _, c := range topClaims(result, n) {
		if c.Label != claim.LabelNormal {
			risky = append(risky, c)
		}
	}
	if len(risky) > 0 {
		fmt.Fprintln(w, "Riskiest claims:")
		for _, c := range risky {
			fmt.Fprintf(w, "  %6.2f %s %s %s\n",
				c.FraudScore, colored(string(c.Label), labelColor(c.Label)), bold(claimName(c)), dim("at "+c.ProviderID))
			reasons := make([]string, 0, len(c.Contributions))
			for _, ct := range c.Contributions {
				reasons = append(reasons, fmt.Sprintf("%s +%g", ct.Name, ct.Points))
			}
			for _, line := range wrapText(strings.Join(reasons, "; "), 70) {
				fmt.Fprintf(w, "         %s\n", dim(line))
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
