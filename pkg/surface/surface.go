// Package surface defines output rendering for scored claim batches.
// Implementations handle different output targets: terminal, Markdown, JSON.
package surface

import (
	"io"
	"sort"

	"github.com/claimscore/claimscore/pkg/scoring"
)

// Renderer produces formatted output from a BatchResult.
type Renderer interface {
	// Render writes the formatted batch result to the writer.
	Render(w io.Writer, result *scoring.BatchResult) error
}

// DefaultTopClaims is how many of the riskiest claims a report lists.
const DefaultTopClaims = 10

// topClaims returns the n highest-scoring claims, ties broken by row.
func topClaims(result *scoring.BatchResult, n int) []scoring.ClaimResult {
	claims := make([]scoring.ClaimResult, len(result.Claims))
	copy(claims, result.Claims)
	sort.SliceStable(claims, func(i, j int) bool {
		if claims[i].FraudScore != claims[j].FraudScore {
			return claims[i].FraudScore > claims[j].FraudScore
		}
		return claims[i].Row < claims[j].Row
	})
	if len(claims) > n {
		claims = claims[:n]
	}
	return claims
}

func claimName(c scoring.ClaimResult) string {
	if c.ClaimID != "" {
		return c.ClaimID
	}
	return "row " + itoa(c.Row)
}
