package features

import (
	"math"
	"sort"

	"github.com/claimscore/claimscore/pkg/claim"
)

// monthStat is the growth outcome for one provider month.
type monthStat struct {
	growth   float64
	spike    int
	newMonth int
}

// monthlyGrowth computes month-over-month growth of the provider's claim
// count against the prior calendar month.
//
// The batch's first month has no baseline: newMonth is set and growth is 0.
// A later month whose prior month had no claims would grow infinitely: spike
// and newMonth are set and growth is 0. Otherwise growth is the fractional
// change (cur-prev)/prev.
func monthlyGrowth(b *batch, g group) map[int]monthStat {
	counts := make(map[int]int)
	for _, i := range g.rows {
		counts[claim.MonthIndex(b.claims[i].ClaimDate)]++
	}

	out := make(map[int]monthStat, len(counts))
	for m, cur := range counts {
		if m == b.firstMonth {
			out[m] = monthStat{newMonth: 1}
			continue
		}
		prev := counts[m-1]
		if prev == 0 {
			out[m] = monthStat{spike: 1, newMonth: 1}
			continue
		}
		out[m] = monthStat{growth: float64(cur-prev) / float64(prev)}
	}
	return out
}

// serviceMixEntropy is the base-2 Shannon entropy of the provider's
// diagnosis-code distribution over the whole batch.
func serviceMixEntropy(b *batch, g group) float64 {
	counts := make(map[string]int)
	for _, i := range g.rows {
		counts[b.claims[i].DiagnosisCode]++
	}
	return Entropy(counts)
}

// Entropy returns the base-2 Shannon entropy of a frequency table. Terms are
// summed in key order so the result is reproducible bit for bit.
func Entropy(counts map[string]int) float64 {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		if n <= 0 {
			continue
		}
		keys = append(keys, k)
		total += n
	}
	if total == 0 {
		return 0
	}
	sort.Strings(keys)

	var h float64
	for _, k := range keys {
		p := float64(counts[k]) / float64(total)
		h -= p * math.Log2(p)
	}
	if h == 0 {
		return 0 // normalize -0
	}
	return h
}
