package scoring

import (
	"fmt"
	"sort"

	"github.com/claimscore/claimscore/pkg/claim"
)

const (
	maxTopRules    = 5
	maxHotspots    = 10
	maxHotspotKeys = 3
)

// summarize aggregates the scored claims of a batch.
func summarize(results []ClaimResult) Summary {
	s := Summary{
		Claims:  len(results),
		ByLabel: make(map[claim.Label]int, len(claim.Labels)),
	}
	for _, l := range claim.Labels {
		s.ByLabel[l] = 0
	}

	var total float64
	for i := range results {
		r := &results[i]
		s.ByLabel[r.Label]++
		total += r.FraudScore
		if r.RawScore > s.MaxRawScore {
			s.MaxRawScore = r.RawScore
		}
	}
	if len(results) > 0 {
		s.MeanScore = total / float64(len(results))
	}

	s.TopRules = topRules(results, maxTopRules)
	s.Hotspots = computeHotspots(results)
	return s
}

// topRules returns the n rules that fired most often, ties broken by key.
func topRules(results []ClaimResult, n int) []RuleCount {
	byKey := make(map[string]*RuleCount)
	for i := range results {
		for _, c := range results[i].Contributions {
			rc, ok := byKey[c.Key]
			if !ok {
				rc = &RuleCount{Key: c.Key, Name: c.Name}
				byKey[c.Key] = rc
			}
			rc.Fired++
			rc.Points += c.Points
		}
	}

	counts := make([]RuleCount, 0, len(byKey))
	for _, rc := range byKey {
		counts = append(counts, *rc)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Fired != counts[j].Fired {
			return counts[i].Fired > counts[j].Fired
		}
		return counts[i].Key < counts[j].Key
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// computeHotspots identifies providers with HIGH-labeled claims, ranked by
// how many they have.
func computeHotspots(results []ClaimResult) []Hotspot {
	type providerInfo struct {
		claims, high int
		total        float64
		highRules    []ClaimResult
	}
	providers := make(map[string]*providerInfo)

	for i := range results {
		r := &results[i]
		p, ok := providers[r.ProviderID]
		if !ok {
			p = &providerInfo{}
			providers[r.ProviderID] = p
		}
		p.claims++
		p.total += r.FraudScore
		if r.Label == claim.LabelHigh {
			p.high++
			p.highRules = append(p.highRules, *r)
		}
	}

	var hotspots []Hotspot
	for id, p := range providers {
		if p.high == 0 {
			continue
		}
		var keys []string
		for _, rc := range topRules(p.highRules, maxHotspotKeys) {
			keys = append(keys, rc.Key)
		}
		hotspots = append(hotspots, Hotspot{
			ProviderID: id,
			Reason:     fmt.Sprintf("%d of %d claims labeled HIGH", p.high, p.claims),
			HighClaims: p.high,
			Claims:     p.claims,
			MeanScore:  p.total / float64(p.claims),
			RuleKeys:   keys,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].HighClaims != hotspots[j].HighClaims {
			return hotspots[i].HighClaims > hotspots[j].HighClaims
		}
		return hotspots[i].ProviderID < hotspots[j].ProviderID
	})

	if len(hotspots) > maxHotspots {
		hotspots = hotspots[:maxHotspots]
	}

	return hotspots
}
