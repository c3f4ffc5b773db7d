package scoring

import "github.com/claimscore/claimscore/pkg/claim"

// Dominant-share bounds of the provider balance tiers.
const (
	BalancedShare = 0.55
	ModerateShare = 0.75
)

// ProviderBalance scores how evenly a patient spreads visits across
// providers. A single provider contributes nothing; otherwise the more
// balanced the spread, the more points.
type ProviderBalance struct {
	Balanced     float64 // dominant share <= BalancedShare
	Moderate     float64 // dominant share <= ModerateShare
	Concentrated float64 // dominant share above ModerateShare
}

func (m *ProviderBalance) Describe() Descriptor {
	return Descriptor{Key: KeyProviderBalance, Name: "Provider balance anomaly", Tier: TierCritical, Points: m.Balanced}
}

func (m *ProviderBalance) Contribute(rec *claim.Record, b *Batch) float64 {
	n, share := b.ProviderSpread(rec.PatientID)
	switch {
	case n <= 1:
		return 0
	case share <= BalancedShare:
		return m.Balanced
	case share <= ModerateShare:
		return m.Moderate
	default:
		return m.Concentrated
	}
}
