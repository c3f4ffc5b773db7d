package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Rule keys. They double as the keys of weight overrides.
const (
	KeyBiometricMissing    = "biometric_missing"
	KeyInvalidIdentity     = "invalid_identity"
	KeyMonthlyDuplicate    = "monthly_duplicate"
	KeyExtremeCostRatio    = "extreme_cost_ratio"
	KeyAmountExceedsTariff = "amount_exceeds_tariff"

	KeyRepeatedIdentity   = "repeated_identity"
	KeyHighFragmentation  = "high_fragmentation"
	KeyElevatedCostRatio  = "elevated_cost_ratio"
	KeyHighPatientAverage = "high_patient_average"
	KeyProviderGrowth     = "provider_growth"
	KeyNarrowServiceMix   = "narrow_service_mix"
	KeyProviderMismatch   = "provider_mismatch"

	KeyShortReadmission  = "short_readmission"
	KeyModerateCostRatio = "moderate_cost_ratio"
	KeyVerificationDelay = "verification_delay"
	KeySundayClaim       = "sunday_claim"
	KeySameDayClaim      = "same_day_claim"
	KeySuddenSpike       = "sudden_spike"

	KeyLOSAnomaly      = "los_anomaly"
	KeyProviderBalance = "provider_balance"

	// Override keys for the lower provider balance tiers. KeyProviderBalance
	// sets the balanced tier.
	KeyProviderBalanceModerate     = "provider_balance_moderate"
	KeyProviderBalanceConcentrated = "provider_balance_concentrated"
)

// DefaultWeights holds the point values of every contribution.
type DefaultWeights struct {
	// Critical
	BiometricMissing    float64
	InvalidIdentity     float64
	MonthlyDuplicate    float64
	ExtremeCostRatio    float64
	AmountExceedsTariff float64

	// Major
	RepeatedIdentity   float64
	HighFragmentation  float64
	ElevatedCostRatio  float64
	HighPatientAverage float64
	ProviderGrowth     float64
	NarrowServiceMix   float64
	ProviderMismatch   float64
	LOSAnomaly         float64

	// Minor
	ShortReadmission  float64
	ModerateCostRatio float64
	VerificationDelay float64
	SundayClaim       float64
	SameDayClaim      float64
	SuddenSpike       float64

	// Provider balance, by dominant provider share
	ProviderBalanceBalanced     float64
	ProviderBalanceModerate     float64
	ProviderBalanceConcentrated float64
}

// Defaults returns the default scoring weights.
func Defaults() DefaultWeights {
	return DefaultWeights{
		BiometricMissing:    20,
		InvalidIdentity:     15,
		MonthlyDuplicate:    14,
		ExtremeCostRatio:    14,
		AmountExceedsTariff: 16,

		RepeatedIdentity:   8,
		HighFragmentation:  10,
		ElevatedCostRatio:  9,
		HighPatientAverage: 10,
		ProviderGrowth:     8,
		NarrowServiceMix:   8,
		ProviderMismatch:   6,
		LOSAnomaly:         10,

		ShortReadmission:  5,
		ModerateCostRatio: 4,
		VerificationDelay: 4,
		SundayClaim:       3,
		SameDayClaim:      3,
		SuddenSpike:       3,

		ProviderBalanceBalanced:     12,
		ProviderBalanceModerate:     6,
		ProviderBalanceConcentrated: 2,
	}
}

func (w *DefaultWeights) byKey() map[string]*float64 {
	return map[string]*float64{
		KeyBiometricMissing:            &w.BiometricMissing,
		KeyInvalidIdentity:             &w.InvalidIdentity,
		KeyMonthlyDuplicate:            &w.MonthlyDuplicate,
		KeyExtremeCostRatio:            &w.ExtremeCostRatio,
		KeyAmountExceedsTariff:         &w.AmountExceedsTariff,
		KeyRepeatedIdentity:            &w.RepeatedIdentity,
		KeyHighFragmentation:           &w.HighFragmentation,
		KeyElevatedCostRatio:           &w.ElevatedCostRatio,
		KeyHighPatientAverage:          &w.HighPatientAverage,
		KeyProviderGrowth:              &w.ProviderGrowth,
		KeyNarrowServiceMix:            &w.NarrowServiceMix,
		KeyProviderMismatch:            &w.ProviderMismatch,
		KeyLOSAnomaly:                  &w.LOSAnomaly,
		KeyShortReadmission:            &w.ShortReadmission,
		KeyModerateCostRatio:           &w.ModerateCostRatio,
		KeyVerificationDelay:           &w.VerificationDelay,
		KeySundayClaim:                 &w.SundayClaim,
		KeySameDayClaim:                &w.SameDayClaim,
		KeySuddenSpike:                 &w.SuddenSpike,
		KeyProviderBalance:             &w.ProviderBalanceBalanced,
		KeyProviderBalanceModerate:     &w.ProviderBalanceModerate,
		KeyProviderBalanceConcentrated: &w.ProviderBalanceConcentrated,
	}
}

// WeightKeys returns every key accepted by WithOverrides, sorted.
func WeightKeys() []string {
	w := Defaults()
	m := w.byKey()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithOverrides returns a copy of w with the given point values replaced.
// Unknown keys and negative points are rejected.
func (w DefaultWeights) WithOverrides(overrides map[string]float64) (DefaultWeights, error) {
	fields := w.byKey()

	var unknown []string
	for k, v := range overrides {
		p, ok := fields[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		if v < 0 {
			return DefaultWeights{}, fmt.Errorf("weight %s: points must not be negative, got %g", k, v)
		}
		*p = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return DefaultWeights{}, fmt.Errorf("unknown weight keys: %s", strings.Join(unknown, ", "))
	}
	return w, nil
}
