package scoring

import (
	"time"

	"github.com/claimscore/claimscore/pkg/claim"
)

// DefaultRules builds the ordered contribution list from the given weights.
// The list is read-only once built; every rule is evaluated independently
// and any number of them may fire on the same claim.
func DefaultRules(w DefaultWeights) []Contributor {
	return []Contributor{
		// Critical
		&Rule{
			Descriptor: Descriptor{Key: KeyBiometricMissing, Name: "Biometric missing", Tier: TierCritical, Points: w.BiometricMissing},
			When:       func(r *claim.Record, _ *Batch) bool { return r.BiometricFlag == 0 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyInvalidIdentity, Name: "Invalid identity", Tier: TierCritical, Points: w.InvalidIdentity},
			When:       func(r *claim.Record, _ *Batch) bool { return r.NIKValid == 0 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyMonthlyDuplicate, Name: "Frequent monthly duplicate", Tier: TierCritical, Points: w.MonthlyDuplicate},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.DuplicateIDCountMonth > 1 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyExtremeCostRatio, Name: "Extreme cost ratio", Tier: TierCritical, Points: w.ExtremeCostRatio},
			When:       func(r *claim.Record, _ *Batch) bool { return gt(r.Features.DiagnosisCostRatio, 3.0) },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyAmountExceedsTariff, Name: "Amount far exceeds tariff", Tier: TierCritical, Points: w.AmountExceedsTariff},
			When:       func(r *claim.Record, _ *Batch) bool { return r.TotalClaimAmount > r.StandardTariff*2.5 },
		},

		// Major
		&Rule{
			Descriptor: Descriptor{Key: KeyRepeatedIdentity, Name: "Repeated identity overall", Tier: TierMajor, Points: w.RepeatedIdentity},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.DuplicateIDCount > 2 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyHighFragmentation, Name: "High fragmentation", Tier: TierMajor, Points: w.HighFragmentation},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.ClaimFragmentationScore >= 2 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyElevatedCostRatio, Name: "Elevated cost ratio", Tier: TierMajor, Points: w.ElevatedCostRatio},
			When:       func(r *claim.Record, _ *Batch) bool { return gt(r.Features.DiagnosisCostRatio, 2.0) },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyHighPatientAverage, Name: "High per-patient average", Tier: TierMajor, Points: w.HighPatientAverage},
			When:       func(r *claim.Record, _ *Batch) bool { return gt(r.Features.AvgClaimPerPatient, 5_000_000) },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyProviderGrowth, Name: "Provider spike", Tier: TierMajor, Points: w.ProviderGrowth},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.MonthOverMonthClaimGrowth > 1.5 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyNarrowServiceMix, Name: "Narrow service mix", Tier: TierMajor, Points: w.NarrowServiceMix},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.ServiceMixIndex < 0.55 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyProviderMismatch, Name: "Provider differs from patient default", Tier: TierMajor, Points: w.ProviderMismatch},
			When:       func(r *claim.Record, b *Batch) bool { return r.ProviderID != b.DefaultProvider(r.PatientID) },
		},

		// Minor
		&Rule{
			Descriptor: Descriptor{Key: KeyShortReadmission, Name: "Short readmission gap", Tier: TierMinor, Points: w.ShortReadmission},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.TimeBetweenAdmissions < 5 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyModerateCostRatio, Name: "Moderate cost ratio", Tier: TierMinor, Points: w.ModerateCostRatio},
			When:       func(r *claim.Record, _ *Batch) bool { return within(r.Features.DiagnosisCostRatio, 1.1, 2.0) },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeyVerificationDelay, Name: "Long verification delay", Tier: TierMinor, Points: w.VerificationDelay},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.VerificationDelayDays > 30 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeySundayClaim, Name: "Sunday claim", Tier: TierMinor, Points: w.SundayClaim},
			When:       func(r *claim.Record, _ *Batch) bool { return r.ClaimDate.Weekday() == time.Sunday },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeySameDayClaim, Name: "Same-day claim and service", Tier: TierMinor, Points: w.SameDayClaim},
			When:       func(r *claim.Record, _ *Batch) bool { return filingGap(r) <= 1 },
		},
		&Rule{
			Descriptor: Descriptor{Key: KeySuddenSpike, Name: "Sudden spike flag set", Tier: TierMinor, Points: w.SuddenSpike},
			When:       func(r *claim.Record, _ *Batch) bool { return r.Features.SuddenSpikeFlag == 1 },
		},

		&LOSAnomaly{Points: w.LOSAnomaly},
		&ProviderBalance{
			Balanced:     w.ProviderBalanceBalanced,
			Moderate:     w.ProviderBalanceModerate,
			Concentrated: w.ProviderBalanceConcentrated,
		},
	}
}

// DefaultContributors returns the standard contribution list with default weights.
func DefaultContributors() []Contributor {
	return DefaultRules(Defaults())
}
