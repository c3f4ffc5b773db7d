package scoring_test

import (
	"testing"
	"time"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
)

// cleanRecord returns a claim on which no default rule fires.
func cleanRecord(row int, patient, provider string) claim.Record {
	return claim.Record{
		Claim: claim.Claim{
			Row:              row,
			PatientID:        patient,
			ProviderID:       provider,
			NIKValid:         1,
			BiometricFlag:    1,
			DiagnosisCode:    "J00",
			LengthOfStay:     2,
			NumProcedures:    1,
			TotalClaimAmount: 1_000_000,
			StandardTariff:   1_000_000,
			ServiceDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			ClaimDate:        time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), // Monday
		},
		Features: &claim.Features{
			DiagnosisCostRatio:    claim.Float(1.0),
			AvgCostPerProcedure:   claim.Float(1_000_000),
			VerificationDelayDays: 3,
			TimeBetweenAdmissions: 10,
			AvgClaimPerPatient:    claim.Float(1_000_000),
			ServiceMixIndex:       1.0,
		},
	}
}

func scoreOne(t *testing.T, rec claim.Record) scoring.ClaimResult {
	t.Helper()
	res, err := scoring.NewEngine(scoring.DefaultContributors()...).Score([]claim.Record{rec})
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	return res.Claims[0]
}

func TestCleanRecordScoresZero(t *testing.T) {
	r := scoreOne(t, cleanRecord(0, "p1", "RS001"))
	if r.RawScore != 0 {
		t.Errorf("expected raw score 0, got %f (contributions %+v)", r.RawScore, r.Contributions)
	}
	if r.FraudScore != 0 || r.Label != claim.LabelNormal {
		t.Errorf("expected 0/NORMAL, got %f/%s", r.FraudScore, r.Label)
	}
}

// Each case adds exactly one triggering condition to a clean claim; the raw
// score must rise by exactly that rule's points.
func TestSingleRuleContributions(t *testing.T) {
	tests := []struct {
		key    string
		points float64
		mutate func(r *claim.Record)
	}{
		{scoring.KeyBiometricMissing, 20, func(r *claim.Record) { r.BiometricFlag = 0 }},
		{scoring.KeyInvalidIdentity, 15, func(r *claim.Record) { r.NIKValid = 0 }},
		{scoring.KeyMonthlyDuplicate, 14, func(r *claim.Record) { r.Features.DuplicateIDCountMonth = 2 }},
		{scoring.KeyAmountExceedsTariff, 16, func(r *claim.Record) { r.TotalClaimAmount = 2_600_000 }},
		{scoring.KeyRepeatedIdentity, 8, func(r *claim.Record) { r.Features.DuplicateIDCount = 3 }},
		{scoring.KeyHighFragmentation, 10, func(r *claim.Record) { r.Features.ClaimFragmentationScore = 3 }},
		{scoring.KeyHighPatientAverage, 10, func(r *claim.Record) { r.Features.AvgClaimPerPatient = claim.Float(5_000_001) }},
		{scoring.KeyProviderGrowth, 8, func(r *claim.Record) { r.Features.MonthOverMonthClaimGrowth = 1.6 }},
		{scoring.KeyNarrowServiceMix, 8, func(r *claim.Record) { r.Features.ServiceMixIndex = 0.5 }},
		{scoring.KeyShortReadmission, 5, func(r *claim.Record) { r.Features.TimeBetweenAdmissions = 4 }},
		{scoring.KeyModerateCostRatio, 4, func(r *claim.Record) { r.Features.DiagnosisCostRatio = claim.Float(2.0) }},
		{scoring.KeyVerificationDelay, 4, func(r *claim.Record) { r.Features.VerificationDelayDays = 31 }},
		{scoring.KeySundayClaim, 3, func(r *claim.Record) { r.ClaimDate = time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC) }},
		{scoring.KeySameDayClaim, 3, func(r *claim.Record) { r.ServiceDate = time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC) }},
		{scoring.KeySuddenSpike, 3, func(r *claim.Record) { r.Features.SuddenSpikeFlag = 1 }},
		{scoring.KeyLOSAnomaly, 10, func(r *claim.Record) { r.LengthOfStay = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			rec := cleanRecord(0, "p1", "RS001")
			tt.mutate(&rec)
			r := scoreOne(t, rec)

			if r.RawScore != tt.points {
				t.Errorf("raw score = %f, want %f (contributions %+v)", r.RawScore, tt.points, r.Contributions)
			}
			if len(r.Contributions) != 1 || r.Contributions[0].Key != tt.key {
				t.Errorf("expected only %s to fire, got %+v", tt.key, r.Contributions)
			}
		})
	}
}

func TestCostRatioTiers(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{1.1, 0},      // moderate tier is exclusive of 1.1
		{1.5, 4},      // moderate
		{2.0, 4},      // moderate includes 2.0
		{2.5, 9},      // elevated
		{3.0, 9},      // extreme is exclusive of 3.0
		{3.5, 14 + 9}, // extreme and elevated both fire
	}
	for _, tt := range tests {
		rec := cleanRecord(0, "p1", "RS001")
		rec.Features.DiagnosisCostRatio = claim.Float(tt.ratio)
		if got := scoreOne(t, rec).RawScore; got != tt.want {
			t.Errorf("ratio %.1f: raw score = %f, want %f", tt.ratio, got, tt.want)
		}
	}
}

func TestNullFeaturesNeverFire(t *testing.T) {
	rec := cleanRecord(0, "p1", "RS001")
	rec.Features.DiagnosisCostRatio = nil
	rec.Features.AvgClaimPerPatient = nil
	rec.Features.AvgCostPerProcedure = nil
	rec.Features.ProviderClaimRateVsPeer = nil

	if got := scoreOne(t, rec).RawScore; got != 0 {
		t.Errorf("raw score with null features = %f, want 0", got)
	}
}

func TestProviderMismatchAndBalance(t *testing.T) {
	first := cleanRecord(0, "p1", "RS001")
	second := cleanRecord(1, "p1", "RS002")
	second.ClaimDate = second.ClaimDate.AddDate(0, 0, 1)

	// Input order reversed: the default provider is the earliest claim's.
	recs := []claim.Record{second, first}
	res, err := scoring.NewEngine(scoring.DefaultContributors()...).Score(recs)
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	// 50/50 split is the most balanced tier.
	if got := res.Claims[1].RawScore; got != 12 {
		t.Errorf("default-provider claim raw score = %f, want 12", got)
	}
	if got := res.Claims[0].RawScore; got != 12+6 {
		t.Errorf("other-provider claim raw score = %f, want 18", got)
	}
	if got := recs[0].Assessment.ProviderBalanceScore; got != 12 {
		t.Errorf("provider_balance_score = %f, want 12", got)
	}
}

func TestProviderBalanceTiers(t *testing.T) {
	spread := func(counts ...int) []claim.Record {
		var recs []claim.Record
		for p, n := range counts {
			for i := 0; i < n; i++ {
				recs = append(recs, cleanRecord(len(recs), "p1", string(rune('A'+p))))
			}
		}
		return recs
	}

	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"single provider", []int{4}, 0},
		{"exactly 55 percent", []int{11, 9}, 12},
		{"60 percent", []int{3, 2}, 6},
		{"exactly 75 percent", []int{3, 1}, 6},
		{"80 percent", []int{4, 1}, 2},
	}
	pb := &scoring.ProviderBalance{Balanced: 12, Moderate: 6, Concentrated: 2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := spread(tt.counts...)
			b := scoring.NewBatch(recs)
			for i := range recs {
				if got := pb.Contribute(&recs[i], b); got != tt.want {
					t.Fatalf("row %d: balance = %f, want %f", i, got, tt.want)
				}
			}
		})
	}
}

func TestBatchDefaultProviderTieBreak(t *testing.T) {
	a := cleanRecord(5, "p1", "RS009")
	b := cleanRecord(2, "p1", "RS001")
	batch := scoring.NewBatch([]claim.Record{a, b})
	if got := batch.DefaultProvider("p1"); got != "RS001" {
		t.Errorf("same-day tie should go to the lowest row, got %s", got)
	}
}

func TestLOSAnomalous(t *testing.T) {
	tests := []struct {
		code string
		los  int
		want bool
	}{
		{"J00", 4, false},
		{"J00", 5, true},
		{"O80", 0, true}, // obstetric stays are at least one day
		{"O80", 1, false},
		{"H25.9", 2, true},
		{"I10", 7, false},
		{"X99.9", 2, false}, // unmapped codes use the general range
		{"X99.9", 3, true},
	}
	for _, tt := range tests {
		if got := scoring.LOSAnomalous(tt.code, tt.los); got != tt.want {
			t.Errorf("LOSAnomalous(%s, %d) = %v, want %v", tt.code, tt.los, got, tt.want)
		}
	}
	if got := scoring.GroupOf("X99.9"); got != scoring.GroupGeneral {
		t.Errorf("GroupOf(unmapped) = %s, want %s", got, scoring.GroupGeneral)
	}
}

func TestWithOverrides(t *testing.T) {
	w, err := scoring.Defaults().WithOverrides(map[string]float64{
		scoring.KeySundayClaim:     7,
		scoring.KeyProviderBalance: 20,
	})
	if err != nil {
		t.Fatalf("WithOverrides() error: %v", err)
	}
	if w.SundayClaim != 7 || w.ProviderBalanceBalanced != 20 {
		t.Errorf("overrides not applied: %+v", w)
	}
	if w.BiometricMissing != 20 {
		t.Errorf("untouched weight changed: %f", w.BiometricMissing)
	}

	if _, err := scoring.Defaults().WithOverrides(map[string]float64{"weekend_claim": 1}); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := scoring.Defaults().WithOverrides(map[string]float64{scoring.KeySundayClaim: -1}); err == nil {
		t.Error("expected error for negative points")
	}
}

func TestDefaultRulesCoverWeightKeys(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range scoring.DefaultContributors() {
		d := c.Describe()
		if seen[d.Key] {
			t.Errorf("duplicate contributor key %s", d.Key)
		}
		seen[d.Key] = true
	}
	for _, k := range scoring.WeightKeys() {
		if k == scoring.KeyProviderBalanceModerate || k == scoring.KeyProviderBalanceConcentrated {
			continue
		}
		if !seen[k] {
			t.Errorf("weight key %s has no contributor", k)
		}
	}
}
