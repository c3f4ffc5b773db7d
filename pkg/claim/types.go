// Package claim defines the core data model for claim scoring.
// These types are the shared vocabulary between the feature engine,
// the scoring engine, storage, and the output surfaces.
package claim

import "time"

// Claim is one insurance reimbursement submission as it arrives from the
// dataset loader. Claims are immutable inputs.
type Claim struct {
	Row                int       `json:"row"`                // 0-based input row index
	ClaimID            string    `json:"claim_id,omitempty"` // optional external identifier
	PatientID          string    `json:"patient_id"`         // NIK
	NIKValid           int       `json:"nik_valid"`
	BiometricFlag      int       `json:"biometric_flag"`
	Age                int       `json:"age"`
	Gender             string    `json:"gender,omitempty"`
	ProviderID         string    `json:"provider_id"`
	DiagnosisCode      string    `json:"diagnosis_code"`
	ProcedureCode      string    `json:"procedure_code,omitempty"`
	NumDiagnoses       int       `json:"num_diagnoses"`
	NumProcedures      int       `json:"num_procedures"`
	LengthOfStay       int       `json:"length_of_stay"`
	TotalClaimAmount   float64   `json:"total_claim_amount"`
	StandardTariff     float64   `json:"standard_tariff"`
	ServiceDate        time.Time `json:"service_date"`
	ClaimDate          time.Time `json:"claim_date"`
	VerificationMethod string    `json:"verification_method,omitempty"`

	// RejectionRate carries a provider rejection rate supplied with the
	// input row, if the dataset had one.
	RejectionRate *float64 `json:"rejection_rate,omitempty"`
}

// Features is the derived feature set attached to a claim. Every value is
// computed relative to the whole batch the claim was derived in.
type Features struct {
	DiagnosisCostRatio         *float64 `json:"diagnosis_cost_ratio"`
	AvgCostPerProcedure        *float64 `json:"avg_cost_per_procedure"`
	VerificationDelayDays      int      `json:"verification_delay_days"`
	DuplicateIDCount           int      `json:"duplicate_id_count"`
	DuplicateIDCountMonth      int      `json:"duplicate_id_count_month"`
	TimeBetweenAdmissions      int      `json:"time_between_admissions"`
	NumClaimsLast30dByProvider int      `json:"num_claims_last_30d_by_provider"`
	NumUniquePatientsLast30d   int      `json:"num_unique_patients_last_30d"`
	ProviderClaimRateVsPeer    *float64 `json:"provider_claim_rate_vs_peer"`
	ClaimRejectionRateProvider float64  `json:"claim_rejection_rate_provider"`
	MonthOverMonthClaimGrowth  float64  `json:"month_over_month_claim_growth"`
	SuddenSpikeFlag            int      `json:"sudden_spike_flag"`
	NewProviderMonthFlag       int      `json:"new_provider_month_flag"`
	AvgClaimPerPatient         *float64 `json:"avg_claim_per_patient"`
	ClaimFragmentationScore    int      `json:"claim_fragmentation_score"`
	ServiceMixIndex            float64  `json:"service_mix_index"`
}

// Label is the three-level fraud outcome.
type Label string

const (
	LabelHigh   Label = "HIGH"
	LabelMedium Label = "MEDIUM"
	LabelNormal Label = "NORMAL"
)

// Labels lists every label from most to least severe.
var Labels = []Label{LabelHigh, LabelMedium, LabelNormal}

// Assessment is the scoring outcome for one claim. Assigned once per batch.
type Assessment struct {
	LOSAnomalyFlag       int     `json:"los_anomaly_flag"`
	ProviderBalanceScore float64 `json:"provider_balance_score"`
	RawScore             float64 `json:"raw_score"`
	FraudScore           float64 `json:"fraud_score"`
	FraudLabel           Label   `json:"fraud_label"`
}

// Record is a claim plus whatever has been derived for it so far.
// Features is nil until the feature engine ran; Assessment is nil until
// the scoring engine ran.
type Record struct {
	Claim
	Features   *Features   `json:"features,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
}

// DayNumber returns the number of whole days since the Unix epoch for a
// calendar date. All window arithmetic is done on day numbers.
func DayNumber(t time.Time) int {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Unix() / 86400)
}

// MonthIndex returns a monotonically increasing index for the calendar month
// of t, such that consecutive months differ by exactly one.
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// Float returns a pointer to v, for populating nullable feature values.
func Float(v float64) *float64 {
	return &v
}
