package claim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

const flushInterval = 100_000

// LabeledRow is the Parquet schema for a labeled claim.
// One row per claim, with features and assessment denormalized.
type LabeledRow struct {
	Row                        int64    `parquet:"row"`
	ClaimID                    *string  `parquet:"claim_id,optional"`
	PatientID                  string   `parquet:"NIK"`
	NIKValid                   int32    `parquet:"NIK_valid"`
	BiometricFlag              int32    `parquet:"biometric_flag"`
	Age                        int32    `parquet:"age"`
	Gender                     string   `parquet:"gender"`
	ProviderID                 string   `parquet:"provider_id"`
	DiagnosisCode              string   `parquet:"diagnosis_code"`
	ProcedureCode              string   `parquet:"procedure_code"`
	NumDiagnoses               int32    `parquet:"num_diagnoses"`
	NumProcedures              int32    `parquet:"num_procedures"`
	LengthOfStay               int32    `parquet:"length_of_stay"`
	TotalClaimAmount           float64  `parquet:"total_claim_amount"`
	ServiceDate                string   `parquet:"service_date"`
	ClaimDate                  string   `parquet:"claim_date"`
	VerificationMethod         string   `parquet:"verification_method"`
	StandardTariff             float64  `parquet:"tarif_standar_diagnosis"`
	DiagnosisCostRatio         *float64 `parquet:"diagnosis_cost_ratio,optional"`
	AvgCostPerProcedure        *float64 `parquet:"avg_cost_per_procedure,optional"`
	VerificationDelayDays      int32    `parquet:"verification_delay_days"`
	DuplicateIDCount           int32    `parquet:"duplicate_ID_count"`
	DuplicateIDCountMonth      int32    `parquet:"duplicate_ID_count_month"`
	TimeBetweenAdmissions      int32    `parquet:"time_between_admissions"`
	NumClaimsLast30dByProvider int32    `parquet:"num_claims_last_30d_by_provider"`
	NumUniquePatientsLast30d   int32    `parquet:"num_unique_patients_last_30d"`
	ProviderClaimRateVsPeer    *float64 `parquet:"provider_claim_rate_vs_peer,optional"`
	ClaimRejectionRateProvider float64  `parquet:"claim_rejection_rate_provider"`
	MonthOverMonthClaimGrowth  float64  `parquet:"month_over_month_claim_growth"`
	SuddenSpikeFlag            int32    `parquet:"sudden_spike_flag"`
	NewProviderMonthFlag       int32    `parquet:"new_provider_month_flag"`
	AvgClaimPerPatient         *float64 `parquet:"avg_claim_per_patient,optional"`
	ClaimFragmentationScore    int32    `parquet:"claim_fragmentation_score"`
	ServiceMixIndex            float64  `parquet:"service_mix_index"`
	LOSAnomalyFlag             int32    `parquet:"los_anomaly_flag"`
	ProviderBalanceScore       float64  `parquet:"provider_balance_score"`
	FraudScore                 float64  `parquet:"fraud_score"`
	FraudLabel                 string   `parquet:"fraud_label"`
}

// ToLabeledRow flattens a fully scored record. It fails if the record has
// not been through both engines.
func ToLabeledRow(r *Record) (LabeledRow, error) {
	if r.Features == nil || r.Assessment == nil {
		return LabeledRow{}, &RowError{Row: r.Row, Column: ColFraudLabel, Reason: "record is not labeled"}
	}
	f, a := r.Features, r.Assessment
	row := LabeledRow{
		Row:                        int64(r.Row),
		PatientID:                  r.PatientID,
		NIKValid:                   int32(r.NIKValid),
		BiometricFlag:              int32(r.BiometricFlag),
		Age:                        int32(r.Age),
		Gender:                     r.Gender,
		ProviderID:                 r.ProviderID,
		DiagnosisCode:              r.DiagnosisCode,
		ProcedureCode:              r.ProcedureCode,
		NumDiagnoses:               int32(r.NumDiagnoses),
		NumProcedures:              int32(r.NumProcedures),
		LengthOfStay:               int32(r.LengthOfStay),
		TotalClaimAmount:           r.TotalClaimAmount,
		ServiceDate:                r.ServiceDate.Format(DateLayout),
		ClaimDate:                  r.ClaimDate.Format(DateLayout),
		VerificationMethod:         r.VerificationMethod,
		StandardTariff:             r.StandardTariff,
		DiagnosisCostRatio:         f.DiagnosisCostRatio,
		AvgCostPerProcedure:        f.AvgCostPerProcedure,
		VerificationDelayDays:      int32(f.VerificationDelayDays),
		DuplicateIDCount:           int32(f.DuplicateIDCount),
		DuplicateIDCountMonth:      int32(f.DuplicateIDCountMonth),
		TimeBetweenAdmissions:      int32(f.TimeBetweenAdmissions),
		NumClaimsLast30dByProvider: int32(f.NumClaimsLast30dByProvider),
		NumUniquePatientsLast30d:   int32(f.NumUniquePatientsLast30d),
		ProviderClaimRateVsPeer:    f.ProviderClaimRateVsPeer,
		ClaimRejectionRateProvider: f.ClaimRejectionRateProvider,
		MonthOverMonthClaimGrowth:  f.MonthOverMonthClaimGrowth,
		SuddenSpikeFlag:            int32(f.SuddenSpikeFlag),
		NewProviderMonthFlag:       int32(f.NewProviderMonthFlag),
		AvgClaimPerPatient:         f.AvgClaimPerPatient,
		ClaimFragmentationScore:    int32(f.ClaimFragmentationScore),
		ServiceMixIndex:            f.ServiceMixIndex,
		LOSAnomalyFlag:             int32(a.LOSAnomalyFlag),
		ProviderBalanceScore:       a.ProviderBalanceScore,
		FraudScore:                 a.FraudScore,
		FraudLabel:                 string(a.FraudLabel),
	}
	if r.ClaimID != "" {
		id := r.ClaimID
		row.ClaimID = &id
	}
	return row, nil
}

// WriteParquet writes labeled records as a Snappy-compressed Parquet file.
func WriteParquet(w io.Writer, records []Record) error {
	writer := parquet.NewGenericWriter[LabeledRow](w,
		parquet.Compression(&parquet.Snappy),
	)
	buf := make([]LabeledRow, 0, 1)
	for i := range records {
		row, err := ToLabeledRow(&records[i])
		if err != nil {
			return err
		}
		buf = append(buf[:0], row)
		if _, err := writer.Write(buf); err != nil {
			return fmt.Errorf("write labeled row %d: %w", row.Row, err)
		}
		if (i+1)%flushInterval == 0 {
			if err := writer.Flush(); err != nil {
				return fmt.Errorf("flush labeled rows: %w", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close labeled writer: %w", err)
	}
	return nil
}

// SaveParquet writes labeled records to a Parquet file.
func SaveParquet(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for table: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create labeled parquet: %w", err)
	}
	if err := WriteParquet(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
