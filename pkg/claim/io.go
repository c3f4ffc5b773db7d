package claim

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Column names of the claim table.
const (
	ColClaimID            = "claim_id"
	ColPatientID          = "NIK"
	ColNIKValid           = "NIK_valid"
	ColBiometricFlag      = "biometric_flag"
	ColAge                = "age"
	ColGender             = "gender"
	ColProviderID         = "provider_id"
	ColDiagnosisCode      = "diagnosis_code"
	ColProcedureCode      = "procedure_code"
	ColNumDiagnoses       = "num_diagnoses"
	ColNumProcedures      = "num_procedures"
	ColLengthOfStay       = "length_of_stay"
	ColTotalClaimAmount   = "total_claim_amount"
	ColStandardTariff     = "tarif_standar_diagnosis"
	ColServiceDate        = "service_date"
	ColClaimDate          = "claim_date"
	ColVerificationMethod = "verification_method"

	ColDiagnosisCostRatio         = "diagnosis_cost_ratio"
	ColAvgCostPerProcedure        = "avg_cost_per_procedure"
	ColVerificationDelayDays      = "verification_delay_days"
	ColDuplicateIDCount           = "duplicate_ID_count"
	ColDuplicateIDCountMonth      = "duplicate_ID_count_month"
	ColTimeBetweenAdmissions      = "time_between_admissions"
	ColNumClaimsLast30dByProvider = "num_claims_last_30d_by_provider"
	ColNumUniquePatientsLast30d   = "num_unique_patients_last_30d"
	ColProviderClaimRateVsPeer    = "provider_claim_rate_vs_peer"
	ColClaimRejectionRateProvider = "claim_rejection_rate_provider"
	ColMonthOverMonthClaimGrowth  = "month_over_month_claim_growth"
	ColSuddenSpikeFlag            = "sudden_spike_flag"
	ColNewProviderMonthFlag       = "new_provider_month_flag"
	ColAvgClaimPerPatient         = "avg_claim_per_patient"
	ColClaimFragmentationScore    = "claim_fragmentation_score"
	ColServiceMixIndex            = "service_mix_index"

	ColLOSAnomalyFlag       = "los_anomaly_flag"
	ColProviderBalanceScore = "provider_balance_score"
	ColFraudScore           = "fraud_score"
	ColFraudLabel           = "fraud_label"
)

// DateLayout is the layout dates are written with.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339}

// columnAliases maps accepted alternative header names to canonical names.
var columnAliases = map[string]string{
	"patient_id":      ColPatientID,
	"standard_tariff": ColStandardTariff,
}

// RawColumns is the output order of the raw claim columns.
var RawColumns = []string{
	ColClaimID, ColPatientID, ColNIKValid, ColBiometricFlag, ColAge, ColGender,
	ColProviderID, ColDiagnosisCode, ColProcedureCode, ColNumDiagnoses,
	ColNumProcedures, ColLengthOfStay, ColTotalClaimAmount, ColServiceDate,
	ColClaimDate, ColVerificationMethod, ColStandardTariff,
}

// FeatureColumns is the output order of the derived feature columns.
var FeatureColumns = []string{
	ColDiagnosisCostRatio, ColAvgCostPerProcedure, ColVerificationDelayDays,
	ColDuplicateIDCount, ColDuplicateIDCountMonth, ColTimeBetweenAdmissions,
	ColNumClaimsLast30dByProvider, ColNumUniquePatientsLast30d,
	ColProviderClaimRateVsPeer, ColClaimRejectionRateProvider,
	ColMonthOverMonthClaimGrowth, ColSuddenSpikeFlag, ColNewProviderMonthFlag,
	ColAvgClaimPerPatient, ColClaimFragmentationScore, ColServiceMixIndex,
}

// AssessmentColumns is the output order of the scoring columns.
var AssessmentColumns = []string{
	ColLOSAnomalyFlag, ColProviderBalanceScore, ColFraudScore, ColFraudLabel,
}

// RequiredClaimColumns must be present in a raw claim table. The identity
// flags are carried through derivation and scored later, so they are
// required up front.
var RequiredClaimColumns = []string{
	ColPatientID, ColNIKValid, ColBiometricFlag, ColProviderID, ColDiagnosisCode, ColNumProcedures,
	ColLengthOfStay, ColTotalClaimAmount, ColStandardTariff,
	ColServiceDate, ColClaimDate,
}

// RequiredScoringColumns must be present, in addition to the claim columns,
// for a feature table to be scored.
var RequiredScoringColumns = FeatureColumns

// ReadClaims reads a raw claim table. Only the claim columns are parsed;
// extra columns are ignored.
func ReadClaims(r io.Reader) ([]Claim, error) {
	t, err := readTable(r, RequiredClaimColumns)
	if err != nil {
		return nil, err
	}
	claims := make([]Claim, 0, len(t.rows))
	for i, rec := range t.rows {
		p := &rowParser{idx: t.idx, rec: rec, row: i}
		c := p.claim()
		if p.err != nil {
			return nil, p.err
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// ReadRecords reads a feature table: claim columns plus every derived
// feature column. A missing feature column is a schema error.
func ReadRecords(r io.Reader) ([]Record, error) {
	required := append(append([]string{}, RequiredClaimColumns...), RequiredScoringColumns...)
	t, err := readTable(r, required)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(t.rows))
	for i, rec := range t.rows {
		p := &rowParser{idx: t.idx, rec: rec, row: i}
		c := p.claim()
		f := p.features()
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, Record{Claim: c, Features: &f})
	}
	return records, nil
}

// LoadClaims reads a raw claim table from a CSV file.
func LoadClaims(path string) ([]Claim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open claims: %w", err)
	}
	defer f.Close()
	claims, err := ReadClaims(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return claims, nil
}

// LoadRecords reads a feature table from a CSV file.
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature table: %w", err)
	}
	defer f.Close()
	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// SaveCSV writes records to a CSV file, creating parent directories.
func SaveCSV(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for table: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes records as a CSV table. Feature columns are written when
// the first record has features, assessment columns when it has an
// assessment; a batch is derived as a whole, so either all records carry
// them or none do.
func WriteCSV(w io.Writer, records []Record) error {
	withFeatures := len(records) > 0 && records[0].Features != nil
	withAssessment := len(records) > 0 && records[0].Assessment != nil

	header := append([]string{}, RawColumns...)
	if withFeatures {
		header = append(header, FeatureColumns...)
	}
	if withAssessment {
		header = append(header, AssessmentColumns...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := rawCells(&r.Claim)
		if withFeatures {
			if r.Features == nil {
				return &RowError{Row: r.Row, Column: ColDiagnosisCostRatio, Reason: "record has no features"}
			}
			row = append(row, featureCells(r.Features)...)
		}
		if withAssessment {
			if r.Assessment == nil {
				return &RowError{Row: r.Row, Column: ColFraudScore, Reason: "record has no assessment"}
			}
			row = append(row, assessmentCells(r.Assessment)...)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", r.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type table struct {
	idx  map[string]int
	rows [][]string
}

func readTable(r io.Reader, required []string) (*table, error) {
	br := bufio.NewReaderSize(r, 256*1024)

	// Skip UTF-8 BOM if present
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Missing: required}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if canon, ok := columnAliases[h]; ok {
			h = canon
		}
		idx[h] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	t := &table{idx: idx}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.rows), err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// rowParser extracts typed cells from one CSV row, keeping the first error.
type rowParser struct {
	idx map[string]int
	rec []string
	row int
	err error
}

func (p *rowParser) cell(col string) (string, bool) {
	i, ok := p.idx[col]
	if !ok || i >= len(p.rec) {
		return "", false
	}
	return strings.TrimSpace(p.rec[i]), true
}

func (p *rowParser) fail(col, val string, err error) {
	if p.err == nil {
		p.err = &ParseError{Row: p.row, Column: col, Value: val, Err: err}
	}
}

func (p *rowParser) str(col string) string {
	v, _ := p.cell(col)
	return v
}

// integer parses an integer cell. Integral floats ("3.0") are accepted since
// spreadsheet exports write filled integer columns that way.
func (p *rowParser) integer(col string, required bool) int {
	v, ok := p.cell(col)
	if !ok || v == "" {
		p.missing(col, v, ok, required)
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		p.fail(col, v, errors.New("not an integer"))
		return 0
	}
	return int(f)
}

func (p *rowParser) number(col string, required bool) float64 {
	v, ok := p.cell(col)
	if !ok || v == "" {
		p.missing(col, v, ok, required)
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(col, v, err)
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(col, v, errors.New("not a finite number"))
		return 0
	}
	return f
}

// missing records an error for a required cell that is empty or whose
// column is absent from the header.
func (p *rowParser) missing(col, v string, present, required bool) {
	switch {
	case !required:
	case present:
		p.fail(col, v, errors.New("empty value"))
	default:
		p.fail(col, v, errors.New("column not present"))
	}
}

func (p *rowParser) nullable(col string) *float64 {
	v, ok := p.cell(col)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(col, v, err)
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (p *rowParser) date(col string) time.Time {
	v, _ := p.cell(col)
	t, err := ParseDate(v)
	if err != nil {
		p.fail(col, v, err)
	}
	return t
}

func (p *rowParser) claim() Claim {
	c := Claim{
		Row:                p.row,
		ClaimID:            p.str(ColClaimID),
		PatientID:          p.str(ColPatientID),
		NIKValid:           p.integer(ColNIKValid, true),
		BiometricFlag:      p.integer(ColBiometricFlag, true),
		Age:                p.integer(ColAge, false),
		Gender:             p.str(ColGender),
		ProviderID:         p.str(ColProviderID),
		DiagnosisCode:      p.str(ColDiagnosisCode),
		ProcedureCode:      p.str(ColProcedureCode),
		NumDiagnoses:       p.integer(ColNumDiagnoses, false),
		NumProcedures:      p.integer(ColNumProcedures, true),
		LengthOfStay:       p.integer(ColLengthOfStay, true),
		TotalClaimAmount:   p.number(ColTotalClaimAmount, true),
		StandardTariff:     p.number(ColStandardTariff, true),
		ServiceDate:        p.date(ColServiceDate),
		ClaimDate:          p.date(ColClaimDate),
		VerificationMethod: p.str(ColVerificationMethod),
		RejectionRate:      p.nullable(ColClaimRejectionRateProvider),
	}
	return c
}

func (p *rowParser) features() Features {
	return Features{
		DiagnosisCostRatio:         p.nullable(ColDiagnosisCostRatio),
		AvgCostPerProcedure:        p.nullable(ColAvgCostPerProcedure),
		VerificationDelayDays:      p.integer(ColVerificationDelayDays, true),
		DuplicateIDCount:           p.integer(ColDuplicateIDCount, true),
		DuplicateIDCountMonth:      p.integer(ColDuplicateIDCountMonth, true),
		TimeBetweenAdmissions:      p.integer(ColTimeBetweenAdmissions, true),
		NumClaimsLast30dByProvider: p.integer(ColNumClaimsLast30dByProvider, true),
		NumUniquePatientsLast30d:   p.integer(ColNumUniquePatientsLast30d, true),
		ProviderClaimRateVsPeer:    p.nullable(ColProviderClaimRateVsPeer),
		ClaimRejectionRateProvider: p.number(ColClaimRejectionRateProvider, true),
		MonthOverMonthClaimGrowth:  p.number(ColMonthOverMonthClaimGrowth, true),
		SuddenSpikeFlag:            p.integer(ColSuddenSpikeFlag, true),
		NewProviderMonthFlag:       p.integer(ColNewProviderMonthFlag, true),
		AvgClaimPerPatient:         p.nullable(ColAvgClaimPerPatient),
		ClaimFragmentationScore:    p.integer(ColClaimFragmentationScore, true),
		ServiceMixIndex:            p.number(ColServiceMixIndex, true),
	}
}

// ParseDate parses a calendar date in any accepted layout and truncates it
// to the UTC day.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func rawCells(c *Claim) []string {
	return []string{
		c.ClaimID,
		c.PatientID,
		strconv.Itoa(c.NIKValid),
		strconv.Itoa(c.BiometricFlag),
		strconv.Itoa(c.Age),
		c.Gender,
		c.ProviderID,
		c.DiagnosisCode,
		c.ProcedureCode,
		strconv.Itoa(c.NumDiagnoses),
		strconv.Itoa(c.NumProcedures),
		strconv.Itoa(c.LengthOfStay),
		formatFloat(c.TotalClaimAmount),
		c.ServiceDate.Format(DateLayout),
		c.ClaimDate.Format(DateLayout),
		c.VerificationMethod,
		formatFloat(c.StandardTariff),
	}
}

func featureCells(f *Features) []string {
	return []string{
		formatNullable(f.DiagnosisCostRatio),
		formatNullable(f.AvgCostPerProcedure),
		strconv.Itoa(f.VerificationDelayDays),
		strconv.Itoa(f.DuplicateIDCount),
		strconv.Itoa(f.DuplicateIDCountMonth),
		strconv.Itoa(f.TimeBetweenAdmissions),
		strconv.Itoa(f.NumClaimsLast30dByProvider),
		strconv.Itoa(f.NumUniquePatientsLast30d),
		formatNullable(f.ProviderClaimRateVsPeer),
		formatFloat(f.ClaimRejectionRateProvider),
		formatFloat(f.MonthOverMonthClaimGrowth),
		strconv.Itoa(f.SuddenSpikeFlag),
		strconv.Itoa(f.NewProviderMonthFlag),
		formatNullable(f.AvgClaimPerPatient),
		strconv.Itoa(f.ClaimFragmentationScore),
		formatFloat(f.ServiceMixIndex),
	}
}

func assessmentCells(a *Assessment) []string {
	return []string{
		strconv.Itoa(a.LOSAnomalyFlag),
		formatFloat(a.ProviderBalanceScore),
		strconv.FormatFloat(a.FraudScore, 'f', 2, 64),
		string(a.FraudLabel),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
