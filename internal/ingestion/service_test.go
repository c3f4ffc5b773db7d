package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/claimscore/claimscore/internal/platform"
	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/features"
	"github.com/claimscore/claimscore/pkg/scoring"
)

func scoredFixture() ([]claim.Record, *scoring.BatchResult) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	records := []claim.Record{
		{Claim: claim.Claim{Row: 1, ClaimID: "C2", PatientID: "0002", ProviderID: "RS002", ClaimDate: day}},
		{Claim: claim.Claim{Row: 0, PatientID: "0001", ProviderID: "RS001", ClaimDate: day.AddDate(0, 0, 1)}},
		{Claim: claim.Claim{Row: 2, ClaimID: "C3", PatientID: "0003", ProviderID: "RS001", ClaimDate: day.AddDate(0, 0, 2)}},
	}
	result := &scoring.BatchResult{
		Claims: []scoring.ClaimResult{
			{Row: 0, ProviderID: "RS001", RawScore: 23, FraudScore: 100, Label: claim.LabelHigh,
				Contributions: []scoring.Contribution{{Key: scoring.KeyBiometricMissing, Points: 20}, {Key: scoring.KeySundayClaim, Points: 3}}},
			{Row: 1, ProviderID: "RS002", Label: claim.LabelNormal},
			{Row: 2, ProviderID: "RS001", RawScore: 20, FraudScore: 86.96, Label: claim.LabelHigh,
				Contributions: []scoring.Contribution{{Key: scoring.KeyBiometricMissing, Points: 20}}},
		},
		Summary: scoring.Summary{
			Claims:  3,
			ByLabel: map[claim.Label]int{claim.LabelHigh: 2, claim.LabelMedium: 0, claim.LabelNormal: 1},
		},
	}
	return records, result
}

func TestScoredClaims(t *testing.T) {
	records, result := scoredFixture()
	rows := ScoredClaims(records, result, 1)

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// Rows follow record order, not result order.
	if rows[0].Row != 1 || rows[1].Row != 0 || rows[2].Row != 2 {
		t.Errorf("unexpected row order: %d, %d, %d", rows[0].Row, rows[1].Row, rows[2].Row)
	}
	if rows[1].FraudScore != 100 || rows[1].Label != claim.LabelHigh {
		t.Errorf("row 0 score = %f/%s, want 100/HIGH", rows[1].FraudScore, rows[1].Label)
	}
	if got := strings.Join(rows[1].Rules, ","); got != "biometric_missing,sunday_claim" {
		t.Errorf("rules = %q", got)
	}
	if rows[0].Rules == nil || len(rows[0].Rules) != 0 {
		t.Errorf("a clean claim should have an empty, non-nil rule list, got %#v", rows[0].Rules)
	}
	if rows[0].Holdout || rows[1].Holdout || !rows[2].Holdout {
		t.Errorf("only the last row should be held out: %v %v %v", rows[0].Holdout, rows[1].Holdout, rows[2].Holdout)
	}
	if rows[1].PatientHash != claim.AnonymizeID("0001") || strings.Contains(rows[1].PatientHash, "0001") {
		t.Errorf("patient identity not pseudonymized: %q", rows[1].PatientHash)
	}
}

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	_, result := scoredFixture()

	m.observe(StatusCompleted, time.Now(), result)
	m.observe(StatusFailed, time.Now(), nil)

	if got := testutil.ToFloat64(m.batches.WithLabelValues(StatusCompleted)); got != 1 {
		t.Errorf("completed batches = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.batches.WithLabelValues(StatusFailed)); got != 1 {
		t.Errorf("failed batches = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.claimsScored.WithLabelValues("HIGH")); got != 2 {
		t.Errorf("HIGH claims = %f, want 2", got)
	}

	var nilMetrics *Metrics
	nilMetrics.observe(StatusCompleted, time.Now(), result) // must not panic
}

const rawDataset = `NIK,NIK_valid,biometric_flag,provider_id,diagnosis_code,num_procedures,length_of_stay,total_claim_amount,tarif_standar_diagnosis,service_date,claim_date
0001,1,1,RS001,J00,1,2,1000000,1000000,2024-03-01,2024-03-04
0001,0,0,RS002,J00,1,9,9000000,1000000,2024-03-02,2024-03-03
0002,1,1,RS001,I10,2,3,1500000,1200000,2024-03-05,2024-03-08
`

// openTestDB connects to the database named by CLAIMSCORE_TEST_DATABASE_URL,
// skipping the test when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("CLAIMSCORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CLAIMSCORE_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := platform.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestServiceProcessBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	svc := NewService(db, NewLocalStorage(t.TempDir()), features.NewEngine(),
		scoring.NewEngine(scoring.DefaultContributors()...), NewMetrics(prometheus.NewRegistry()), zerolog.Nop())

	datasetID, err := svc.StoreDataset(ctx, []byte(rawDataset))
	if err != nil {
		t.Fatalf("StoreDataset: %v", err)
	}

	out, err := svc.ProcessBatch(ctx, BatchRequest{DatasetID: datasetID, Holdout: 1, Source: "test.csv"})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if out.Batch.Status != StatusCompleted || out.Batch.ClaimCount != 3 {
		t.Errorf("unexpected batch %+v", out.Batch)
	}

	claims, err := svc.ListClaims(ctx, out.Batch.ID, "", 10)
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(claims) != 3 {
		t.Fatalf("expected 3 persisted claims, got %d", len(claims))
	}
	if claims[0].FraudScore != 100 {
		t.Errorf("riskiest claim score = %f, want 100", claims[0].FraudScore)
	}

	labeled, err := svc.Labeled(ctx, out.Batch.ID)
	if err != nil {
		t.Fatalf("Labeled: %v", err)
	}
	if !strings.Contains(string(labeled), claim.ColFraudLabel) {
		t.Error("labeled table is missing the fraud_label column")
	}

	// Reprocessing the same dataset reuses the batch and replaces its rows.
	again, err := svc.ProcessBatch(ctx, BatchRequest{DatasetID: datasetID})
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if again.Batch.ID != out.Batch.ID {
		t.Errorf("reprocessing created a new batch %s, want %s", again.Batch.ID, out.Batch.ID)
	}
	claims, err = svc.ListClaims(ctx, out.Batch.ID, claim.LabelHigh, 10)
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	for _, c := range claims {
		if c.Label != claim.LabelHigh || c.Holdout {
			t.Errorf("unexpected claim %+v", c)
		}
	}
}

func TestServiceProcessBatch_InvalidDatasetFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	svc := NewService(db, NewLocalStorage(t.TempDir()), features.NewEngine(),
		scoring.NewEngine(scoring.DefaultContributors()...), nil, zerolog.Nop())

	datasetID, err := svc.StoreDataset(ctx, []byte("NIK,provider_id\n0001,RS001\n"))
	if err != nil {
		t.Fatalf("StoreDataset: %v", err)
	}

	_, err = svc.ProcessBatch(ctx, BatchRequest{DatasetID: datasetID})
	var schemaErr *claim.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *claim.SchemaError, got %v", err)
	}

	var status string
	if err := db.QueryRowContext(ctx, `SELECT status FROM batches WHERE dataset_id = $1`, datasetID).Scan(&status); err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("status = %s, want FAILED", status)
	}
}

func TestGetBatch_InvalidID(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, zerolog.Nop())
	if _, err := svc.GetBatch(context.Background(), "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
