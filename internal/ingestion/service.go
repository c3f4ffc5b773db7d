package ingestion

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
)

// Batch lifecycle statuses.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("batch not found")

// ErrNotCompleted is returned when a batch's outputs are requested before
// it completed.
var ErrNotCompleted = errors.New("batch not completed")

// BatchRequest describes a stored dataset to score.
type BatchRequest struct {
	DatasetID string
	Holdout   int
	Source    string // original file name or uploader, informational only
}

// Batch is the persisted record of one scoring run.
type Batch struct {
	ID           string    `json:"id"`
	DatasetID    string    `json:"dataset_id"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Source       string    `json:"source,omitempty"`
	Holdout      int       `json:"holdout"`
	ClaimCount   int       `json:"claim_count"`
	HighCount    int       `json:"high_count"`
	MediumCount  int       `json:"medium_count"`
	NormalCount  int       `json:"normal_count"`
	LabeledRef   *string   `json:"labeled_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScoredClaim is one persisted claim score. Patient identities are stored
// as pseudonyms only.
type ScoredClaim struct {
	Row         int         `json:"row"`
	ClaimID     string      `json:"claim_id,omitempty"`
	PatientHash string      `json:"patient_hash"`
	ProviderID  string      `json:"provider_id"`
	ClaimDate   time.Time   `json:"claim_date"`
	RawScore    float64     `json:"raw_score"`
	FraudScore  float64     `json:"fraud_score"`
	Label       claim.Label `json:"fraud_label"`
	Rules       []string    `json:"rules"`
	Holdout     bool        `json:"holdout"`
}

// Outcome is the result of a processed batch.
type Outcome struct {
	Batch  *Batch
	Result *scoring.BatchResult
}

// Deriver abstracts the feature engine.
type Deriver interface {
	Derive(claims []claim.Claim) ([]claim.Record, error)
}

// Scorer abstracts the scoring engine.
type Scorer interface {
	Score(records []claim.Record) (*scoring.BatchResult, error)
}

// Service orchestrates the batch pipeline.
type Service struct {
	db      *sql.DB
	storage StorageClient
	deriver Deriver
	scorer  Scorer
	metrics *Metrics
	log     zerolog.Logger
}

// NewService creates a new ingestion Service. metrics may be nil.
func NewService(db *sql.DB, storage StorageClient, deriver Deriver, scorer Scorer, metrics *Metrics, log zerolog.Logger) *Service {
	return &Service{
		db:      db,
		storage: storage,
		deriver: deriver,
		scorer:  scorer,
		metrics: metrics,
		log:     log.With().Str("component", "ingestion").Logger(),
	}
}

// StoreDataset saves a raw claims CSV under a new dataset ID.
func (s *Service) StoreDataset(ctx context.Context, data []byte) (string, error) {
	id := uuid.NewString()
	if err := s.storage.PutDataset(ctx, id, data); err != nil {
		return "", fmt.Errorf("put dataset blob: %w", err)
	}
	return id, nil
}

// CreateBatch creates a batch record and returns its ID. The dataset ID is
// the idempotency key: scoring the same dataset again reuses its batch.
func (s *Service) CreateBatch(ctx context.Context, req BatchRequest) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO batches (id, dataset_id, source, holdout, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (dataset_id) DO UPDATE SET holdout = EXCLUDED.holdout, updated_at = now()
		 RETURNING id`,
		uuid.NewString(), req.DatasetID, nilIfEmpty(req.Source), req.Holdout, StatusQueued,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create batch: %w", err)
	}
	return id, nil
}

// UpdateBatchStatus updates the status and optional error message.
func (s *Service) UpdateBatchStatus(ctx context.Context, id, status string, errMsg *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		status, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return nil
}

// ProcessBatch runs the full pipeline for a stored dataset: derive features,
// score, store the labeled table, and persist per-claim scores. Scores are
// written in one transaction, so a failed batch leaves no partial output.
func (s *Service) ProcessBatch(ctx context.Context, req BatchRequest) (out *Outcome, err error) {
	start := time.Now()
	if req.Holdout < 0 {
		return nil, fmt.Errorf("holdout must be non-negative, got %d", req.Holdout)
	}

	// 1. Create or retrieve batch record
	batchID, err := s.CreateBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("batch_id", batchID).Str("dataset_id", req.DatasetID).Logger()

	if err := s.UpdateBatchStatus(ctx, batchID, StatusRunning, nil); err != nil {
		return nil, fmt.Errorf("update status to running: %w", err)
	}

	var result *scoring.BatchResult

	// On failure, mark batch as failed
	defer func() {
		if err != nil {
			errMsg := err.Error()
			if updateErr := s.UpdateBatchStatus(ctx, batchID, StatusFailed, &errMsg); updateErr != nil {
				log.Error().Err(updateErr).Msg("failed to update batch status")
			}
			s.metrics.observe(StatusFailed, start, nil)
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("batch failed")
		}
	}()

	// 2. Load and parse dataset
	data, err := s.storage.GetDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	claims, err := claim.ReadClaims(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	// 3. Derive and score
	records, err := s.deriver.Derive(claims)
	if err != nil {
		return nil, fmt.Errorf("derive features: %w", err)
	}
	result, err = s.scorer.Score(records)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	log.Debug().Int("claims", len(records)).Dur("elapsed", time.Since(start)).Msg("batch scored")

	// 4. Store labeled table
	claim.SortByClaimDate(records)
	var buf bytes.Buffer
	if err := claim.WriteCSV(&buf, records); err != nil {
		return nil, fmt.Errorf("write labeled table: %w", err)
	}
	if err := s.storage.PutLabeled(ctx, batchID, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("put labeled blob: %w", err)
	}

	// 5. Persist scores and finalize
	rows := ScoredClaims(records, result, req.Holdout)
	if err := s.persist(ctx, batchID, objectKey(kindLabeled, batchID), rows, result); err != nil {
		return nil, err
	}

	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	s.metrics.observe(StatusCompleted, start, result)
	log.Info().
		Int("claims", result.Summary.Claims).
		Int("high", result.Summary.ByLabel[claim.LabelHigh]).
		Int("medium", result.Summary.ByLabel[claim.LabelMedium]).
		Dur("duration", time.Since(start)).
		Msg("batch completed")
	return &Outcome{Batch: batch, Result: result}, nil
}

// persist replaces the batch's scored rows and marks it completed in one
// transaction.
func (s *Service) persist(ctx context.Context, batchID, labeledRef string, rows []ScoredClaim, result *scoring.BatchResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM claim_scores WHERE batch_id = $1`, batchID); err != nil {
		return fmt.Errorf("clear previous scores: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("claim_scores",
		"batch_id", "row_index", "claim_id", "patient_hash", "provider_id", "claim_date",
		"raw_score", "fraud_score", "fraud_label", "rules", "holdout"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for _, r := range rows {
		_, err = stmt.ExecContext(ctx, batchID, r.Row, nilIfEmpty(r.ClaimID), r.PatientHash, r.ProviderID, r.ClaimDate,
			r.RawScore, r.FraudScore, string(r.Label), pq.Array(r.Rules), r.Holdout)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("copy row %d: %w", r.Row, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	by := result.Summary.ByLabel
	_, err = tx.ExecContext(ctx,
		`UPDATE batches SET status = $1, error_message = NULL, claim_count = $2, high_count = $3,
		 medium_count = $4, normal_count = $5, labeled_ref = $6, updated_at = now()
		 WHERE id = $7`,
		StatusCompleted, result.Summary.Claims, by[claim.LabelHigh], by[claim.LabelMedium], by[claim.LabelNormal],
		labeledRef, batchID,
	)
	if err != nil {
		return fmt.Errorf("finalize batch: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// ScoredClaims builds the persisted rows of a batch. records must be in
// persisted order; the last holdout rows are flagged as evaluation rows.
func ScoredClaims(records []claim.Record, result *scoring.BatchResult, holdout int) []ScoredClaim {
	byRow := make(map[int]*scoring.ClaimResult, len(result.Claims))
	for i := range result.Claims {
		byRow[result.Claims[i].Row] = &result.Claims[i]
	}

	training, _ := claim.Split(records, holdout)
	rows := make([]ScoredClaim, 0, len(records))
	for i := range records {
		rec := &records[i]
		row := ScoredClaim{
			Row:         rec.Row,
			ClaimID:     rec.ClaimID,
			PatientHash: claim.AnonymizeID(rec.PatientID),
			ProviderID:  rec.ProviderID,
			ClaimDate:   rec.ClaimDate,
			Holdout:     i >= len(training),
			Rules:       []string{},
		}
		if cr, ok := byRow[rec.Row]; ok {
			row.RawScore = cr.RawScore
			row.FraudScore = cr.FraudScore
			row.Label = cr.Label
			for _, c := range cr.Contributions {
				row.Rules = append(row.Rules, c.Key)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// GetBatch loads a batch record.
func (s *Service) GetBatch(ctx context.Context, id string) (*Batch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var b Batch
	var source sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dataset_id, status, error_message, source, holdout, claim_count,
		        high_count, medium_count, normal_count, labeled_ref, created_at, updated_at
		 FROM batches WHERE id = $1`, id,
	).Scan(&b.ID, &b.DatasetID, &b.Status, &b.ErrorMessage, &source, &b.Holdout, &b.ClaimCount,
		&b.HighCount, &b.MediumCount, &b.NormalCount, &b.LabeledRef, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	b.Source = source.String
	return &b, nil
}

// ListClaims returns a batch's scored claims, riskiest first. An empty
// label returns every label.
func (s *Service) ListClaims(ctx context.Context, batchID string, label claim.Label, limit int) ([]ScoredClaim, error) {
	if _, err := s.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_index, claim_id, patient_hash, provider_id, claim_date, raw_score, fraud_score, fraud_label, rules, holdout
		 FROM claim_scores
		 WHERE batch_id = $1 AND ($2::text = '' OR fraud_label = $2)
		 ORDER BY fraud_score DESC, row_index
		 LIMIT $3`,
		batchID, string(label), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query claim scores: %w", err)
	}
	defer rows.Close()

	var out []ScoredClaim
	for rows.Next() {
		var c ScoredClaim
		var claimID sql.NullString
		var lbl string
		if err := rows.Scan(&c.Row, &claimID, &c.PatientHash, &c.ProviderID, &c.ClaimDate,
			&c.RawScore, &c.FraudScore, &lbl, pq.Array(&c.Rules), &c.Holdout); err != nil {
			return nil, fmt.Errorf("scan claim score: %w", err)
		}
		c.ClaimID = claimID.String
		c.Label = claim.Label(lbl)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Labeled returns the stored labeled table of a completed batch.
func (s *Service) Labeled(ctx context.Context, batchID string) ([]byte, error) {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusCompleted {
		return nil, ErrNotCompleted
	}
	data, err := s.storage.GetLabeled(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load labeled blob: %w", err)
	}
	return data, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
