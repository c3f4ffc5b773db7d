package scoring

import (
	"fmt"
	"math"
	"runtime"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/claimscore/claimscore/pkg/claim"
)

// MaxScore is the ceiling raw scores are clipped to and the top of the
// final score range.
const MaxScore = 100

// Normalization selects how clipped scores become final scores.
type Normalization string

const (
	// NormalizeBatch rescales every score by the batch's maximum, so the
	// riskiest claim of every non-degenerate batch scores exactly 100.
	// Scores are only comparable within one batch.
	NormalizeBatch Normalization = "batch"
	// NormalizeAbsolute keeps the clipped score as the final score, making
	// scores comparable across batches.
	NormalizeAbsolute Normalization = "absolute"
)

// ParseNormalization validates a normalization mode name. The empty string
// selects NormalizeBatch.
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(s) {
	case "", NormalizeBatch:
		return NormalizeBatch, nil
	case NormalizeAbsolute:
		return NormalizeAbsolute, nil
	default:
		return "", fmt.Errorf("unknown normalization %q (want %s or %s)", s, NormalizeBatch, NormalizeAbsolute)
	}
}

// Engine runs all configured contributors against a batch and produces a
// BatchResult.
type Engine struct {
	Thresholds    Thresholds
	Normalization Normalization
	Workers       int // max concurrent row chunks; GOMAXPROCS if <= 0

	contributors []Contributor
}

// NewEngine creates a scoring engine with the given contributors, the
// default thresholds and batch normalization.
func NewEngine(contributors ...Contributor) *Engine {
	return &Engine{
		Thresholds:    DefaultThresholds(),
		Normalization: NormalizeBatch,
		contributors:  contributors,
	}
}

// Contributors returns the engine's contributors in evaluation order.
func (e *Engine) Contributors() []Contributor {
	return e.contributors
}

// Score evaluates every contributor for every record, normalizes the batch,
// and labels each claim. On success each record's Assessment is set. The
// batch fails as a whole: on error no record is modified.
func (e *Engine) Score(records []claim.Record) (*BatchResult, error) {
	if err := e.Thresholds.Validate(); err != nil {
		return nil, err
	}
	norm, err := ParseNormalization(string(e.Normalization))
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Features == nil {
			return nil, &claim.RowError{Row: records[i].Row, Column: claim.ColDiagnosisCostRatio, Key: records[i].PatientID, Reason: "record has no features"}
		}
	}

	b := NewBatch(records)
	results := make([]ClaimResult, len(records))

	// Phase 1: raw accumulation, independent per row.
	e.accumulate(records, b, results)

	// Phase 2: needs every raw score.
	var top float64
	for i := range results {
		if c := math.Min(results[i].RawScore, MaxScore); c > top {
			top = c
		}
	}

	assessments := make([]claim.Assessment, len(records))
	for i := range results {
		r := &results[i]
		r.FraudScore = finalScore(math.Min(r.RawScore, MaxScore), top, norm)
		r.Label = e.Thresholds.Label(r.FraudScore)

		rec := &records[i]
		a := &assessments[i]
		a.RawScore = r.RawScore
		a.FraudScore = r.FraudScore
		a.FraudLabel = r.Label
		if LOSAnomalous(rec.DiagnosisCode, rec.LengthOfStay) {
			a.LOSAnomalyFlag = 1
		}
		for _, c := range r.Contributions {
			if c.Key == KeyProviderBalance {
				a.ProviderBalanceScore = c.Points
			}
		}
	}
	for i := range records {
		records[i].Assessment = &assessments[i]
	}

	return &BatchResult{
		Claims:        results,
		Summary:       summarize(results),
		Thresholds:    e.Thresholds,
		Normalization: norm,
	}, nil
}

// accumulate fills the raw score and contributions of every result. Rows are
// split into contiguous chunks; each chunk writes only its own results.
func (e *Engine) accumulate(records []claim.Record, b *Batch, results []ClaimResult) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(records) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	var eg errgroup.Group
	for lo := 0; lo < len(records); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(records))
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				results[i] = e.scoreRecord(&records[i], b)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

func (e *Engine) scoreRecord(rec *claim.Record, b *Batch) ClaimResult {
	res := ClaimResult{
		Row:        rec.Row,
		ClaimID:    rec.ClaimID,
		ProviderID: rec.ProviderID,
	}
	for _, c := range e.contributors {
		points := c.Contribute(rec, b)
		if points == 0 {
			continue
		}
		d := c.Describe()
		res.RawScore += points
		res.Contributions = append(res.Contributions, Contribution{
			Key:    d.Key,
			Name:   d.Name,
			Tier:   d.Tier,
			Points: points,
		})
	}
	return res
}

// finalScore normalizes a clipped score and rounds it half-to-even to two
// decimals. A batch whose maximum is 0 scores 0 throughout.
func finalScore(clipped, top float64, norm Normalization) float64 {
	v := clipped
	if norm == NormalizeBatch {
		if top == 0 {
			return 0
		}
		v = clipped / top * MaxScore
	}
	// Rounds the shortest decimal form of v, not its binary value: 2.675
	// becomes 2.68 here where pandas round gives 2.67. Intended.
	f, _ := decimal.NewFromFloat(v).RoundBank(2).Float64()
	return f
}
