// Package scoring implements the claimscore fraud scoring engine.
// It accumulates rule contributions per claim, normalizes the batch, and
// assigns explainable, evidence-backed labels.
package scoring

import (
	"fmt"

	"github.com/claimscore/claimscore/pkg/claim"
)

// BatchResult is the complete output of scoring a batch of claims.
// Immutable once computed.
type BatchResult struct {
	Claims        []ClaimResult `json:"claims"`
	Summary       Summary       `json:"summary"`
	Thresholds    Thresholds    `json:"thresholds"`
	Normalization Normalization `json:"normalization"`
}

// ClaimResult is the scoring outcome for one claim, with the contributions
// that produced it.
type ClaimResult struct {
	Row           int            `json:"row"`
	ClaimID       string         `json:"claim_id,omitempty"`
	ProviderID    string         `json:"provider_id"`
	RawScore      float64        `json:"raw_score"`     // accumulated points before clipping
	FraudScore    float64        `json:"fraud_score"`   // final score in [0,100]
	Label         claim.Label    `json:"fraud_label"`
	Contributions []Contribution `json:"contributions"` // fired rules only
}

// Contribution is a single rule's share of a claim's raw score.
type Contribution struct {
	Key    string  `json:"key"`  // machine key: "biometric_missing"
	Name   string  `json:"name"` // human name: "Biometric missing"
	Tier   Tier    `json:"tier"`
	Points float64 `json:"points"`
}

// Tier groups rules by how much weight they carry.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierMajor    Tier = "MAJOR"
	TierMinor    Tier = "MINOR"
)

// Summary aggregates a scored batch for reporting.
type Summary struct {
	Claims      int                 `json:"claims"`
	ByLabel     map[claim.Label]int `json:"by_label"`
	MaxRawScore float64             `json:"max_raw_score"`
	MeanScore   float64             `json:"mean_score"`
	TopRules    []RuleCount         `json:"top_rules"`
	Hotspots    []Hotspot           `json:"hotspots"`
}

// RuleCount records how often a rule fired across the batch.
type RuleCount struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Fired  int     `json:"fired"`
	Points float64 `json:"points"` // total points contributed
}

// Hotspot identifies a provider concentrating HIGH-risk claims.
type Hotspot struct {
	ProviderID string   `json:"provider_id"`
	Reason     string   `json:"reason"`
	HighClaims int      `json:"high_claims"`
	Claims     int      `json:"claims"`
	MeanScore  float64  `json:"mean_score"`
	RuleKeys   []string `json:"rule_keys"` // rules most often fired on its HIGH claims
}

// Thresholds maps a final score to a label: s >= High is HIGH,
// s >= Medium is MEDIUM, anything lower is NORMAL.
type Thresholds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// DefaultThresholds returns the canonical 66/40 thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 66, Medium: 40}
}

// LegacyThresholds returns the 60/35 thresholds used by earlier labeling runs.
func LegacyThresholds() Thresholds {
	return Thresholds{High: 60, Medium: 35}
}

// Label maps a final score to its label.
func (t Thresholds) Label(score float64) claim.Label {
	switch {
	case score >= t.High:
		return claim.LabelHigh
	case score >= t.Medium:
		return claim.LabelMedium
	default:
		return claim.LabelNormal
	}
}

// Validate checks that the thresholds are ordered and within the score range.
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.High > MaxScore || t.Medium >= t.High {
		return fmt.Errorf("invalid thresholds: want 0 < medium < high <= %d, got medium=%g high=%g", MaxScore, t.Medium, t.High)
	}
	return nil
}
