package scoring

import "github.com/claimscore/claimscore/pkg/claim"

// Contributor is the interface that all score contributions implement.
// Contributors must not mutate the record or the batch; they run
// concurrently across rows.
type Contributor interface {
	// Describe returns the contributor's identity and nominal points.
	Describe() Descriptor
	// Contribute returns the points this contributor adds to the record's
	// raw score, or 0 if it does not fire.
	Contribute(rec *claim.Record, b *Batch) float64
}

// Descriptor identifies a contributor.
type Descriptor struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Tier   Tier    `json:"tier"`
	Points float64 `json:"points"`
}

// Predicate reports whether a rule fires for a record.
type Predicate func(rec *claim.Record, b *Batch) bool

// Rule is a boolean-gated contribution: when When holds, Points are added.
type Rule struct {
	Descriptor
	When Predicate
}

func (r *Rule) Describe() Descriptor { return r.Descriptor }

func (r *Rule) Contribute(rec *claim.Record, b *Batch) float64 {
	if r.When(rec, b) {
		return r.Points
	}
	return 0
}

// gt reports whether a nullable feature is defined and exceeds x.
func gt(v *float64, x float64) bool {
	return v != nil && *v > x
}

// within reports whether a nullable feature is defined and in (lo, hi].
func within(v *float64, lo, hi float64) bool {
	return v != nil && *v > lo && *v <= hi
}

// filingGap is the number of days between service and claim filing.
func filingGap(r *claim.Record) int {
	return claim.DayNumber(r.ClaimDate) - claim.DayNumber(r.ServiceDate)
}
