package scoring

import "github.com/claimscore/claimscore/pkg/claim"

// Batch is the read-only, batch-wide context some contributors need.
type Batch struct {
	defaultProvider map[string]string  // patient -> first-seen provider
	providers       map[string]int     // patient -> distinct providers
	topShare        map[string]float64 // patient -> dominant provider share
}

// NewBatch precomputes the per-patient provider context of a batch.
// A patient's first-seen provider is the provider of their earliest claim,
// the lowest row winning among claims on the same date.
func NewBatch(records []claim.Record) *Batch {
	b := &Batch{
		defaultProvider: make(map[string]string),
		providers:       make(map[string]int),
		topShare:        make(map[string]float64),
	}

	type first struct {
		day, row int
	}
	firsts := make(map[string]first)
	counts := make(map[string]map[string]int)

	for i := range records {
		r := &records[i]
		d := claim.DayNumber(r.ClaimDate)
		if f, ok := firsts[r.PatientID]; !ok || d < f.day || (d == f.day && r.Row < f.row) {
			firsts[r.PatientID] = first{day: d, row: r.Row}
			b.defaultProvider[r.PatientID] = r.ProviderID
		}
		if counts[r.PatientID] == nil {
			counts[r.PatientID] = make(map[string]int)
		}
		counts[r.PatientID][r.ProviderID]++
	}

	for patient, byProvider := range counts {
		total, top := 0, 0
		for _, n := range byProvider {
			total += n
			if n > top {
				top = n
			}
		}
		b.providers[patient] = len(byProvider)
		b.topShare[patient] = float64(top) / float64(total)
	}
	return b
}

// DefaultProvider returns the patient's first-seen provider.
func (b *Batch) DefaultProvider(patientID string) string {
	return b.defaultProvider[patientID]
}

// ProviderSpread returns how many distinct providers the patient visited and
// the share of visits going to the most used one.
func (b *Batch) ProviderSpread(patientID string) (providers int, topShare float64) {
	return b.providers[patientID], b.topShare[patientID]
}
