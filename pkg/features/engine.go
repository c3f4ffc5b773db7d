// Package features derives temporal and behavioral features for a batch of
// claims. Every feature is a function of the whole batch: rolling windows
// per patient and provider, duplicate counts, month-over-month growth, peer
// ratios, fragmentation, and the provider service-mix entropy.
package features

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/claimscore/claimscore/pkg/claim"
)

// DefaultWindowDays is the length of the trailing window used by the
// rolling aggregates.
const DefaultWindowDays = 30

// Engine computes the derived feature set for a batch.
type Engine struct {
	WindowDays int                 // trailing window length; DefaultWindowDays if <= 0
	Rates      RejectionRateSource // provider rejection rates; DefaultRates() if nil
	Workers    int                 // max concurrent groups; GOMAXPROCS if <= 0
}

// NewEngine creates a feature engine with default settings.
func NewEngine() *Engine {
	return &Engine{WindowDays: DefaultWindowDays, Rates: DefaultRates()}
}

// Derive computes features for every claim. The result has one record per
// claim, and result[i] belongs to claims[i]. Invalid claims abort the whole
// batch with a *claim.RowError.
func (e *Engine) Derive(claims []claim.Claim) ([]claim.Record, error) {
	if err := validate(claims); err != nil {
		return nil, err
	}

	window := e.WindowDays
	if window <= 0 {
		window = DefaultWindowDays
	}

	b := &batch{
		claims:   claims,
		features: make([]claim.Features, len(claims)),
		days:     make([]int, len(claims)),
		window:   window,
	}
	for i := range claims {
		b.days[i] = claim.DayNumber(claims[i].ClaimDate)
		b.rowFeatures(i)
	}

	byPatient := groupBy(b, func(c *claim.Claim) string { return c.PatientID })
	byProvider := groupBy(b, func(c *claim.Claim) string { return c.ProviderID })
	byEpisode := groupBy(b, func(c *claim.Claim) string { return c.PatientID + "\x00" + c.DiagnosisCode })

	b.prepareProviders(byProvider, e.rates())

	// Each pass finishes for every group before the next one starts.
	passes := []struct {
		groups []group
		fn     func(g group)
	}{
		{byPatient, b.patientPass},
		{byProvider, b.providerPass},
		{byEpisode, b.fragmentationPass},
	}
	for _, p := range passes {
		e.forEachGroup(p.groups, p.fn)
	}

	records := make([]claim.Record, len(claims))
	for i := range claims {
		records[i] = claim.Record{Claim: claims[i], Features: &b.features[i]}
	}
	return records, nil
}

func (e *Engine) rates() RejectionRateSource {
	if e.Rates == nil {
		return DefaultRates()
	}
	return e.Rates
}

// forEachGroup runs fn for every group with bounded concurrency. Groups own
// disjoint rows, so fn may write their features without locking.
func (e *Engine) forEachGroup(groups []group, fn func(g group)) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for _, g := range groups {
		g := g
		eg.Go(func() error {
			fn(g)
			return nil
		})
	}
	_ = eg.Wait()
}

func validate(claims []claim.Claim) error {
	for i := range claims {
		c := &claims[i]
		switch {
		case c.PatientID == "":
			return &claim.RowError{Row: c.Row, Column: claim.ColPatientID, Reason: "empty patient identity"}
		case c.ProviderID == "":
			return &claim.RowError{Row: c.Row, Column: claim.ColProviderID, Key: c.PatientID, Reason: "empty provider identity"}
		case c.ClaimDate.IsZero():
			return &claim.RowError{Row: c.Row, Column: claim.ColClaimDate, Key: c.PatientID, Reason: "missing claim date"}
		case c.ServiceDate.IsZero():
			return &claim.RowError{Row: c.Row, Column: claim.ColServiceDate, Key: c.PatientID, Reason: "missing service date"}
		}
	}
	return nil
}

// group is the set of row indices sharing a grouping key, sorted by claim
// date with input order kept among equal dates.
type group struct {
	key  string
	rows []int
}

func groupBy(b *batch, key func(c *claim.Claim) string) []group {
	index := make(map[string]int)
	var groups []group
	for i := range b.claims {
		k := key(&b.claims[i])
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, group{key: k})
		}
		groups[gi].rows = append(groups[gi].rows, i)
	}
	for gi := range groups {
		rows := groups[gi].rows
		sort.SliceStable(rows, func(x, y int) bool {
			return b.days[rows[x]] < b.days[rows[y]]
		})
	}
	return groups
}

// batch holds the shared state of one Derive call.
type batch struct {
	claims   []claim.Claim
	features []claim.Features
	days     []int // claim date day numbers
	window   int

	firstMonth int                 // earliest claim month in the batch
	peerRatio  map[string]*float64 // provider -> total amount / mean provider total
	rejection  map[string]float64
}

// rowFeatures fills the features that depend on the row alone.
func (b *batch) rowFeatures(i int) {
	c := &b.claims[i]
	f := &b.features[i]
	f.DiagnosisCostRatio = ratio(c.TotalClaimAmount, c.StandardTariff)
	f.AvgCostPerProcedure = ratio(c.TotalClaimAmount, float64(c.NumProcedures))
	f.VerificationDelayDays = b.days[i] - claim.DayNumber(c.ServiceDate)
}

// prepareProviders computes provider-level aggregates that need every
// provider at once: the peer ratio, the rejection rate, and the batch's
// first month.
func (b *batch) prepareProviders(providers []group, rates RejectionRateSource) {
	b.peerRatio = make(map[string]*float64, len(providers))
	b.rejection = make(map[string]float64, len(providers))

	b.firstMonth = math.MaxInt
	for i := range b.claims {
		if m := claim.MonthIndex(b.claims[i].ClaimDate); m < b.firstMonth {
			b.firstMonth = m
		}
	}

	totals := make(map[string]float64, len(providers))
	var sum float64
	for _, g := range providers {
		var total float64
		for _, i := range g.rows {
			total += b.claims[i].TotalClaimAmount
		}
		totals[g.key] = total
		sum += total
	}
	var mean float64
	if len(providers) > 0 {
		mean = sum / float64(len(providers))
	}
	for _, g := range providers {
		b.peerRatio[g.key] = ratio(totals[g.key], mean)
		b.rejection[g.key] = providerRate(b, g, rates)
	}
}

// providerRate prefers a rate supplied with the input rows (first row in
// input order wins) over the configured source.
func providerRate(b *batch, g group, rates RejectionRateSource) float64 {
	first := -1
	for _, i := range g.rows {
		if b.claims[i].RejectionRate != nil && (first < 0 || i < first) {
			first = i
		}
	}
	if first >= 0 {
		return *b.claims[first].RejectionRate
	}
	return rates.Rate(g.key)
}

// patientPass computes duplicate counts and admission gaps.
func (b *batch) patientPass(g group) {
	days := b.groupDays(g)
	lo, hi := trailingWindows(days, b.window)
	for p, i := range g.rows {
		f := &b.features[i]
		f.DuplicateIDCount = len(g.rows) - 1
		f.DuplicateIDCountMonth = hi[p] - lo[p] - 1
		if p > 0 {
			f.TimeBetweenAdmissions = days[p] - days[p-1]
		}
	}
}

// providerPass computes rolling provider volume, distinct patients, growth,
// and broadcasts the provider-level aggregates.
func (b *batch) providerPass(g group) {
	days := b.groupDays(g)
	lo, hi := trailingWindows(days, b.window)

	patients := make([]string, len(g.rows))
	for p, i := range g.rows {
		patients[p] = b.claims[i].PatientID
	}
	distinct := slidingDistinct(patients, lo, hi)

	growth := monthlyGrowth(b, g)
	entropy := serviceMixEntropy(b, g)

	for p, i := range g.rows {
		f := &b.features[i]
		f.NumClaimsLast30dByProvider = hi[p] - lo[p]
		f.NumUniquePatientsLast30d = distinct[p]
		f.AvgClaimPerPatient = ratio(b.claims[i].TotalClaimAmount, float64(distinct[p]))
		f.ProviderClaimRateVsPeer = b.peerRatio[g.key]
		f.ClaimRejectionRateProvider = b.rejection[g.key]
		f.ServiceMixIndex = entropy

		m := growth[claim.MonthIndex(b.claims[i].ClaimDate)]
		f.MonthOverMonthClaimGrowth = m.growth
		f.SuddenSpikeFlag = m.spike
		f.NewProviderMonthFlag = m.newMonth
	}
}

// fragmentationPass scores how soon a patient came back with the same
// diagnosis.
func (b *batch) fragmentationPass(g group) {
	days := b.groupDays(g)
	for p := 1; p < len(g.rows); p++ {
		b.features[g.rows[p]].ClaimFragmentationScore = FragmentationScore(days[p] - days[p-1])
	}
}

func (b *batch) groupDays(g group) []int {
	days := make([]int, len(g.rows))
	for p, i := range g.rows {
		days[p] = b.days[i]
	}
	return days
}

// FragmentationScore maps the gap in days since the previous claim for the
// same patient and diagnosis to a tiered score.
func FragmentationScore(gap int) int {
	switch {
	case gap > 0 && gap <= 3:
		return 3
	case gap > 3 && gap <= 7:
		return 1
	default:
		return 0
	}
}

// ratio returns num/den, or nil when den is zero.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return claim.Float(num / den)
}
