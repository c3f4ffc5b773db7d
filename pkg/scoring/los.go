package scoring

import "github.com/claimscore/claimscore/pkg/claim"

// DiagnosisGroup is a clinical grouping of diagnosis codes.
type DiagnosisGroup string

const (
	GroupRespiratory     DiagnosisGroup = "ISPA"
	GroupMetabolic       DiagnosisGroup = "Metabolic"
	GroupCardio          DiagnosisGroup = "Cardio"
	GroupGastro          DiagnosisGroup = "Gastro"
	GroupUrinary         DiagnosisGroup = "Urinary"
	GroupMusculoskeletal DiagnosisGroup = "Musculoskeletal"
	GroupEye             DiagnosisGroup = "Eye"
	GroupObstetric       DiagnosisGroup = "Obstetri"
	GroupGeneral         DiagnosisGroup = "General"
)

// LOSRange is the expected length of stay for a group, in days, inclusive.
type LOSRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var diagnosisGroups = map[string]DiagnosisGroup{
	"J00":   GroupRespiratory,
	"J18.9": GroupRespiratory,
	"J45.9": GroupRespiratory,
	"E11":   GroupMetabolic,
	"E66.9": GroupMetabolic,
	"I10":   GroupCardio,
	"I25.1": GroupCardio,
	"K29.7": GroupGastro,
	"K21.0": GroupGastro,
	"A09":   GroupGastro,
	"N39.0": GroupUrinary,
	"M54.5": GroupMusculoskeletal,
	"H25.9": GroupEye,
	"O80":   GroupObstetric,
	"Z34.0": GroupObstetric,
	"R50.9": GroupGeneral,
	"Z03.8": GroupGeneral,
	"Z00.0": GroupGeneral,
	"R10.4": GroupGeneral,
}

var losRanges = map[DiagnosisGroup]LOSRange{
	GroupRespiratory:     {0, 4},
	GroupMetabolic:       {0, 6},
	GroupCardio:          {0, 7},
	GroupGastro:          {0, 4},
	GroupUrinary:         {0, 5},
	GroupMusculoskeletal: {0, 2},
	GroupEye:             {0, 1},
	GroupObstetric:       {1, 4},
	GroupGeneral:         {0, 2},
}

// GroupOf returns the clinical group of a diagnosis code. Unmapped codes
// belong to GroupGeneral.
func GroupOf(code string) DiagnosisGroup {
	if g, ok := diagnosisGroups[code]; ok {
		return g
	}
	return GroupGeneral
}

// ExpectedLOS returns the expected length-of-stay range of a group.
func ExpectedLOS(g DiagnosisGroup) LOSRange {
	if r, ok := losRanges[g]; ok {
		return r
	}
	return losRanges[GroupGeneral]
}

// LOSAnomalous reports whether a length of stay falls outside the expected
// range of the diagnosis's group.
func LOSAnomalous(code string, lengthOfStay int) bool {
	r := ExpectedLOS(GroupOf(code))
	return lengthOfStay < r.Min || lengthOfStay > r.Max
}

// LOSAnomaly adds Points when a claim's length of stay is anomalous for its
// diagnosis group.
type LOSAnomaly struct {
	Points float64
}

func (m *LOSAnomaly) Describe() Descriptor {
	return Descriptor{Key: KeyLOSAnomaly, Name: "Length-of-stay anomaly", Tier: TierMajor, Points: m.Points}
}

func (m *LOSAnomaly) Contribute(rec *claim.Record, _ *Batch) float64 {
	if LOSAnomalous(rec.DiagnosisCode, rec.LengthOfStay) {
		return m.Points
	}
	return 0
}
