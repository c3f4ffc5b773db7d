package surface

import (
	"encoding/json"
	"io"

	"github.com/claimscore/claimscore/pkg/scoring"
)

// JSONRenderer marshals a BatchResult to indented JSON. With SummaryOnly set
// the per-claim results are left out.
type JSONRenderer struct {
	SummaryOnly bool
}

func (r *JSONRenderer) Render(w io.Writer, result *scoring.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if r.SummaryOnly {
		out := *result
		out.Claims = nil
		return enc.Encode(out)
	}
	return enc.Encode(result)
}
