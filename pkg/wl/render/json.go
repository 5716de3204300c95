package render

import (
	"encoding/json"
	"io"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

// Render writes the full records; columns do not apply to JSON.
func (r *JSONRenderer) Render(w io.Writer, recs []types.EnrichedRecord, opts RenderOptions) error {
	if recs == nil {
		recs = []types.EnrichedRecord{}
	}
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(recs)
}
