package render

import (
	"io"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Renderer renders enriched watchlist records to an output writer.
type Renderer interface {
	Render(w io.Writer, recs []types.EnrichedRecord, opts RenderOptions) error
}

type RenderOptions struct {
	Columns     []string
	Color       bool
	PrettyJSON  bool
	MaxColWidth int
}

// New returns the renderer for an output format: table, json or syms.
func New(format string) (Renderer, bool) {
	switch format {
	case "", "table":
		return NewTableRenderer(), true
	case "json":
		return NewJSONRenderer(), true
	case "syms":
		return NewSymsRenderer(), true
	}
	return nil, false
}
