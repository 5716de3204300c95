package pipeline

import (
	"context"
	"io"

	"github.com/komsit37/watchlist/pkg/wl/filter"
	"github.com/komsit37/watchlist/pkg/wl/render"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Lister yields the caller's enriched watchlist.
type Lister interface {
	GetUserWatchlist(ctx context.Context, id *types.Identity) []types.EnrichedRecord
}

type Runner struct {
	Service  Lister
	Renderer render.Renderer
	Writer   io.Writer
}

type ExecuteOptions struct {
	Columns     []string
	Filter      filter.Filter
	Color       bool
	PrettyJSON  bool
	MaxColWidth int
}

// Execute renders the caller's watchlist, keeping only symbols that pass
// the filter.
func (r *Runner) Execute(ctx context.Context, id *types.Identity, opts ExecuteOptions) error {
	recs := r.Service.GetUserWatchlist(ctx, id)
	recs = filter.Records(opts.Filter, recs)

	return r.Renderer.Render(r.Writer, recs, render.RenderOptions{
		Columns:     opts.Columns,
		Color:       opts.Color,
		PrettyJSON:  opts.PrettyJSON,
		MaxColWidth: opts.MaxColWidth,
	})
}
