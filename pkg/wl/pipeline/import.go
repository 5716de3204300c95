package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/filter"
	"github.com/komsit37/watchlist/pkg/wl/source"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Adder adds one symbol to the caller's watchlist.
type Adder interface {
	AddToWatchlist(ctx context.Context, id *types.Identity, symbol, company string) types.Result
}

// ImportReport counts import outcomes per entry.
type ImportReport struct {
	Added   int
	Skipped int // already present or repeated in the input
	Failed  int
}

func (r ImportReport) String() string {
	return fmt.Sprintf("%d added, %d skipped, %d failed", r.Added, r.Skipped, r.Failed)
}

// Importer adds every entry loaded from a source to the caller's watchlist.
type Importer struct {
	Source  source.Source
	Service Adder
}

// Import loads spec and adds its entries in file order. Unauthenticated
// callers are rejected before anything is loaded.
func (im *Importer) Import(ctx context.Context, id *types.Identity, spec any, f filter.Filter) (ImportReport, error) {
	var rep ImportReport
	if id == nil {
		return rep, types.ErrUnauthorized
	}
	lists, err := im.Source.Load(ctx, spec)
	if err != nil {
		return rep, err
	}
	if f == nil {
		f = filter.Always(true)
	}

	seen := map[string]struct{}{}
	for _, l := range lists {
		for _, e := range l.Entries {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			if !f.Match(e.Symbol) {
				continue
			}
			if _, dup := seen[e.Symbol]; dup {
				rep.Skipped++
				continue
			}
			seen[e.Symbol] = struct{}{}

			res := im.Service.AddToWatchlist(ctx, id, e.Symbol, e.Company)
			switch {
			case res.Success:
				rep.Added++
			case res.Is(types.ErrAlreadyExists):
				rep.Skipped++
			default:
				rep.Failed++
				log.Warn().Str("list", l.Name).Str("symbol", e.Symbol).Str("result", res.Message).Msg("import entry failed")
			}
		}
	}
	return rep, nil
}
