package source

import (
	"context"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Source loads watchlists to import from a specification (e.g., filepath).
type Source interface {
	Load(ctx context.Context, spec any) ([]types.Watchlist, error)
}
