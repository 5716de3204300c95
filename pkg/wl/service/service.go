// Package service is the public watchlist surface. Every operation takes
// the caller's identity explicitly; nil means unauthenticated.
package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/enrich"
	"github.com/komsit37/watchlist/pkg/wl/invalidate"
	"github.com/komsit37/watchlist/pkg/wl/marketdata"
	"github.com/komsit37/watchlist/pkg/wl/store"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Paths invalidated after a successful mutation.
const (
	WatchlistPath   = "/watchlist"
	StockPathPrefix = "/stocks/"
)

type Service struct {
	store    *store.Store
	agg      *enrich.Aggregator
	inv      invalidate.Invalidator
	searcher marketdata.Searcher
}

// New wires a Service. inv and searcher may be nil.
func New(st *store.Store, agg *enrich.Aggregator, inv invalidate.Invalidator, searcher marketdata.Searcher) *Service {
	if inv == nil {
		inv = invalidate.Log{}
	}
	return &Service{store: st, agg: agg, inv: inv, searcher: searcher}
}

// GetUserWatchlist returns the caller's entries enriched with market data,
// newest first. Anonymous callers get an empty list.
func (s *Service) GetUserWatchlist(ctx context.Context, id *types.Identity) []types.EnrichedRecord {
	if id == nil {
		return []types.EnrichedRecord{}
	}
	entries := s.store.ListByUser(ctx, id.UserID)
	if len(entries) == 0 {
		return []types.EnrichedRecord{}
	}
	return s.agg.Enrich(ctx, entries)
}

// AddToWatchlist adds symbol for the caller.
func (s *Service) AddToWatchlist(ctx context.Context, id *types.Identity, symbol, company string) types.Result {
	if id == nil {
		return types.Fail(types.ErrUnauthorized, store.MsgUnauthorized)
	}
	res := s.store.Add(ctx, id.UserID, symbol, company)
	if res.Success {
		s.invalidate(ctx, symbol)
	}
	return res
}

// RemoveFromWatchlist removes symbol for the caller.
func (s *Service) RemoveFromWatchlist(ctx context.Context, id *types.Identity, symbol string) types.Result {
	if id == nil {
		return types.Fail(types.ErrUnauthorized, store.MsgUnauthorized)
	}
	res := s.store.Remove(ctx, id.UserID, symbol)
	if res.Success {
		s.invalidate(ctx, symbol)
	}
	return res
}

// CheckWatchlistStatus maps every requested symbol to its membership.
// Anonymous callers get an empty mapping.
func (s *Service) CheckWatchlistStatus(ctx context.Context, id *types.Identity, symbols []string) map[string]bool {
	if id == nil {
		return map[string]bool{}
	}
	return s.store.StatusForSymbols(ctx, id.UserID, symbols)
}

// IsInWatchlist reports whether the caller watches symbol.
func (s *Service) IsInWatchlist(ctx context.Context, id *types.Identity, symbol string) bool {
	if id == nil {
		return false
	}
	return s.store.Contains(ctx, id.UserID, symbol)
}

// WatchlistSymbolsByEmail lists a user's symbols by email. It is an
// internal lookup and takes no identity.
func (s *Service) WatchlistSymbolsByEmail(ctx context.Context, email string) []string {
	return s.store.ListSymbolsByEmail(ctx, email)
}

// SearchStocksWithWatchlist searches symbols and marks the ones the caller
// already watches. Search failures yield an empty list.
func (s *Service) SearchStocksWithWatchlist(ctx context.Context, id *types.Identity, query string) []types.StockWithStatus {
	out := []types.StockWithStatus{}
	if s.searcher == nil {
		return out
	}
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("search failed")
		return out
	}
	if len(results) == 0 {
		return out
	}

	syms := make([]string, len(results))
	for i, r := range results {
		syms[i] = r.Symbol
	}
	status := s.CheckWatchlistStatus(ctx, id, syms)
	for _, r := range results {
		out = append(out, types.StockWithStatus{
			SearchResult:  r,
			IsInWatchlist: status[types.NormalizeSymbol(r.Symbol)],
		})
	}
	return out
}

func (s *Service) invalidate(ctx context.Context, symbol string) {
	sym := types.NormalizeSymbol(symbol)
	if err := s.inv.Invalidate(ctx, WatchlistPath, StockPathPrefix+sym); err != nil {
		log.Warn().Err(err).Str("symbol", sym).Msg("view invalidation failed")
	}
}
