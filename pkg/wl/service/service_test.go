package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/watchlist/pkg/wl/enrich"
	"github.com/komsit37/watchlist/pkg/wl/invalidate"
	"github.com/komsit37/watchlist/pkg/wl/store"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

type fakeMarket struct {
	quotes  map[string]types.Quote
	fail    map[string]bool
	results []types.SearchResult
	search  error
}

func (m *fakeMarket) FetchQuote(_ context.Context, sym string) (types.Quote, error) {
	if m.fail[sym] {
		return types.Quote{}, types.ErrUpstreamFetch
	}
	return m.quotes[sym], nil
}

func (m *fakeMarket) FetchFundamentals(context.Context, string) (types.Fundamentals, error) {
	return types.Fundamentals{MarketCapitalization: 2500, PERatioNormalizedAnnual: 20}, nil
}

func (m *fakeMarket) Search(context.Context, string) ([]types.SearchResult, error) {
	return m.results, m.search
}

type fixture struct {
	svc *Service
	mem *store.Memory
	inv *invalidate.Recorder
	mkt *fakeMarket
}

func newFixture() fixture {
	mem := store.NewMemory()
	st := store.New(mem).WithClock(store.SteppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))
	mkt := &fakeMarket{quotes: map[string]types.Quote{}, fail: map[string]bool{}}
	inv := &invalidate.Recorder{}
	agg := enrich.NewAggregator(mkt, enrich.Options{MaxInFlight: 4, Timeout: time.Second})
	return fixture{svc: New(st, agg, inv, mkt), mem: mem, inv: inv, mkt: mkt}
}

var ann = &types.Identity{UserID: "u1", Email: "ann@example.com"}

func TestAnonymousCaller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.svc.AddToWatchlist(ctx, nil, "AAPL", "Apple")
	assert.False(t, res.Success)
	assert.Equal(t, "Unauthorized", res.Message)
	assert.True(t, res.Is(types.ErrUnauthorized))

	res = f.svc.RemoveFromWatchlist(ctx, nil, "AAPL")
	assert.True(t, res.Is(types.ErrUnauthorized))

	assert.Equal(t, []types.EnrichedRecord{}, f.svc.GetUserWatchlist(ctx, nil))
	assert.False(t, f.svc.IsInWatchlist(ctx, nil, "AAPL"))
	assert.Equal(t, map[string]bool{}, f.svc.CheckWatchlistStatus(ctx, nil, []string{"AAPL", "MSFT"}))
	assert.Empty(t, f.inv.Paths())
}

func TestAddRemoveInvalidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.svc.AddToWatchlist(ctx, ann, "aapl", "Apple")
	require.True(t, res.Success)
	assert.Equal(t, "Added to watchlist", res.Message)
	assert.Equal(t, []string{"/watchlist", "/stocks/AAPL"}, f.inv.Paths())

	res = f.svc.AddToWatchlist(ctx, ann, "AAPL", "Apple")
	assert.Equal(t, "Already in watchlist", res.Message)
	assert.Len(t, f.inv.Paths(), 2, "failed add must not invalidate")

	assert.True(t, f.svc.IsInWatchlist(ctx, ann, "AAPL"))

	res = f.svc.RemoveFromWatchlist(ctx, ann, "AAPL")
	assert.True(t, res.Success)
	assert.Equal(t, "Removed from watchlist", res.Message)
	assert.Len(t, f.inv.Paths(), 4)

	res = f.svc.RemoveFromWatchlist(ctx, ann, "AAPL")
	assert.Equal(t, "Not found in watchlist", res.Message)
	assert.Len(t, f.inv.Paths(), 4)
}

type brokenInvalidator struct{}

func (brokenInvalidator) Invalidate(context.Context, ...string) error { return errors.New("redis down") }

func TestInvalidationFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.svc.inv = brokenInvalidator{}
	res := f.svc.AddToWatchlist(context.Background(), ann, "AAPL", "Apple")
	assert.True(t, res.Success)
}

func TestGetUserWatchlist(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mkt.quotes["X"] = types.Quote{CurrentPrice: 99, ChangePercent: 1}
	f.mkt.quotes["Y"] = types.Quote{CurrentPrice: 15.5, ChangePercent: -3.256}
	f.mkt.fail["X"] = true

	require.True(t, f.svc.AddToWatchlist(ctx, ann, "X", "Xco").Success)
	require.True(t, f.svc.AddToWatchlist(ctx, ann, "Y", "Yco").Success)

	out := f.svc.GetUserWatchlist(ctx, ann)
	require.Len(t, out, 2)

	assert.Equal(t, "Y", out[0].Symbol)
	assert.Equal(t, "$15.50", out[0].PriceFormatted)
	assert.Equal(t, "-3.26%", out[0].ChangeFormatted)
	assert.Equal(t, "$2.50B", out[0].MarketCap)

	assert.Equal(t, "X", out[1].Symbol)
	assert.Equal(t, "Xco", out[1].Company)
	assert.Equal(t, "N/A", out[1].PriceFormatted)
	assert.Equal(t, "N/A", out[1].PERatio)

	assert.Equal(t, []types.EnrichedRecord{}, f.svc.GetUserWatchlist(ctx, &types.Identity{UserID: "nobody"}))
}

func TestCheckWatchlistStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.True(t, f.svc.AddToWatchlist(ctx, ann, "B", "").Success)

	got := f.svc.CheckWatchlistStatus(ctx, ann, []string{"A", "B", "C"})
	assert.Equal(t, map[string]bool{"A": false, "B": true, "C": false}, got)
}

func TestWatchlistSymbolsByEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mem.AddUser("u1", "ann@example.com")
	require.True(t, f.svc.AddToWatchlist(ctx, ann, "X", "").Success)
	require.True(t, f.svc.AddToWatchlist(ctx, ann, "Y", "").Success)

	assert.Equal(t, []string{"Y", "X"}, f.svc.WatchlistSymbolsByEmail(ctx, "ann@example.com"))
	assert.Equal(t, []string{}, f.svc.WatchlistSymbolsByEmail(ctx, "who@example.com"))
}

func TestSearchStocksWithWatchlist(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mkt.results = []types.SearchResult{
		{Symbol: "AAPL", DisplaySymbol: "AAPL", Description: "APPLE INC", Type: "Common Stock"},
		{Symbol: "AAPL.SW", DisplaySymbol: "AAPL.SW", Description: "APPLE INC", Type: "Common Stock"},
	}
	require.True(t, f.svc.AddToWatchlist(ctx, ann, "AAPL", "Apple").Success)

	out := f.svc.SearchStocksWithWatchlist(ctx, ann, "apple")
	require.Len(t, out, 2)
	assert.True(t, out[0].IsInWatchlist)
	assert.Equal(t, "APPLE INC", out[0].Description)
	assert.False(t, out[1].IsInWatchlist)

	anon := f.svc.SearchStocksWithWatchlist(ctx, nil, "apple")
	require.Len(t, anon, 2)
	assert.False(t, anon[0].IsInWatchlist)

	f.mkt.search = types.ErrUpstreamFetch
	assert.Equal(t, []types.StockWithStatus{}, f.svc.SearchStocksWithWatchlist(ctx, ann, "apple"))
}
