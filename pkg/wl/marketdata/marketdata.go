package marketdata

import (
	"context"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Client fetches fresh market data for a single symbol.
// Implementations never serve cached responses and report every failure
// as an error; masking failures is the caller's job.
type Client interface {
	FetchQuote(ctx context.Context, sym string) (types.Quote, error)
	FetchFundamentals(ctx context.Context, sym string) (types.Fundamentals, error)
}

// QuoteFetcher is the quote half of Client.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, sym string) (types.Quote, error)
}

// FundamentalsFetcher is the fundamentals half of Client.
type FundamentalsFetcher interface {
	FetchFundamentals(ctx context.Context, sym string) (types.Fundamentals, error)
}

// Searcher looks up symbols matching a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.SearchResult, error)
}

// Composite serves quotes and fundamentals from different providers.
type Composite struct {
	Quotes       QuoteFetcher
	Fundamentals FundamentalsFetcher
}

func (c Composite) FetchQuote(ctx context.Context, sym string) (types.Quote, error) {
	return c.Quotes.FetchQuote(ctx, sym)
}

func (c Composite) FetchFundamentals(ctx context.Context, sym string) (types.Fundamentals, error) {
	return c.Fundamentals.FetchFundamentals(ctx, sym)
}
