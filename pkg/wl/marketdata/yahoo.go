package marketdata

import (
	"context"
	"fmt"

	yfgo "github.com/komsit37/yf-go"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// YahooQuotes serves quotes from Yahoo Finance's price module.
// Yahoo has no normalized P/E, so it only implements QuoteFetcher.
type YahooQuotes struct {
	client *yfgo.Client
}

func NewYahooQuotes() *YahooQuotes {
	return &YahooQuotes{client: yfgo.NewClient()}
}

func (y *YahooQuotes) FetchQuote(ctx context.Context, sym string) (types.Quote, error) {
	res, err := y.client.QuoteSummaryTyped(ctx, sym, []yfgo.QuoteSummaryModule{yfgo.ModulePrice})
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: yahoo %s: %w", types.ErrUpstreamFetch, sym, err)
	}
	if res.Price == nil {
		return types.Quote{}, fmt.Errorf("%w: yahoo: no price for %s", types.ErrUpstreamFetch, sym)
	}

	var q types.Quote
	if p := res.Price.RegularMarketPrice.Raw; p != nil {
		q.CurrentPrice = *p
	}
	// quoteSummary reports the change as a fraction, 0.0123 for 1.23%
	if cp := res.Price.RegularMarketChangePercent.Raw; cp != nil {
		q.ChangePercent = *cp * 100
	}
	return q, nil
}
