package enrich

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/komsit37/watchlist/pkg/wl/marketdata"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Options tunes the fan-out.
type Options struct {
	// MaxInFlight caps concurrent symbol fetches; 0 means unbounded.
	MaxInFlight int
	// Timeout bounds each symbol's fetches; 0 means no deadline.
	Timeout time.Duration
	// Currency is the ISO code used for price and market cap display.
	Currency string
}

// Aggregator merges stored watchlist entries with live market data.
type Aggregator struct {
	client marketdata.Client
	opts   Options
	format Formatter
}

func NewAggregator(client marketdata.Client, opts Options) *Aggregator {
	return &Aggregator{client: client, opts: opts, format: NewFormatter(opts.Currency)}
}

// Enrich returns one record per entry in input order. A fetch failure for
// one symbol yields an N/A record for that symbol and affects no other.
func (a *Aggregator) Enrich(ctx context.Context, entries []types.WatchlistEntry) []types.EnrichedRecord {
	out := make([]types.EnrichedRecord, len(entries))
	if len(entries) == 0 {
		return out
	}

	// plain Group: one failing symbol must not cancel the others
	var g errgroup.Group
	if a.opts.MaxInFlight > 0 {
		g.SetLimit(a.opts.MaxInFlight)
	}
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			out[i] = a.enrichOne(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Aggregator) enrichOne(ctx context.Context, e types.WatchlistEntry) types.EnrichedRecord {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	q, err := a.client.FetchQuote(ctx, e.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", e.Symbol).Msg("fetch quote failed")
		return a.Record(e, types.Quote{}, types.Fundamentals{})
	}
	f, err := a.client.FetchFundamentals(ctx, e.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", e.Symbol).Msg("fetch fundamentals failed")
		return a.Record(e, types.Quote{}, types.Fundamentals{})
	}
	return a.Record(e, q, f)
}

// Record merges one entry with its market snapshots and applies the
// display rules. Zero snapshots produce the all N/A record.
func (a *Aggregator) Record(e types.WatchlistEntry, q types.Quote, f types.Fundamentals) types.EnrichedRecord {
	return types.EnrichedRecord{
		UserID:          e.UserID,
		Symbol:          e.Symbol,
		Company:         e.Company,
		AddedAt:         e.AddedAt,
		CurrentPrice:    orZero(q.CurrentPrice),
		ChangePercent:   orZero(q.ChangePercent),
		PriceFormatted:  a.format.Price(q.CurrentPrice),
		ChangeFormatted: a.format.Change(q.ChangePercent),
		MarketCap:       a.format.MarketCap(f.MarketCapitalization),
		PERatio:         a.format.Ratio(f.PERatioNormalizedAnnual),
	}
}
