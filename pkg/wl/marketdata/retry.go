package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Retrying retries failed fetches with a linear backoff.
// Permanent failures and cancelled contexts are returned immediately.
type Retrying struct {
	next     Client
	attempts int
	backoff  time.Duration
}

// NewRetrying wraps next; attempts below 1 are treated as 1.
func NewRetrying(next Client, attempts int, backoff time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, backoff: backoff}
}

func (r *Retrying) FetchQuote(ctx context.Context, sym string) (types.Quote, error) {
	var q types.Quote
	err := r.do(ctx, "quote", sym, func(ctx context.Context) error {
		var err error
		q, err = r.next.FetchQuote(ctx, sym)
		return err
	})
	return q, err
}

func (r *Retrying) FetchFundamentals(ctx context.Context, sym string) (types.Fundamentals, error) {
	var f types.Fundamentals
	err := r.do(ctx, "fundamentals", sym, func(ctx context.Context) error {
		var err error
		f, err = r.next.FetchFundamentals(ctx, sym)
		return err
	})
	return f, err
}

func (r *Retrying) do(ctx context.Context, what, sym string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= r.attempts || errors.Is(err, ErrPermanent) || ctx.Err() != nil {
			return err
		}
		log.Debug().Err(err).
			Str("symbol", sym).
			Str("fetch", what).
			Int("attempt", attempt).
			Msg("retrying market data fetch")

		t := time.NewTimer(r.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
