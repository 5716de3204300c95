package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/auth"
	"github.com/komsit37/watchlist/pkg/wl/config"
	"github.com/komsit37/watchlist/pkg/wl/enrich"
	"github.com/komsit37/watchlist/pkg/wl/invalidate"
	"github.com/komsit37/watchlist/pkg/wl/marketdata"
	"github.com/komsit37/watchlist/pkg/wl/service"
	"github.com/komsit37/watchlist/pkg/wl/store"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

// backend is a storage backend that can also resolve sessions.
type backend interface {
	store.Backend
	auth.SessionFinder
}

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg     *config.Config
	backend backend
	svc     *service.Service
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	b, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backend = b

	finnhub := marketdata.NewFinnhubClient(cfg.Finnhub.BaseURL, cfg.Finnhub.APIKey, nil)
	var market marketdata.Client = finnhub
	if cfg.Market.QuoteSource == "yahoo" {
		market = marketdata.Composite{Quotes: marketdata.NewYahooQuotes(), Fundamentals: finnhub}
	}
	market = marketdata.NewRetrying(market, cfg.Market.RetryAttempts, cfg.Market.RetryBackoff)

	agg := enrich.NewAggregator(market, enrich.Options{
		MaxInFlight: cfg.Market.MaxInFlight,
		Timeout:     cfg.Market.Timeout,
		Currency:    cfg.Display.Currency,
	})

	a.svc = service.New(store.New(b), agg, a.openInvalidator(ctx), finnhub)
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (backend, error) {
	switch a.cfg.Storage.Driver {
	case "mongo":
		client, err := store.ConnectMongo(ctx, a.cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		return store.NewMongo(ctx, client.Database(a.cfg.Mongo.Database))
	case "postgres":
		pool, err := store.ConnectPostgres(ctx, a.cfg.Postgres.URL, a.cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case "memory":
		log.Warn().Msg("using in-memory storage; watchlists are lost on exit")
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
}

// openInvalidator publishes to redis when configured and reachable,
// otherwise only logs.
func (a *app) openInvalidator(ctx context.Context) invalidate.Invalidator {
	if a.cfg.Redis.Addr == "" {
		return invalidate.Log{}
	}
	client, err := invalidate.ConnectRedis(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		log.Warn().Err(err).Msg("redis connection failed, continuing without view invalidation")
		return invalidate.Log{}
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return invalidate.Multi{invalidate.Log{}, invalidate.NewRedis(client, a.cfg.Redis.Channel)}
}

// identity is the CLI caller, or nil when no user is configured.
func (a *app) identity(ctx context.Context) *types.Identity {
	id, _ := auth.NewStatic(a.cfg.User).GetSession(ctx, nil)
	return id
}

// requireIdentity is identity for commands that make no sense anonymously.
func (a *app) requireIdentity(ctx context.Context) (*types.Identity, error) {
	id := a.identity(ctx)
	if id == nil {
		return nil, fmt.Errorf("%w: pass --user or set WL_USER", types.ErrUnauthorized)
	}
	return id, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
