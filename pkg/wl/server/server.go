// Package server exposes the watchlist service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/auth"
	"github.com/komsit37/watchlist/pkg/wl/service"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

type Options struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	AccessLogger    *zerolog.Logger
}

type Server struct {
	svc  *service.Service
	auth auth.Provider
	opts Options
}

func New(svc *service.Service, provider auth.Provider, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{svc: svc, auth: provider, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	logger := log.Logger
	if s.opts.AccessLogger != nil {
		logger = *s.opts.AccessLogger
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger, "/health"))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate(s.auth))

		r.Get("/watchlist", s.listWatchlist)
		r.Post("/watchlist", s.addToWatchlist)
		r.Get("/watchlist/status", s.watchlistStatus)
		r.Get("/watchlist/{symbol}", s.isInWatchlist)
		r.Delete("/watchlist/{symbol}", s.removeFromWatchlist)
		r.Get("/search", s.search)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// GET /api/watchlist
func (s *Server) listWatchlist(w http.ResponseWriter, r *http.Request) {
	records := s.svc.GetUserWatchlist(r.Context(), Identity(r.Context()))
	success(w, r, http.StatusOK, records, "", len(records))
}

type addRequest struct {
	Symbol  string `json:"symbol"`
	Company string `json:"company"`
}

// POST /api/watchlist
func (s *Server) addToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "Invalid request body")
		return
	}
	res := s.svc.AddToWatchlist(r.Context(), Identity(r.Context()), req.Symbol, req.Company)
	s.writeResult(w, r, res, http.StatusCreated)
}

// DELETE /api/watchlist/{symbol}
func (s *Server) removeFromWatchlist(w http.ResponseWriter, r *http.Request) {
	res := s.svc.RemoveFromWatchlist(r.Context(), Identity(r.Context()), chi.URLParam(r, "symbol"))
	s.writeResult(w, r, res, http.StatusOK)
}

// GET /api/watchlist/status?symbols=A,B
func (s *Server) watchlistStatus(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, v := range r.URL.Query()["symbols"] {
		for _, sym := range strings.Split(v, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				symbols = append(symbols, sym)
			}
		}
	}
	status := s.svc.CheckWatchlistStatus(r.Context(), Identity(r.Context()), symbols)
	success(w, r, http.StatusOK, status, "", len(status))
}

type membership struct {
	Symbol      string `json:"symbol"`
	InWatchlist bool   `json:"inWatchlist"`
}

// GET /api/watchlist/{symbol}
func (s *Server) isInWatchlist(w http.ResponseWriter, r *http.Request) {
	sym := types.NormalizeSymbol(chi.URLParam(r, "symbol"))
	ok := s.svc.IsInWatchlist(r.Context(), Identity(r.Context()), sym)
	success(w, r, http.StatusOK, membership{Symbol: sym, InWatchlist: ok}, "", 0)
}

// GET /api/search?q=
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		fail(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "Query is required")
		return
	}
	results := s.svc.SearchStocksWithWatchlist(r.Context(), Identity(r.Context()), q)
	success(w, r, http.StatusOK, results, "", len(results))
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res types.Result, okStatus int) {
	if res.Success {
		success(w, r, okStatus, res, res.Message, 0)
		return
	}
	switch {
	case res.Is(types.ErrUnauthorized):
		fail(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, res.Message)
	case res.Is(types.ErrInvalidSymbol):
		fail(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, res.Message)
	case res.Is(types.ErrAlreadyExists):
		fail(w, r, http.StatusConflict, ErrCodeConflict, res.Message)
	case res.Is(types.ErrNotFound):
		fail(w, r, http.StatusNotFound, ErrCodeNotFound, res.Message)
	default:
		fail(w, r, http.StatusInternalServerError, ErrCodeInternalServer, res.Message)
	}
}
