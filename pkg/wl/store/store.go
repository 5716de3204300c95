package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

var (
	// ErrDuplicate is returned by Backend.Insert when (userId, symbol) exists.
	ErrDuplicate = errors.New("duplicate watchlist entry")
	// ErrUserNotFound is returned by Backend.UserIDByEmail for unknown emails.
	ErrUserNotFound = errors.New("user not found")
)

// Result messages shown to end users.
const (
	MsgUnauthorized  = "Unauthorized"
	MsgInvalidSymbol = "Symbol is required"
	MsgAdded         = "Added to watchlist"
	MsgAlreadyExists = "Already in watchlist"
	MsgAddFailed     = "Failed to add to watchlist"
	MsgRemoved       = "Removed from watchlist"
	MsgNotFound      = "Not found in watchlist"
	MsgRemoveFailed  = "Failed to remove from watchlist"
)

// Backend is raw persistence for watchlist entries and user identities.
// Symbols passed in are already normalized. Implementations enforce
// (userId, symbol) uniqueness themselves and report it as ErrDuplicate.
type Backend interface {
	Insert(ctx context.Context, e types.WatchlistEntry) error
	Delete(ctx context.Context, userID, symbol string) (int64, error)
	// FindByUser returns the user's entries, most recently added first.
	FindByUser(ctx context.Context, userID string) ([]types.WatchlistEntry, error)
	// FindSymbols returns which of symbols the user has.
	FindSymbols(ctx context.Context, userID string, symbols []string) ([]string, error)
	Exists(ctx context.Context, userID, symbol string) (bool, error)
	UserIDByEmail(ctx context.Context, email string) (string, error)
}

// Store is the watchlist's persistence boundary. Backend errors never
// escape it: they are logged and turned into conservative defaults.
type Store struct {
	backend Backend
	now     func() time.Time
}

func New(b Backend) *Store {
	return &Store{backend: b, now: time.Now}
}

// WithClock replaces the clock used for AddedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Add creates an entry stamped with the current time.
func (s *Store) Add(ctx context.Context, userID, symbol, company string) types.Result {
	if userID == "" {
		return types.Fail(types.ErrUnauthorized, MsgUnauthorized)
	}
	sym := types.NormalizeSymbol(symbol)
	if sym == "" {
		return types.Fail(types.ErrInvalidSymbol, MsgInvalidSymbol)
	}

	exists, err := s.backend.Exists(ctx, userID, sym)
	if err != nil {
		s.logErr(err, "add: exists check", userID, sym)
		return types.Fail(types.ErrPersistence, MsgAddFailed)
	}
	if exists {
		return types.Fail(types.ErrAlreadyExists, MsgAlreadyExists)
	}

	err = s.backend.Insert(ctx, types.WatchlistEntry{
		UserID:  userID,
		Symbol:  sym,
		Company: company,
		AddedAt: s.now().UTC(),
	})
	switch {
	case errors.Is(err, ErrDuplicate):
		// lost a race with a concurrent add of the same symbol
		return types.Fail(types.ErrAlreadyExists, MsgAlreadyExists)
	case err != nil:
		s.logErr(err, "add: insert", userID, sym)
		return types.Fail(types.ErrPersistence, MsgAddFailed)
	}
	return types.Ok(MsgAdded)
}

// Remove deletes the user's entry for symbol.
func (s *Store) Remove(ctx context.Context, userID, symbol string) types.Result {
	if userID == "" {
		return types.Fail(types.ErrUnauthorized, MsgUnauthorized)
	}
	sym := types.NormalizeSymbol(symbol)
	if sym == "" {
		return types.Fail(types.ErrInvalidSymbol, MsgInvalidSymbol)
	}

	n, err := s.backend.Delete(ctx, userID, sym)
	if err != nil {
		s.logErr(err, "remove", userID, sym)
		return types.Fail(types.ErrPersistence, MsgRemoveFailed)
	}
	if n == 0 {
		return types.Fail(types.ErrNotFound, MsgNotFound)
	}
	return types.Ok(MsgRemoved)
}

// ListByUser returns the user's entries, newest first; empty on failure.
func (s *Store) ListByUser(ctx context.Context, userID string) []types.WatchlistEntry {
	if userID == "" {
		return []types.WatchlistEntry{}
	}
	entries, err := s.backend.FindByUser(ctx, userID)
	if err != nil {
		s.logErr(err, "list", userID, "")
		return []types.WatchlistEntry{}
	}
	if entries == nil {
		entries = []types.WatchlistEntry{}
	}
	return entries
}

// ListSymbolsByEmail resolves email to a user and lists their symbols.
// Unknown emails and failures yield an empty slice.
func (s *Store) ListSymbolsByEmail(ctx context.Context, email string) []string {
	out := []string{}
	if email == "" {
		return out
	}
	userID, err := s.backend.UserIDByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error().Err(err).Str("email", email).Msg("watchlist store: resolve user by email")
		}
		return out
	}
	if userID == "" {
		return out
	}
	for _, e := range s.ListByUser(ctx, userID) {
		out = append(out, e.Symbol)
	}
	return out
}

// StatusForSymbols reports membership for every requested symbol.
// Keys are normalized; symbols absent from the watchlist, and every symbol
// when the backend fails, map to false.
func (s *Store) StatusForSymbols(ctx context.Context, userID string, symbols []string) map[string]bool {
	status := make(map[string]bool, len(symbols))
	wanted := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = types.NormalizeSymbol(sym)
		if sym == "" {
			continue
		}
		if _, dup := status[sym]; dup {
			continue
		}
		status[sym] = false
		wanted = append(wanted, sym)
	}
	if userID == "" || len(wanted) == 0 {
		return status
	}

	found, err := s.backend.FindSymbols(ctx, userID, wanted)
	if err != nil {
		s.logErr(err, "status", userID, "")
		return status
	}
	for _, sym := range found {
		if _, ok := status[sym]; ok {
			status[sym] = true
		}
	}
	return status
}

// Contains reports whether the user watches symbol; false on failure.
func (s *Store) Contains(ctx context.Context, userID, symbol string) bool {
	sym := types.NormalizeSymbol(symbol)
	if userID == "" || sym == "" {
		return false
	}
	ok, err := s.backend.Exists(ctx, userID, sym)
	if err != nil {
		s.logErr(err, "contains", userID, sym)
		return false
	}
	return ok
}

func (s *Store) logErr(err error, op, userID, sym string) {
	ev := log.Error().Err(err).Str("op", op).Str("user_id", userID)
	if sym != "" {
		ev = ev.Str("symbol", sym)
	}
	ev.Msg("watchlist store failure")
}
