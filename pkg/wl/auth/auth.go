// Package auth resolves the caller's identity at the process boundary.
// Everything below it receives an explicit *types.Identity.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// SessionCookie is the cookie the identity provider sets on login.
const SessionCookie = "better-auth.session_token"

// Provider yields the current identity, or nil when unauthenticated.
type Provider interface {
	GetSession(ctx context.Context, h http.Header) (*types.Identity, error)
}

// SessionFinder looks up a persisted session by token. A missing session
// is (nil, nil).
type SessionFinder interface {
	FindSession(ctx context.Context, token string) (*types.Session, error)
}

// SessionAuth validates bearer or cookie tokens against persisted sessions.
type SessionAuth struct {
	finder SessionFinder
	now    func() time.Time
}

func NewSessionAuth(finder SessionFinder) *SessionAuth {
	return &SessionAuth{finder: finder, now: time.Now}
}

// GetSession returns nil for absent, unknown or expired sessions. Only
// lookup failures are errors.
func (a *SessionAuth) GetSession(ctx context.Context, h http.Header) (*types.Identity, error) {
	token := TokenFromHeader(h)
	if token == "" {
		return nil, nil
	}
	s, err := a.finder.FindSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UserID == "" {
		return nil, nil
	}
	if !s.ExpiresAt.IsZero() && !a.now().Before(s.ExpiresAt) {
		log.Debug().Str("user_id", s.UserID).Msg("session expired")
		return nil, nil
	}
	return &types.Identity{UserID: s.UserID, Email: s.Email}, nil
}

// TokenFromHeader extracts the session token from an Authorization bearer
// header or, failing that, the session cookie. Signed cookie values
// ("<token>.<signature>") are reduced to the token.
func TokenFromHeader(h http.Header) string {
	if v := h.Get("Authorization"); v != "" {
		scheme, tok, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}

	r := http.Request{Header: h}
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	tok, _, _ := strings.Cut(c.Value, ".")
	return tok
}

// Static always returns the same identity; used by the CLI.
type Static struct {
	Identity *types.Identity
}

// NewStatic returns an identity provider for userID; empty means anonymous.
func NewStatic(userID string) Static {
	if userID == "" {
		return Static{}
	}
	return Static{Identity: &types.Identity{UserID: userID}}
}

func (s Static) GetSession(context.Context, http.Header) (*types.Identity, error) {
	return s.Identity, nil
}
