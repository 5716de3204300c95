package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

const pgUniqueViolation = "23505"

// Postgres is a Backend on PostgreSQL. Users and sessions are read from
// the identity provider's "user" and "session" tables.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// ConnectPostgres opens and pings a connection pool.
func ConnectPostgres(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().Msg("postgres connected")
	return pool, nil
}

// Migrate creates the watchlist table and, when absent, minimal identity tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watchlist (
			id       BIGSERIAL   NOT NULL,
			user_id  TEXT        NOT NULL,
			symbol   TEXT        NOT NULL,
			company  TEXT        NOT NULL DEFAULT '',
			added_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,
		// tables created before the insertion-order column existed
		`ALTER TABLE watchlist ADD COLUMN IF NOT EXISTS id BIGSERIAL`,
		`CREATE INDEX IF NOT EXISTS watchlist_user_added_idx ON watchlist (user_id, added_at DESC, id DESC)`,
		// identity tables are normally owned by the auth provider
		`CREATE TABLE IF NOT EXISTS "user" (
			id    TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS "session" (
			token       TEXT PRIMARY KEY,
			"userId"    TEXT NOT NULL,
			"expiresAt" TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := p.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, e types.WatchlistEntry) error {
	query := `
		INSERT INTO watchlist (user_id, symbol, company, added_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := p.db.Exec(ctx, query, e.UserID, e.Symbol, e.Company, e.AddedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, userID, symbol string) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM watchlist WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return 0, fmt.Errorf("delete watchlist: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) FindByUser(ctx context.Context, userID string) ([]types.WatchlistEntry, error) {
	query := `
		SELECT user_id, symbol, company, added_at
		FROM watchlist
		WHERE user_id = $1
		ORDER BY added_at DESC, id DESC
	`
	rows, err := p.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []types.WatchlistEntry
	for rows.Next() {
		var e types.WatchlistEntry
		if err := rows.Scan(&e.UserID, &e.Symbol, &e.Company, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (p *Postgres) FindSymbols(ctx context.Context, userID string, symbols []string) ([]string, error) {
	rows, err := p.db.Query(ctx,
		`SELECT symbol FROM watchlist WHERE user_id = $1 AND symbol = ANY($2)`,
		userID, symbols)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (p *Postgres) Exists(ctx context.Context, userID, symbol string) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM watchlist WHERE user_id = $1 AND symbol = $2)`,
		userID, symbol).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("exists watchlist: %w", err)
	}
	return ok, nil
}

func (p *Postgres) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := p.db.QueryRow(ctx, `SELECT id FROM "user" WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("query user: %w", err)
	}
	return id, nil
}

// FindSession returns the session for token, or nil when there is none.
func (p *Postgres) FindSession(ctx context.Context, token string) (*types.Session, error) {
	query := `
		SELECT s."userId", s."expiresAt", COALESCE(u.email, '')
		FROM "session" s
		LEFT JOIN "user" u ON u.id = s."userId"
		WHERE s.token = $1
	`
	s := types.Session{Token: token}
	err := p.db.QueryRow(ctx, query, token).Scan(&s.UserID, &s.ExpiresAt, &s.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &s, nil
}

var _ Backend = (*Postgres)(nil)
