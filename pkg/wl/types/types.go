package types

import (
	"strings"
	"time"
)

// WatchlistEntry is a user's persisted association with a symbol.
type WatchlistEntry struct {
	UserID  string    `json:"userId"`
	Symbol  string    `json:"symbol"`
	Company string    `json:"company"`
	AddedAt time.Time `json:"addedAt"`
}

// Watchlist is a named group of entries, as loaded from an import source.
type Watchlist struct {
	Name    string
	Entries []WatchlistEntry
}

// Quote is a fresh price snapshot for a symbol.
// A zero CurrentPrice or ChangePercent means unavailable.
type Quote struct {
	CurrentPrice  float64
	ChangePercent float64
}

// Fundamentals is a fresh metrics snapshot for a symbol.
// MarketCapitalization is in millions; non-positive values mean unavailable.
type Fundamentals struct {
	MarketCapitalization    float64
	PERatioNormalizedAnnual float64
}

// EnrichedRecord is a watchlist entry merged with market data and
// formatted for display. It is built per request and never stored.
type EnrichedRecord struct {
	UserID          string    `json:"userId"`
	Symbol          string    `json:"symbol"`
	Company         string    `json:"company"`
	AddedAt         time.Time `json:"addedAt"`
	CurrentPrice    float64   `json:"currentPrice"`
	ChangePercent   float64   `json:"changePercent"`
	PriceFormatted  string    `json:"priceFormatted"`
	ChangeFormatted string    `json:"changeFormatted"`
	MarketCap       string    `json:"marketCap"`
	PERatio         string    `json:"peRatio"`
}

// Identity is an authenticated caller. A nil *Identity is anonymous.
type Identity struct {
	UserID string
	Email  string
}

// SearchResult is a single symbol match from the market-data provider.
type SearchResult struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
}

// StockWithStatus is a search result annotated with watchlist membership.
type StockWithStatus struct {
	SearchResult
	IsInWatchlist bool `json:"isInWatchlist"`
}

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}

// Session is an authenticated session as persisted by the identity provider.
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}
