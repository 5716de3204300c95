package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Filter matches a ticker symbol.
type Filter interface {
	Match(symbol string) bool
}

// Parse builds a symbol filter from an expression:
// - Comma-separated exact symbols: "AAPL,MSFT"
// - Glob: "AA*", "BRK.[AB]"
// - Regex: "/^BRK\./"
// - Anything else is a substring: "ap" matches AAPL and SNAP
// Everything but regexes ignores case.
func Parse(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return Always(true), nil
	case len(expr) > 2 && expr[0] == '/' && expr[len(expr)-1] == '/':
		re, err := regexp.Compile(expr[1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("bad regex %q: %w", expr, err)
		}
		return Regex{re: re}, nil
	case strings.Contains(expr, ","):
		return newSymbolSet(strings.Split(expr, ",")), nil
	case strings.ContainsAny(expr, "*?["):
		pattern := types.NormalizeSymbol(expr)
		// Match only reports a malformed pattern when it gets that far
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", expr, err)
		}
		return Glob{pattern: pattern}, nil
	}
	return Contains{needle: types.NormalizeSymbol(expr)}, nil
}

// Records keeps the records whose symbol matches f, in order.
func Records(f Filter, recs []types.EnrichedRecord) []types.EnrichedRecord {
	if f == nil {
		return recs
	}
	out := make([]types.EnrichedRecord, 0, len(recs))
	for _, r := range recs {
		if f.Match(r.Symbol) {
			out = append(out, r)
		}
	}
	return out
}

type Always bool

func (a Always) Match(string) bool { return bool(a) }

// SymbolSet matches any of a fixed set of symbols.
type SymbolSet map[string]struct{}

func newSymbolSet(syms []string) SymbolSet {
	set := SymbolSet{}
	for _, s := range syms {
		if s = types.NormalizeSymbol(s); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func (s SymbolSet) Match(symbol string) bool {
	_, ok := s[types.NormalizeSymbol(symbol)]
	return ok
}

type Glob struct{ pattern string }

func (g Glob) Match(symbol string) bool {
	ok, _ := filepath.Match(g.pattern, types.NormalizeSymbol(symbol))
	return ok
}

func (g Glob) String() string { return "glob:" + g.pattern }

type Regex struct{ re *regexp.Regexp }

func (r Regex) Match(symbol string) bool { return r.re.MatchString(symbol) }

func (r Regex) String() string { return "regex:" + r.re.String() }

// Contains is a case-insensitive substring match.
type Contains struct{ needle string }

func (c Contains) Match(symbol string) bool {
	return strings.Contains(types.NormalizeSymbol(symbol), c.needle)
}

func (c Contains) String() string { return "contains:" + c.needle }
