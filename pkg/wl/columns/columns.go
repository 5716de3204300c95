package columns

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// Resolver converts a record into the display string for one column.
type Resolver func(r types.EnrichedRecord) string

// Def describes a column.
type Def struct {
	Key     string
	Header  string
	Numeric bool // right aligned
	// Colored columns take the sign of the day's change.
	Colored bool
	Resolve Resolver
}

// Registry maps canonical column keys to their definitions.
var Registry = map[string]Def{}

// Defaults is the column order used when none is requested.
var Defaults = []string{"symbol", "company", "price", "change", "market_cap", "pe", "added"}

var aliases = map[string]string{
	"sym":    "symbol",
	"name":   "company",
	"chg%":   "change",
	"chg":    "change",
	"mcap":   "market_cap",
	"cap":    "market_cap",
	"pe_ttm": "pe",
	"date":   "added",
}

func init() {
	register(Def{Key: "symbol", Header: "SYMBOL", Resolve: func(r types.EnrichedRecord) string {
		return r.Symbol
	}})
	register(Def{Key: "company", Header: "COMPANY", Resolve: func(r types.EnrichedRecord) string {
		return r.Company
	}})
	register(Def{Key: "price", Header: "PRICE", Numeric: true, Colored: true, Resolve: func(r types.EnrichedRecord) string {
		return r.PriceFormatted
	}})
	register(Def{Key: "change", Header: "CHG%", Numeric: true, Colored: true, Resolve: func(r types.EnrichedRecord) string {
		return r.ChangeFormatted
	}})
	register(Def{Key: "market_cap", Header: "MARKET CAP", Numeric: true, Resolve: func(r types.EnrichedRecord) string {
		return r.MarketCap
	}})
	register(Def{Key: "pe", Header: "P/E", Numeric: true, Resolve: func(r types.EnrichedRecord) string {
		return r.PERatio
	}})
	// added: date only, in UTC
	register(Def{Key: "added", Header: "ADDED", Resolve: func(r types.EnrichedRecord) string {
		if r.AddedAt.IsZero() {
			return ""
		}
		return r.AddedAt.UTC().Format(time.DateOnly)
	}})
}

func register(d Def) { Registry[d.Key] = d }

// Canonical resolves aliases and case to a registry key.
func Canonical(col string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(col))
	if a, ok := aliases[k]; ok {
		k = a
	}
	_, ok := Registry[k]
	return k, ok
}

// GetDef returns the definition for a column or alias.
func GetDef(col string) (Def, bool) {
	k, ok := Canonical(col)
	if !ok {
		return Def{}, false
	}
	return Registry[k], true
}

// Compute determines the final column order. Explicit entries may be
// column keys, aliases or set names (a column key wins over a set of the
// same name) and are honored in order with duplicates dropped. With none
// given, Defaults is used.
func Compute(explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		return append([]string(nil), Defaults...), nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(explicit))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, c := range explicit {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if k, ok := Canonical(c); ok {
			add(k)
			continue
		}
		set, ok := Sets[c]
		if !ok {
			return nil, fmt.Errorf("unknown column %q; available: %s", c, strings.Join(Available(), ", "))
		}
		for _, k := range set {
			add(k)
		}
	}
	return out, nil
}

// Available lists the canonical column keys, sorted.
func Available() []string {
	keys := make([]string, 0, len(Registry))
	for k := range Registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderValue calls the resolver for the given column.
func RenderValue(col string, r types.EnrichedRecord) string {
	if d, ok := GetDef(col); ok {
		return d.Resolve(r)
	}
	return ""
}
