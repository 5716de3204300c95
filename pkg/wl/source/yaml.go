package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// YAMLSource loads watchlists from a YAML file or a directory of them.
type YAMLSource struct{}

// Load expects spec to be a string filepath.
func (YAMLSource) Load(ctx context.Context, spec any) ([]types.Watchlist, error) {
	path, ok := spec.(string)
	if !ok {
		return nil, fmt.Errorf("yaml source expects filepath string spec")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		// Recursively load all YAML files in the directory and combine.
		var files []string
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if ext == ".yaml" || ext == ".yml" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)

		var all []types.Watchlist
		for _, full := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := os.Open(full)
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, err
			}
			lists, err := parseYAML(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", full, err)
			}
			// Compute prefix from relative path (without extension), using forward slashes.
			rel, err := filepath.Rel(path, full)
			if err != nil {
				rel = filepath.Base(full)
			}
			ext := filepath.Ext(rel)
			prefix := strings.TrimSuffix(rel, ext)
			prefix = filepath.ToSlash(prefix)
			for i := range lists {
				if strings.TrimSpace(lists[i].Name) == "" {
					lists[i].Name = prefix
				} else if prefix != "" {
					lists[i].Name = prefix + "/" + lists[i].Name
				}
			}
			all = append(all, lists...)
		}
		return all, nil
	}

	// Single file
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	lists, err := parseYAML(data)
	if err != nil {
		return nil, err
	}
	// If a list has no name, use the file name as a fallback.
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range lists {
		if strings.TrimSpace(lists[i].Name) == "" {
			lists[i].Name = base
		}
	}
	return lists, nil
}

// parseYAML parses watchlist YAML into one watchlist per group. The root is
// either a list of items or a map with a "watchlist" key; groups nest as
// {name, watchlist} maps. Items carry "sym" (or "symbol") and an optional
// "name" (or "company").
func parseYAML(data []byte) ([]types.Watchlist, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var wlNode any
	switch m := root.(type) {
	case []any:
		wlNode = m
	case map[string]any:
		node, ok := m["watchlist"]
		if !ok || node == nil {
			return nil, fmt.Errorf("invalid yaml: missing 'watchlist'")
		}
		wlNode = node
	default:
		return nil, fmt.Errorf("invalid yaml: expected list or map with 'watchlist'")
	}

	var lists []types.Watchlist
	var walk func(node any, path []string)
	walk = func(node any, path []string) {
		switch n := node.(type) {
		case []any:
			// leaves in this list form one watchlist; groups recurse
			entries := make([]types.WatchlistEntry, 0)
			for _, e := range n {
				if it, ok := toEntry(e); ok {
					entries = append(entries, it)
				}
			}
			if len(entries) > 0 {
				lists = append(lists, types.Watchlist{Name: deriveName(path), Entries: entries})
			}
			for _, e := range n {
				if g, ok := e.(map[string]any); ok {
					if child, ok := g["watchlist"]; ok {
						walk(child, groupPath(path, g))
					}
				}
			}
		case map[string]any:
			if child, ok := n["watchlist"]; ok {
				walk(child, groupPath(path, n))
				return
			}
			if it, ok := toEntry(n); ok {
				lists = append(lists, types.Watchlist{Name: deriveName(path), Entries: []types.WatchlistEntry{it}})
			}
		}
	}

	walk(wlNode, nil)
	return lists, nil
}

func groupPath(path []string, g map[string]any) []string {
	next := append([]string(nil), path...)
	if name, ok := g["name"].(string); ok && name != "" {
		next = append(next, name)
	}
	return next
}

// toEntry converts a leaf item; items without a symbol are skipped.
func toEntry(v any) (types.WatchlistEntry, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return types.WatchlistEntry{}, false
	}
	if _, ok := m["watchlist"]; ok {
		return types.WatchlistEntry{}, false
	}
	sym := types.NormalizeSymbol(firstString(m, "sym", "symbol"))
	if sym == "" {
		return types.WatchlistEntry{}, false
	}
	return types.WatchlistEntry{Symbol: sym, Company: strings.TrimSpace(firstString(m, "name", "company"))}, true
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func deriveName(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return strings.Join(path, "/")
}
