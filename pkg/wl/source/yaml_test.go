package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func symbols(l types.Watchlist) []string {
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Symbol
	}
	return out
}

func TestParseYAMLNestedGroups(t *testing.T) {
	lists, err := parseYAML([]byte(`
watchlist:
  - sym: aapl
    name: Apple Inc
  - symbol: MSFT
  - name: Tech
    watchlist:
      - sym: NVDA
        company: NVIDIA
      - name: Semis
        watchlist:
          - sym: AMD
  - name: no symbol here
`))
	require.NoError(t, err)
	require.Len(t, lists, 3)

	assert.Equal(t, "", lists[0].Name)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(lists[0]))
	assert.Equal(t, "Apple Inc", lists[0].Entries[0].Company)

	assert.Equal(t, "Tech", lists[1].Name)
	assert.Equal(t, "NVIDIA", lists[1].Entries[0].Company)

	assert.Equal(t, "Tech/Semis", lists[2].Name)
	assert.Equal(t, []string{"AMD"}, symbols(lists[2]))
}

func TestParseYAMLTopLevelList(t *testing.T) {
	lists, err := parseYAML([]byte("- sym: TSLA\n- sym: \" ibm \"\n"))
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, []string{"TSLA", "IBM"}, symbols(lists[0]))
}

func TestParseYAMLErrors(t *testing.T) {
	_, err := parseYAML([]byte("columns: [sym]\n"))
	assert.Error(t, err)
	_, err = parseYAML([]byte("just a string"))
	assert.Error(t, err)
	_, err = parseYAML([]byte("watchlist: [\n"))
	assert.Error(t, err)
}

func TestYAMLSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.yaml")
	writeFile(t, path, "watchlist:\n  - sym: AAPL\n")

	lists, err := YAMLSource{}.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "core", lists[0].Name)
}

func TestYAMLSourceDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "us.yaml"), "watchlist:\n  - sym: AAPL\n")
	writeFile(t, filepath.Join(dir, "asia", "jp.yml"), "watchlist:\n  - name: Autos\n    watchlist:\n      - sym: 7203.T\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	lists, err := YAMLSource{}.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "asia/jp/Autos", lists[0].Name)
	assert.Equal(t, []string{"7203.T"}, symbols(lists[0]))
	assert.Equal(t, "us", lists[1].Name)
}

func TestYAMLSourceBadSpec(t *testing.T) {
	_, err := YAMLSource{}.Load(context.Background(), 42)
	assert.Error(t, err)
	_, err = YAMLSource{}.Load(context.Background(), "/does/not/exist.yaml")
	assert.Error(t, err)
}
