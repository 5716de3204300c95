package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

// symsRenderer prints all symbols in a single comma-separated line.
type symsRenderer struct{}

func NewSymsRenderer() Renderer {
	return symsRenderer{}
}

func (symsRenderer) Render(w io.Writer, recs []types.EnrichedRecord, _ RenderOptions) error {
	symbols := make([]string, 0, len(recs))
	for _, r := range recs {
		sym := strings.TrimSpace(r.Symbol)
		if sym == "" {
			continue
		}
		symbols = append(symbols, sym)
	}
	_, err := fmt.Fprintln(w, strings.Join(symbols, ","))
	return err
}
