package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/watchlist/pkg/wl/columns"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

// EmptyMessage is printed instead of an empty table.
const EmptyMessage = "No stocks in watchlist"

type TableRenderer struct{}

func NewTableRenderer() *TableRenderer { return &TableRenderer{} }

func (r *TableRenderer) Render(w io.Writer, recs []types.EnrichedRecord, opts RenderOptions) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	cols, err := columns.Compute(opts.Columns)
	if err != nil {
		return err
	}
	defs := make([]columns.Def, len(cols))
	for i, c := range cols {
		defs[i], _ = columns.GetDef(c)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false

	hdr := make(table.Row, len(defs))
	for i, d := range defs {
		hdr[i] = d.Header
	}
	tw.AppendHeader(hdr)

	// wrap text to MaxColWidth (default 40), no truncation
	maxWidth := opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}
	cfgs := make([]table.ColumnConfig, 0, len(defs))
	for i, d := range defs {
		cfg := table.ColumnConfig{Number: i + 1, WidthMax: maxWidth}
		if d.Numeric {
			cfg.Align = text.AlignRight
			cfg.AlignHeader = text.AlignRight
		}
		cfgs = append(cfgs, cfg)
	}
	tw.SetColumnConfigs(cfgs)

	for _, rec := range recs {
		row := make(table.Row, len(defs))
		for i, d := range defs {
			v := d.Resolve(rec)
			if opts.Color && d.Colored {
				v = colorize(v, rec.ChangePercent)
			}
			row[i] = v
		}
		tw.AppendRow(row)
	}

	tw.Render()
	return nil
}

// colorize paints v green or red by the sign of the day's change.
func colorize(v string, change float64) string {
	switch {
	case change > 0:
		return text.Colors{text.FgGreen}.Sprint(v)
	case change < 0:
		return text.Colors{text.FgRed}.Sprint(v)
	}
	return v
}
