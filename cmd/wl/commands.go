package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/komsit37/watchlist/pkg/wl/auth"
	"github.com/komsit37/watchlist/pkg/wl/columns"
	"github.com/komsit37/watchlist/pkg/wl/config"
	"github.com/komsit37/watchlist/pkg/wl/filter"
	"github.com/komsit37/watchlist/pkg/wl/logger"
	"github.com/komsit37/watchlist/pkg/wl/pipeline"
	"github.com/komsit37/watchlist/pkg/wl/render"
	"github.com/komsit37/watchlist/pkg/wl/server"
	"github.com/komsit37/watchlist/pkg/wl/source"
	"github.com/komsit37/watchlist/pkg/wl/types"
)

type cfgFunc func() *config.Config

// withApp wires the application for the duration of fn.
func withApp(cmd *cobra.Command, cfg cfgFunc, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), cfg())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func resultErr(res types.Result) error {
	if res.Success {
		return nil
	}
	return errors.New(res.Message)
}

func newServeCmd(cfg cfgFunc) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				opts := server.Options{
					Addr:            a.cfg.Server.Addr,
					CORSOrigins:     a.cfg.Server.CORSOrigins,
					ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				}
				if addr != "" {
					opts.Addr = addr
				}
				if a.cfg.Log.FileEnabled {
					access := logger.NewAccessLogger(a.cfg.Log.FilePath, a.cfg.Log.RotationSize, a.cfg.Log.RetentionDays)
					opts.AccessLogger = &access
				}
				srv := server.New(a.svc, auth.NewSessionAuth(a.backend), opts)
				return srv.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newListCmd(cfg cfgFunc) *cobra.Command {
	var (
		output     string
		cols       []string
		filterExpr string
		noColor    bool
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your watchlist with live prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := render.New(output)
			if !ok {
				return fmt.Errorf("unknown output %q (table, json, syms)", output)
			}
			filt, err := filter.Parse(filterExpr)
			if err != nil {
				return fmt.Errorf("bad filter: %w", err)
			}
			return withApp(cmd, cfg, func(a *app) error {
				runner := &pipeline.Runner{Service: a.svc, Renderer: r, Writer: cmd.OutOrStdout()}
				return runner.Execute(cmd.Context(), a.identity(cmd.Context()), pipeline.ExecuteOptions{
					Columns:     cols,
					Filter:      filt,
					Color:       !noColor,
					PrettyJSON:  pretty,
					MaxColWidth: maxColWidth(terminalWidth(os.Stdout), len(cols)),
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "table", "output format: table, json, syms")
	f.StringSliceVarP(&cols, "columns", "c", nil, "columns or column sets (price, fundamentals)")
	f.StringVarP(&filterExpr, "filter", "f", "", "symbol filter: A,B | glob | /regex/ | substring")
	f.BoolVar(&noColor, "no-color", false, "disable colors")
	f.BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

// maxColWidth spreads the width of a terminal w columns wide across ncols
// columns; 0 leaves widths unbounded.
func maxColWidth(w, ncols int) int {
	if w <= 0 {
		return 0
	}
	if ncols == 0 {
		ncols = len(columns.Defaults)
	}
	per := w / ncols
	if per < 12 {
		per = 12
	}
	return per
}

func columnsEnv() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 0
}

func newAddCmd(cfg cfgFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "add SYMBOL [COMPANY]",
		Short: "Add a symbol to your watchlist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			company := ""
			if len(args) == 2 {
				company = args[1]
			}
			return withApp(cmd, cfg, func(a *app) error {
				res := a.svc.AddToWatchlist(cmd.Context(), a.identity(cmd.Context()), args[0], company)
				if res.Success {
					fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				}
				return resultErr(res)
			})
		},
	}
}

func newRemoveCmd(cfg cfgFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "remove SYMBOL",
		Aliases: []string{"rm"},
		Short:   "Remove a symbol from your watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				res := a.svc.RemoveFromWatchlist(cmd.Context(), a.identity(cmd.Context()), args[0])
				if res.Success {
					fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				}
				return resultErr(res)
			})
		},
	}
}

func newStatusCmd(cfg cfgFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status SYMBOL...",
		Short: "Report which symbols are in your watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				status := a.svc.CheckWatchlistStatus(cmd.Context(), a.identity(cmd.Context()), args)
				printed := map[string]bool{}
				for _, s := range args {
					s = types.NormalizeSymbol(s)
					if s == "" || printed[s] {
						continue
					}
					printed[s] = true
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", s, status[s])
				}
				return nil
			})
		},
	}
}

func newHasCmd(cfg cfgFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "has SYMBOL",
		Short: "Print whether a symbol is in your watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				fmt.Fprintln(cmd.OutOrStdout(), a.svc.IsInWatchlist(cmd.Context(), a.identity(cmd.Context()), args[0]))
				return nil
			})
		},
	}
}

func newSymbolsCmd(cfg cfgFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols EMAIL",
		Short: "List the watchlist symbols of the user with EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *app) error {
				for _, s := range a.svc.WatchlistSymbolsByEmail(cmd.Context(), args[0]) {
					fmt.Fprintln(cmd.OutOrStdout(), s)
				}
				return nil
			})
		},
	}
}

func newSearchCmd(cfg cfgFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search symbols and mark the ones you watch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return withApp(cmd, cfg, func(a *app) error {
				results := a.svc.SearchStocksWithWatchlist(cmd.Context(), a.identity(cmd.Context()), q)
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.SetStyle(table.StyleColoredDark)
				tw.Style().Options.DrawBorder = false
				tw.Style().Options.SeparateColumns = false
				tw.AppendHeader(table.Row{"SYMBOL", "DESCRIPTION", "TYPE", "WATCHED"})
				for _, r := range results {
					watched := ""
					if r.IsInWatchlist {
						watched = "*"
					}
					tw.AppendRow(table.Row{r.DisplaySymbol, r.Description, r.Type, watched})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func newImportCmd(cfg cfgFunc) *cobra.Command {
	var filterExpr string
	cmd := &cobra.Command{
		Use:   "import FILE|DIR",
		Short: "Add every symbol from YAML watchlists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filt, err := filter.Parse(filterExpr)
			if err != nil {
				return fmt.Errorf("bad filter: %w", err)
			}
			return withApp(cmd, cfg, func(a *app) error {
				id, err := a.requireIdentity(cmd.Context())
				if err != nil {
					return err
				}
				im := &pipeline.Importer{Source: source.YAMLSource{}, Service: a.svc}
				rep, err := im.Import(cmd.Context(), id, args[0], filt)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rep.String())
				if rep.Failed > 0 {
					return fmt.Errorf("%d entries failed to import", rep.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "only import matching symbols")
	return cmd
}
