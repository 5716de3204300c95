package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/komsit37/watchlist/pkg/wl/config"
	"github.com/komsit37/watchlist/pkg/wl/logger"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	configPath string
	user       string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:          "wl",
		Short:        "Personal stock watchlists with live market data",
		SilenceUsage: true,
		Version:      version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("user") {
				c.User = flags.user
			}
			if flags.logLevel != "" {
				c.Log.Level = flags.logLevel
			}
			if err := logger.Init(logger.Config{
				Level:         c.Log.Level,
				Format:        c.Log.Format,
				FileEnabled:   c.Log.FileEnabled,
				FilePath:      c.Log.FilePath,
				RotationSize:  c.Log.RotationSize,
				RetentionDays: c.Log.RetentionDays,
				Service:       "wl",
				Version:       version,
			}); err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (yaml)")
	pf.StringVarP(&flags.user, "user", "u", "", "user id to act as (overrides WL_USER)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	getCfg := func() *config.Config { return cfg }
	rootCmd.AddCommand(
		newServeCmd(getCfg),
		newListCmd(getCfg),
		newAddCmd(getCfg),
		newRemoveCmd(getCfg),
		newStatusCmd(getCfg),
		newHasCmd(getCfg),
		newSymbolsCmd(getCfg),
		newSearchCmd(getCfg),
		newImportCmd(getCfg),
	)
	return rootCmd
}
