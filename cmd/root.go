package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masvision/shelfsync/cmd/config"
	"github.com/masvision/shelfsync/cmd/serve"
	"github.com/masvision/shelfsync/cmd/status"
	"github.com/masvision/shelfsync/cmd/sync"
	"github.com/masvision/shelfsync/cmd/version"
	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/conf"
	"github.com/masvision/shelfsync/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "shelfsync",
		Short:         "Retail catalog and planogram synchronizer",
		Long:          "shelfsync pulls planogram workbooks and barcode exports from a store's remote drop and rebuilds the per-store SQLite catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search ./, ~/.config/shelfsync, /etc/shelfsync)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(ctx),
		sync.Command(ctx),
		status.Command(ctx),
		config.Command(ctx),
		version.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[app.SkipSetup] != "" {
			return nil
		}
		return initialize(ctx, configFile, debug)
	}

	return rootCmd
}

// initialize loads settings and starts logging before any subcommand runs.
func initialize(ctx *app.Context, configFile string, debug bool) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	if debug {
		settings.EnableDebug()
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	ctx.Settings = settings
	ctx.Log = central
	return nil
}
