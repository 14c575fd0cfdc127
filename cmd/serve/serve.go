// Package serve provides the long-running service command
package serve

import (
	"github.com/spf13/cobra"

	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/logger"
)

// Command runs the scheduler and the HTTP trigger until interrupted.
func Command(ctx *app.Context) *cobra.Command {
	var (
		port        int
		noHTTP      bool
		initialSync bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled syncs and the HTTP update endpoint",
		Long: `Serve runs every configured scope on the sync schedule and exposes
POST /update, GET /status and GET /metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings
			if cmd.Flags().Changed("port") {
				settings.WebServer.Port = port
			}
			if noHTTP {
				settings.WebServer.Enabled = false
			}

			svc, err := app.NewService(ctx)
			if err != nil {
				return err
			}
			svc.InitialSync = initialSync

			ctx.Logger("serve").Info("starting service",
				logger.String("version", ctx.Build.Version()),
				logger.Strings("scopes", svc.Runner.ScopeIDs()),
				logger.String("schedule", settings.Sync.Schedule),
				logger.String("timezone", settings.Sync.Timezone))

			return svc.Serve(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override webserver.port")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "Run the scheduler only, without the HTTP endpoint")
	cmd.Flags().BoolVar(&initialSync, "initial-sync", false, "Run every scope once at startup")

	return cmd
}
