// Package sync provides the one-shot sync command
package sync

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/pipeline"
	"github.com/masvision/shelfsync/internal/trigger"
)

// Command runs one sync over the named scopes, or all of them.
func Command(ctx *app.Context) *cobra.Command {
	var noFetch bool

	cmd := &cobra.Command{
		Use:   "sync [scope...]",
		Short: "Run one sync cycle and exit",
		Long: `Sync fetches, parses and loads the named scopes, or every configured
scope when none are given. The exit status is non-zero if any scope failed.`,
		Example: `  shelfsync sync
  shelfsync sync 189 --no-fetch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noFetch {
				for i := range ctx.Settings.Scopes {
					f := false
					ctx.Settings.Scopes[i].Fetch = &f
				}
			}

			svc, err := app.NewService(ctx)
			if err != nil {
				return err
			}

			results, runErr := svc.Runner.RunFrom(cmd.Context(), trigger.SourceCLI, args)
			printResults(cmd.OutOrStdout(), results)
			if runErr != nil {
				return fmt.Errorf("sync failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Skip the remote fetch and reuse files already on disk")

	return cmd
}

func printResults(w io.Writer, results []pipeline.CycleResult) {
	if len(results) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCOPE\tSTATE\tPRODUCTS\tPLANOGRAMS\tSKIPPED\tDURATION")
	for i := range results {
		r := &results[i]
		state := "ok"
		if !r.OK() {
			state = "failed in " + r.FailedIn.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Scope, state, r.Products, r.Planograms, len(r.Skipped), r.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
}
