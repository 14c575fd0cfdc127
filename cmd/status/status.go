// Package status provides the status command
package status

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/datastore"
	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/trigger"
)

// Command prints the row counts of every scope's catalog store.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "status [scope...]",
		Short: "Show catalog row counts per scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes := app.Scopes(ctx.Settings)
			if len(args) > 0 {
				known := make(map[string]bool, len(args))
				for _, id := range args {
					if _, ok := ctx.Settings.Scope(id); !ok {
						return fmt.Errorf("unknown scope %q", id)
					}
					known[id] = true
				}
				filtered := scopes[:0]
				for _, sc := range scopes {
					if known[sc.ID] {
						filtered = append(filtered, sc)
					}
				}
				scopes = filtered
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCOPE\tDATABASE\tPRODUCTS\tPLANOGRAMS\tUPDATED")
			opts := app.StoreOptions(ctx.Settings)
			log := ctx.Logger("status")
			for _, sc := range scopes {
				row, err := describe(cmd.Context(), sc.DBPath, opts, log)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", sc.ID, sc.DBPath, row)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			return printNextRun(out, ctx)
		},
	}
}

// describe returns the products, planograms and modification time columns
// for the store at path.
func describe(ctx context.Context, path string, opts datastore.Options, log logger.Logger) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "-\t-\tnever", nil
	}
	if err != nil {
		return "", err
	}

	store, err := datastore.Open(path, opts, log)
	if err != nil {
		return "", err
	}
	defer store.Close()

	products, err := store.Count(ctx, catalog.ProductsTable)
	if err != nil {
		return "", err
	}
	planograms, err := store.Count(ctx, catalog.PlanogramsTable)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d\t%d\t%s", products, planograms, info.ModTime().Format(time.DateTime)), nil
}

func printNextRun(w io.Writer, ctx *app.Context) error {
	sched, err := trigger.NewScheduler(nil, ctx.Settings.Sync.Schedule, ctx.Settings.Sync.Timezone, ctx.Logger("status"))
	if err != nil {
		return err
	}
	next := sched.Next(time.Now())
	_, err = fmt.Fprintf(w, "\nnext scheduled sync: %s (%s)\n", next.Format(time.RFC3339), ctx.Settings.Sync.Timezone)
	return err
}
