// Package version provides the version command
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masvision/shelfsync/internal/app"
)

// Command prints build information.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{app.SkipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), ctx.Build.String())
			return err
		},
	}
}
