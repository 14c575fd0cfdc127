// Package config provides the config show and config init commands
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masvision/shelfsync/internal/app"
	"github.com/masvision/shelfsync/internal/conf"
)

// Command groups the configuration subcommands.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(showCommand(ctx), initCommand())
	return cmd
}

func showCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.MarshalYAML(ctx.Settings.Redacted())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func initCommand() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{app.SkipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := conf.DefaultConfigFile()
				if err != nil {
					return err
				}
				path = p
			}
			if err := conf.CreateDefaultConfig(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote default configuration to %s\n", path)
			return err
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Destination file (default ~/.config/shelfsync/config.yaml)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
