// Package app holds the alliance-manager commands.
package app

import (
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X .../app.Version=...".
var (
	Version   = "dev"
	BuildDate = "unknown"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "alliance-manager",
		Short:        "Alliance dashboard alert engine",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")

	cmd.AddCommand(
		newServeCommand(opts),
		newCheckCommand(opts),
		newMigrateCommand(opts),
		newHashPasswordCommand(),
		newVersionCommand(),
	)
	return cmd
}
