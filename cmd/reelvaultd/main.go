// Command reelvaultd runs the reelvault daemon in the foreground. It is the
// same process `reelvault daemon run` starts, packaged for service managers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reelvault/internal/config"
	"reelvault/internal/daemonrun"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "reelvaultd:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "reelvaultd",
		Short:         "Run the reelvault daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	return cmd
}
