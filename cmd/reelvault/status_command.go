package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				address, _ := ctx.apiAddress()
				return wrapDaemonError(err, address)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, status)
			}
			printStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
}

func printStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "stopped", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Catalog", statusInfo, fmt.Sprintf("%s (%s)", status.CatalogLocation, status.Backend), colorize))
	if status.VaultChatID == 0 {
		fmt.Fprintln(out, renderStatusLine("Vault", statusWarn, "no vault chat configured", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Vault", statusOK, fmt.Sprintf("chat %d", status.VaultChatID), colorize))
	}
	if status.FeedEnabled {
		fmt.Fprintln(out, renderStatusLine("Feed", statusOK, fmt.Sprintf("polling (offset %d)", status.FeedOffset), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Feed", statusInfo, "disabled", colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Catalog", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.CatalogError != "" {
		fmt.Fprintln(out, renderStatusLine("Records", statusError, status.CatalogError, colorize))
		return
	}
	stats := status.Catalog
	fmt.Fprintln(out, renderStatusLine("Records", statusInfo, fmt.Sprintf("%d", stats.Total), colorize))
	fmt.Fprintln(out, renderStatusLine("Mirrored", statusOK, fmt.Sprintf("%d", stats.Mirrored), colorize))
	fmt.Fprintln(out, renderStatusLine("Unmirrored", countKind(stats.Unmirrored, statusUnmirrored), fmt.Sprintf("%d", stats.Unmirrored), colorize))
	fmt.Fprintln(out, renderStatusLine("Pending refresh", countKind(stats.PendingRefresh, statusStale), fmt.Sprintf("%d", stats.PendingRefresh), colorize))
}
