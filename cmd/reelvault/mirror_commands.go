package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
)

func newMirrorCommand(ctx *commandContext) *cobra.Command {
	mirrorCmd := &cobra.Command{
		Use:   "mirror",
		Short: "Drive vault mirroring through the running daemon",
	}
	mirrorCmd.AddCommand(newMirrorRetryCommand(ctx))
	mirrorCmd.AddCommand(newMirrorBackfillCommand(ctx))
	return mirrorCmd
}

func newMirrorRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>...",
		Short: "Mirror resources into the vault now",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			address, _ := ctx.apiAddress()
			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				id, err := parseRecordID(arg)
				if err != nil {
					return err
				}
				resp, err := client.Mirror(cmd.Context(), int64(id))
				switch {
				case err == nil:
					fmt.Fprintf(out, "Resource %d mirrored at %s\n", id, resp.Location.Display)
				case api.IsStatus(err, http.StatusNotFound):
					fmt.Fprintf(out, "Resource %d not found\n", id)
					failed++
				case api.IsStatus(err, http.StatusConflict):
					fmt.Fprintf(out, "Resource %d is already being mirrored\n", id)
				default:
					return wrapDaemonError(err, address)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d resource(s) could not be mirrored", failed)
			}
			return nil
		},
	}
}

func newMirrorBackfillCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Queue every resource without a vault copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Backfill(cmd.Context(), limit)
			if err != nil {
				address, _ := ctx.apiAddress()
				return wrapDaemonError(err, address)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d resource(s) for mirroring\n", resp.Queued)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum records to queue (0 for all)")
	return cmd
}
