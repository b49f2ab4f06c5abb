package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"reelvault/internal/api"
)

func newResourceCommand(ctx *commandContext) *cobra.Command {
	resourceCmd := &cobra.Command{
		Use:   "resource",
		Short: "Submit resources and fetch usable handles through the daemon",
	}
	resourceCmd.AddCommand(newResourceSubmitCommand(ctx))
	resourceCmd.AddCommand(newResourceHandleCommand(ctx))
	return resourceCmd
}

func newResourceSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		title      string
		caption    string
		originChat int64
		originMsg  int64
	)
	cmd := &cobra.Command{
		Use:   "submit <content-key> <handle>",
		Short: "Register a resource and schedule its vault copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SubmitRequest{
				ContentKey: strings.TrimSpace(args[0]),
				Handle:     strings.TrimSpace(args[1]),
				Title:      title,
				Caption:    caption,
			}
			if originChat != 0 || originMsg != 0 {
				if originChat == 0 || originMsg <= 0 {
					return errors.New("--origin-chat and --origin-message must be set together")
				}
				req.Origin = &api.Location{ChatID: originChat, MessageID: originMsg}
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Submit(cmd.Context(), req)
			if err != nil {
				address, _ := ctx.apiAddress()
				return wrapDaemonError(err, address)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resource %d submitted\n", resp.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Display title")
	cmd.Flags().StringVar(&caption, "caption", "", "Caption copied into the vault")
	cmd.Flags().Int64Var(&originChat, "origin-chat", 0, "Chat holding the original message")
	cmd.Flags().Int64Var(&originMsg, "origin-message", 0, "Message id of the original message")
	return cmd
}

func newResourceHandleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "handle <id>",
		Short: "Print a handle that is safe to serve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Handle(cmd.Context(), int64(id))
			switch {
			case err == nil:
			case api.IsStatus(err, http.StatusConflict):
				return fmt.Errorf("resource %d: handle is stale; waiting for the vault to supply a fresh one", id)
			case api.IsStatus(err, http.StatusNotFound):
				return fmt.Errorf("resource %d not found", id)
			default:
				address, _ := ctx.apiAddress()
				return wrapDaemonError(err, address)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Handle)
			return nil
		},
	}
}
