package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelvault/internal/catalog"
	"reelvault/internal/preflight"
	"reelvault/internal/services/telegram"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, the catalog and Telegram access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				deps := preflight.Deps{Store: store}
				if cfg.TelegramEnabled() {
					client, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.BaseURL,
						telegram.WithRequestTimeout(cfg.RequestTimeout()))
					if err != nil {
						return fmt.Errorf("create telegram client: %w", err)
					}
					deps.Bot = client
				}
				results := preflight.RunAll(cmd.Context(), cfg, deps)
				if ctx.JSONMode() {
					if err := writeJSON(cmd, results); err != nil {
						return err
					}
				} else {
					printPreflight(cmd.OutOrStdout(), results, cfg.TelegramEnabled(), shouldColorize(cmd.OutOrStdout()))
				}
				if failed := preflight.Failed(results); len(failed) > 0 {
					return fmt.Errorf("%d of %d preflight checks failed", len(failed), len(results))
				}
				return nil
			})
		},
	}
}

func printPreflight(out io.Writer, results []preflight.Result, telegramEnabled, colorize bool) {
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	if !telegramEnabled {
		fmt.Fprintln(out, renderStatusLine("Telegram Bot API", statusWarn, "skipped (no bot token)", colorize))
	}
}
