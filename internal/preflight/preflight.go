package preflight

import (
	"context"

	"reelvault/internal/catalog"
	"reelvault/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Deps carries the live handles the checks probe. Nil fields skip the
// corresponding checks.
type Deps struct {
	Store *catalog.Store
	Bot   BotAPI
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, deps Deps) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if deps.Store != nil {
		results = append(results, CheckCatalog(ctx, deps.Store))
	}

	if deps.Bot != nil && cfg.TelegramEnabled() {
		bot := CheckTelegram(ctx, deps.Bot)
		results = append(results, bot)
		if bot.Passed && cfg.VaultEnabled() {
			results = append(results, CheckVaultChat(ctx, deps.Bot, cfg.Telegram.VaultChatID))
		}
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
