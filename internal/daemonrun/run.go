package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"reelvault/internal/archive"
	"reelvault/internal/catalog"
	"reelvault/internal/config"
	"reelvault/internal/daemon"
	"reelvault/internal/logging"
	"reelvault/internal/preflight"
	"reelvault/internal/services/telegram"
	"reelvault/internal/vault"
)

// Run starts the reelvault daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "reelvaultd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}

	client, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.BaseURL,
		telegram.WithRequestTimeout(cfg.RequestTimeout()))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create telegram client: %w", err)
	}
	logVaultSnapshot(signalCtx, logger, cfg, store, client)

	engine, feed := Build(cfg, store, client, logger)
	d, err := daemon.New(cfg, store, engine, feed, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("reelvault daemon shutting down")
	return nil
}

// Build wires the vault engine and, when polling is enabled for a configured
// vault chat, the vault feed.
func Build(cfg *config.Config, store *catalog.Store, client archive.BotAPI, logger *slog.Logger) (*vault.Engine, *archive.Feed) {
	adapter := archive.NewTelegram(client, cfg.Telegram.VaultChatID, logger)
	engine := vault.NewEngine(store, adapter, adapter, logger,
		vault.WithWorkers(cfg.Mirror.Workers),
		vault.WithQueueSize(cfg.Mirror.QueueSize),
		vault.WithAttemptTimeout(cfg.MirrorTimeout()),
	)
	if !cfg.VaultEnabled() || !cfg.Telegram.PollEnabled {
		return engine, nil
	}
	feed := archive.NewFeed(client, cfg.Telegram.VaultChatID, engine, logger,
		archive.WithPollTimeout(cfg.PollTimeout()),
		archive.WithDedup(cfg.Reconcile.DedupSize, cfg.DedupWindow()),
	)
	return engine, feed
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logVaultSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, store *catalog.Store, client *telegram.Client) {
	results := preflight.RunAll(ctx, cfg, preflight.Deps{Store: store, Bot: client})
	for _, result := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `reelvault preflight` for the full report"),
			logging.String(logging.FieldImpact, "mirroring and handle probes may fail until the check passes"),
		)
	}
	if !cfg.VaultEnabled() {
		logging.WarnWithContext(logger, "vault chat not configured", "vault_disabled",
			logging.String(logging.FieldErrorHint, "set telegram.vault_chat_id or STORAGE_CHAT_ID"),
			logging.String(logging.FieldImpact, "resources are cataloged but never mirrored"),
		)
	}
	logger.Info("vault snapshot",
		logging.String(logging.FieldEventType, "vault_snapshot"),
		logging.Int64("vault_chat_id", cfg.Telegram.VaultChatID),
		logging.Bool("poll_enabled", cfg.Telegram.PollEnabled),
		logging.String("catalog_backend", cfg.Catalog.Backend),
		logging.Int("mirror_workers", cfg.Mirror.Workers),
		logging.Int("preflight_checks", len(results)),
		logging.Int("preflight_failed", len(preflight.Failed(results))),
	)
}
