package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if strings.TrimSpace(c.Catalog.DSN) == "" {
			return errors.New("catalog.dsn must be set when catalog.backend is postgres (or set REELVAULT_CATALOG_DSN)")
		}
	default:
		return fmt.Errorf("catalog.backend: unsupported value %q (use sqlite or postgres)", c.Catalog.Backend)
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.VaultChatID != 0 && !c.TelegramEnabled() {
		return errors.New("telegram.bot_token must be set when telegram.vault_chat_id is configured")
	}
	if !strings.HasPrefix(c.Telegram.BaseURL, "http://") && !strings.HasPrefix(c.Telegram.BaseURL, "https://") {
		return fmt.Errorf("telegram.base_url must be an http(s) URL, got %q", c.Telegram.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"telegram.poll_timeout_seconds":    c.Telegram.PollTimeoutSeconds,
		"telegram.request_timeout_seconds": c.Telegram.RequestTimeoutSeconds,
	})
}

func (c *Config) validateMirror() error {
	return ensurePositiveMap(map[string]int{
		"mirror.workers":         c.Mirror.Workers,
		"mirror.queue_size":      c.Mirror.QueueSize,
		"mirror.timeout_seconds": c.Mirror.TimeoutSeconds,
		"mirror.backfill_limit":  c.Mirror.BackfillLimit,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
