package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	c.normalizeMirror()
	c.normalizeReconcile()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REELVAULT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Backend = strings.ToLower(strings.TrimSpace(c.Catalog.Backend))
	switch c.Catalog.Backend {
	case "", "sqlite3":
		c.Catalog.Backend = BackendSQLite
	case "postgresql", "pg":
		c.Catalog.Backend = BackendPostgres
	}
	c.Catalog.DSN = strings.TrimSpace(c.Catalog.DSN)
	if c.Catalog.DSN == "" {
		if value, ok := os.LookupEnv("REELVAULT_CATALOG_DSN"); ok {
			c.Catalog.DSN = strings.TrimSpace(value)
		}
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = defaultPageSize
	}
}

func (c *Config) normalizeTelegram() error {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("REELVAULT_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	c.Telegram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.BaseURL), "/")
	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = defaultTelegramBaseURL
	}
	if c.Telegram.VaultChatID == 0 {
		if value, ok := os.LookupEnv("STORAGE_CHAT_ID"); ok && strings.TrimSpace(value) != "" {
			id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return fmt.Errorf("STORAGE_CHAT_ID: %w", err)
			}
			c.Telegram.VaultChatID = id
		}
	}
	if c.Telegram.PollTimeoutSeconds <= 0 {
		c.Telegram.PollTimeoutSeconds = defaultPollTimeoutSeconds
	}
	if c.Telegram.RequestTimeoutSeconds <= 0 {
		c.Telegram.RequestTimeoutSeconds = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeMirror() {
	if c.Mirror.Workers <= 0 {
		c.Mirror.Workers = defaultMirrorWorkers
	}
	if c.Mirror.QueueSize <= 0 {
		c.Mirror.QueueSize = defaultMirrorQueueSize
	}
	if c.Mirror.TimeoutSeconds <= 0 {
		c.Mirror.TimeoutSeconds = defaultMirrorTimeout
	}
	if c.Mirror.BackfillLimit <= 0 {
		c.Mirror.BackfillLimit = defaultBackfillLimit
	}
}

func (c *Config) normalizeReconcile() {
	if c.Reconcile.DedupWindowSeconds < 0 {
		c.Reconcile.DedupWindowSeconds = 0
	}
	if c.Reconcile.DedupSize <= 0 {
		c.Reconcile.DedupSize = defaultDedupSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
