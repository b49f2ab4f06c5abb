package testsupport

import (
	"path/filepath"
	"testing"

	"reelvault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Telegram is disabled unless an option enables it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Telegram.BotToken = ""
	cfgVal.Telegram.VaultChatID = 0
	cfgVal.Telegram.PollEnabled = false
	cfgVal.Mirror.BackfillOnStart = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTelegram points the config at a Bot API endpoint and vault chat.
func WithTelegram(baseURL, token string, vaultChatID int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.BaseURL = baseURL
		b.cfg.Telegram.BotToken = token
		b.cfg.Telegram.VaultChatID = vaultChatID
	}
}

// WithAPIToken sets the bearer token required by the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithPostgres switches the catalog backend to PostgreSQL.
func WithPostgres(dsn string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.Backend = config.BackendPostgres
		b.cfg.Catalog.DSN = dsn
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
