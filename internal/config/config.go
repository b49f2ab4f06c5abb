package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Catalog selects and configures the catalog storage backend.
type Catalog struct {
	// Backend is "sqlite" (default) or "postgres".
	Backend string `toml:"backend"`
	// DSN is required for the postgres backend and ignored for sqlite.
	DSN      string `toml:"dsn"`
	PageSize int    `toml:"page_size"`
}

// Telegram contains Bot API credentials and the vault channel coordinates.
type Telegram struct {
	BotToken              string `toml:"bot_token"`
	BaseURL               string `toml:"base_url"`
	VaultChatID           int64  `toml:"vault_chat_id"`
	PollEnabled           bool   `toml:"poll_enabled"`
	PollTimeoutSeconds    int    `toml:"poll_timeout_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Mirror controls the vault mirror worker pool.
type Mirror struct {
	Workers         int  `toml:"workers"`
	QueueSize       int  `toml:"queue_size"`
	TimeoutSeconds  int  `toml:"timeout_seconds"`
	BackfillOnStart bool `toml:"backfill_on_start"`
	BackfillLimit   int  `toml:"backfill_limit"`
}

// Reconcile controls archive notification handling.
type Reconcile struct {
	DedupWindowSeconds int `toml:"dedup_window_seconds"`
	DedupSize          int `toml:"dedup_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelvault.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Catalog: storage backend selection
//   - Telegram: Bot API credentials and vault channel
//   - Mirror: archive duplication workers
//   - Reconcile: notification de-duplication
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Telegram  Telegram  `toml:"telegram"`
	Mirror    Mirror    `toml:"mirror"`
	Reconcile Reconcile `toml:"reconcile"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelvault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reelvaultd.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "reelvault.log")
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.Telegram.BotToken) != ""
}

// VaultEnabled reports whether archive mirroring and reconciliation can run.
func (c *Config) VaultEnabled() bool {
	return c.TelegramEnabled() && c.Telegram.VaultChatID != 0
}

// RequireTelegram returns an error when the daemon cannot reach the Bot API.
func (c *Config) RequireTelegram() error {
	if c.TelegramEnabled() {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("telegram.bot_token is required. Set REELVAULT_BOT_TOKEN env var or edit %s (create with 'reelvault config init')", defaultPath)
}

// MirrorTimeout returns the per-attempt archive duplication timeout.
func (c *Config) MirrorTimeout() time.Duration {
	return time.Duration(c.Mirror.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the Bot API HTTP timeout for regular calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Telegram.RequestTimeoutSeconds) * time.Second
}

// PollTimeout returns the long-poll timeout passed to getUpdates.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Telegram.PollTimeoutSeconds) * time.Second
}

// DedupWindow returns how long applied notification ids are remembered.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Reconcile.DedupWindowSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
