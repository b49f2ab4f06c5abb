package config

const (
	defaultConfigPath         = "~/.config/reelvault/config.toml"
	defaultDataDir            = "~/.local/share/reelvault"
	defaultLogDir             = "~/.local/share/reelvault/logs"
	defaultAPIBind            = "127.0.0.1:7491"
	defaultCatalogBackend     = BackendSQLite
	defaultPageSize           = 10
	defaultTelegramBaseURL    = "https://api.telegram.org"
	defaultPollTimeoutSeconds = 30
	defaultRequestTimeout     = 15
	defaultMirrorWorkers      = 2
	defaultMirrorQueueSize    = 64
	defaultMirrorTimeout      = 60
	defaultBackfillLimit      = 100
	defaultDedupWindowSeconds = 600
	defaultDedupSize          = 4096
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Supported catalog backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Catalog: Catalog{
			Backend:  defaultCatalogBackend,
			PageSize: defaultPageSize,
		},
		Telegram: Telegram{
			BaseURL:               defaultTelegramBaseURL,
			PollEnabled:           true,
			PollTimeoutSeconds:    defaultPollTimeoutSeconds,
			RequestTimeoutSeconds: defaultRequestTimeout,
		},
		Mirror: Mirror{
			Workers:         defaultMirrorWorkers,
			QueueSize:       defaultMirrorQueueSize,
			TimeoutSeconds:  defaultMirrorTimeout,
			BackfillOnStart: true,
			BackfillLimit:   defaultBackfillLimit,
		},
		Reconcile: Reconcile{
			DedupWindowSeconds: defaultDedupWindowSeconds,
			DedupSize:          defaultDedupSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
