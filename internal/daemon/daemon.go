package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reelvault/internal/archive"
	"reelvault/internal/catalog"
	"reelvault/internal/config"
	"reelvault/internal/logging"
	"reelvault/internal/vault"
)

// Daemon ties together the catalog, the vault engine, the optional vault feed,
// and the HTTP API.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	engine   *vault.Engine
	feed     *archive.Feed
	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents the current daemon state.
type Status struct {
	Running         bool
	PID             int
	Backend         string
	CatalogLocation string
	LockFilePath    string
	LogPath         string
	APIAddress      string
	VaultChatID     int64
	FeedEnabled     bool
	FeedOffset      int64
	Catalog         catalog.Stats
	CatalogError    string
}

// New constructs a daemon. feed may be nil when vault polling is disabled.
func New(cfg *config.Config, store *catalog.Store, engine *vault.Engine, feed *archive.Feed, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if engine == nil {
		return nil, errors.New("vault engine is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   engine,
		feed:     feed,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("create api server: %w", err)
	}
	d.api = srv
	return d, nil
}

// Start acquires the instance lock and launches mirroring, the vault feed, and
// the API server.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another reelvault daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.engine.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start vault engine: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.engine.Stop()
		_ = d.lock.Unlock()
		return err
	}

	if d.cfg.Mirror.BackfillOnStart {
		queued, err := d.engine.Backfill(runCtx, d.cfg.Mirror.BackfillLimit)
		if err != nil {
			logging.WarnWithContext(d.logger, "startup backfill failed", "backfill_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check catalog database health"),
				logging.String(logging.FieldImpact, "unmirrored records wait for the next backfill"),
			)
		} else {
			d.logger.Info("startup backfill queued", logging.Int("queued", queued))
		}
	}

	if d.feed != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.feed.Run(runCtx); err != nil {
				d.logger.Error("vault feed stopped", logging.Error(err))
			}
		}()
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("reelvault daemon started",
		logging.String("backend", d.store.Backend()),
		logging.Bool("feed_enabled", d.feed != nil),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop halts background work and releases the lock. A stopped daemon cannot
// be restarted.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	d.engine.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("reelvault daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the catalog.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Engine exposes the vault engine.
func (d *Daemon) Engine() *vault.Engine {
	return d.engine
}

// Store exposes the catalog.
func (d *Daemon) Store() *catalog.Store {
	return d.store
}

// APIAddress returns the bound API address once started.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		Backend:         d.store.Backend(),
		CatalogLocation: d.store.Location(),
		LockFilePath:    d.lockPath,
		LogPath:         d.cfg.LogPath(),
		APIAddress:      d.api.address(),
		VaultChatID:     d.cfg.Telegram.VaultChatID,
		FeedEnabled:     d.feed != nil,
	}
	if d.feed != nil {
		status.FeedOffset = d.feed.Offset()
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		status.CatalogError = err.Error()
	} else {
		status.Catalog = stats
	}
	return status
}
