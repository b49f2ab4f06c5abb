package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"reelvault/internal/config"
)

// Store manages catalog persistence backed by SQLite or PostgreSQL.
type Store struct {
	db       *sql.DB
	dialect  dialect
	location string
	pageSize int
}

// Option customizes a Store at open time.
type Option func(*Store)

// WithPageSize overrides the number of records returned per listing page.
func WithPageSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

const (
	defaultPageSize = 10

	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	openTimeout = 5 * time.Second
)

type dialect struct {
	name             string
	driver           string
	schema           string
	tableExistsQuery string
	numbered         bool
}

var (
	sqliteDialect = dialect{
		name:             config.BackendSQLite,
		driver:           "sqlite",
		schema:           sqliteSchemaSQL,
		tableExistsQuery: "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?",
	}
	postgresDialect = dialect{
		name:             config.BackendPostgres,
		driver:           "postgres",
		schema:           postgresSchemaSQL,
		tableExistsQuery: "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1",
		numbered:         true,
	}
)

// rebind rewrites ? placeholders into $n for drivers that need numbered parameters.
func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	query = s.dialect.rebind(query)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// scanRowWithRetry runs a single-row statement (typically INSERT ... RETURNING)
// and scans it, retrying while the database is busy.
func (s *Store) scanRowWithRetry(ctx context.Context, query string, args []any, dest ...any) error {
	ctx = ensureContext(ctx)
	query = s.dialect.rebind(query)
	return retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ensureContext(ctx), s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ensureContext(ctx), s.dialect.rebind(query), args...)
}

// Open connects to the backend selected by the catalog configuration.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("catalog: config is nil")
	}
	opts := []Option{WithPageSize(cfg.Catalog.PageSize)}
	switch cfg.Catalog.Backend {
	case config.BackendPostgres:
		return OpenPostgres(cfg.Catalog.DSN, opts...)
	case config.BackendSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(cfg.CatalogPath(), opts...)
	default:
		return nil, fmt.Errorf("catalog: unsupported backend %q", cfg.Catalog.Backend)
	}
}

// OpenSQLite opens or creates a SQLite catalog at path.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	return newStore(db, sqliteDialect, path, opts)
}

// OpenPostgres connects to a PostgreSQL catalog using a lib/pq DSN.
func OpenPostgres(dsn string, opts ...Option) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("catalog: postgres dsn is required")
	}
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	return newStore(db, postgresDialect, redactDSN(dsn), opts)
}

func newStore(db *sql.DB, d dialect, location string, opts []Option) (*Store, error) {
	store := &Store{db: db, dialect: d, location: location, pageSize: defaultPageSize}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Backend reports the dialect name (sqlite or postgres).
func (s *Store) Backend() string {
	return s.dialect.name
}

// Location is the database path, or the redacted DSN for PostgreSQL.
func (s *Store) Location() string {
	return s.location
}

// PageSize is the number of records per listing page.
func (s *Store) PageSize() int {
	return s.pageSize
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "postgres"
	}
	return u.Redacted()
}
