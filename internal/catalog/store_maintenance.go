package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var expectedColumns = []string{
	"id",
	"content_key",
	"current_handle",
	"archive_chat_id",
	"archive_message_id",
	"needs_refresh",
	"title",
	"title_folded",
	"caption",
	"created_at",
	"updated_at",
	"archived_at",
	"handle_refreshed_at",
}

// Stats returns aggregate catalog counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.queryRow(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN archive_chat_id IS NOT NULL AND archive_message_id IS NOT NULL THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(needs_refresh), 0)
         FROM records`,
	).Scan(&stats.Total, &stats.Mirrored, &stats.PendingRefresh)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	stats.Unmirrored = stats.Total - stats.Mirrored
	return stats, nil
}

// CheckHealth returns diagnostic information about the catalog database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		Backend:  s.dialect.name,
		Location: s.location,
	}

	if s.dialect.name == sqliteDialect.name {
		if s.location == "" {
			return health, errors.New("catalog database path is unknown")
		}
		info, err := os.Stat(s.location)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return health, nil
			}
			return health, fmt.Errorf("stat catalog database: %w", err)
		}
		if info.IsDir() {
			return health, fmt.Errorf("catalog database path %q is a directory", s.location)
		}
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("catalog database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.DatabaseReadable = true

	version, err := s.readSchemaVersion(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.SchemaVersion = version

	columns, err := s.tableColumns(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.TableExists = len(columns) > 0
	health.ColumnsPresent = columns

	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	for _, col := range expectedColumns {
		if _, ok := present[col]; !ok {
			health.MissingColumns = append(health.MissingColumns, col)
		}
	}

	if health.TableExists {
		if err := s.queryRow(connCtx, "SELECT COUNT(*) FROM records").Scan(&health.TotalRecords); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count records: %w", err)
		}
	}

	ok, err := s.integrityCheck(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.IntegrityCheck = ok
	return health, nil
}

func (s *Store) tableColumns(ctx context.Context) ([]string, error) {
	if s.dialect.name == postgresDialect.name {
		rows, err := s.db.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns
             WHERE table_schema = current_schema() AND table_name = 'records'
             ORDER BY ordinal_position`)
		if err != nil {
			return nil, fmt.Errorf("table info: %w", err)
		}
		defer rows.Close()
		var columns []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		return columns, rows.Err()
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(records)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func (s *Store) integrityCheck(ctx context.Context) (bool, error) {
	if s.dialect.name == postgresDialect.name {
		// PostgreSQL has no whole-database check; a successful ping and schema read suffice.
		return true, nil
	}
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return false, fmt.Errorf("integrity check: %w", err)
	}
	return strings.EqualFold(result, "ok"), nil
}
