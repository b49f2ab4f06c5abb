package catalog

import (
	"context"
	_ "embed"
	"fmt"
)

var (
	//go:embed schema_sqlite.sql
	sqliteSchemaSQL string
	//go:embed schema_postgres.sql
	postgresSchemaSQL string
)

// schemaVersion is the current schema version. Bump this when the schema changes.
// Operators clear or recreate the catalog after schema changes.
const schemaVersion = 1

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx, s.dialect.tableExistsQuery, "schema_version").Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	version, err := s.readSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (remove the catalog or point reelvault at a fresh database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) readSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind("INSERT INTO schema_version (version) VALUES (?)"), schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
