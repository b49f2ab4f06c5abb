package catalog

import "errors"

var (
	// ErrRecordNotFound is returned by mutations that target an unknown record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
