// Package catalog persists cataloged media resources and their vault anchors.
//
// Each Record pairs a stable content key with the provider's current access
// handle and, once mirrored, the position of the durable copy in the vault
// channel. The Store exposes the single-statement mutations the vault engine
// relies on (upsert by content key, conditional archive attach, refresh flag,
// handle update) plus the lookup paths the reconciler resolves through.
//
// SQLite is the default backend; PostgreSQL is available through lib/pq with
// the same SQL. Schema changes bump schemaVersion in schema.go; a mismatch is
// reported as ErrSchemaMismatch and never migrated in place.
package catalog
