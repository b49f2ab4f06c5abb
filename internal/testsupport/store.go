package testsupport

import (
	"context"
	"testing"

	"reelvault/internal/catalog"
	"reelvault/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecord upserts a record and returns its persisted form.
func NewRecord(t testing.TB, store *catalog.Store, contentKey, handle, title string) *catalog.Record {
	t.Helper()

	ctx := context.Background()
	id, err := store.Upsert(ctx, contentKey, handle, catalog.Metadata{Title: title})
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	rec, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	if rec == nil {
		t.Fatalf("record %d missing after upsert", id)
	}
	return rec
}
