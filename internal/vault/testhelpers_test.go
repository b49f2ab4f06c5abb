package vault_test

import (
	"context"
	"testing"
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/testsupport"
	"reelvault/internal/vault"
)

type harness struct {
	store    *catalog.Store
	archiver *testsupport.FakeArchiver
	fetcher  *testsupport.FakeFetcher
	engine   *vault.Engine
}

func newHarness(t *testing.T, opts ...vault.MirrorOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	archiver := testsupport.NewFakeArchiver(-100, 42)
	fetcher := testsupport.NewFakeFetcher()
	engine := vault.NewEngine(store, archiver, fetcher, logging.NewNop(), opts...)
	return &harness{store: store, archiver: archiver, fetcher: fetcher, engine: engine}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	t.Cleanup(h.engine.Stop)
}

func (h *harness) record(t *testing.T, id catalog.RecordID) *catalog.Record {
	t.Helper()
	rec, err := h.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec == nil {
		t.Fatalf("record %d missing", id)
	}
	return rec
}

func (h *harness) waitAnchored(t *testing.T, id catalog.RecordID) *catalog.Record {
	t.Helper()
	testsupport.Eventually(t, 2*time.Second, func() bool {
		return h.record(t, id).Archive != nil
	}, "record anchored in vault")
	return h.record(t, id)
}
