package vault_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/testsupport"
	"reelvault/internal/vault"
)

func newReconciler(t *testing.T) (*catalog.Store, *vault.Reconciler) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return store, vault.NewReconciler(store, logging.NewNop())
}

func TestReconcilerFallsBackToContentKeyAndAnchors(t *testing.T) {
	store, reconciler := newReconciler(t)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")
	if _, err := store.MarkNeedsRefresh(ctx, rec.ID); err != nil {
		t.Fatalf("MarkNeedsRefresh: %v", err)
	}

	loc := catalog.ArchiveLocation{ChatID: -100, MessageID: 42}
	outcome, err := reconciler.Apply(ctx, vault.Notification{Location: loc, ContentKey: "abc123", FreshHandle: "H2"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if outcome.Kind != vault.OutcomeRefreshed || outcome.Resolver != vault.ResolverContentKey || !outcome.Anchored {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	got, _ := store.GetByID(ctx, rec.ID)
	if got.CurrentHandle != "H2" || got.NeedsRefresh || got.Archive == nil || *got.Archive != loc {
		t.Fatalf("unexpected record: %#v", got)
	}
}

func TestReconcilerKeepsExistingAnchorOnContentKeyMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logPath := filepath.Join(t.TempDir(), "reconciler.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	reconciler := vault.NewReconciler(store, logger)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")
	anchor := catalog.ArchiveLocation{ChatID: -100, MessageID: 42}
	if _, err := store.AttachArchiveLocation(ctx, rec.ID, anchor); err != nil {
		t.Fatalf("attach: %v", err)
	}

	outcome, err := reconciler.Apply(ctx, vault.Notification{
		Location:    catalog.ArchiveLocation{ChatID: -100, MessageID: 99},
		ContentKey:  "abc123",
		FreshHandle: "H2",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if outcome.Resolver != vault.ResolverContentKey || outcome.Anchored {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	got, _ := store.GetByID(ctx, rec.ID)
	if *got.Archive != anchor {
		t.Fatalf("existing anchor must be preserved, got %v", got.Archive)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var warned bool
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if strings.Contains(line, `"event_type":"reconcile_anchor_diverged"`) {
			warned = true
			if !strings.Contains(line, `"level":"warn"`) || !strings.Contains(line, "-100:42") || !strings.Contains(line, "-100:99") {
				t.Fatalf("divergence warning missing fields: %s", line)
			}
		}
	}
	if !warned {
		t.Fatalf("expected anchor divergence warning, got %s", content)
	}
}

func TestReconcilerPrefersArchiveLocation(t *testing.T) {
	store, reconciler := newReconciler(t)
	ctx := context.Background()
	anchored := testsupport.NewRecord(t, store, "key-a", "HA", "")
	other := testsupport.NewRecord(t, store, "key-b", "HB", "")
	loc := catalog.ArchiveLocation{ChatID: -100, MessageID: 7}
	if _, err := store.AttachArchiveLocation(ctx, anchored.ID, loc); err != nil {
		t.Fatalf("attach: %v", err)
	}

	outcome, err := reconciler.Apply(ctx, vault.Notification{Location: loc, ContentKey: "key-b", FreshHandle: "FRESH"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if outcome.RecordID != anchored.ID || outcome.Resolver != vault.ResolverArchiveLocation {
		t.Fatalf("expected location match to win, got %#v", outcome)
	}
	if got, _ := store.GetByID(ctx, other.ID); got.CurrentHandle != "HB" {
		t.Fatalf("content-key record must be untouched, got %q", got.CurrentHandle)
	}
}

func TestReconcilerDuplicateNotificationIsIdempotent(t *testing.T) {
	store, reconciler := newReconciler(t)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")
	loc := catalog.ArchiveLocation{ChatID: -100, MessageID: 42}
	if _, err := store.AttachArchiveLocation(ctx, rec.ID, loc); err != nil {
		t.Fatalf("attach: %v", err)
	}
	n := vault.Notification{Location: loc, ContentKey: "abc123", FreshHandle: "H2"}

	for i := 0; i < 2; i++ {
		outcome, err := reconciler.Apply(ctx, n)
		if err != nil || outcome.Kind != vault.OutcomeRefreshed {
			t.Fatalf("Apply #%d: %#v %v", i+1, outcome, err)
		}
	}
	got, _ := store.GetByID(ctx, rec.ID)
	if got.CurrentHandle != "H2" || got.NeedsRefresh || *got.Archive != loc {
		t.Fatalf("unexpected record after duplicate: %#v", got)
	}
	stats, _ := store.Stats(ctx)
	if stats.Total != 1 {
		t.Fatalf("expected one record, got %d", stats.Total)
	}
}

func TestReconcilerDiscardsOrphanAndEmptyHandle(t *testing.T) {
	store, reconciler := newReconciler(t)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")

	outcome, err := reconciler.Apply(ctx, vault.Notification{
		Location:    catalog.ArchiveLocation{ChatID: -100, MessageID: 500},
		ContentKey:  "unknown",
		FreshHandle: "HX",
	})
	if err != nil {
		t.Fatalf("Apply orphan: %v", err)
	}
	if outcome.Kind != vault.OutcomeDiscarded || outcome.Reason != "unresolved" {
		t.Fatalf("unexpected orphan outcome: %#v", outcome)
	}

	outcome, err = reconciler.Apply(ctx, vault.Notification{ContentKey: "abc123", FreshHandle: "  "})
	if err != nil {
		t.Fatalf("Apply empty handle: %v", err)
	}
	if outcome.Kind != vault.OutcomeDiscarded || outcome.Reason != "missing_handle" {
		t.Fatalf("unexpected empty-handle outcome: %#v", outcome)
	}

	got, _ := store.GetByID(ctx, rec.ID)
	if got.CurrentHandle != "H1" || got.Archive != nil {
		t.Fatalf("discarded notifications must not change records: %#v", got)
	}
}
