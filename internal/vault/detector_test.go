package vault_test

import (
	"context"
	"errors"
	"testing"

	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/testsupport"
	"reelvault/internal/vault"
)

func TestDetectorRefusesFlaggedRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	detector := vault.NewDetector(store, logging.NewNop())
	ctx := context.Background()

	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")
	if _, err := store.MarkNeedsRefresh(ctx, rec.ID); err != nil {
		t.Fatalf("MarkNeedsRefresh: %v", err)
	}
	rec, _ = store.GetByID(ctx, rec.ID)

	called := false
	err := detector.Access(ctx, rec, func(context.Context, string) error {
		called = true
		return nil
	})
	if !errors.Is(err, vault.ErrStaleRefreshPending) {
		t.Fatalf("expected ErrStaleRefreshPending, got %v", err)
	}
	if called {
		t.Fatal("access func must not run for a flagged record")
	}
}

func TestDetectorFlagsOnHandleInvalid(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	detector := vault.NewDetector(store, logging.NewNop())
	ctx := context.Background()
	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")

	var seen string
	err := detector.Access(ctx, rec, func(_ context.Context, handle string) error {
		seen = handle
		return services.Wrap(services.ErrHandleInvalid, "test", "fetch", "wrong file identifier", nil)
	})
	if seen != "H1" {
		t.Fatalf("expected access with current handle, got %q", seen)
	}
	var stale *vault.StaleHandleError
	if !errors.As(err, &stale) || stale.ContentKey != "abc123" {
		t.Fatalf("expected StaleHandleError, got %v", err)
	}
	got, _ := store.GetByID(ctx, rec.ID)
	if !got.NeedsRefresh {
		t.Fatal("expected record flagged")
	}
}

func TestDetectorPassesOtherErrorsThrough(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	detector := vault.NewDetector(store, logging.NewNop())
	ctx := context.Background()
	rec := testsupport.NewRecord(t, store, "abc123", "H1", "")

	boom := errors.New("permission denied")
	if err := detector.Access(ctx, rec, func(context.Context, string) error { return boom }); err != boom {
		t.Fatalf("expected error unchanged, got %v", err)
	}
	got, _ := store.GetByID(ctx, rec.ID)
	if got.NeedsRefresh {
		t.Fatal("non-handle errors must not flag the record")
	}
	if err := detector.Access(ctx, nil, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for nil record, got %v", err)
	}
}
