package daemon_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"reelvault/internal/api"
	"reelvault/internal/catalog"
	"reelvault/internal/config"
	"reelvault/internal/daemon"
	"reelvault/internal/logging"
	"reelvault/internal/testsupport"
	"reelvault/internal/vault"
)

type fixture struct {
	cfg      *config.Config
	store    *catalog.Store
	archiver *testsupport.FakeArchiver
	fetcher  *testsupport.FakeFetcher
	daemon   *daemon.Daemon
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return newFixtureFromConfig(t, cfg)
}

func newFixtureFromConfig(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	archiver := testsupport.NewFakeArchiver(-100, 42)
	fetcher := testsupport.NewFakeFetcher()
	engine := vault.NewEngine(store, archiver, fetcher, logging.NewNop())
	d, err := daemon.New(cfg, store, engine, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return &fixture{cfg: cfg, store: store, archiver: archiver, fetcher: fetcher, daemon: d}
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := f.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Backend != config.BackendSQLite {
		t.Fatalf("unexpected backend %q", status.Backend)
	}
	if status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	// Second start should fail
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	status = f.daemon.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	first := newFixture(t)
	ctx := context.Background()
	if err := first.daemon.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second := newFixtureFromConfig(t, first.cfg)
	err := second.daemon.Start(ctx)
	if err == nil {
		t.Fatal("expected second instance to fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDaemonBackfillsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Mirror.BackfillOnStart = true
	f := newFixtureFromConfig(t, cfg)
	rec := testsupport.NewRecord(t, f.store, "abc123", "H1", "Heat")

	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	testsupport.Eventually(t, 2*time.Second, func() bool {
		got, err := f.store.GetByID(context.Background(), rec.ID)
		return err == nil && got != nil && got.Archive != nil
	}, "backfilled record anchored")
}

func TestDaemonAPIRefreshFlow(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("secret"))
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	client := api.NewClient(api.BaseURLFromBind(f.daemon.APIAddress()), "secret")

	submitted, err := client.Submit(ctx, api.SubmitRequest{ContentKey: "abc123", Handle: "H1", Title: "Heat"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	testsupport.Eventually(t, 2*time.Second, func() bool {
		res, err := client.Get(ctx, submitted.ID)
		return err == nil && res.Archive != nil
	}, "resource mirrored")

	res, err := client.Get(ctx, submitted.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Archive.ChatID != -100 || res.Archive.MessageID != 42 {
		t.Fatalf("unexpected archive %+v", res.Archive)
	}

	handle, err := client.Handle(ctx, submitted.ID)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if handle.Handle != "H1" {
		t.Fatalf("expected H1, got %q", handle.Handle)
	}

	f.fetcher.Invalidate("H1")
	if _, err := client.Handle(ctx, submitted.ID); !api.IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409 for rejected handle, got %v", err)
	}
	if _, err := client.Handle(ctx, submitted.ID); !api.IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409 while refresh pending, got %v", err)
	}

	outcome, err := client.Notify(ctx, api.NotificationRequest{ChatID: -100, MessageID: 42, ContentKey: "abc123", FreshHandle: "H2"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if outcome.Outcome != string(vault.OutcomeRefreshed) || outcome.RecordID != submitted.ID {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	handle, err = client.Handle(ctx, submitted.ID)
	if err != nil {
		t.Fatalf("Handle after refresh: %v", err)
	}
	if handle.Handle != "H2" {
		t.Fatalf("expected H2, got %q", handle.Handle)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Catalog.Total != 1 || status.Catalog.Mirrored != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDaemonAPIRequiresToken(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("secret"))
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	client := api.NewClient(api.BaseURLFromBind(f.daemon.APIAddress()), "wrong")
	if _, err := client.Status(ctx); !api.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
}
