package vault_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/testsupport"
	"reelvault/internal/vault"
)

func TestMirrorNowFailureLeavesRecordUnmirrored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, h.store, "abc123", "H1", "")

	h.archiver.SetError(errors.New("chat write forbidden"))
	if _, err := h.engine.MirrorNow(ctx, rec.ID); !errors.Is(err, services.ErrArchiveUnavailable) {
		t.Fatalf("expected ErrArchiveUnavailable, got %v", err)
	}
	if h.record(t, rec.ID).Archive != nil {
		t.Fatal("failed mirror must not attach a location")
	}

	h.archiver.SetError(nil)
	loc, err := h.engine.MirrorNow(ctx, rec.ID)
	if err != nil {
		t.Fatalf("retry MirrorNow: %v", err)
	}
	if loc != (catalog.ArchiveLocation{ChatID: -100, MessageID: 42}) {
		t.Fatalf("unexpected location %v", loc)
	}
}

func TestMirrorNowIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := testsupport.NewRecord(t, h.store, "abc123", "H1", "")

	first, err := h.engine.MirrorNow(ctx, rec.ID)
	if err != nil {
		t.Fatalf("MirrorNow: %v", err)
	}
	second, err := h.engine.MirrorNow(ctx, rec.ID)
	if err != nil {
		t.Fatalf("second MirrorNow: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable location, got %v then %v", first, second)
	}
	if h.archiver.Calls() != 1 {
		t.Fatalf("expected one archive copy, got %d", h.archiver.Calls())
	}
	if _, err := h.engine.MirrorNow(ctx, 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown record, got %v", err)
	}
}

func TestMirrorPassesOriginAndHandle(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()
	origin := &catalog.ArchiveLocation{ChatID: 555, MessageID: 9}

	id, err := h.engine.SubmitResource(ctx, vault.Submission{ContentKey: "abc123", Handle: "H1", Caption: "cap", Origin: origin})
	if err != nil {
		t.Fatalf("SubmitResource: %v", err)
	}
	h.waitAnchored(t, id)
	sources := h.archiver.Sources()
	if len(sources) != 1 {
		t.Fatalf("expected one source, got %d", len(sources))
	}
	src := sources[0]
	if src.RecordID != id || src.Handle != "H1" || src.ContentKey != "abc123" || src.Caption != "cap" || src.Origin == nil || *src.Origin != *origin {
		t.Fatalf("unexpected source: %#v", src)
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	writer := vault.NewMirrorWriter(store, testsupport.NewFakeArchiver(-100, 1), logging.NewNop(), vault.WithQueueSize(1))

	if !writer.Enqueue(vault.MirrorTask{RecordID: 1}) {
		t.Fatal("first enqueue should be accepted")
	}
	if writer.Enqueue(vault.MirrorTask{RecordID: 2}) {
		t.Fatal("second enqueue should be dropped while queue is full")
	}
}

func TestBackfillMirrorsUnanchoredRecords(t *testing.T) {
	h := newHarness(t, vault.WithWorkers(3), vault.WithAttemptTimeout(time.Second))
	ctx := context.Background()
	var ids []catalog.RecordID
	for i := 0; i < 3; i++ {
		ids = append(ids, testsupport.NewRecord(t, h.store, fmt.Sprintf("key-%d", i), fmt.Sprintf("H%d", i), "").ID)
	}

	queued, err := h.engine.Backfill(ctx, 10)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if queued != 3 {
		t.Fatalf("expected 3 queued, got %d", queued)
	}
	h.start(t)
	for _, id := range ids {
		h.waitAnchored(t, id)
	}
	remaining, err := h.store.ListUnmirrored(ctx, 0)
	if err != nil || len(remaining) != 0 {
		t.Fatalf("expected no unmirrored records, got %d (%v)", len(remaining), err)
	}
}

func TestMirrorWriterStartTwiceFails(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	if err := h.engine.Start(context.Background()); err == nil {
		t.Fatal("expected error when starting twice")
	}
}
