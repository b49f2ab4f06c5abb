package api

import (
	"testing"
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/vault"
)

func TestFromRecordIncludesArchiveAndState(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	archived := created.Add(time.Minute)
	rec := &catalog.Record{
		ID:            7,
		ContentKey:    "abc123",
		CurrentHandle: "H1",
		NeedsRefresh:  true,
		Title:         "Heat",
		Archive:       &catalog.ArchiveLocation{ChatID: -100, MessageID: 42},
		CreatedAt:     created,
		UpdatedAt:     created,
		ArchivedAt:    &archived,
	}
	dto := FromRecord(rec)
	if dto.ID != 7 || dto.ContentKey != "abc123" || dto.Handle != "H1" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.HandleState != string(catalog.StatePendingRefresh) || !dto.NeedsRefresh {
		t.Fatalf("expected pending refresh state, got %q", dto.HandleState)
	}
	if dto.Archive == nil || dto.Archive.Display != "-100:42" {
		t.Fatalf("unexpected archive %+v", dto.Archive)
	}
	if dto.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}
	if dto.ArchivedAt != "2026-03-01T12:01:00.000Z" {
		t.Fatalf("unexpected archivedAt %q", dto.ArchivedAt)
	}
	if dto.RefreshedAt != "" {
		t.Fatalf("expected empty refreshedAt, got %q", dto.RefreshedAt)
	}
}

func TestFromRecordNil(t *testing.T) {
	if dto := FromRecord(nil); dto.ID != 0 || dto.Archive != nil {
		t.Fatalf("expected zero resource, got %+v", dto)
	}
}

func TestFromPageReportsNext(t *testing.T) {
	page := catalog.Page{
		Records: []*catalog.Record{{ID: 1}, {ID: 2}},
		Number:  1,
		Size:    2,
		Total:   3,
	}
	dto := FromPage(page)
	if len(dto.Resources) != 2 || !dto.HasNext || dto.Total != 3 {
		t.Fatalf("unexpected page %+v", dto)
	}
}

func TestSubmitRequestCarriesOrigin(t *testing.T) {
	req := SubmitRequest{ContentKey: "k", Handle: "h", Origin: &Location{ChatID: 5, MessageID: 9}}
	sub := req.Submission()
	if sub.Origin == nil || *sub.Origin != (catalog.ArchiveLocation{ChatID: 5, MessageID: 9}) {
		t.Fatalf("unexpected origin %+v", sub.Origin)
	}
	if (SubmitRequest{ContentKey: "k"}).Submission().Origin != nil {
		t.Fatal("expected nil origin")
	}
}

func TestFromOutcome(t *testing.T) {
	dto := FromOutcome(vault.Outcome{Kind: vault.OutcomeRefreshed, RecordID: 3, Resolver: vault.ResolverContentKey, Anchored: true})
	if dto.Outcome != "refreshed" || dto.RecordID != 3 || dto.Resolver != "by_content_key" || !dto.Anchored {
		t.Fatalf("unexpected outcome %+v", dto)
	}
}
