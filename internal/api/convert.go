package api

import (
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/vault"
)

// FromLocation converts a catalog archive location.
func FromLocation(loc catalog.ArchiveLocation) Location {
	return Location{ChatID: loc.ChatID, MessageID: loc.MessageID, Display: loc.String()}
}

// ToLocation converts back to the catalog representation.
func (l Location) ToLocation() catalog.ArchiveLocation {
	return catalog.ArchiveLocation{ChatID: l.ChatID, MessageID: l.MessageID}
}

// FromRecord converts a catalog record to its API representation.
func FromRecord(rec *catalog.Record) Resource {
	if rec == nil {
		return Resource{}
	}
	dto := Resource{
		ID:           int64(rec.ID),
		ContentKey:   rec.ContentKey,
		Handle:       rec.CurrentHandle,
		HandleState:  string(rec.State()),
		NeedsRefresh: rec.NeedsRefresh,
		Title:        rec.Title,
		Caption:      rec.Caption,
		CreatedAt:    formatTime(rec.CreatedAt),
		UpdatedAt:    formatTime(rec.UpdatedAt),
	}
	if rec.Archive != nil {
		loc := FromLocation(*rec.Archive)
		dto.Archive = &loc
	}
	if rec.ArchivedAt != nil {
		dto.ArchivedAt = formatTime(*rec.ArchivedAt)
	}
	if rec.RefreshedAt != nil {
		dto.RefreshedAt = formatTime(*rec.RefreshedAt)
	}
	return dto
}

// FromPage converts a catalog page.
func FromPage(page catalog.Page) ResourceListResponse {
	out := ResourceListResponse{
		Resources: make([]Resource, 0, len(page.Records)),
		Page:      page.Number,
		PageSize:  page.Size,
		Total:     page.Total,
		HasNext:   page.HasNext(),
	}
	for _, rec := range page.Records {
		out.Resources = append(out.Resources, FromRecord(rec))
	}
	return out
}

// FromStats converts catalog counts.
func FromStats(stats catalog.Stats) CatalogStats {
	return CatalogStats{
		Total:          stats.Total,
		Mirrored:       stats.Mirrored,
		Unmirrored:     stats.Unmirrored,
		PendingRefresh: stats.PendingRefresh,
	}
}

// FromOutcome converts a reconcile outcome.
func FromOutcome(outcome vault.Outcome) NotificationResponse {
	return NotificationResponse{
		Outcome:  string(outcome.Kind),
		RecordID: int64(outcome.RecordID),
		Resolver: outcome.Resolver,
		Anchored: outcome.Anchored,
		Reason:   outcome.Reason,
	}
}

// Submission converts a submit request into an engine submission.
func (r SubmitRequest) Submission() vault.Submission {
	sub := vault.Submission{
		ContentKey: r.ContentKey,
		Handle:     r.Handle,
		Title:      r.Title,
		Caption:    r.Caption,
	}
	if r.Origin != nil {
		origin := r.Origin.ToLocation()
		sub.Origin = &origin
	}
	return sub
}

// Notification converts a notification request into a vault notification.
func (r NotificationRequest) Notification() vault.Notification {
	return vault.Notification{
		Location:    catalog.ArchiveLocation{ChatID: r.ChatID, MessageID: r.MessageID},
		ContentKey:  r.ContentKey,
		FreshHandle: r.FreshHandle,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
