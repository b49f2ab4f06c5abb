package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reelvault/internal/services"
)

// Upsert records the handle for contentKey, inserting a new record or updating
// the existing one in place. Archive location, refresh flag, and creation time
// of an existing record are left untouched; handle and metadata always take
// the values of the latest call.
func (s *Store) Upsert(ctx context.Context, contentKey, handle string, meta Metadata) (RecordID, error) {
	contentKey = strings.TrimSpace(contentKey)
	handle = strings.TrimSpace(handle)
	if contentKey == "" {
		return 0, services.Wrap(services.ErrValidation, "catalog", "upsert", "content key is required", nil)
	}
	if handle == "" {
		return 0, services.Wrap(services.ErrValidation, "catalog", "upsert", "handle is required", nil)
	}

	now := timestamp(time.Now())
	title := strings.TrimSpace(meta.Title)
	var id int64
	err := s.scanRowWithRetry(ctx,
		`INSERT INTO records (
            content_key, current_handle, title, title_folded, caption,
            needs_refresh, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)
        ON CONFLICT (content_key) DO UPDATE SET
            current_handle = excluded.current_handle,
            title = excluded.title,
            title_folded = excluded.title_folded,
            caption = excluded.caption,
            updated_at = excluded.updated_at
        RETURNING id`,
		[]any{
			contentKey,
			handle,
			nullableString(title),
			nullableString(FoldTitle(title)),
			nullableString(strings.TrimSpace(meta.Caption)),
			now,
			now,
		},
		&id,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert record: %w", err)
	}
	return RecordID(id), nil
}

// AttachArchiveLocation anchors a record in the vault. Writing the location the
// record already holds is a no-op and reports changed=false; a different
// location replaces the stored one.
func (s *Store) AttachArchiveLocation(ctx context.Context, id RecordID, loc ArchiveLocation) (bool, error) {
	if !loc.Valid() {
		return false, services.Wrap(services.ErrValidation, "catalog", "attach archive location", "location is incomplete", nil)
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE records
         SET archive_chat_id = ?, archive_message_id = ?, archived_at = ?, updated_at = ?
         WHERE id = ?
           AND (archive_chat_id IS NULL OR archive_message_id IS NULL
                OR archive_chat_id <> ? OR archive_message_id <> ?)`,
		loc.ChatID, loc.MessageID, now, now,
		int64(id),
		loc.ChatID, loc.MessageID,
	)
	if err != nil {
		return false, fmt.Errorf("attach archive location: %w", err)
	}
	return s.changedOrMissing(ctx, res, id)
}

// MarkNeedsRefresh flags the record's handle as stale. Flagging an already
// flagged record reports changed=false.
func (s *Store) MarkNeedsRefresh(ctx context.Context, id RecordID) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE records SET needs_refresh = 1, updated_at = ? WHERE id = ? AND needs_refresh = 0`,
		timestamp(time.Now()),
		int64(id),
	)
	if err != nil {
		return false, fmt.Errorf("mark needs refresh: %w", err)
	}
	return s.changedOrMissing(ctx, res, id)
}

// UpdateHandle stores a fresh handle, clears the refresh flag, and stamps the
// refresh time. Applying the same handle twice leaves the record equivalent.
func (s *Store) UpdateHandle(ctx context.Context, id RecordID, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return services.Wrap(services.ErrValidation, "catalog", "update handle", "handle is required", nil)
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE records
         SET current_handle = ?, needs_refresh = 0, handle_refreshed_at = ?, updated_at = ?
         WHERE id = ?`,
		handle, now, now, int64(id),
	)
	if err != nil {
		return fmt.Errorf("update handle: %w", err)
	}
	return requireAffected(res, id)
}

// UpdateTitle replaces a record's title.
func (s *Store) UpdateTitle(ctx context.Context, id RecordID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return services.Wrap(services.ErrValidation, "catalog", "update title", "title is required", nil)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE records SET title = ?, title_folded = ?, updated_at = ? WHERE id = ?`,
		title, FoldTitle(title), timestamp(time.Now()), int64(id),
	)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return requireAffected(res, id)
}

// Remove deletes a record. It is an administrative operation; the vault
// engine never deletes records.
func (s *Store) Remove(ctx context.Context, id RecordID) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM records WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	return requireAffected(res, id)
}

func requireAffected(res interface{ RowsAffected() (int64, error) }, id RecordID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %d: %w", id, ErrRecordNotFound)
	}
	return nil
}

// changedOrMissing distinguishes a conditional no-op from an unknown record.
func (s *Store) changedOrMissing(ctx context.Context, res interface{ RowsAffected() (int64, error) }, id RecordID) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	exists, err := s.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("record %d: %w", id, ErrRecordNotFound)
	}
	return false, nil
}

func (s *Store) exists(ctx context.Context, id RecordID) (bool, error) {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(1) FROM records WHERE id = ?`, int64(id)).Scan(&count); err != nil {
		return false, fmt.Errorf("check record: %w", err)
	}
	return count > 0, nil
}
