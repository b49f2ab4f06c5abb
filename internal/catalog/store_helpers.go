package catalog

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const recordColumns = "id, content_key, current_handle, archive_chat_id, archive_message_id, needs_refresh, title, caption, created_at, updated_at, archived_at, handle_refreshed_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		contentKey   string
		handle       string
		chatID       sql.NullInt64
		messageID    sql.NullInt64
		needsRefresh sql.NullInt64
		title        sql.NullString
		caption      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		archivedRaw  sql.NullString
		refreshedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&contentKey,
		&handle,
		&chatID,
		&messageID,
		&needsRefresh,
		&title,
		&caption,
		&createdRaw,
		&updatedRaw,
		&archivedRaw,
		&refreshedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:            RecordID(id),
		ContentKey:    contentKey,
		CurrentHandle: handle,
		NeedsRefresh:  needsRefresh.Valid && needsRefresh.Int64 != 0,
		Title:         title.String,
		Caption:       caption.String,
	}
	if chatID.Valid && messageID.Valid {
		rec.Archive = &ArchiveLocation{ChatID: chatID.Int64, MessageID: messageID.Int64}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	rec.ArchivedAt = parseOptionalTime(archivedRaw)
	rec.RefreshedAt = parseOptionalTime(refreshedRaw)
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()
	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func parseOptionalTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// FoldTitle returns the case-folded form used for title comparisons.
func FoldTitle(title string) string {
	return cases.Fold().String(strings.TrimSpace(title))
}

// likePattern builds a LIKE substring pattern with wildcard characters escaped.
func likePattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(value) + "%"
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
