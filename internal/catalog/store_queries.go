package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetByID fetches a record by identifier. A missing record returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id RecordID) (*Record, error) {
	row := s.queryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, int64(id))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// GetByContentKey fetches a record by content key. A missing record returns nil, nil.
func (s *Store) GetByContentKey(ctx context.Context, contentKey string) (*Record, error) {
	row := s.queryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE content_key = ?`, strings.TrimSpace(contentKey))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record by content key: %w", err)
	}
	return rec, nil
}

// ResolveByArchiveLocation returns the record anchored at loc. When several
// records share a location the lowest id wins.
func (s *Store) ResolveByArchiveLocation(ctx context.Context, loc ArchiveLocation) (RecordID, bool, error) {
	if !loc.Valid() {
		return 0, false, nil
	}
	return s.resolveID(ctx, "resolve by archive location",
		`SELECT id FROM records WHERE archive_chat_id = ? AND archive_message_id = ? ORDER BY id LIMIT 1`,
		loc.ChatID, loc.MessageID,
	)
}

// ResolveByContentKey returns the record holding contentKey.
func (s *Store) ResolveByContentKey(ctx context.Context, contentKey string) (RecordID, bool, error) {
	contentKey = strings.TrimSpace(contentKey)
	if contentKey == "" {
		return 0, false, nil
	}
	return s.resolveID(ctx, "resolve by content key",
		`SELECT id FROM records WHERE content_key = ?`,
		contentKey,
	)
}

func (s *Store) resolveID(ctx context.Context, op, query string, args ...any) (RecordID, bool, error) {
	var id int64
	err := s.queryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return RecordID(id), true, nil
}

// List returns one page of records ordered by title.
func (s *Store) List(ctx context.Context, page int) (Page, error) {
	return s.page(ctx, "list records", "", nil, page)
}

// Search returns one page of records whose title contains query, ignoring case.
func (s *Store) Search(ctx context.Context, query string, page int) (Page, error) {
	folded := FoldTitle(query)
	if folded == "" {
		return s.List(ctx, page)
	}
	return s.page(ctx, "search records", `WHERE title_folded LIKE ? ESCAPE '\'`, []any{likePattern(folded)}, page)
}

func (s *Store) page(ctx context.Context, op, where string, args []any, page int) (Page, error) {
	page = normalizePage(page)
	result := Page{Number: page, Size: s.pageSize}

	countQuery := `SELECT COUNT(1) FROM records`
	if where != "" {
		countQuery += " " + where
	}
	if err := s.queryRow(ctx, countQuery, args...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("%s: count: %w", op, err)
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY COALESCE(title_folded, ''), id LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), s.pageSize, (page-1)*s.pageSize)

	rows, err := s.query(ctx, query, pageArgs...)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}
	result.Records = records
	return result, nil
}

// FindByTitle returns the first record whose title equals title, ignoring case.
// A missing record returns nil, nil.
func (s *Store) FindByTitle(ctx context.Context, title string) (*Record, error) {
	folded := FoldTitle(title)
	if folded == "" {
		return nil, nil
	}
	row := s.queryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE title_folded = ? ORDER BY id LIMIT 1`, folded)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	return rec, nil
}

// ListNeedingRefresh returns records whose handle is flagged stale.
func (s *Store) ListNeedingRefresh(ctx context.Context) ([]*Record, error) {
	rows, err := s.query(ctx, `SELECT `+recordColumns+` FROM records WHERE needs_refresh = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list needing refresh: %w", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list needing refresh: %w", err)
	}
	return records, nil
}

// ListUnmirrored returns up to limit records that have no archive location.
// A non-positive limit returns every such record.
func (s *Store) ListUnmirrored(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE archive_chat_id IS NULL OR archive_message_id IS NULL ORDER BY id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unmirrored: %w", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list unmirrored: %w", err)
	}
	return records, nil
}
