package catalog

import (
	"fmt"
	"time"
)

// RecordID is the catalog's surrogate key.
type RecordID int64

// ArchiveLocation identifies a message inside the vault channel.
type ArchiveLocation struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// String renders the location as chat:message for logs and tables.
func (l ArchiveLocation) String() string {
	return fmt.Sprintf("%d:%d", l.ChatID, l.MessageID)
}

// Valid reports whether both coordinates are set.
func (l ArchiveLocation) Valid() bool {
	return l.ChatID != 0 && l.MessageID != 0
}

// Metadata carries descriptive fields that ride along with an upsert.
type Metadata struct {
	Title   string `json:"title,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// HandleState is the refresh lifecycle of a record's handle.
type HandleState string

const (
	StateFresh          HandleState = "fresh"
	StatePendingRefresh HandleState = "pending_refresh"
)

// Record is a persisted catalog entry.
type Record struct {
	ID            RecordID         `json:"id"`
	ContentKey    string           `json:"content_key"`
	CurrentHandle string           `json:"current_handle"`
	Archive       *ArchiveLocation `json:"archive,omitempty"`
	NeedsRefresh  bool             `json:"needs_refresh"`
	Title         string           `json:"title,omitempty"`
	Caption       string           `json:"caption,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ArchivedAt    *time.Time       `json:"archived_at,omitempty"`
	RefreshedAt   *time.Time       `json:"refreshed_at,omitempty"`
}

// State derives the handle lifecycle from the refresh flag.
func (r *Record) State() HandleState {
	if r == nil || r.NeedsRefresh {
		return StatePendingRefresh
	}
	return StateFresh
}

// Mirrored reports whether the record is anchored in the vault.
func (r *Record) Mirrored() bool {
	return r != nil && r.Archive != nil
}

// DisplayTitle returns the title or a placeholder for untitled records.
func (r *Record) DisplayTitle() string {
	if r == nil || r.Title == "" {
		return "(untitled)"
	}
	return r.Title
}

// Page is one slice of a paginated listing. Number is 1-based.
type Page struct {
	Records []*Record `json:"records"`
	Number  int       `json:"page"`
	Size    int       `json:"page_size"`
	Total   int       `json:"total"`
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool {
	return p.Number*p.Size < p.Total
}

// Pages returns the number of pages needed for Total records.
func (p Page) Pages() int {
	if p.Size <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// Stats aggregates catalog counts.
type Stats struct {
	Total          int `json:"total"`
	Mirrored       int `json:"mirrored"`
	Unmirrored     int `json:"unmirrored"`
	PendingRefresh int `json:"pending_refresh"`
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	Backend          string   `json:"backend"`
	Location         string   `json:"location"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present,omitempty"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalRecords     int      `json:"total_records"`
	Error            string   `json:"error,omitempty"`
}
