package vault

import (
	"context"

	"reelvault/internal/catalog"
)

// Catalog is the persistence surface the engine depends on. *catalog.Store
// satisfies it.
type Catalog interface {
	Upsert(ctx context.Context, contentKey, handle string, meta catalog.Metadata) (catalog.RecordID, error)
	GetByID(ctx context.Context, id catalog.RecordID) (*catalog.Record, error)
	AttachArchiveLocation(ctx context.Context, id catalog.RecordID, loc catalog.ArchiveLocation) (bool, error)
	MarkNeedsRefresh(ctx context.Context, id catalog.RecordID) (bool, error)
	ResolveByArchiveLocation(ctx context.Context, loc catalog.ArchiveLocation) (catalog.RecordID, bool, error)
	ResolveByContentKey(ctx context.Context, contentKey string) (catalog.RecordID, bool, error)
	UpdateHandle(ctx context.Context, id catalog.RecordID, handle string) error
	ListUnmirrored(ctx context.Context, limit int) ([]*catalog.Record, error)
}

var _ Catalog = (*catalog.Store)(nil)

// Source describes a resource to duplicate into the vault. Origin is the
// message the resource was first seen in, when known.
type Source struct {
	RecordID   catalog.RecordID
	ContentKey string
	Handle     string
	Caption    string
	Origin     *catalog.ArchiveLocation
}

// Archiver duplicates content into the vault channel. Failures carry
// services.ErrArchiveUnavailable.
type Archiver interface {
	DuplicateToArchive(ctx context.Context, src Source) (catalog.ArchiveLocation, error)
}

// Content is the materialized form of a handle.
type Content struct {
	Handle     string `json:"handle"`
	ContentKey string `json:"content_key,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

// Fetcher resolves a handle into content. A handle the provider no longer
// accepts fails with services.ErrHandleInvalid; anything else with
// services.ErrTransport.
type Fetcher interface {
	FetchByHandle(ctx context.Context, handle string) (*Content, error)
}

// Notification reports a message observed in the archive channel together
// with the handle the provider currently issues for it.
type Notification struct {
	Location    catalog.ArchiveLocation `json:"location"`
	ContentKey  string                  `json:"content_key"`
	FreshHandle string                  `json:"fresh_handle"`
}

// Submission is a newly observed resource.
type Submission struct {
	ContentKey string                   `json:"content_key"`
	Handle     string                   `json:"handle"`
	Title      string                   `json:"title,omitempty"`
	Caption    string                   `json:"caption,omitempty"`
	Origin     *catalog.ArchiveLocation `json:"origin,omitempty"`
}
