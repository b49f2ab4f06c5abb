package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Location is a vault position in a transport-friendly format.
type Location struct {
	ChatID    int64  `json:"chatId"`
	MessageID int64  `json:"messageId"`
	Display   string `json:"display"`
}

// Resource describes a catalog record.
type Resource struct {
	ID           int64     `json:"id"`
	ContentKey   string    `json:"contentKey"`
	Handle       string    `json:"handle"`
	HandleState  string    `json:"handleState"`
	NeedsRefresh bool      `json:"needsRefresh"`
	Title        string    `json:"title,omitempty"`
	Caption      string    `json:"caption,omitempty"`
	Archive      *Location `json:"archive,omitempty"`
	CreatedAt    string    `json:"createdAt,omitempty"`
	UpdatedAt    string    `json:"updatedAt,omitempty"`
	ArchivedAt   string    `json:"archivedAt,omitempty"`
	RefreshedAt  string    `json:"refreshedAt,omitempty"`
}

// ResourceResponse wraps a single resource.
type ResourceResponse struct {
	Resource Resource `json:"resource"`
}

// ResourceListResponse is one page of resources.
type ResourceListResponse struct {
	Resources []Resource `json:"resources"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
	Total     int        `json:"total"`
	HasNext   bool       `json:"hasNext"`
}

// SubmitRequest registers a resource. Origin is optional; when present the
// vault copy is forwarded from that message.
type SubmitRequest struct {
	ContentKey string    `json:"contentKey"`
	Handle     string    `json:"handle"`
	Title      string    `json:"title,omitempty"`
	Caption    string    `json:"caption,omitempty"`
	Origin     *Location `json:"origin,omitempty"`
}

// SubmitResponse reports the record id assigned to a submission.
type SubmitResponse struct {
	ID int64 `json:"id"`
}

// HandleResponse carries a handle that is safe to serve.
type HandleResponse struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
}

// MirrorResponse reports the vault location after a mirror request.
type MirrorResponse struct {
	ID       int64    `json:"id"`
	Location Location `json:"location"`
}

// BackfillResponse reports how many unmirrored records were queued.
type BackfillResponse struct {
	Queued int `json:"queued"`
}

// NotificationRequest is a vault post observed outside the daemon's own feed.
type NotificationRequest struct {
	ChatID      int64  `json:"chatId"`
	MessageID   int64  `json:"messageId"`
	ContentKey  string `json:"contentKey"`
	FreshHandle string `json:"freshHandle"`
}

// NotificationResponse reports how a notification was applied.
type NotificationResponse struct {
	Outcome  string `json:"outcome"`
	RecordID int64  `json:"recordId,omitempty"`
	Resolver string `json:"resolver,omitempty"`
	Anchored bool   `json:"anchored,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CatalogStats summarizes record counts.
type CatalogStats struct {
	Total          int `json:"total"`
	Mirrored       int `json:"mirrored"`
	Unmirrored     int `json:"unmirrored"`
	PendingRefresh int `json:"pendingRefresh"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool         `json:"running"`
	PID             int          `json:"pid"`
	Backend         string       `json:"backend"`
	CatalogLocation string       `json:"catalogLocation"`
	LockFilePath    string       `json:"lockFilePath"`
	LogPath         string       `json:"logPath,omitempty"`
	VaultChatID     int64        `json:"vaultChatId,omitempty"`
	FeedEnabled     bool         `json:"feedEnabled"`
	FeedOffset      int64        `json:"feedOffset,omitempty"`
	Catalog         CatalogStats `json:"catalog"`
	CatalogError    string       `json:"catalogError,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
