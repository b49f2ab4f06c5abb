package vault

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
)

// OutcomeKind classifies the result of applying a notification.
type OutcomeKind string

const (
	OutcomeRefreshed OutcomeKind = "refreshed"
	OutcomeDiscarded OutcomeKind = "discarded"
)

// Resolver names, in resolution order.
const (
	ResolverArchiveLocation = "by_archive_location"
	ResolverContentKey      = "by_content_key"
)

// Outcome describes what Apply did with a notification.
type Outcome struct {
	Kind     OutcomeKind      `json:"outcome"`
	RecordID catalog.RecordID `json:"record_id,omitempty"`
	Resolver string           `json:"resolver,omitempty"`
	Anchored bool             `json:"anchored,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

type resolver struct {
	name    string
	resolve func(ctx context.Context, n Notification) (catalog.RecordID, bool, error)
}

// Reconciler writes fresh handles observed in the vault back into the catalog.
type Reconciler struct {
	catalog   Catalog
	resolvers []resolver
	logger    *slog.Logger
}

// NewReconciler builds a reconciler that resolves notifications by archive
// location first and content key second.
func NewReconciler(c Catalog, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		catalog: c,
		resolvers: []resolver{
			{name: ResolverArchiveLocation, resolve: func(ctx context.Context, n Notification) (catalog.RecordID, bool, error) {
				return c.ResolveByArchiveLocation(ctx, n.Location)
			}},
			{name: ResolverContentKey, resolve: func(ctx context.Context, n Notification) (catalog.RecordID, bool, error) {
				return c.ResolveByContentKey(ctx, n.ContentKey)
			}},
		},
		logger: logging.NewComponentLogger(logger, "reconciler"),
	}
}

// Apply resolves the notification to a record and stores its fresh handle.
// Notifications that match no record, or carry no handle, are discarded
// without error. Applying the same notification again yields the same state.
func (r *Reconciler) Apply(ctx context.Context, n Notification) (Outcome, error) {
	n.ContentKey = strings.TrimSpace(n.ContentKey)
	n.FreshHandle = strings.TrimSpace(n.FreshHandle)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldArchiveLocation, n.Location.String()),
		logging.String(logging.FieldContentKey, n.ContentKey),
	)

	if n.FreshHandle == "" {
		return r.discard(logger, "missing_handle"), nil
	}

	var (
		id       catalog.RecordID
		found    bool
		resolved string
	)
	for _, res := range r.resolvers {
		var err error
		id, found, err = res.resolve(ctx, n)
		if err != nil {
			return Outcome{}, fmt.Errorf("reconcile: %s: %w", res.name, err)
		}
		if found {
			resolved = res.name
			break
		}
	}
	if !found {
		return r.discard(logger, "unresolved"), nil
	}

	rec, err := r.catalog.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: load record %d: %w", id, err)
	}
	if rec == nil {
		return r.discard(logger, "record_removed"), nil
	}
	logger = logger.With(logging.Int64(logging.FieldRecordID, int64(id)), logging.String("resolver", resolved))

	if resolved == ResolverArchiveLocation && n.ContentKey != "" && n.ContentKey != rec.ContentKey {
		logging.WarnWithContext(logger, "vault post content key differs from cataloged record", "reconcile_key_mismatch",
			logging.String("record_content_key", rec.ContentKey),
			logging.String(logging.FieldErrorHint, "archive location wins; verify the vault post if this repeats"),
			logging.String(logging.FieldImpact, "record handle replaced with the vault post's handle"),
		)
	}

	if err := r.catalog.UpdateHandle(ctx, id, n.FreshHandle); err != nil {
		return Outcome{}, fmt.Errorf("reconcile: update handle for record %d: %w", id, err)
	}

	outcome := Outcome{Kind: OutcomeRefreshed, RecordID: id, Resolver: resolved}
	if resolved == ResolverContentKey && rec.Archive != nil && n.Location.Valid() && *rec.Archive != n.Location {
		logging.WarnWithContext(logger, "vault post location differs from record anchor", "reconcile_anchor_diverged",
			logging.String("record_archive_location", rec.Archive.String()),
			logging.String(logging.FieldErrorHint, "the content was likely posted to the vault again; retry the mirror to re-anchor"),
			logging.String(logging.FieldImpact, "record keeps its existing anchor; handle refreshed by content key"),
		)
	}
	if resolved == ResolverContentKey && rec.Archive == nil && n.Location.Valid() {
		changed, err := r.catalog.AttachArchiveLocation(ctx, id, n.Location)
		if err != nil {
			return Outcome{}, fmt.Errorf("reconcile: anchor record %d: %w", id, err)
		}
		outcome.Anchored = changed
	}

	reconcileOutcomesTotal.WithLabelValues(string(OutcomeRefreshed), resolved).Inc()
	logger.Info("handle refreshed from vault",
		logging.String("previous_state", string(rec.State())),
		logging.Bool("handle_changed", rec.CurrentHandle != n.FreshHandle),
		logging.Bool("anchored", outcome.Anchored),
		logging.String(logging.FieldEventType, "handle_refreshed"),
	)
	return outcome, nil
}

func (r *Reconciler) discard(logger *slog.Logger, reason string) Outcome {
	reconcileOutcomesTotal.WithLabelValues(string(OutcomeDiscarded), reason).Inc()
	logger.Info("vault notification discarded",
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "notification_discarded"),
	)
	return Outcome{Kind: OutcomeDiscarded, Reason: reason}
}
