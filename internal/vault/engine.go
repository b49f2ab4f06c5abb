package vault

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services"
)

// Engine is the entry point for submitting resources, serving handles, and
// applying vault notifications.
type Engine struct {
	catalog    Catalog
	fetcher    Fetcher
	mirror     *MirrorWriter
	detector   *Detector
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewEngine wires the mirror writer, detector, and reconciler around c.
// fetcher may be nil, in which case handles are served without probing the
// provider and Materialize is unavailable.
func NewEngine(c Catalog, archiver Archiver, fetcher Fetcher, logger *slog.Logger, opts ...MirrorOption) *Engine {
	return &Engine{
		catalog:    c,
		fetcher:    fetcher,
		mirror:     NewMirrorWriter(c, archiver, logger, opts...),
		detector:   NewDetector(c, logger),
		reconciler: NewReconciler(c, logger),
		logger:     logging.NewComponentLogger(logger, "engine"),
	}
}

// Start launches background mirroring.
func (e *Engine) Start(ctx context.Context) error {
	return e.mirror.Start(ctx)
}

// Stop halts background mirroring.
func (e *Engine) Stop() {
	e.mirror.Stop()
}

// SubmitResource upserts the resource by content key and schedules a vault
// mirror when the record has no archive location yet. It returns once the
// record is persisted; mirroring completes in the background.
func (e *Engine) SubmitResource(ctx context.Context, sub Submission) (catalog.RecordID, error) {
	id, err := e.catalog.Upsert(ctx, sub.ContentKey, sub.Handle, catalog.Metadata{Title: sub.Title, Caption: sub.Caption})
	if err != nil {
		return 0, err
	}
	rec, err := e.catalog.GetByID(ctx, id)
	if err != nil {
		return id, fmt.Errorf("submit: load record %d: %w", id, err)
	}

	correlationID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		correlationID = uuid.NewString()
	}
	logger := e.logger.With(
		logging.Int64(logging.FieldRecordID, int64(id)),
		logging.String(logging.FieldContentKey, strings.TrimSpace(sub.ContentKey)),
		logging.String(logging.FieldCorrelationID, correlationID),
	)
	if rec != nil && rec.Archive != nil {
		logger.Debug("resource already anchored; mirror skipped",
			logging.String(logging.FieldArchiveLocation, rec.Archive.String()),
		)
		return id, nil
	}
	queued := e.mirror.Enqueue(MirrorTask{RecordID: id, Origin: sub.Origin, CorrelationID: correlationID})
	logger.Info("resource submitted",
		logging.Bool("mirror_queued", queued),
		logging.String(logging.FieldEventType, "resource_submitted"),
	)
	return id, nil
}

// GetUsableHandle returns the record's handle if it is safe to serve. Flagged
// records fail with ErrStaleRefreshPending. With a fetcher configured the
// handle is probed first, so a rejection is detected here rather than by the
// consumer.
func (e *Engine) GetUsableHandle(ctx context.Context, id catalog.RecordID) (string, error) {
	rec, err := e.load(ctx, id)
	if err != nil {
		return "", err
	}
	err = e.detector.Access(ctx, rec, func(ctx context.Context, handle string) error {
		if e.fetcher == nil {
			return nil
		}
		_, err := e.fetcher.FetchByHandle(ctx, handle)
		return err
	})
	if err != nil {
		return "", err
	}
	return rec.CurrentHandle, nil
}

// Materialize fetches the record's content through the detector.
func (e *Engine) Materialize(ctx context.Context, id catalog.RecordID) (*Content, error) {
	if e.fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "materialize", "no fetcher configured", nil)
	}
	rec, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var content *Content
	err = e.detector.Access(ctx, rec, func(ctx context.Context, handle string) error {
		var fetchErr error
		content, fetchErr = e.fetcher.FetchByHandle(ctx, handle)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if content != nil && content.ContentKey == "" {
		content.ContentKey = rec.ContentKey
	}
	return content, nil
}

// OnArchiveNotification applies a vault notification.
func (e *Engine) OnArchiveNotification(ctx context.Context, n Notification) (Outcome, error) {
	return e.reconciler.Apply(ctx, n)
}

// MirrorNow mirrors a record synchronously.
func (e *Engine) MirrorNow(ctx context.Context, id catalog.RecordID) (catalog.ArchiveLocation, error) {
	return e.mirror.MirrorNow(ctx, id)
}

// Backfill queues unmirrored records for background mirroring.
func (e *Engine) Backfill(ctx context.Context, limit int) (int, error) {
	return e.mirror.Backfill(ctx, limit)
}

func (e *Engine) load(ctx context.Context, id catalog.RecordID) (*catalog.Record, error) {
	rec, err := e.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load record %d: %w", id, err)
	}
	if rec == nil {
		return nil, services.Wrap(services.ErrNotFound, "engine", "load record", fmt.Sprintf("record %d does not exist", id), nil)
	}
	return rec, nil
}
