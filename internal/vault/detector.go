package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reelvault/internal/catalog"
	"reelvault/internal/logging"
	"reelvault/internal/services"
)

// AccessFunc uses a handle against the provider.
type AccessFunc func(ctx context.Context, handle string) error

// Detector guards handle use. A flagged record is refused outright; a provider
// rejection flags the record so later callers are refused too.
type Detector struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewDetector builds a detector over the catalog.
func NewDetector(c Catalog, logger *slog.Logger) *Detector {
	return &Detector{catalog: c, logger: logging.NewComponentLogger(logger, "detector")}
}

// Access runs fn with the record's current handle. It returns
// ErrStaleRefreshPending without calling fn when the record awaits refresh,
// and a *StaleHandleError after fn fails with services.ErrHandleInvalid.
// Other failures are returned unchanged and leave the record as it was.
func (d *Detector) Access(ctx context.Context, rec *catalog.Record, fn AccessFunc) error {
	if rec == nil {
		return services.Wrap(services.ErrNotFound, "detector", "access", "record is nil", nil)
	}
	if rec.NeedsRefresh {
		staleBlockedTotal.Inc()
		return fmt.Errorf("record %d: %w", rec.ID, ErrStaleRefreshPending)
	}

	err := fn(ctx, rec.CurrentHandle)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrHandleInvalid) {
		return err
	}

	logger := logging.WithContext(ctx, d.logger).With(
		logging.Int64(logging.FieldRecordID, int64(rec.ID)),
		logging.String(logging.FieldContentKey, rec.ContentKey),
	)
	changed, markErr := d.catalog.MarkNeedsRefresh(ctx, rec.ID)
	switch {
	case markErr != nil:
		logging.ErrorWithContext(logger, "stale handle detected but flag not persisted", "stale_mark_failed",
			logging.Error(markErr),
			logging.String(logging.FieldErrorHint, "check catalog database health"),
		)
	case changed:
		staleDetectedTotal.Inc()
		logging.WarnWithContext(logger, "handle rejected by provider; awaiting refresh from vault", "handle_stale",
			logging.Error(err),
			logging.Bool("mirrored", rec.Mirrored()),
			logging.String(logging.FieldErrorHint, "the next vault post for this record will refresh the handle"),
			logging.String(logging.FieldImpact, "record is unavailable until refreshed"),
		)
	}
	return &StaleHandleError{RecordID: rec.ID, ContentKey: rec.ContentKey, Err: err}
}
