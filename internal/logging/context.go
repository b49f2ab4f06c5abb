package logging

import (
	"context"
	"log/slog"

	"reelvault/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRecordID is the standardized structured logging key for catalog record identifiers.
	FieldRecordID = "record_id"
	// FieldContentKey is the standardized structured logging key for provider content keys.
	FieldContentKey = "content_key"
	// FieldArchiveLocation is the standardized structured logging key for vault positions (chat:message).
	FieldArchiveLocation = "archive_location"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (mirror_completed, handle_stale, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if component, ok := services.ComponentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldComponent, component))
	}
	if id, ok := services.RecordIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldRecordID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
