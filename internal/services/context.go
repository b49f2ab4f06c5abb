package services

import "context"

type contextKey string

const (
	recordIDKey  contextKey = "record_id"
	componentKey contextKey = "component"
	requestIDKey contextKey = "request_id"
)

// WithRecordID annotates context with the catalog record identifier.
func WithRecordID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, recordIDKey, id)
}

// RecordIDFromContext extracts the catalog record identifier if present.
func RecordIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(recordIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithComponent annotates context with the engine component name.
func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, component)
}

// ComponentFromContext returns the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(componentKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
