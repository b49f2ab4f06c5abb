package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArchiveUnavailable marks a failed duplication into the vault channel.
	ErrArchiveUnavailable = errors.New("archive unavailable")
	// ErrHandleInvalid marks an access token the provider no longer accepts.
	ErrHandleInvalid = errors.New("handle invalid")
	// ErrTransport marks network, permission, and other provider failures.
	ErrTransport     = errors.New("transport error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable label for the marker carried by err, suitable for
// metrics and structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrHandleInvalid):
		return "handle_invalid"
	case errors.Is(err, ErrArchiveUnavailable):
		return "archive_unavailable"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
}

// Retryable reports whether a later attempt may succeed without operator action.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
