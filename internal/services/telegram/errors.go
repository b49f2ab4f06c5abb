package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a failure reported by the Bot API (ok=false).
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

var handleInvalidMarkers = []string{"wrong file identifier", "file_id", "invalid"}

// IsHandleInvalid reports whether err is a Bot API rejection of a file
// identifier, meaning the cached handle can no longer be used.
func IsHandleInvalid(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return false
	}
	desc := strings.ToLower(apiErr.Description)
	for _, marker := range handleInvalidMarkers {
		if strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err asks the caller to slow down.
func IsRateLimited(err error) (int, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
		return 0, false
	}
	return apiErr.RetryAfter, true
}
