package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// FromStatus maps an HTTP error reply from an OpenAI-style API to one of the
// package errors. detail is the server's message, used to tell an
// oversized prompt apart from other bad requests.
func FromStatus(status int, detail string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case http.StatusBadRequest:
		if mentionsContext(detail) {
			return fmt.Errorf("%w: %s", ErrContextTooLong, detail)
		}
		return fmt.Errorf("%w: bad request: %s", ErrAPIError, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrAPIError, status, detail)
	}
}

// Retryable reports whether a reply with status is worth another attempt.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func mentionsContext(detail string) bool {
	d := strings.ToLower(detail)
	return strings.Contains(d, "context") || strings.Contains(d, "token")
}
