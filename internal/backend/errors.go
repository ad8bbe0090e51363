package backend

import (
	"errors"
	"fmt"

	"github.com/azyu/chapterstudio/pkg/types"
)

// ErrTransport is matched by every TransportError.
var ErrTransport = errors.New("backend transport error")

// ErrValidation is matched by every ValidationError.
var ErrValidation = types.ErrValidation

// ValidationError reports a record rejected before submission.
type ValidationError = types.ValidationError

// TransportError covers an unreachable backend, a non-success status and a
// malformed response body.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Detail     string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.URL, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: transport error", e.Op, e.URL)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) hold.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr) && tErr.StatusCode == 404
}
