package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/containerd/errdefs"
)

// StatusAuthenticationTimeout is the non-standard status the backend sends for an expired session.
const StatusAuthenticationTimeout = 419

// HTTPError is a response that reached us with a non-2xx status.
// Body is passed through unchanged for the error normalizer.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       json.RawMessage
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap exposes the errdefs class of the status so callers can use errdefs.IsXxx.
func (e *HTTPError) Unwrap() error {
	return statusClass(e.StatusCode)
}

// IsAuthenticationRejected reports whether the status ends the session.
func (e *HTTPError) IsAuthenticationRejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == StatusAuthenticationTimeout
}

func statusClass(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == StatusAuthenticationTimeout:
		return errdefs.ErrUnauthenticated
	case status == http.StatusForbidden:
		return errdefs.ErrPermissionDenied
	case status == http.StatusNotFound:
		return errdefs.ErrNotFound
	case status == http.StatusConflict:
		return errdefs.ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return errdefs.ErrInvalidArgument
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		return errdefs.ErrUnavailable
	case status >= 500:
		return errdefs.ErrInternal
	default:
		return errdefs.ErrUnknown
	}
}

// TransportError means no response reached us (DNS, refused connection, timeout, ...).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{e.Err, errdefs.ErrUnavailable}
}
