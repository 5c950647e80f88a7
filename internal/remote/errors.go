package remote

import (
	"fmt"
	"net/http"
)

// APIError describes a failed call to the todopro service. Status 0 means
// the request never produced an HTTP response (connection failure,
// timeout).
type APIError struct {
	Status  int
	Path    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("request to %s failed: %v", e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s returned %d: %s", e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s returned %d", e.Path, e.Status)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying: transport
// failures and 5xx responses are, authoritative 4xx rejections are not.
func (e *APIError) Transient() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}

// NotFound reports whether the service answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}
