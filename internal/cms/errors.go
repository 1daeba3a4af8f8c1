package cms

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks content that does not exist for the requested key.
	ErrNotFound = errors.New("cms: not found")
	// ErrMissingAPIKey is returned by NewClient when no public API key is configured.
	ErrMissingAPIKey = errors.New("cms: public api key is required")
)

// StatusError reports a non-2xx response from the content API.
type StatusError struct {
	Status int
	Model  string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cms: %s status %d", e.Model, e.Status)
	}
	return fmt.Sprintf("cms: %s status %d: %s", e.Model, e.Status, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// IsNotFound reports whether err carries a not-found signal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
