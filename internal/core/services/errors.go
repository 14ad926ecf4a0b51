package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates upstream has no such repository or release.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat indicates an identifier that is not "owner/repo".
	ErrInvalidFormat = errors.New("repository format invalid, expected 'owner/repo'")
)

// UpstreamError describes a failed call to the hosting API.
// Status is the HTTP status upstream answered with, or 0 when no response
// was received (network failure) or the payload could not be decoded.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream: %s", e.Message)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports a 404 from upstream as ErrNotFound.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
