// SPDX-License-Identifier: MPL-2.0

package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the registry has no such mod or release.
	ErrNotFound = errors.New("not found in mod portal")

	// ErrMissingCredentials is returned when a download is attempted without
	// a portal username and token.
	ErrMissingCredentials = errors.New("mod portal credentials are not configured")

	// ErrUnexpectedResponse is the sentinel wrapped by StatusError.
	ErrUnexpectedResponse = errors.New("unexpected mod portal response")
)

// StatusError is returned when the registry answers with a status code the
// client does not handle.
type StatusError struct {
	Op         string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", e.Op, e.URL, e.StatusCode)
}

// Unwrap returns ErrUnexpectedResponse so callers can use errors.Is.
func (e *StatusError) Unwrap() error { return ErrUnexpectedResponse }
