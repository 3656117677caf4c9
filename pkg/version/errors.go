// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingComponent is returned when a version has an empty component,
	// as in "", "1..2" or "1.".
	ErrMissingComponent = errors.New("missing version component")
	// ErrNotANumber is returned when a version component is not a decimal number.
	ErrNotANumber = errors.New("version component is not a number")
	// ErrTooManyComponents is returned for versions with more than three components.
	ErrTooManyComponents = errors.New("too many version components")
	// ErrMissingComparator is returned when a requirement does not start with a comparator.
	ErrMissingComparator = errors.New("missing comparator in version requirement")
	// ErrMissingVersion is returned when a requirement has a comparator but no version.
	ErrMissingVersion = errors.New("missing version in version requirement")
	// ErrNoMatch is returned when a requirement string is empty.
	ErrNoMatch = errors.New("empty version requirement")
)

// ParseError describes a failure to parse a version or a version requirement.
// It wraps one of the package's sentinel errors.
type ParseError struct {
	// Input is the string that failed to parse.
	Input string
	// Kind is "version" or "requirement".
	Kind string
	// Err is the sentinel describing the failure.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Kind, e.Input, e.Err)
}

// Unwrap returns the underlying sentinel for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return e.Err }
