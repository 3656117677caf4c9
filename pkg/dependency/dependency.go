// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// BaseMod is the name of the game's built-in mod. It is always present and is
// never checked as a dependency.
const BaseMod = "base"

const (
	// Mandatory dependencies must be installed (the default).
	Mandatory Kind = iota
	// Optional dependencies are used when present.
	Optional
	// OptionalHidden dependencies are optional and hidden in the game's mod UI.
	OptionalHidden
	// Incompatible dependencies must not be installed.
	Incompatible
)

var (
	// ErrNoCaptures is returned when the declaration contains nothing to parse.
	ErrNoCaptures = errors.New("empty dependency declaration")
	// ErrNameNotCaptured is returned when no mod name could be read.
	ErrNameNotCaptured = errors.New("dependency declaration has no mod name")
	// ErrInvalidRequirement is returned for an unknown kind prefix or a malformed
	// version requirement.
	ErrInvalidRequirement = errors.New("invalid dependency requirement")
)

type (
	// Kind classifies how a dependency affects the dependent mod.
	Kind int

	// Dependency is a single parsed dependency declaration.
	Dependency struct {
		Kind Kind
		Name string
		// Version is nil when the declaration has no version requirement.
		Version *version.Requirement
	}

	// ParseError describes a malformed declaration. It wraps one of the
	// package's sentinel errors and, for requirement failures, the underlying
	// version error as well.
	ParseError struct {
		Input string
		Err   error
		Cause error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid dependency %q: %v: %v", e.Input, e.Err, e.Cause)
	}
	return fmt.Sprintf("invalid dependency %q: %v", e.Input, e.Err)
}

// Unwrap returns the sentinel and the cause for errors.Is() compatibility.
func (e *ParseError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// String returns the kind's declaration prefix. Mandatory has none.
func (k Kind) String() string {
	switch k {
	case Optional:
		return "?"
	case OptionalHidden:
		return "(?)"
	case Incompatible:
		return "!"
	default:
		return ""
	}
}

// ParseKind parses a declaration prefix as written by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "":
		return Mandatory, nil
	case "?":
		return Optional, nil
	case "(?)":
		return OptionalHidden, nil
	case "!":
		return Incompatible, nil
	default:
		return 0, &ParseError{Input: s, Err: ErrInvalidRequirement}
	}
}

// Name returns a human-readable name for the kind.
func (k Kind) Name() string {
	switch k {
	case Mandatory:
		return "mandatory"
	case Optional:
		return "optional"
	case OptionalHidden:
		return "optional (hidden)"
	case Incompatible:
		return "incompatible"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsOptional reports whether the dependency never affects dependency checks.
func (d Dependency) IsOptional() bool {
	return d.Kind == Optional || d.Kind == OptionalHidden
}

// IsBase reports whether the dependency names the built-in base mod.
func (d Dependency) IsBase() bool {
	return d.Name == BaseMod
}

// String renders the declaration in canonical form. Parsing the result yields
// a Dependency equal to d.
func (d Dependency) String() string {
	var sb strings.Builder
	if prefix := d.Kind.String(); prefix != "" {
		sb.WriteString(prefix)
		sb.WriteByte(' ')
	}
	sb.WriteString(d.Name)
	if d.Version != nil {
		sb.WriteByte(' ')
		sb.WriteString(d.Version.String())
	}
	return sb.String()
}

// Equal reports whether two dependencies declare the same thing.
func (d Dependency) Equal(other Dependency) bool {
	if d.Kind != other.Kind || d.Name != other.Name {
		return false
	}
	if d.Version == nil || other.Version == nil {
		return d.Version == nil && other.Version == nil
	}
	return *d.Version == *other.Version
}

// MarshalText implements encoding.TextMarshaler.
func (d Dependency) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so manifests can decode
// their string arrays straight into []Dependency.
func (d *Dependency) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
