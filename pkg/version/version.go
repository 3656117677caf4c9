// SPDX-License-Identifier: MPL-2.0

package version

import (
	"cmp"
	"strconv"
	"strings"
)

// maxComponents is the number of dot-separated components in a version.
const maxComponents = 3

// Version is a major.minor.patch version number.
// The zero value is 0.0.0.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// New returns the version major.minor.patch.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a version of the form major[.minor[.patch]].
func Parse(s string) (Version, error) {
	var components [maxComponents]uint64

	rest := s
	for i := 0; ; i++ {
		if i == maxComponents {
			return Version{}, &ParseError{Input: s, Kind: "version", Err: ErrTooManyComponents}
		}

		part, tail, more := strings.Cut(rest, ".")
		n, err := parseComponent(part)
		if err != nil {
			return Version{}, &ParseError{Input: s, Kind: "version", Err: err}
		}
		components[i] = n

		if !more {
			break
		}
		rest = tail
	}

	return Version{Major: components[0], Minor: components[1], Patch: components[2]}, nil
}

// MustParse is like Parse but panics on malformed input.
// It is intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseComponent parses one decimal component. Only ASCII digits are accepted,
// so signs and whitespace are rejected rather than silently tolerated.
func parseComponent(part string) (uint64, error) {
	if part == "" {
		return 0, ErrMissingComponent
	}
	for i := range len(part) {
		if part[i] < '0' || part[i] > '9' {
			return 0, ErrNotANumber
		}
	}
	n, err := strconv.ParseUint(part, 10, 64)
	if err != nil {
		// Only reachable on overflow.
		return 0, ErrNotANumber
	}
	return n, nil
}

// String returns the normalized "major.minor.patch" form.
func (v Version) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(v.Major, 10))
	sb.WriteByte('.')
	sb.WriteString(strconv.FormatUint(v.Minor, 10))
	sb.WriteByte('.')
	sb.WriteString(strconv.FormatUint(v.Patch, 10))
	return sb.String()
}

// Compare returns -1, 0 or +1 depending on whether v is less than, equal to,
// or greater than other.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, other.Patch)
}

// Less reports whether v orders before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Meets reports whether v satisfies req.
func (v Version) Meets(req Requirement) bool {
	return Meets(v, req)
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
