// SPDX-License-Identifier: MPL-2.0

package version

import (
	"fmt"
	"strings"
)

const (
	// GreaterOrEqual matches versions >= the requirement's version.
	GreaterOrEqual Comparator = iota + 1
	// Greater matches versions > the requirement's version.
	Greater
	// Equal matches only the requirement's exact version.
	Equal
	// Less matches versions < the requirement's version.
	Less
	// LessOrEqual matches versions <= the requirement's version.
	LessOrEqual
)

type (
	// Comparator is the relational operator of a Requirement.
	Comparator int

	// Requirement constrains a version with a comparator, e.g. ">= 0.18.0".
	Requirement struct {
		Comparator Comparator
		Version    Version
	}
)

// comparatorTokens lists comparator spellings, longest first so that ">="
// is never read as ">" followed by a stray "=".
var comparatorTokens = []struct {
	token string
	comp  Comparator
}{
	{">=", GreaterOrEqual},
	{"<=", LessOrEqual},
	{"==", Equal},
	{">", Greater},
	{"<", Less},
	{"=", Equal},
}

// String returns the comparator's canonical spelling.
func (c Comparator) String() string {
	switch c {
	case GreaterOrEqual:
		return ">="
	case Greater:
		return ">"
	case Equal:
		return "="
	case Less:
		return "<"
	case LessOrEqual:
		return "<="
	default:
		return fmt.Sprintf("Comparator(%d)", int(c))
	}
}

// ParseRequirement parses a requirement of the form `comparator ws* version`.
// Both "=" and "==" are accepted for equality.
func ParseRequirement(s string) (Requirement, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return Requirement{}, &ParseError{Input: s, Kind: "requirement", Err: ErrNoMatch}
	}

	comp, n := scanComparator(rest)
	if comp == 0 {
		return Requirement{}, &ParseError{Input: s, Kind: "requirement", Err: ErrMissingComparator}
	}

	rest = strings.TrimSpace(rest[n:])
	if rest == "" {
		return Requirement{}, &ParseError{Input: s, Kind: "requirement", Err: ErrMissingVersion}
	}

	v, err := Parse(rest)
	if err != nil {
		return Requirement{}, err
	}

	return Requirement{Comparator: comp, Version: v}, nil
}

// scanComparator returns the comparator at the start of s and its length in
// bytes, or (0, 0) if s does not start with one.
func scanComparator(s string) (Comparator, int) {
	for _, ct := range comparatorTokens {
		if strings.HasPrefix(s, ct.token) {
			return ct.comp, len(ct.token)
		}
	}
	return 0, 0
}

// Meets reports whether v satisfies req. An unknown comparator never matches.
func Meets(v Version, req Requirement) bool {
	c := v.Compare(req.Version)
	switch req.Comparator {
	case GreaterOrEqual:
		return c >= 0
	case Greater:
		return c > 0
	case Equal:
		return c == 0
	case Less:
		return c < 0
	case LessOrEqual:
		return c <= 0
	default:
		return false
	}
}

// String returns the requirement as "comparator version", e.g. ">= 0.18.0".
func (r Requirement) String() string {
	return r.Comparator.String() + " " + r.Version.String()
}

// MarshalText implements encoding.TextMarshaler.
func (r Requirement) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Requirement) UnmarshalText(text []byte) error {
	parsed, err := ParseRequirement(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
