// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"strings"

	"github.com/Spanfile/Modtorio-sub000/pkg/version"
)

// comparatorChars may not appear in a mod name; the first one starts the
// version requirement.
const comparatorChars = "<>="

// Parse parses a dependency declaration.
//
// The grammar is:
//
//	declaration = ws* [prefix ws*] name [ws* requirement] ws*
//	prefix      = "?" | "!" | "(?)" | "~"
//	name        = 1*(any char except '<', '>', '=')
//
// The "~" prefix marks a mandatory dependency that does not affect load order;
// it parses as Mandatory. Surrounding whitespace of the name is trimmed.
func Parse(s string) (Dependency, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return Dependency{}, &ParseError{Input: s, Err: ErrNoCaptures}
	}

	kind, n, err := scanPrefix(rest)
	if err != nil {
		return Dependency{}, &ParseError{Input: s, Err: ErrInvalidRequirement, Cause: err}
	}
	rest = strings.TrimLeft(rest[n:], " \t")

	name, rest := scanName(rest)
	if name == "" {
		return Dependency{}, &ParseError{Input: s, Err: ErrNameNotCaptured}
	}

	dep := Dependency{Kind: kind, Name: name}
	if rest != "" {
		req, err := version.ParseRequirement(rest)
		if err != nil {
			return Dependency{}, &ParseError{Input: s, Err: ErrInvalidRequirement, Cause: err}
		}
		dep.Version = &req
	}

	return dep, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Dependency {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseAll parses every declaration, stopping at the first failure.
func ParseAll(decls []string) ([]Dependency, error) {
	deps := make([]Dependency, 0, len(decls))
	for _, decl := range decls {
		d, err := Parse(decl)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

// scanPrefix reads an optional kind prefix and returns the kind and the number
// of bytes consumed. A '(' that does not open "(?)" is an invalid prefix.
func scanPrefix(s string) (Kind, int, error) {
	switch {
	case strings.HasPrefix(s, "(?)"):
		return OptionalHidden, 3, nil
	case s[0] == '(':
		end := strings.IndexByte(s, ')')
		if end < 0 {
			end = len(s) - 1
		}
		_, err := ParseKind(s[:end+1])
		return 0, 0, err
	case s[0] == '?':
		return Optional, 1, nil
	case s[0] == '!':
		return Incompatible, 1, nil
	case s[0] == '~':
		return Mandatory, 1, nil
	default:
		return Mandatory, 0, nil
	}
}

// scanName reads up to the first comparator character and returns the trimmed
// name and the unread remainder.
func scanName(s string) (string, string) {
	end := strings.IndexAny(s, comparatorChars)
	if end < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:end]), s[end:]
}
