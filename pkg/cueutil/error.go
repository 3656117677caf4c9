// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrInvalid is wrapped by every *SchemaError.
	ErrInvalid = errors.New("document does not match its schema")
	// ErrTooLarge is returned for documents above the size limit.
	ErrTooLarge = errors.New("document too large")
)

type (
	// SchemaError lists the problems CUE found in a document.
	SchemaError struct {
		File     string
		Problems []Problem
	}

	// Problem is one invalid field. Path is empty for document-level
	// problems such as syntax errors.
	Problem struct {
		Path    string
		Message string
	}
)

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", e.File, e.Problems[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problems:", e.File, len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  ")
		b.WriteString(p.String())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return ErrInvalid }

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// FormatError converts a CUE error into a *SchemaError naming file. Errors
// that did not come from CUE are wrapped with the file name.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}

	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", file, err)
	}

	se := &SchemaError{File: file}
	for _, e := range list {
		path := fieldPath(cueerrors.Path(e))
		format, args := e.Msg()
		se.Problems = append(se.Problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	return se
}

// fieldPath renders CUE path selectors as "mods[0].name".
func fieldPath(selectors []string) string {
	var b strings.Builder
	for i, s := range selectors {
		switch {
		case i > 0 && isIndex(s):
			b.WriteString("[" + s + "]")
		case i > 0:
			b.WriteString("." + s)
		default:
			b.WriteString(s)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
