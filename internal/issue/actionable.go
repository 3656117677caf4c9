// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a user-facing error naming what failed, on which
	// resource, and what to try next. Build one with NewErrorContext:
	//
	//	return issue.NewErrorContext().
	//		WithOperation("download mod").
	//		WithResource("Krastorio2").
	//		WithSuggestion("Set portal.username and portal.token").
	//		WithIssue(PortalCredentialsMissingId).
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "load configuration".
		Operation string
		// Resource is the file, directory or mod involved. Optional.
		Resource string
		// Suggestions are remediation hints. Optional.
		Suggestions []string
		// Issue links a guide from the catalog. Zero means none.
		Issue Id
		// Cause is the underlying error.
		Cause error
	}

	// ErrorContext incrementally builds an ActionableError.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation wraps err with an operation and no suggestions.
func WrapWithOperation(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// Error returns "failed to <operation>: <resource>: <cause>".
func (e *ActionableError) Error() string {
	var b strings.Builder

	b.WriteString("failed to ")
	b.WriteString(e.Operation)
	if e.Resource != "" {
		b.WriteString(": ")
		b.WriteString(e.Resource)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error with its suggestions as bullets. Verbose output
// adds the numbered chain of wrapped errors.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder

	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err)
			depth++
		}
	}

	return b.String()
}

// HasSuggestions reports whether any suggestion is attached.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// WithOperation sets the failed operation.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a suggestion.
func (c *ErrorContext) WithSuggestion(s string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s)
	return c
}

// WithSuggestions appends several suggestions.
func (c *ErrorContext) WithSuggestions(s ...string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, s...)
	return c
}

// WithIssue links a catalog guide.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// Wrap sets the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns the error, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	out := c.err
	out.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &out
}

// BuildError is Build returning the error interface, keeping a nil result
// a nil interface.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
