// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into messages an operator can act on.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions; the issue catalog holds longer Markdown guides for the
// failures operators hit most, rendered for the terminal with glamour.
package issue
