// SPDX-License-Identifier: MPL-2.0

// Package dependency parses the dependency declarations found in mod manifests
// and registry release metadata.
//
// A declaration has an optional kind prefix, a mod name and an optional version
// requirement:
//
//	base >= 0.18.0       mandatory, with a requirement
//	? optional-mod       optional
//	(?) hidden-mod       optional, hidden in the game's UI
//	! broken-mod         incompatible
//
// Parsing is done by a small hand-written tokenizer; see Parse.
package dependency
