// SPDX-License-Identifier: MPL-2.0

// Package version implements the lenient three-component version numbers used by
// mod manifests and the mod registry, along with comparator-based requirements
// such as ">= 0.18.0".
//
// Versions are written as major[.minor[.patch]]. Missing trailing components
// default to zero and leading zeros are accepted, so "01.2" parses to 1.2.0.
// Ordering is numeric per component, never lexicographic.
package version
