// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by modtorio's tests: environment and
// filesystem helpers that fail the test on error, a controllable clock, and
// builders for Factorio mod archives.
package testutil
