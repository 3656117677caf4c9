// SPDX-License-Identifier: MPL-2.0

// Package modpack reads declarative modpack files. A modpack lists the mods
// a server should run, optionally pinned to a version and optionally
// disabled, in either TOML (modpack.toml) or CUE (modpack.cue) form.
//
// A TOML modpack looks like:
//
//	[[mod]]
//	name = "Krastorio2"
//	version = "1.3.24"
//
//	[[mod]]
//	name = "even-distribution"
//	enabled = false
package modpack
