// SPDX-License-Identifier: MPL-2.0

// Package store persists modtorio's cache in SQLite: which mods each mods
// directory (host) held at the last reconciliation, and the registry metadata
// fetched for each mod.
package store
