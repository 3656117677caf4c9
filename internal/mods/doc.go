// SPDX-License-Identifier: MPL-2.0

// Package mods reconciles the mods installed on a Factorio server.
//
// A Mod gathers what is known about one mod from up to three sources: its
// archive on disk, the mod portal, and the local cache. A Builder turns a mods
// directory (and, for a known host, its cached records) into a Mods
// collection, loading archives concurrently and merging them so that the
// highest version of each mod survives. The collection then checks
// dependencies, installs what is missing, and refreshes and applies updates,
// either one mod at a time or batched through an UpdateBatcher.
package mods
