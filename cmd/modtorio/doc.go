// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modtorio command tree. App is the composition
// root: it loads configuration, opens the store and builds the mods
// collection that each command operates on.
package cmd
