// SPDX-License-Identifier: MPL-2.0

// Package config loads modtorio's configuration using Viper with CUE as the
// file format.
//
// The file is looked up at the path given with --config, then at
// config.cue in the modtorio configuration directory, then at config.cue in
// the working directory. Without any file the defaults apply. Every key can
// be overridden from the environment with the MODTORIO_ prefix, e.g.
// MODTORIO_PORTAL_TOKEN. Files are validated against the #Config definition
// in config_schema.cue.
package config
