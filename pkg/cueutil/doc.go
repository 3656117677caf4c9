// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema and
// decodes them into Go values.
//
// Configuration files and modpacks share the same flow: the schema is
// compiled, the document is unified with one of its definitions, the result
// is validated and finally decoded.
//
//	//go:embed modpack_schema.cue
//	var schema []byte
//
//	pack, err := cueutil.Decode[File](schema, data, "#Modpack",
//	    cueutil.WithFilename("modpack.cue"))
//
// Validation failures are reported as a *SchemaError listing every offending
// field by its path, e.g. "mods[2].version".
package cueutil
