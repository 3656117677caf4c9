// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Decoded is a successfully decoded document.
type Decoded[T any] struct {
	Value T
	// Unified is the document unified with its schema definition.
	Unified cue.Value
}

// Decode unifies data with the definition at path in schema, validates the
// result and decodes it into a T.
func Decode[T any](schema, data []byte, path string, opts ...Option) (*Decoded[T], error) {
	o := newDecodeOptions(opts)

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	cctx := cuecontext.New()

	schemaValue := cctx.CompileBytes(schema, cue.Filename("schema.cue"))
	if err := schemaValue.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	def := schemaValue.LookupPath(cue.ParsePath(path))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema has no definition %s: %w", path, err)
	}

	doc := cctx.CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out Decoded[T]
	if err := unified.Decode(&out.Value); err != nil {
		return nil, FormatError(err, o.filename)
	}
	out.Unified = unified
	return &out, nil
}

// CheckFileSize fails when data is larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: %w: %d bytes, limit %d", filename, ErrTooLarge, len(data), maxSize)
	}
	return nil
}
