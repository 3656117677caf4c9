// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize caps the size of a decoded document (5 MB).
const DefaultMaxFileSize int64 = 5 << 20

type (
	// Option configures Decode.
	Option func(*decodeOptions)

	decodeOptions struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

func newDecodeOptions(opts []Option) decodeOptions {
	o := decodeOptions{
		filename:    "<input>",
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *decodeOptions) {
		if name != "" {
			o.filename = name
		}
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *decodeOptions) { o.maxFileSize = n }
}

// WithConcrete controls whether every field must be concrete after
// unification. Documents whose schema leaves optional fields open pass
// false.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) { o.concrete = concrete }
}
