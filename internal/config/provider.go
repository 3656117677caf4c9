// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider reading CUE files and the
// environment.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads and validates the configuration.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}
