// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// WorkDir is where ./config.cue is looked up. Empty means the process
	// working directory.
	WorkDir string
	// LookupEnv, when set, replaces the process environment for MODRT_*
	// overrides.
	LookupEnv func(key string) (string, bool)
}

// Provider loads configuration from explicit options.
type Provider interface {
	// Load returns the configuration and the config file it was read from,
	// "" when only defaults and the environment applied.
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}
