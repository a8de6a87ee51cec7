// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"

	"refit/pkg/types"
)

// LoadOptions controls where configuration is loaded from.
type LoadOptions struct {
	// ConfigFilePath, when set, names an explicit config file that is used
	// exclusively and must exist.
	ConfigFilePath types.FilesystemPath
	// ConfigDirPath overrides the platform config directory, used by tests.
	ConfigDirPath types.FilesystemPath
}

// Provider loads refit configuration.
type Provider interface {
	// Load resolves configuration from defaults, the config file, and
	// environment variables, in ascending precedence.
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
	// ResolvedPath reports the config file the last Load read, or "" when
	// only defaults and environment applied.
	ResolvedPath() string
}

// FileProvider is the default Provider backed by CUE config files.
type FileProvider struct {
	resolvedPath string
}

// NewFileProvider returns a Provider reading CUE config files.
func NewFileProvider() *FileProvider { return &FileProvider{} }

func (p *FileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, path, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	p.resolvedPath = path
	return cfg, nil
}

func (p *FileProvider) ResolvedPath() string { return p.resolvedPath }

// StaticProvider serves a fixed Config, used by tests.
type StaticProvider struct {
	Config *Config
}

func (p *StaticProvider) Load(_ context.Context, _ LoadOptions) (*Config, error) {
	if p.Config == nil {
		return DefaultConfig(), nil
	}
	return p.Config, nil
}

func (p *StaticProvider) ResolvedPath() string { return "" }
