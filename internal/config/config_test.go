// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"refit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	p := NewFileProvider()

	cfg, err := p.Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(t.TempDir()),
	})
	require.NoError(t, err)

	assert.Equal(t, "fits", cfg.Cache.Dir)
	assert.True(t, cfg.Cache.VerifySpec)
	assert.Equal(t, "refit-engine", cfg.Engine.Binary)
	assert.Equal(t, 4, cfg.Engine.Cores)
	assert.False(t, cfg.Pipeline.RecompileOnBindError)
	assert.False(t, cfg.Mirror.Enabled())
	assert.Empty(t, p.ResolvedPath())
}

func TestLoad_ReadsCUEFile(t *testing.T) {
	dir := t.TempDir()
	content := `
cache: {
	dir:         "/var/lib/refit"
	verify_spec: false
}
engine: {
	binary: "/opt/stan/engine"
	cores:  8
}
pipeline: recompile_on_bind_error: true
`
	cuePath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	require.NoError(t, os.WriteFile(cuePath, []byte(content), 0o644))

	p := NewFileProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(dir),
	})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/refit", cfg.Cache.Dir)
	assert.False(t, cfg.Cache.VerifySpec)
	assert.Equal(t, "/opt/stan/engine", cfg.Engine.Binary)
	assert.Equal(t, 8, cfg.Engine.Cores)
	assert.True(t, cfg.Pipeline.RecompileOnBindError)
	assert.Equal(t, cuePath, p.ResolvedPath())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `cache: dir: "elsewhere"`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), []byte(content), 0o644))

	p := NewFileProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(dir),
	})
	require.NoError(t, err)

	assert.Equal(t, "elsewhere", cfg.Cache.Dir)
	assert.Equal(t, "refit-engine", cfg.Engine.Binary)
	assert.True(t, cfg.Cache.VerifySpec)
}

func TestLoad_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	content := `engine: cores: "many"`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), []byte(content), 0o644))

	p := NewFileProvider()
	_, err := p.Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(dir),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.cores")
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	p := NewFileProvider()
	_, err := p.Load(context.Background(), LoadOptions{
		ConfigFilePath: types.FilesystemPath(filepath.Join(t.TempDir(), "missing.cue")),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REFIT_ENGINE_CORES", "16")
	t.Setenv("REFIT_CACHE_DIR", "/tmp/refit-cache")

	p := NewFileProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(t.TempDir()),
	})
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Engine.Cores)
	assert.Equal(t, "/tmp/refit-cache", cfg.Cache.Dir)
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewFileProvider()
	_, err := p.Load(ctx, LoadOptions{
		ConfigDirPath: types.FilesystemPath(t.TempDir()),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName+"."+ConfigFileExt),
		[]byte(GenerateCUE(DefaultConfig())), 0o644))

	p := NewFileProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(dir),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
