// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"refit/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "refit"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// envPrefix namespaces environment overrides (REFIT_ENGINE_BINARY etc).
	envPrefix = "REFIT"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the refit configuration directory using
// platform-specific conventions: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_CONFIG_HOME (defaulting to
// ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading. Precedence, lowest
// first: built-in defaults, config file, REFIT_* environment variables.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.verify_spec", defaults.Cache.VerifySpec)
	v.SetDefault("engine.binary", defaults.Engine.Binary)
	v.SetDefault("engine.cores", defaults.Engine.Cores)
	v.SetDefault("pipeline.recompile_on_bind_error", defaults.Pipeline.RecompileOnBindError)
	v.SetDefault("mirror.endpoint", defaults.Mirror.Endpoint)
	v.SetDefault("mirror.region", defaults.Mirror.Region)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	switch {
	case opts.ConfigFilePath != "":
		// An explicit config file is used exclusively and must exist.
		if !fileExists(opts.ConfigFilePath.String()) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath.String()); err != nil {
			return nil, "", err
		}
		resolvedPath = opts.ConfigFilePath.String()

	default:
		cfgDir := opts.ConfigDirPath.String()
		if cfgDir == "" {
			var err error
			cfgDir, err = ConfigDir()
			if err != nil {
				return nil, "", err
			}
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		localPath := ConfigFileName + "." + ConfigFileExt

		switch {
		case fileExists(cuePath):
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", err
			}
			resolvedPath = cuePath
		case fileExists(localPath):
			if err := loadCUEIntoViper(v, localPath); err != nil {
				return nil, "", err
			}
			resolvedPath = localPath
		}
		// No config file found: defaults plus env, no error.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper.
//
// This does not use cueutil.ParseAndDecode because the result must land in
// a map for Viper's layered merge, not a struct, and config fields are
// optional so validation runs non-concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders the configuration as a CUE document, used by
// "refit config init" and "refit config show".
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// refit configuration file.\n\n")

	sb.WriteString("cache: {\n")
	sb.WriteString(fmt.Sprintf("\tdir:         %q\n", cfg.Cache.Dir))
	sb.WriteString(fmt.Sprintf("\tverify_spec: %v\n", cfg.Cache.VerifySpec))
	sb.WriteString("}\n\n")

	sb.WriteString("engine: {\n")
	sb.WriteString(fmt.Sprintf("\tbinary: %q\n", cfg.Engine.Binary))
	sb.WriteString(fmt.Sprintf("\tcores:  %d\n", cfg.Engine.Cores))
	sb.WriteString("}\n\n")

	sb.WriteString("pipeline: {\n")
	sb.WriteString(fmt.Sprintf("\trecompile_on_bind_error: %v\n", cfg.Pipeline.RecompileOnBindError))
	sb.WriteString("}\n")

	if cfg.Mirror.Enabled() {
		sb.WriteString("\nmirror: {\n")
		sb.WriteString(fmt.Sprintf("\tendpoint:   %q\n", cfg.Mirror.Endpoint))
		sb.WriteString(fmt.Sprintf("\taccess_key: %q\n", cfg.Mirror.AccessKey))
		sb.WriteString(fmt.Sprintf("\tsecret_key: %q\n", cfg.Mirror.SecretKey))
		sb.WriteString(fmt.Sprintf("\tbucket:     %q\n", cfg.Mirror.Bucket))
		sb.WriteString(fmt.Sprintf("\tregion:     %q\n", cfg.Mirror.Region))
		sb.WriteString(fmt.Sprintf("\tuse_ssl:    %v\n", cfg.Mirror.UseSSL))
		sb.WriteString("}\n")
	}

	return sb.String()
}

// CreateDefaultConfig writes a default config file unless one exists.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}
