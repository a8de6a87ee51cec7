// SPDX-License-Identifier: MPL-2.0

package config

type (
	// Config holds all refit configuration.
	Config struct {
		// Cache configures the artifact cache.
		Cache CacheConfig `mapstructure:"cache"`
		// Engine configures the external sampler.
		Engine EngineConfig `mapstructure:"engine"`
		// Pipeline configures staged-fit behavior.
		Pipeline PipelineConfig `mapstructure:"pipeline"`
		// Mirror configures optional shared-storage cache distribution.
		Mirror MirrorConfig `mapstructure:"mirror"`
		// UI configures CLI output.
		UI UIConfig `mapstructure:"ui"`
	}

	// CacheConfig locates and polices the artifact cache.
	CacheConfig struct {
		// Dir is the cache root directory. Relative paths resolve against
		// the working directory, matching the convention of keeping fits
		// next to the analysis that produced them.
		Dir string `mapstructure:"dir"`
		// VerifySpec rejects cached results whose producing model is not
		// compile-equivalent to the requested one.
		VerifySpec bool `mapstructure:"verify_spec"`
	}

	// EngineConfig locates the sampler binary. Both fields are read once
	// at startup and treated as immutable for the run.
	EngineConfig struct {
		// Binary is the path to the engine executable.
		Binary string `mapstructure:"binary"`
		// Cores is the default parallelism degree handed to the engine
		// when a model's sampler configuration leaves it unset.
		Cores int `mapstructure:"cores"`
	}

	// PipelineConfig tunes the staged-fit decision logic.
	PipelineConfig struct {
		// RecompileOnBindError opts into falling back to a full compile
		// when a reused compiled artifact rejects the dataset.
		RecompileOnBindError bool `mapstructure:"recompile_on_bind_error"`
	}

	// MirrorConfig points at an S3-compatible object store holding a
	// shared copy of the cache. Disabled until both Endpoint and Bucket
	// are set.
	MirrorConfig struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		UseSSL    bool   `mapstructure:"use_ssl"`
	}

	// UIConfig configures CLI output.
	UIConfig struct {
		Verbose bool `mapstructure:"verbose"`
	}
)

// Enabled reports whether a mirror endpoint is configured.
func (m MirrorConfig) Enabled() bool { return m.Endpoint != "" && m.Bucket != "" }

// DefaultConfig returns the built-in defaults: a "fits" cache beside the
// analysis, spec verification on, fail-fast reuse, no mirror.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:        "fits",
			VerifySpec: true,
		},
		Engine: EngineConfig{
			Binary: "refit-engine",
			Cores:  4,
		},
		Mirror: MirrorConfig{
			Region: "us-east-1",
		},
	}
}
