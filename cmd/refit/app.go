// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"refit/internal/config"
	"refit/internal/engine"
	"refit/internal/mirror"
	"refit/internal/pipeline"
	"refit/internal/store"
	"refit/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer — all Cobra command handlers obtain their
	// collaborators (config, store, pipeline, mirror) through an App.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		cfg    *config.Config
		logger *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp. Tests supply
	// a StaticProvider and buffers to isolate command behavior.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewFileProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// app is the production App used by the Cobra handlers. Tests swap it out.
var app = NewApp(Dependencies{})

// loadConfig resolves configuration once per invocation, honoring the
// --config flag. A load failure degrades to defaults with a warning so
// read-only commands like "cache list" stay usable with a broken config
// file.
func (a *App) loadConfig(ctx context.Context) *config.Config {
	if a.cfg != nil {
		return a.cfg
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(cfgFile),
	})
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		cfg = config.DefaultConfig()
	}

	if !verbose {
		verbose = cfg.UI.Verbose
	}

	a.cfg = cfg
	return cfg
}

// logLogger builds the structured logger shared by the engine and pipeline.
func (a *App) logLogger() *log.Logger {
	if a.logger != nil {
		return a.logger
	}

	logger := log.NewWithOptions(a.stderr, log.Options{
		ReportTimestamp: false,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	a.logger = logger
	return logger
}

// openStore opens the artifact cache named by the configuration.
func (a *App) openStore(cfg *config.Config) *store.FSStore {
	return store.NewFSStore(cfg.Cache.Dir)
}

// newPipeline assembles the fit pipeline from configuration.
func (a *App) newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	eng := engine.NewExecEngine(cfg.Engine.Binary, cfg.Engine.Cores, a.logLogger())

	return pipeline.New(pipeline.Options{
		Store:                a.openStore(cfg),
		Engine:               eng,
		VerifySpec:           cfg.Cache.VerifySpec,
		RecompileOnBindError: cfg.Pipeline.RecompileOnBindError,
		Logger:               a.logLogger(),
	})
}

// newMirror assembles the cache mirror from configuration.
func (a *App) newMirror(cfg *config.Config) (*mirror.Mirror, error) {
	return mirror.New(cfg.Mirror, a.openStore(cfg), a.logLogger())
}
