// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"refit/internal/engine"
	"refit/internal/store"
	"refit/pkg/dataset"
	"refit/pkg/modelspec"

	"github.com/charmbracelet/log"
)

type (
	// Options configures a Pipeline. Store and Engine are required; both are
	// explicit dependencies so tests can run against a temporary root and a
	// recording engine.
	Options struct {
		Store  store.Store
		Engine engine.Engine

		// VerifySpec makes cached results answer only requests whose model
		// is compile-equivalent to the one that produced them. Disabling it
		// restores pure path-based keying, where a changed model silently
		// returns whatever sits under the artifact name.
		VerifySpec bool

		// RecompileOnBindError falls back to a full compile when a reused
		// compiled artifact rejects the dataset. Off by default: a bind
		// failure usually means a structural incompatibility the operator
		// should see, not mask.
		RecompileOnBindError bool

		// Logger receives decision-path output. Nil disables logging.
		Logger *log.Logger
	}

	// Pipeline turns fit requests into fit results while minimizing engine
	// calls: cached final results are returned as-is, cached prior-only
	// compiled artifacts short-circuit the compilation phase, and only the
	// remainder pays for a full compile-and-fit.
	Pipeline struct {
		store                store.Store
		engine               engine.Engine
		verifySpec           bool
		recompileOnBindError bool
		logger               *log.Logger
	}

	// FitRequest asks for a data-conditioned fit persisted under Name.
	FitRequest struct {
		// Spec is the model to fit (required).
		Spec *modelspec.ModelSpec
		// Data is the dataset to bind. May be nil for prior-predictive
		// fits where the sampler ignores the likelihood.
		Data *dataset.Table
		// Name is the artifact name for the final result (required).
		Name string
		// PriorSlot names the conventionally separate artifact slot
		// consulted for a reusable prior-only compiled representation.
		// Empty means no reuse slot is consulted.
		PriorSlot string
	}

	// CompileRequest asks for a prior-only compiled artifact persisted
	// under Name, populating the slot later FitRequests reuse.
	CompileRequest struct {
		Spec *modelspec.ModelSpec
		Name string
	}
)

// ErrStaleArtifact is the sentinel wrapped by StaleArtifactError.
var ErrStaleArtifact = errors.New("stale artifact")

// StaleArtifactError reports a cached artifact produced by a model that is
// not compile-equivalent to the requested one. The cache is keyed by name;
// the operator resolves this by removing the artifact or reverting the model.
type StaleArtifactError struct {
	// Name is the artifact name.
	Name string
	// WantKey is the requested model's cache key.
	WantKey string
	// GotKey is the key recorded when the artifact was produced.
	GotKey string
}

// Error implements the error interface.
func (e *StaleArtifactError) Error() string {
	return fmt.Sprintf("%v: %q was produced by model %.12s, requested model is %.12s (remove the artifact or revert the model)",
		ErrStaleArtifact, e.Name, e.GotKey, e.WantKey)
}

// Unwrap returns ErrStaleArtifact for errors.Is() compatibility.
func (e *StaleArtifactError) Unwrap() error { return ErrStaleArtifact }

// New creates a Pipeline from options.
func New(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline requires a store")
	}
	if opts.Engine == nil {
		return nil, errors.New("pipeline requires an engine")
	}
	return &Pipeline{
		store:                opts.Store,
		engine:               opts.Engine,
		verifySpec:           opts.VerifySpec,
		recompileOnBindError: opts.RecompileOnBindError,
		logger:               opts.Logger,
	}, nil
}

// Fit resolves a fit request in three stages, cheapest first:
//
//  1. A persisted fit under the requested name is loaded and returned with
//     no engine call.
//  2. Otherwise, a compile-equivalent prior-only artifact in the reuse slot
//     feeds BindAndFit, skipping compilation — the dominant cost.
//  3. Otherwise, CompileAndFit runs from scratch.
//
// Whatever the engine produces is persisted under the requested name before
// being returned. Engine failures persist nothing.
func (p *Pipeline) Fit(ctx context.Context, req FitRequest) (*engine.FitResult, error) {
	if err := validateFitRequest(req); err != nil {
		return nil, err
	}

	// Stage 1: final-result cache hit.
	cached, err := p.loadFit(req.Name, req.Spec)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		p.debugf("cache hit", "artifact", req.Name)
		return cached, nil
	}

	// Stage 2: reuse a prior-only compiled artifact.
	fit, err := p.fitViaReuse(ctx, req)
	if err != nil {
		return nil, err
	}

	// Stage 3: full compile-and-fit.
	if fit == nil {
		p.debugf("full compile", "artifact", req.Name)
		fit, err = p.engine.CompileAndFit(ctx, req.Spec, req.Data)
		if err != nil {
			return nil, err
		}
	}

	if err := p.persistFit(req.Name, fit, req.Data); err != nil {
		return nil, err
	}
	return fit, nil
}

// Compile produces and persists a prior-only compiled artifact. When the
// slot already holds a compile-equivalent artifact, it is returned without
// an engine call; the state is terminal until the operator removes the file.
func (p *Pipeline) Compile(ctx context.Context, req CompileRequest) (*engine.CompiledArtifact, error) {
	if req.Spec == nil {
		return nil, errors.New("compile request requires a model spec")
	}
	if req.Name == "" {
		return nil, errors.New("compile request requires an artifact name")
	}
	if err := req.Spec.Validate(); err != nil {
		return nil, err
	}

	compiled, err := p.loadCompiled(req.Name, req.Spec, true)
	if err != nil {
		return nil, err
	}
	if compiled != nil {
		p.debugf("compiled artifact already present", "artifact", req.Name)
		return compiled, nil
	}

	p.debugf("compiling", "artifact", req.Name)
	// A data-free compile is the prior-only slot. Mark the sampler so the
	// recorded artifact carries prior-predictive metadata; the copy keeps
	// the caller's spec and the cache key untouched.
	spec := req.Spec
	if !spec.Sampler.SampleFromPrior {
		marked := *spec
		marked.Sampler.SampleFromPrior = true
		spec = &marked
	}
	compiled, err = p.engine.CompileOnly(ctx, spec)
	if err != nil {
		return nil, err
	}

	a, err := store.NewCompiledArtifact(req.Name, compiled)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(req.Name, a); err != nil {
		return nil, err
	}
	return compiled, nil
}

// fitViaReuse attempts stage 2. It returns (nil, nil) when no usable
// prior-only artifact exists, handing the decision to stage 3.
func (p *Pipeline) fitViaReuse(ctx context.Context, req FitRequest) (*engine.FitResult, error) {
	if req.PriorSlot == "" {
		return nil, nil
	}

	compiled, err := p.loadCompiled(req.PriorSlot, req.Spec, false)
	if err != nil {
		return nil, err
	}
	if compiled == nil {
		return nil, nil
	}

	p.debugf("reusing compiled artifact", "artifact", req.Name, "slot", req.PriorSlot)
	fit, err := p.engine.BindAndFit(ctx, compiled, req.Data, req.Spec.Sampler)
	if err == nil {
		return fit, nil
	}

	if p.recompileOnBindError && errors.Is(err, engine.ErrBind) {
		p.warnf("bind failed, falling back to full compile", "slot", req.PriorSlot, "err", err)
		return nil, nil
	}
	return nil, err
}

// loadFit returns the persisted fit under name, nil when absent, and an
// error for corruption or a stale cache key.
func (p *Pipeline) loadFit(name string, spec *modelspec.ModelSpec) (*engine.FitResult, error) {
	a, err := p.store.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.Kind != store.KindFit {
		return nil, fmt.Errorf("artifact %q holds a %s payload where a fit was requested", name, a.Kind)
	}

	if p.verifySpec {
		if want := spec.CacheKey(); a.SpecKey != want {
			return nil, &StaleArtifactError{Name: name, WantKey: want, GotKey: a.SpecKey}
		}
	}
	return a.Fit()
}

// loadCompiled returns the compiled artifact under name, nil when absent.
// With verification on, a non-equivalent artifact is an error when
// failOnStale is set (explicit compile of a drifted slot) and silently
// treated as unavailable otherwise (reuse probing).
func (p *Pipeline) loadCompiled(name string, spec *modelspec.ModelSpec, failOnStale bool) (*engine.CompiledArtifact, error) {
	a, err := p.store.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.Kind != store.KindCompiled {
		return nil, fmt.Errorf("artifact %q holds a %s payload where a compiled representation was expected", name, a.Kind)
	}

	if p.verifySpec {
		if want := spec.CacheKey(); a.SpecKey != want {
			if failOnStale {
				return nil, &StaleArtifactError{Name: name, WantKey: want, GotKey: a.SpecKey}
			}
			p.debugf("slot holds a non-equivalent artifact, ignoring", "slot", name)
			return nil, nil
		}
	}
	return a.Compiled()
}

func (p *Pipeline) persistFit(name string, fit *engine.FitResult, data *dataset.Table) error {
	rows := 0
	if data != nil {
		rows = data.NumRows()
	}

	a, err := store.NewFitArtifact(name, fit, rows)
	if err != nil {
		return err
	}
	return p.store.Save(name, a)
}

func validateFitRequest(req FitRequest) error {
	if req.Spec == nil {
		return errors.New("fit request requires a model spec")
	}
	if req.Name == "" {
		return errors.New("fit request requires an artifact name")
	}
	return req.Spec.Validate()
}

func (p *Pipeline) debugf(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, kv...)
	}
}

func (p *Pipeline) warnf(msg string, kv ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, kv...)
	}
}
