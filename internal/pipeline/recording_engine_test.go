// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"sync"
	"time"

	"refit/internal/engine"
	"refit/pkg/dataset"
	"refit/pkg/modelspec"
)

// RecordingEngine implements engine.Engine for testing. It records every
// call and returns configured results without an external process.
type RecordingEngine struct {
	mu sync.Mutex

	// Configuration
	compileResult *engine.CompiledArtifact
	fitResult     *engine.FitResult
	compileErr    error
	compileFitErr error
	bindFitErr    error

	// Call recording
	CompileOnlyCalls   int
	CompileAndFitCalls int
	BindAndFitCalls    []engine.CompiledArtifact
}

// NewRecordingEngine creates a RecordingEngine that succeeds by default.
func NewRecordingEngine() *RecordingEngine {
	return &RecordingEngine{
		compileResult: &engine.CompiledArtifact{
			EngineVersion: "test-engine 1.0",
			Blob:          []byte("compiled-blob"),
			CreatedAt:     time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		},
		fitResult: &engine.FitResult{
			RunID:         "run-test",
			EngineVersion: "test-engine 1.0",
			SampledAt:     time.Date(2026, 8, 1, 9, 5, 0, 0, time.UTC),
			Chains:        4,
			Draws: []engine.Draw{
				{Chain: 1, Iteration: 1, Values: map[string]float64{"b_attention": 0.3}},
			},
		},
	}
}

// Version implements engine.Engine.
func (e *RecordingEngine) Version(context.Context) (string, error) {
	return "test-engine 1.0", nil
}

// CompileOnly implements engine.Engine.
func (e *RecordingEngine) CompileOnly(_ context.Context, spec *modelspec.ModelSpec) (*engine.CompiledArtifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CompileOnlyCalls++
	if e.compileErr != nil {
		return nil, e.compileErr
	}
	out := *e.compileResult
	out.SpecKey = spec.CacheKey()
	out.Sampler = spec.Sampler
	return &out, nil
}

// CompileAndFit implements engine.Engine.
func (e *RecordingEngine) CompileAndFit(_ context.Context, spec *modelspec.ModelSpec, _ *dataset.Table) (*engine.FitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CompileAndFitCalls++
	if e.compileFitErr != nil {
		return nil, e.compileFitErr
	}
	out := *e.fitResult
	out.SpecKey = spec.CacheKey()
	return &out, nil
}

// BindAndFit implements engine.Engine.
func (e *RecordingEngine) BindAndFit(_ context.Context, compiled *engine.CompiledArtifact, _ *dataset.Table, sampler modelspec.SamplerConfig) (*engine.FitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.BindAndFitCalls = append(e.BindAndFitCalls, *compiled)
	if e.bindFitErr != nil {
		return nil, e.bindFitErr
	}
	out := *e.fitResult
	out.SpecKey = compiled.SpecKey
	out.Chains = sampler.Chains
	return &out, nil
}

// EngineCalls returns the total number of engine invocations.
func (e *RecordingEngine) EngineCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.CompileOnlyCalls + e.CompileAndFitCalls + len(e.BindAndFitCalls)
}
