// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"time"

	"refit/pkg/dataset"
	"refit/pkg/modelspec"
)

type (
	// CompiledArtifact is the opaque executable representation the engine
	// builds from a model without bound data. The blob's format belongs to
	// the engine; callers only store and return it.
	CompiledArtifact struct {
		// SpecKey is the cache key of the model that produced the blob.
		SpecKey string `json:"spec_key"`
		// EngineVersion is the engine that built the blob. Blobs are not
		// portable across engine versions.
		EngineVersion string `json:"engine_version"`
		// Sampler is the configuration the model carried at compile time.
		// For prior-only compiles it records SampleFromPrior, so a later
		// bind knows the slot was meant for prior-predictive draws.
		Sampler modelspec.SamplerConfig `json:"sampler"`
		// Blob is the engine-native compiled representation.
		Blob []byte `json:"blob"`
		// CreatedAt is when the compile finished.
		CreatedAt time.Time `json:"created_at"`
	}

	// Draw is one sampled parameter-value record, tagged with its chain.
	Draw struct {
		Chain     int                `json:"chain"`
		Iteration int                `json:"iteration"`
		Values    map[string]float64 `json:"values"`
	}

	// Diagnostics summarizes sampler convergence for one fit.
	Diagnostics struct {
		// Rhat is the split potential-scale-reduction per parameter.
		// Values near 1.0 indicate convergence.
		Rhat map[string]float64 `json:"rhat,omitempty"`
		// EssBulk is the bulk effective sample size per parameter.
		EssBulk map[string]float64 `json:"ess_bulk,omitempty"`
		// DivergentTransitions counts post-warmup divergences across chains.
		DivergentTransitions int `json:"divergent_transitions"`
	}

	// ParamSummary holds posterior summary statistics for one parameter.
	ParamSummary struct {
		Mean float64 `json:"mean"`
		SD   float64 `json:"sd"`
		Q5   float64 `json:"q5"`
		Q95  float64 `json:"q95"`
	}

	// FitResult is the engine's response to a fit request: draws plus
	// diagnostics and summaries. Immutable once persisted.
	FitResult struct {
		// RunID identifies this sampler invocation.
		RunID string `json:"run_id"`
		// SpecKey is the cache key of the requesting model.
		SpecKey string `json:"spec_key"`
		// EngineVersion is the engine that produced the draws.
		EngineVersion string `json:"engine_version"`
		// SampledAt is when sampling finished.
		SampledAt time.Time `json:"sampled_at"`
		// Chains is the number of chains that ran.
		Chains int `json:"chains"`
		// Draws holds one record per iteration per chain.
		Draws []Draw `json:"draws"`
		// Diagnostics summarizes convergence.
		Diagnostics Diagnostics `json:"diagnostics"`
		// Summary holds per-parameter posterior summaries.
		Summary map[string]ParamSummary `json:"summary,omitempty"`
	}
)

// Engine is the modeling-engine boundary. Implementations translate
// engine-native failures into CompileError, BindError, or FitError; they
// never cache — persistence is entirely the caller's job.
//
// All calls are synchronous: chain-level parallelism is internal to the
// engine, bounded by the sampler configuration's Cores field.
type Engine interface {
	// Version reports the engine's version string.
	Version(ctx context.Context) (string, error)

	// CompileOnly builds an executable sampler from the model without
	// binding data (a prior-only compile).
	CompileOnly(ctx context.Context, spec *modelspec.ModelSpec) (*CompiledArtifact, error)

	// CompileAndFit compiles the model and fits it to data in one call.
	CompileAndFit(ctx context.Context, spec *modelspec.ModelSpec, data *dataset.Table) (*FitResult, error)

	// BindAndFit binds data to an existing compiled artifact and fits,
	// skipping compilation. The sampler configuration comes from the
	// caller because the artifact predates it.
	BindAndFit(ctx context.Context, compiled *CompiledArtifact, data *dataset.Table, sampler modelspec.SamplerConfig) (*FitResult, error)
}
