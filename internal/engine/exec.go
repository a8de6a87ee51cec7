// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"refit/pkg/dataset"
	"refit/pkg/modelspec"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ExecEngine invokes an external sampler binary. Each operation is one
// subcommand ("compile", "fit", "bind") with a JSON request on stdin and a
// JSON response on stdout; stderr carries the engine's progress output.
//
// The call contract is synchronous and uncancellable from the engine's point
// of view: the context only kills the process, it does not ask the sampler
// to stop cleanly.
type ExecEngine struct {
	// Binary is the path to the engine executable.
	Binary string
	// Cores is the default parallelism degree applied when the sampler
	// configuration leaves Cores at 0.
	Cores int
	// Logger receives per-invocation debug output. Nil disables logging.
	Logger *log.Logger
}

// NewExecEngine creates an ExecEngine for the given binary path.
func NewExecEngine(binary string, cores int, logger *log.Logger) *ExecEngine {
	return &ExecEngine{Binary: binary, Cores: cores, Logger: logger}
}

type (
	// execRequest is the wire format written to the engine's stdin.
	execRequest struct {
		Model    *modelspec.ModelSpec     `json:"model,omitempty"`
		Compiled []byte                   `json:"compiled,omitempty"`
		Sampler  *modelspec.SamplerConfig `json:"sampler,omitempty"`
		Data     *execData                `json:"data,omitempty"`
	}

	execData struct {
		Columns []string   `json:"columns"`
		Records [][]string `json:"records"`
	}

	// execResponse is the wire format read from the engine's stdout.
	execResponse struct {
		OK          bool         `json:"ok"`
		Stage       string       `json:"stage,omitempty"` // compile | bind | fit
		Message     string       `json:"message,omitempty"`
		Compiled    []byte       `json:"compiled,omitempty"`
		Fit         *FitResult   `json:"fit,omitempty"`
		Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
	}
)

// Version runs "version" and returns the engine's trimmed stdout.
func (e *ExecEngine) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.Binary, "version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to query engine version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CompileOnly implements Engine.
func (e *ExecEngine) CompileOnly(ctx context.Context, spec *modelspec.ModelSpec) (*CompiledArtifact, error) {
	spec = e.applyDefaultCores(spec)
	resp, stderr, err := e.invoke(ctx, "compile", execRequest{Model: spec})
	if err != nil {
		return nil, &CompileError{Formula: spec.Formula.String(), Output: stderr, Cause: err}
	}
	if !resp.OK {
		return nil, &CompileError{Formula: spec.Formula.String(), Output: resp.Message}
	}

	version, err := e.Version(ctx)
	if err != nil {
		return nil, &CompileError{Formula: spec.Formula.String(), Cause: err}
	}

	return &CompiledArtifact{
		SpecKey:       spec.CacheKey(),
		EngineVersion: version,
		Sampler:       spec.Sampler,
		Blob:          resp.Compiled,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// CompileAndFit implements Engine.
func (e *ExecEngine) CompileAndFit(ctx context.Context, spec *modelspec.ModelSpec, data *dataset.Table) (*FitResult, error) {
	spec = e.applyDefaultCores(spec)
	req := execRequest{Model: spec, Data: toExecData(data)}
	resp, stderr, err := e.invoke(ctx, "fit", req)
	if err != nil {
		return nil, &CompileError{Formula: spec.Formula.String(), Output: stderr, Cause: err}
	}
	if !resp.OK {
		return nil, e.classifyFailure(resp, spec.CacheKey(), spec.Formula.String(), dataName(data))
	}
	return e.finishFit(ctx, resp.Fit, spec.CacheKey(), spec.Sampler.Chains)
}

// BindAndFit implements Engine.
func (e *ExecEngine) BindAndFit(ctx context.Context, compiled *CompiledArtifact, data *dataset.Table, sampler modelspec.SamplerConfig) (*FitResult, error) {
	if sampler.Cores == 0 {
		sampler.Cores = e.Cores
	}
	req := execRequest{Compiled: compiled.Blob, Sampler: &sampler, Data: toExecData(data)}
	resp, stderr, err := e.invoke(ctx, "bind", req)
	if err != nil {
		return nil, &BindError{SpecKey: compiled.SpecKey, Dataset: dataName(data), Output: stderr, Cause: err}
	}
	if !resp.OK {
		return nil, e.classifyFailure(resp, compiled.SpecKey, "", dataName(data))
	}
	return e.finishFit(ctx, resp.Fit, compiled.SpecKey, sampler.Chains)
}

// invoke runs one engine subcommand. A non-zero exit with a decodable
// response is a structured failure, reported via the response; anything
// else is an invocation error with captured stderr.
func (e *ExecEngine) invoke(ctx context.Context, op string, req execRequest) (*execResponse, string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode engine request: %w", err)
	}

	if e.Logger != nil {
		e.Logger.Debug("invoking engine", "op", op, "binary", e.Binary)
	}

	cmd := exec.CommandContext(ctx, e.Binary, op)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var resp execResponse
	if decErr := json.Unmarshal(stdout.Bytes(), &resp); decErr == nil && (resp.OK || resp.Stage != "" || resp.Message != "") {
		return &resp, strings.TrimSpace(stderr.String()), nil
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return nil, strings.TrimSpace(stderr.String()),
				fmt.Errorf("engine %s exited with code %d", op, exitErr.ExitCode())
		}
		return nil, strings.TrimSpace(stderr.String()),
			fmt.Errorf("failed to run engine: %w", runErr)
	}

	return nil, strings.TrimSpace(stderr.String()),
		fmt.Errorf("engine %s produced no parseable response", op)
}

// classifyFailure maps a structured engine failure onto the tagged error
// kinds by stage.
func (e *ExecEngine) classifyFailure(resp *execResponse, specKey, formula, data string) error {
	switch resp.Stage {
	case "compile":
		return &CompileError{Formula: formula, Output: resp.Message}
	case "bind":
		return &BindError{SpecKey: specKey, Dataset: data, Output: resp.Message}
	default:
		return &FitError{Diagnostics: resp.Diagnostics, Output: resp.Message}
	}
}

// finishFit fills fields the engine is allowed to omit.
func (e *ExecEngine) finishFit(ctx context.Context, fit *FitResult, specKey string, chains int) (*FitResult, error) {
	if fit == nil {
		return nil, &FitError{Output: "engine reported success without a fit result"}
	}
	if fit.RunID == "" {
		fit.RunID = uuid.NewString()
	}
	if fit.SpecKey == "" {
		fit.SpecKey = specKey
	}
	if fit.EngineVersion == "" {
		version, err := e.Version(ctx)
		if err != nil {
			return nil, &FitError{Output: "engine returned a fit but its version could not be determined", Cause: err}
		}
		fit.EngineVersion = version
	}
	if fit.Chains == 0 {
		fit.Chains = chains
	}
	if fit.SampledAt.IsZero() {
		fit.SampledAt = time.Now().UTC()
	}
	return fit, nil
}

// applyDefaultCores returns spec with the engine's default core count applied
// when the sampler configuration leaves Cores at 0. The caller's spec is never
// mutated; a shallow copy keeps the cache key untouched since sampler settings
// are excluded from it.
func (e *ExecEngine) applyDefaultCores(spec *modelspec.ModelSpec) *modelspec.ModelSpec {
	if spec == nil || spec.Sampler.Cores != 0 || e.Cores == 0 {
		return spec
	}
	out := *spec
	out.Sampler.Cores = e.Cores
	return &out
}

func toExecData(t *dataset.Table) *execData {
	if t == nil {
		return nil
	}
	return &execData{Columns: t.Columns, Records: t.Records}
}

func dataName(t *dataset.Table) string {
	if t == nil {
		return ""
	}
	return t.Name
}
