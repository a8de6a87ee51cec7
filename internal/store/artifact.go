// SPDX-License-Identifier: MPL-2.0

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"refit/internal/engine"
)

// Kind tags what an artifact envelope carries.
type Kind string

const (
	// KindCompiled marks a prior-only compiled representation.
	KindCompiled Kind = "compiled"
	// KindFit marks a data-conditioned fit result.
	KindFit Kind = "fit"
)

// envelopeVersion is bumped when the on-disk layout changes shape.
const envelopeVersion = 1

// Artifact is the on-disk envelope around a serialized computation result.
// The payload is opaque JSON; SpecKey records which model identity produced
// it so stale results can be detected on load, and Checksum guards the
// payload against partial or mangled files.
type Artifact struct {
	// Version is the envelope schema version.
	Version int `json:"version"`
	// Kind says whether the payload is a compiled artifact or a fit.
	Kind Kind `json:"kind"`
	// Name is the logical artifact name the envelope was saved under.
	Name string `json:"name"`
	// SpecKey is the producing model's cache key.
	SpecKey string `json:"spec_key"`
	// EngineVersion is the engine that produced the payload.
	EngineVersion string `json:"engine_version,omitempty"`
	// DatasetRows records the bound dataset's size for fit artifacts
	// (0 for prior-only artifacts). Informational only: data does not
	// participate in cache identity.
	DatasetRows int `json:"dataset_rows,omitempty"`
	// CreatedAt is when the payload was produced.
	CreatedAt time.Time `json:"created_at"`
	// Checksum is the hex sha256 of Payload.
	Checksum string `json:"checksum"`
	// Payload is the serialized result.
	Payload json.RawMessage `json:"payload"`
}

// NewCompiledArtifact wraps a compiled representation for persistence.
func NewCompiledArtifact(name string, c *engine.CompiledArtifact) (*Artifact, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode compiled artifact: %w", err)
	}
	return &Artifact{
		Version:       envelopeVersion,
		Kind:          KindCompiled,
		Name:          name,
		SpecKey:       c.SpecKey,
		EngineVersion: c.EngineVersion,
		CreatedAt:     c.CreatedAt,
		Checksum:      checksum(payload),
		Payload:       payload,
	}, nil
}

// NewFitArtifact wraps a fit result for persistence. datasetRows is the
// bound table's row count.
func NewFitArtifact(name string, fit *engine.FitResult, datasetRows int) (*Artifact, error) {
	payload, err := json.Marshal(fit)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fit result: %w", err)
	}
	return &Artifact{
		Version:       envelopeVersion,
		Kind:          KindFit,
		Name:          name,
		SpecKey:       fit.SpecKey,
		EngineVersion: fit.EngineVersion,
		DatasetRows:   datasetRows,
		CreatedAt:     fit.SampledAt,
		Checksum:      checksum(payload),
		Payload:       payload,
	}, nil
}

// Compiled decodes the payload as a compiled representation.
func (a *Artifact) Compiled() (*engine.CompiledArtifact, error) {
	if a.Kind != KindCompiled {
		return nil, fmt.Errorf("artifact %q holds a %s payload, not a compiled representation", a.Name, a.Kind)
	}
	var c engine.CompiledArtifact
	if err := json.Unmarshal(a.Payload, &c); err != nil {
		return nil, fmt.Errorf("failed to decode compiled artifact %q: %w", a.Name, err)
	}
	return &c, nil
}

// Fit decodes the payload as a fit result.
func (a *Artifact) Fit() (*engine.FitResult, error) {
	if a.Kind != KindFit {
		return nil, fmt.Errorf("artifact %q holds a %s payload, not a fit result", a.Name, a.Kind)
	}
	var fit engine.FitResult
	if err := json.Unmarshal(a.Payload, &fit); err != nil {
		return nil, fmt.Errorf("failed to decode fit result %q: %w", a.Name, err)
	}
	return &fit, nil
}

// verifyChecksum returns the checksum mismatch, if any.
func (a *Artifact) verifyChecksum() error {
	if got := checksum(a.Payload); got != a.Checksum {
		return fmt.Errorf("payload checksum %s does not match recorded %s", got, a.Checksum)
	}
	return nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
