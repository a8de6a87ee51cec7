// SPDX-License-Identifier: MPL-2.0

// Package store persists serialized computation artifacts to a filesystem
// cache: one file per logical artifact name under a single root, no index or
// manifest. Existence is filesystem presence. The store assumes a single
// writer per name; no locking is implemented and none should be assumed.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when no artifact exists under a name.
// Callers of Exists never see it; callers of Load must handle it.
var ErrNotFound = errors.New("artifact not found")

// ErrCorruptArtifact is the sentinel wrapped by CorruptArtifactError.
// Corruption is fatal and never auto-repaired; the operator deletes the
// file and reruns.
var ErrCorruptArtifact = errors.New("corrupt artifact")

// Store is the persistence facade the pipeline depends on. The filesystem
// implementation is FSStore; tests substitute their own.
type Store interface {
	// Exists reports whether an artifact is persisted under name.
	Exists(name string) bool

	// Load reads and decodes the artifact under name. Returns ErrNotFound
	// when absent, a CorruptArtifactError when decoding fails.
	Load(name string) (*Artifact, error)

	// Save atomically persists the artifact under name, creating parent
	// directories as needed and silently overwriting an existing file.
	Save(name string, a *Artifact) error
}

// CorruptArtifactError reports an artifact that exists but cannot be
// decoded, or whose payload fails its checksum.
type CorruptArtifactError struct {
	// Name is the logical artifact name.
	Name string
	// Path is the file that failed.
	Path string
	// Cause is the decode or checksum failure.
	Cause error
}

// Error implements the error interface.
func (e *CorruptArtifactError) Error() string {
	return fmt.Sprintf("%v: %s (%s): %v", ErrCorruptArtifact, e.Name, e.Path, e.Cause)
}

// Unwrap returns ErrCorruptArtifact plus the cause for errors.Is/As chains.
func (e *CorruptArtifactError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCorruptArtifact, e.Cause}
	}
	return []error{ErrCorruptArtifact}
}
