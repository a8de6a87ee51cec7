// SPDX-License-Identifier: MPL-2.0

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// artifactExt is the on-disk file extension for artifact envelopes.
const artifactExt = ".json"

// FSStore is the filesystem Store. The root directory is an explicit
// dependency: construct one per cache location (tests pass t.TempDir()).
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir. The directory is created lazily
// on first Save.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

// Root returns the cache root directory.
func (s *FSStore) Root() string { return s.root }

// Path returns the file an artifact name maps to.
func (s *FSStore) Path(name string) string {
	return filepath.Join(s.root, name+artifactExt)
}

// Exists implements Store.
func (s *FSStore) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Load implements Store.
func (s *FSStore) Load(name string) (*Artifact, error) {
	path := s.Path(name)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %q: %w", name, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &CorruptArtifactError{Name: name, Path: path, Cause: err}
	}
	if err := a.verifyChecksum(); err != nil {
		return nil, &CorruptArtifactError{Name: name, Path: path, Cause: err}
	}

	return &a, nil
}

// Save implements Store. The write is atomic: the envelope goes to a
// temporary file in the same directory first, then renames over the target,
// so concurrent readers never observe a partial file.
func (s *FSStore) Save(name string, a *Artifact) error {
	path := s.Path(name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode artifact %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary artifact file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact %q: %w", name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist artifact %q: %w", name, err)
	}
	return nil
}

// List returns the logical names of all persisted artifacts, sorted by
// directory order. Temporary files from in-flight saves are skipped.
func (s *FSStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !strings.HasSuffix(e.Name(), artifactExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), artifactExt))
	}
	return names, nil
}

// Remove deletes the artifact under name. Removing an absent name returns
// ErrNotFound so operators notice typos.
func (s *FSStore) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to remove artifact %q: %w", name, err)
	}
	return nil
}
