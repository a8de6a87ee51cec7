// SPDX-License-Identifier: MPL-2.0

package modelspec

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"refit/pkg/cueutil"
)

//go:embed modelspec_schema.cue
var modelSchema []byte

// Parse decodes and validates a model file from CUE source. The filename is
// used only for error messages.
func Parse(data []byte, filename string) (*ModelSpec, error) {
	res, err := cueutil.ParseAndDecode[ModelSpec](modelSchema, data, "#Model",
		cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}

	spec := res.Value
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return spec, nil
}

// ParseFile reads and parses a model file from disk.
func ParseFile(path string) (*ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Parse(data, filepath.Base(path))
}
