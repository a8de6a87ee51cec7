// SPDX-License-Identifier: MPL-2.0

// Package dataset provides the columnar table bound to a model at fit time.
//
// A table is read from CSV (header row required) and handed to the engine
// as-is. The table deliberately does not participate in artifact cache keys;
// cache invalidation after a data change is an operator action.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrEmptyDataset is returned when a source has a header but no data rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// Table is an immutable columnar table. Cells are kept as strings; numeric
// interpretation is the engine's job, which knows the model's types.
type Table struct {
	// Name is the source label, usually the file basename.
	Name string
	// Columns are the header names in file order.
	Columns []string
	// Records are the data rows, each len(Columns) long.
	Records [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Records) }

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns all values of the named column in row order, or an error
// when the column does not exist.
func (t *Table) Column(name string) ([]string, error) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("dataset %q has no column %q", t.Name, name)
	}

	values := make([]string, len(t.Records))
	for i, rec := range t.Records {
		values[i] = rec[idx]
	}
	return values, nil
}

// Read parses CSV from r. The first record is the header.
func Read(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset rows: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrEmptyDataset)
	}

	return &Table{Name: name, Columns: header, Records: records}, nil
}

// ReadFile reads a CSV dataset from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return Read(f, filepath.Base(path))
}
