// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure stages. Callers classify with
// errors.Is; the structured types below carry the stage detail.
var (
	// ErrCompile: the engine could not build a sampler from the model.
	ErrCompile = errors.New("model compilation failed")
	// ErrBind: a compiled artifact could not accept the supplied dataset.
	// The reuse path is at fault, not the data.
	ErrBind = errors.New("data binding failed")
	// ErrFit: the sampler ran but failed numerically. Not retried; the
	// caller decides whether to adjust configuration and resubmit.
	ErrFit = errors.New("sampling failed")
)

type (
	// CompileError reports a failed compile with the engine's output.
	CompileError struct {
		// Formula is the offending model's formula.
		Formula string
		// Output is the engine's diagnostic output (compiler messages).
		Output string
		// Cause is the underlying failure, if distinct from Output.
		Cause error
	}

	// BindError reports a compiled artifact rejecting a dataset, e.g. a
	// structural mismatch between the artifact and the data's columns.
	BindError struct {
		// SpecKey identifies the compiled artifact.
		SpecKey string
		// Dataset is the rejected table's name.
		Dataset string
		// Output is the engine's diagnostic output.
		Output string
		Cause  error
	}

	// FitError reports a numerically failed sampling run, with whatever
	// diagnostics the engine produced before giving up.
	FitError struct {
		// Diagnostics may be partially populated (nil when the sampler
		// produced nothing usable).
		Diagnostics *Diagnostics
		// Output is the engine's diagnostic output.
		Output string
		Cause  error
	}
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%v: %s", ErrCompile, e.Formula)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Unwrap returns ErrCompile plus the cause for errors.Is/As chains.
func (e *CompileError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCompile, e.Cause}
	}
	return []error{ErrCompile}
}

// Error implements the error interface.
func (e *BindError) Error() string {
	msg := fmt.Sprintf("%v: artifact %.12s does not accept dataset %q", ErrBind, e.SpecKey, e.Dataset)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Unwrap returns ErrBind plus the cause for errors.Is/As chains.
func (e *BindError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrBind, e.Cause}
	}
	return []error{ErrBind}
}

// Error implements the error interface.
func (e *FitError) Error() string {
	msg := ErrFit.Error()
	if e.Diagnostics != nil && e.Diagnostics.DivergentTransitions > 0 {
		msg += fmt.Sprintf(" (%d divergent transitions)", e.Diagnostics.DivergentTransitions)
	}
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Unwrap returns ErrFit plus the cause for errors.Is/As chains.
func (e *FitError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrFit, e.Cause}
	}
	return []error{ErrFit}
}
