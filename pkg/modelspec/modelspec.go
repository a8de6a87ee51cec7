// SPDX-License-Identifier: MPL-2.0

// Package modelspec defines the schema and parsing for model files.
//
// A model file describes what is to be computed (structural formula, outcome
// family, priors, and sampler configuration), independent of whether any data
// is bound. Two specs whose compile-relevant fields match (formula, family,
// priors, grouping structure) are compile-equivalent and share a cache key;
// sampler configuration and data never participate in keying.
package modelspec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModelSpec is the sentinel error wrapped by InvalidModelSpecError.
var ErrInvalidModelSpec = errors.New("invalid model spec")

// Family is the outcome distribution family.
type Family string

const (
	// FamilyGaussian is the normal outcome family.
	FamilyGaussian Family = "gaussian"
	// FamilyBernoulli is the binary outcome family.
	FamilyBernoulli Family = "bernoulli"
	// FamilyPoisson is the count outcome family.
	FamilyPoisson Family = "poisson"
	// FamilyExGaussian is the exponentially modified normal family,
	// common for response-time outcomes.
	FamilyExGaussian Family = "exgaussian"
	// FamilyShiftedLognormal is the shifted lognormal family, the other
	// usual choice for response-time outcomes.
	FamilyShiftedLognormal Family = "shifted_lognormal"
)

// knownFamilies is the closed set accepted by Validate. The engine may
// support more; extending this list is deliberate, not automatic.
var knownFamilies = map[Family]bool{
	FamilyGaussian:         true,
	FamilyBernoulli:        true,
	FamilyPoisson:          true,
	FamilyExGaussian:       true,
	FamilyShiftedLognormal: true,
}

// PriorClass identifies the parameter class a prior applies to.
type PriorClass string

const (
	// ClassB covers population-level (fixed) effects.
	ClassB PriorClass = "b"
	// ClassIntercept covers the global intercept.
	ClassIntercept PriorClass = "Intercept"
	// ClassSD covers group-level standard deviations.
	ClassSD PriorClass = "sd"
	// ClassSigma covers the residual standard deviation.
	ClassSigma PriorClass = "sigma"
	// ClassCor covers group-level correlation matrices.
	ClassCor PriorClass = "cor"
)

var knownPriorClasses = map[PriorClass]bool{
	ClassB:         true,
	ClassIntercept: true,
	ClassSD:        true,
	ClassSigma:     true,
	ClassCor:       true,
}

type (
	// Formula is the structural formula in "outcome ~ predictors" form.
	// Grouping terms use the "(terms | group)" notation for partial pooling.
	Formula string

	// Prior assigns a distribution to one parameter class, optionally
	// narrowed to a single coefficient or grouping factor.
	Prior struct {
		// Class is the parameter class this prior applies to (required).
		Class PriorClass `json:"class"`
		// Coef narrows the prior to one coefficient (optional).
		Coef string `json:"coef,omitempty"`
		// Group narrows the prior to one grouping factor (optional).
		Group string `json:"group,omitempty"`
		// Distribution is the prior density, e.g. "normal(0, 1)" (required).
		Distribution string `json:"distribution"`
	}

	// SamplerConfig carries the requested sampler behavior. It is passed
	// through to the engine untouched and excluded from compile-equivalence.
	SamplerConfig struct {
		// Chains is the number of parallel chains (required, >= 1).
		Chains int `json:"chains"`
		// IterSampling is the number of post-warmup iterations per chain.
		IterSampling int `json:"iter_sampling"`
		// IterWarmup is the number of warmup iterations per chain.
		IterWarmup int `json:"iter_warmup"`
		// Cores is the requested parallelism degree. 0 means "let the
		// runtime configuration decide".
		Cores int `json:"cores,omitempty"`
		// Seed fixes the sampler's random seed. 0 means engine-chosen.
		Seed int64 `json:"seed,omitempty"`
		// SampleFromPrior ignores the likelihood so draws come from the
		// prior alone (prior-predictive runs).
		SampleFromPrior bool `json:"sample_from_prior,omitempty"`
	}

	// ModelSpec is an immutable description of what is to be computed.
	// Construct it from a model file via Parse, or directly in tests.
	ModelSpec struct {
		// Title is a human-readable label; not part of compile-equivalence.
		Title string `json:"title,omitempty"`
		// Formula is the structural formula (required).
		Formula Formula `json:"formula"`
		// Family is the outcome distribution family (required).
		Family Family `json:"family"`
		// Priors is the ordered set of prior assignments.
		Priors []Prior `json:"priors,omitempty"`
		// Sampler is the sampler configuration.
		Sampler SamplerConfig `json:"sampler"`
	}

	// InvalidModelSpecError collects the field-level failures found by
	// Validate. It wraps ErrInvalidModelSpec for errors.Is() compatibility.
	InvalidModelSpecError struct {
		FieldErrors []error
	}
)

// String returns the formula text.
func (f Formula) String() string { return string(f) }

// Outcome returns the left-hand side of the formula, trimmed.
func (f Formula) Outcome() string {
	lhs, _, ok := strings.Cut(string(f), "~")
	if !ok {
		return ""
	}
	return strings.TrimSpace(lhs)
}

// GroupingTerms returns the grouping factors of all "(terms | group)"
// segments, in order of appearance. A formula without partial pooling
// returns nil.
func (f Formula) GroupingTerms() []string {
	var groups []string
	rest := string(f)
	for {
		open := strings.IndexByte(rest, '(')
		if open < 0 {
			return groups
		}
		closing := strings.IndexByte(rest[open:], ')')
		if closing < 0 {
			return groups
		}
		segment := rest[open+1 : open+closing]
		if _, group, ok := strings.Cut(segment, "|"); ok {
			groups = append(groups, strings.TrimSpace(group))
		}
		rest = rest[open+closing+1:]
	}
}

// Validate checks the formula has both sides of a "~".
func (f Formula) Validate() error {
	lhs, rhs, ok := strings.Cut(string(f), "~")
	if !ok {
		return fmt.Errorf("formula %q must contain '~'", f)
	}
	if strings.TrimSpace(lhs) == "" {
		return fmt.Errorf("formula %q has no outcome", f)
	}
	if strings.TrimSpace(rhs) == "" {
		return fmt.Errorf("formula %q has no predictors", f)
	}
	return nil
}

// Validate checks a single prior assignment.
func (p Prior) Validate() error {
	if !knownPriorClasses[p.Class] {
		return fmt.Errorf("unknown prior class %q", p.Class)
	}
	if strings.TrimSpace(p.Distribution) == "" {
		return fmt.Errorf("prior for class %q has no distribution", p.Class)
	}
	return nil
}

// Validate checks the sampler configuration ranges.
func (c SamplerConfig) Validate() error {
	if c.Chains < 1 {
		return fmt.Errorf("chains must be >= 1, got %d", c.Chains)
	}
	if c.IterSampling < 1 {
		return fmt.Errorf("iter_sampling must be >= 1, got %d", c.IterSampling)
	}
	if c.IterWarmup < 0 {
		return fmt.Errorf("iter_warmup must be >= 0, got %d", c.IterWarmup)
	}
	if c.Cores < 0 {
		return fmt.Errorf("cores must be >= 0, got %d", c.Cores)
	}
	return nil
}

// DefaultSamplerConfig returns the conventional 4-chain configuration.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Chains:       4,
		IterSampling: 1000,
		IterWarmup:   1000,
	}
}

// Validate checks structural completeness only. Whether formula fields exist
// in a dataset is the engine's concern at compile time, not ours.
func (s *ModelSpec) Validate() error {
	var errs []error

	if err := s.Formula.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !knownFamilies[s.Family] {
		errs = append(errs, fmt.Errorf("unknown family %q", s.Family))
	}
	for i, p := range s.Priors {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("priors[%d]: %w", i, err))
		}
	}
	if err := s.Sampler.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return &InvalidModelSpecError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidModelSpecError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid model spec: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidModelSpec for errors.Is() compatibility.
func (e *InvalidModelSpecError) Unwrap() error { return ErrInvalidModelSpec }
