// SPDX-License-Identifier: MPL-2.0

// Package pipeline orchestrates staged model fitting against the artifact
// cache.
//
// Compiling a model is typically an order of magnitude slower than fitting
// it for small-to-medium datasets, so the pipeline works hardest to avoid
// it: a persisted fit satisfies the request outright, a persisted prior-only
// compiled artifact turns the request into a bind-and-fit, and only a fully
// cold cache pays for compilation. Nothing is retried and nothing partial is
// ever persisted; every failure names its stage so the operator knows
// whether the model, the reuse path, or the sampler is at fault.
package pipeline
