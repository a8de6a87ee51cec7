// SPDX-License-Identifier: MPL-2.0

// Package engine is the boundary to the external modeling engine.
//
// The engine compiles a model into an executable sampler and draws from it;
// everything else (caching, artifact layout, reuse decisions) lives outside.
// Three operations exist: a prior-only compile, a combined
// compile-and-fit, and bind-and-fit against a previously compiled artifact.
// Failures are tagged by stage (ErrCompile, ErrBind, ErrFit) so callers can
// tell a broken model from a broken reuse path from a broken sampler run.
package engine
