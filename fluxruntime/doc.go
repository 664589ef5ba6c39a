// Package fluxruntime manages the single heavyweight FLUX model resource
// and the inference operations performed against it.
//
// The package is organized around small, composable pieces:
//
//   - Backend: the pluggable inference engine (stub or OpenAI-compatible remote)
//   - Runtime: lifecycle facade that lazily loads the backend exactly once
//     and serializes state transitions (Unloaded -> Loading -> Ready/Failed)
//   - Params/ValidateParams: pure validation of inference parameters
//   - DeriveSeed/RandomSeed: reproducible-but-distinct seed derivation
//
// Callers never talk to a Backend directly; all inference goes through the
// Runtime so the load-once and fail-sticky guarantees hold.
package fluxruntime
