package fluxruntime

import "errors"

// Sentinel errors for runtime operations.
// These are domain-specific errors that provide clear failure modes.
var (
	// Model lifecycle errors
	ErrModelNotLoaded  = errors.New("fluxruntime: model is not loaded")
	ErrModelLoadFailed = errors.New("fluxruntime: failed to load model")
	ErrRuntimeClosed   = errors.New("fluxruntime: runtime is closed")

	// Generation errors
	ErrGenerationFailed = errors.New("fluxruntime: image generation failed")

	// Input validation errors
	ErrInvalidPrompt = errors.New("fluxruntime: invalid prompt")
	ErrInvalidParams = errors.New("fluxruntime: invalid generation parameters")
)
