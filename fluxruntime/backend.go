package fluxruntime

import (
	"context"
	"image"
)

// Backend is the pluggable inference engine behind the Runtime.
// Implementations must be safe for concurrent Infer calls up to the
// dispatcher's worker ceiling; Load and Close are serialized by the Runtime.
type Backend interface {
	// Name identifies the backend for logs and the model catalog.
	Name() string

	// Load acquires the model resource. Called at most once by the Runtime;
	// a returned error marks the runtime Failed.
	Load(ctx context.Context) error

	// Infer runs a single invocation and returns the produced image.
	Infer(ctx context.Context, p Params) (image.Image, error)

	// Close releases the model resource.
	Close() error
}
