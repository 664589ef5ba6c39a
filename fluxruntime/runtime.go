package fluxruntime

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"flux_backend/logging"
)

// State describes the lifecycle of the model resource.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns the lowercase state name used in logs and the health report.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Runtime is the lifecycle facade over the single model Backend.
//
// The model is expensive to acquire, so Runtime loads it lazily on first
// use and exactly once. Callers that arrive during a load block until it
// completes. A failed load is sticky: subsequent calls fail fast with
// ErrModelLoadFailed instead of retrying.
//
// Thread Safety: all methods are safe for concurrent use. The state field
// gives lock-free reads on the hot path; transitions happen under mu.
type Runtime struct {
	backend     Backend
	limits      Limits
	loadTimeout time.Duration
	log         *logging.Logger

	mu      sync.Mutex
	state   atomic.Int32
	loadErr error
	closed  bool
}

// NewRuntime wraps a backend in a lifecycle facade. The model is not loaded
// until the first invocation or an explicit EnsureReady call.
func NewRuntime(backend Backend, limits Limits, loadTimeout time.Duration, log *logging.Logger) *Runtime {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runtime{
		backend:     backend,
		limits:      limits,
		loadTimeout: loadTimeout,
		log:         log.Named("fluxruntime"),
	}
}

// State returns the current lifecycle state without blocking.
func (r *Runtime) State() State {
	return State(r.state.Load())
}

// ModelName returns the backend's model identifier.
func (r *Runtime) ModelName() string {
	return r.backend.Name()
}

// EnsureReady loads the model if it is not loaded yet. The first caller
// performs the load; concurrent callers block until it finishes and then
// observe the same outcome. Once the runtime has failed, EnsureReady
// returns ErrModelLoadFailed without touching the backend again.
func (r *Runtime) EnsureReady(ctx context.Context) error {
	// Fast path: no lock once the model is ready.
	if r.State() == StateReady {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock; another caller may have finished the load
	// while we were waiting.
	switch r.State() {
	case StateReady:
		return nil
	case StateFailed:
		return fmt.Errorf("%w: %v", ErrModelLoadFailed, r.loadErr)
	}
	if r.closed {
		return ErrRuntimeClosed
	}

	r.state.Store(int32(StateLoading))
	r.log.Info("Loading model", zap.String("backend", r.backend.Name()))
	start := time.Now()

	loadCtx := ctx
	if r.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, r.loadTimeout)
		defer cancel()
	}

	if err := r.backend.Load(loadCtx); err != nil {
		r.loadErr = err
		r.state.Store(int32(StateFailed))
		r.log.Error("Model load failed",
			zap.String("backend", r.backend.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	}

	r.state.Store(int32(StateReady))
	r.log.Info("Model ready",
		zap.String("backend", r.backend.Name()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Generate runs a pure text-to-image invocation.
func (r *Runtime) Generate(ctx context.Context, p Params) (image.Image, error) {
	if p.Input != nil {
		return nil, fmt.Errorf("%w: generation does not take an input image", ErrInvalidParams)
	}
	return r.invoke(ctx, p)
}

// Edit runs an image-conditioned invocation. Output dimensions always match
// the input image, so any requested width and height are overridden.
func (r *Runtime) Edit(ctx context.Context, p Params) (image.Image, error) {
	if p.Input == nil {
		return nil, fmt.Errorf("%w: edit requires an input image", ErrInvalidParams)
	}
	bounds := p.Input.Bounds()
	p.Width = bounds.Dx()
	p.Height = bounds.Dy()
	return r.invoke(ctx, p)
}

// Vary runs a variation invocation. The prompt is wrapped with the fixed
// variation framing before submission, and output dimensions match the
// input image.
func (r *Runtime) Vary(ctx context.Context, p Params) (image.Image, error) {
	if p.Input == nil {
		return nil, fmt.Errorf("%w: variation requires an input image", ErrInvalidParams)
	}
	if err := ValidatePrompt(p.Prompt); err != nil {
		return nil, err
	}
	p.Prompt = WrapVariationPrompt(p.Prompt)
	bounds := p.Input.Bounds()
	p.Width = bounds.Dx()
	p.Height = bounds.Dy()
	return r.invoke(ctx, p)
}

func (r *Runtime) invoke(ctx context.Context, p Params) (image.Image, error) {
	if err := ValidateParams(p, r.limits); err != nil {
		return nil, err
	}
	if err := r.EnsureReady(ctx); err != nil {
		return nil, err
	}

	img, err := r.backend.Infer(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return img, nil
}

// Close releases the backend. Subsequent loads fail with ErrRuntimeClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.State() == StateReady {
		r.state.Store(int32(StateUnloaded))
		return r.backend.Close()
	}
	return nil
}
