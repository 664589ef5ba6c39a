// Package dispatch fans a batch of model sub-invocations out across a
// bounded worker pool.
//
// A single request may ask for several output images. Each becomes one
// Invocation; the Dispatcher runs them with at most a fixed number in
// flight so the shared model resource is never oversubscribed, and returns
// the results ordered by ordinal regardless of completion order.
package dispatch

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"flux_backend/logging"
)

// Invocation is one unit of fan-out work. Ordinal is the invocation's
// position in the request (0-based) and fixes its slot in the result slice.
type Invocation struct {
	Ordinal int
	Run     func(ctx context.Context) (image.Image, error)
}

// Dispatcher executes invocation batches with a fixed concurrency ceiling.
//
// Thread Safety: a single Dispatcher may serve many requests concurrently;
// the ceiling applies per Run call, matching the per-request fan-out bound.
type Dispatcher struct {
	workers int
	log     *logging.Logger
}

// New creates a Dispatcher with the given concurrency ceiling.
func New(workers int, log *logging.Logger) (*Dispatcher, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("dispatch: worker count %d must be positive", workers)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Dispatcher{
		workers: workers,
		log:     log.Named("dispatch"),
	}, nil
}

// Workers returns the concurrency ceiling.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Run executes all invocations and returns their images indexed by ordinal.
//
// At most the configured number of invocations run concurrently. The batch
// is all-or-nothing: on the first failure the remaining invocations are
// cancelled, completed results are discarded, and the failure is returned
// annotated with the ordinal that produced it.
func (d *Dispatcher) Run(ctx context.Context, invocations []Invocation) ([]image.Image, error) {
	if len(invocations) == 0 {
		return nil, nil
	}
	seen := make([]bool, len(invocations))
	for _, inv := range invocations {
		if inv.Ordinal < 0 || inv.Ordinal >= len(invocations) {
			return nil, fmt.Errorf("dispatch: ordinal %d out of range for batch of %d", inv.Ordinal, len(invocations))
		}
		if seen[inv.Ordinal] {
			return nil, fmt.Errorf("dispatch: duplicate ordinal %d", inv.Ordinal)
		}
		seen[inv.Ordinal] = true
		if inv.Run == nil {
			return nil, fmt.Errorf("dispatch: invocation %d has no work function", inv.Ordinal)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]image.Image, len(invocations))
	jobs := make(chan Invocation)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	workers := d.workers
	if workers > len(invocations) {
		workers = len(invocations)
	}

	start := time.Now()
	d.log.Debug("Dispatching batch",
		zap.Int("invocations", len(invocations)),
		zap.Int("workers", workers))

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inv := range jobs {
				// A failed batch drains remaining jobs without running them.
				if runCtx.Err() != nil {
					continue
				}
				img, err := inv.Run(runCtx)
				if err != nil {
					once.Do(func() {
						firstErr = fmt.Errorf("dispatch: invocation %d failed: %w", inv.Ordinal, err)
						cancel()
					})
					continue
				}
				results[inv.Ordinal] = img
			}
		}()
	}

	for _, inv := range invocations {
		jobs <- inv
	}
	close(jobs)
	wg.Wait()

	// Parent cancellation makes workers skip pending jobs, leaving nil
	// slots. That is a failure of the batch, never a partial success.
	if firstErr == nil && ctx.Err() != nil {
		firstErr = fmt.Errorf("dispatch: batch abandoned: %w", ctx.Err())
	}

	if firstErr != nil {
		d.log.Warn("Batch failed",
			zap.Int("invocations", len(invocations)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(firstErr))
		return nil, firstErr
	}

	d.log.Debug("Batch complete",
		zap.Int("invocations", len(invocations)),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}
