// Package shutdown coordinates graceful teardown: an ordered registry of
// cleanup handlers, signal handling with a force-exit escape hatch, and a
// manager tying both together.
package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"flux_backend/core"
)

type registryEntry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs earlier
}

// Registry holds named cleanup handlers executed in priority order during
// shutdown. Registration after Shutdown has run is a no-op.
type Registry struct {
	mu      sync.Mutex
	entries []registryEntry
	closed  bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup handler. Lower priority values run earlier.
// Conventional bands: 0-9 flush (logs, metrics), 10-19 stop accepting work
// (HTTP server), 20-29 stop workers, 30-39 close resources (model,
// database), 40+ final cleanup (temp files).
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, registryEntry{name: name, fn: fn, priority: priority})
}

// Shutdown runs every handler in priority order, continuing past failures.
// Returned errors are annotated with the handler name.
func (r *Registry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := make([]registryEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})

	var errs []error
	for _, entry := range entries {
		if entry.fn == nil {
			continue
		}
		if err := entry.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
		}
	}
	return errs
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
