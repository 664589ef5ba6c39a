package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"flux_backend/core"
	"flux_backend/logging"
)

// Manager ties signal handling to the cleanup registry. The first SIGINT
// or SIGTERM cancels the managed context; the second forces an immediate
// exit. Shutdown runs the registered handlers under the configured
// timeout.
type Manager struct {
	log     *logging.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal

	mu       sync.Mutex
	started  bool
	shutdown bool

	// exit is swapped out in tests.
	exit func(code int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the shutdown timeout. Default is 60 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a Manager. log may be nil.
func NewManager(log *logging.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		log:      log.Named("shutdown"),
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.log.Warn("Received second signal, forcing immediate exit")
		m.exit(core.ExitCodeError)
	})
	return m
}

// Context returns the context cancelled when shutdown begins. Components
// use it to stop background work.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler. See Registry.Register for priority
// conventions.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
}

// Start begins listening for SIGINT and SIGTERM. The first signal cancels
// the managed context.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			count := m.signals.Increment()
			if count == 1 {
				m.log.Info("Received signal, shutting down",
					zap.String("signal", sig.String()))
				m.cancel()
			}
		}
	}()
}

// Shutdown cancels the managed context and runs every registered handler
// under the shutdown timeout. Handler failures are logged; the first error
// is returned. Safe to call more than once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	m.cancel()
	signal.Stop(m.sigChan)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := time.Now()
	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.log.Error("Cleanup handler failed", zap.Error(err))
	}
	m.log.Info("Shutdown complete",
		zap.Int("handlers", m.registry.Len()),
		zap.Int("failures", len(errs)),
		zap.Duration("duration", time.Since(start)))

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
