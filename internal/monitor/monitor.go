// Package monitor periodically reconciles the instance registry against the
// OS process table.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/multilaunch/internal/registry"
)

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = 5 * time.Second

// Checker reports whether a PID is still running.
type Checker interface {
	Alive(ctx context.Context, pid int) (bool, error)
}

// Config holds configuration for the monitor.
type Config struct {
	Interval     time.Duration
	QueryTimeout time.Duration // per-PID liveness query bound; 0 = Interval
	Logger       *slog.Logger

	// OnClosed runs after a dead instance was removed and its artifact deleted.
	OnClosed func(rec registry.Record)
	// OnError runs for query failures and recovered panics.
	OnError func(err error)
}

// Monitor removes instances whose process has exited.
type Monitor struct {
	interval     time.Duration
	queryTimeout time.Duration
	reg          *registry.Registry
	procs        Checker
	logger       *slog.Logger
	onClosed     func(registry.Record)
	onError      func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor over reg.
func New(cfg Config, reg *registry.Registry, procs Checker) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = interval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		interval:     interval,
		queryTimeout: queryTimeout,
		reg:          reg,
		procs:        procs,
		logger:       logger,
		onClosed:     cfg.OnClosed,
		onError:      cfg.OnError,
	}
}

// Run sweeps every interval. Blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitor started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// Start runs the loop in the background. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
}

// Stop cancels the loop and waits up to timeout for it to exit. It reports
// whether the loop finished in time.
func (m *Monitor) Stop(timeout time.Duration) bool {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if done == nil {
		return true
	}
	cancel()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		m.logger.Warn("monitor did not stop in time", "timeout", timeout)
		return false
	}
}

// SweepNow runs one sweep synchronously and returns how many instances were
// removed.
func (m *Monitor) SweepNow() int {
	return m.sweep(context.Background())
}

// sweep performs a single pass.
func (m *Monitor) sweep(ctx context.Context) (removed int) {
	// Recover from panics to keep the loop alive
	defer func() {
		if err := recover(); err != nil {
			m.logger.Error("monitor panic recovered", "error", err)
			m.reportError(fmt.Errorf("panic during sweep: %v", err))
		}
	}()

	for _, view := range m.reg.Resolved() {
		if ctx.Err() != nil {
			return removed
		}

		qctx, cancel := context.WithTimeout(ctx, m.queryTimeout)
		alive, err := m.procs.Alive(qctx, view.PID)
		cancel()
		if err != nil {
			// Treated as alive; a transient query failure must not drop state.
			m.logger.Warn("monitor: liveness query failed", "id", view.ID, "pid", view.PID, "error", err)
			m.reportError(err)
			continue
		}
		if alive {
			continue
		}

		rec, ok := m.reg.MarkClosed(view.ID, view.PID)
		if !ok {
			continue
		}
		removed++
		m.logger.Info("monitor: instance exited", "id", rec.ID, "pid", rec.PID, "name", rec.DisplayName)
		if rec.Artifact != nil {
			if err := rec.Artifact.Remove(); err != nil {
				m.logger.Warn("monitor: failed to remove artifact", "id", rec.ID, "path", rec.Artifact.Path(), "error", err)
			}
		}
		if m.onClosed != nil {
			m.onClosed(rec)
		}
	}
	return removed
}

func (m *Monitor) reportError(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}
