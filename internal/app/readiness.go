package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pydojo/internal/grading"
	"pydojo/internal/sandbox"
	"pydojo/internal/telemetry"
)

const (
	PollInterval        = 500 * time.Millisecond
	MaxUnavailablePolls = 40
	MaxFailedPolls      = 20
)

// watcher warms the runtime in the background and records how it went.
type watcher struct {
	runtime Runtime
	logger  *telemetry.Logger

	interval       time.Duration
	maxUnavailable int
	maxFailed      int

	once   sync.Once
	readyC chan struct{}
	done   chan struct{}

	mu    sync.Mutex
	state Readiness
}

func newWatcher(rt Runtime, logger *telemetry.Logger) *watcher {
	return &watcher{
		runtime:        rt,
		logger:         logger,
		interval:       PollInterval,
		maxUnavailable: MaxUnavailablePolls,
		maxFailed:      MaxFailedPolls,
		readyC:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// start launches the poll loop once. Later calls are no-ops.
func (w *watcher) start(ctx context.Context) {
	w.once.Do(func() {
		w.mu.Lock()
		w.state.Started = true
		w.mu.Unlock()
		go w.watchRuntime(ctx)
	})
}

func (w *watcher) watchRuntime(ctx context.Context) {
	defer close(w.done)
	unavailable, failed := 0, 0
	for {
		pollCtx, cancel := context.WithTimeout(ctx, w.interval)
		_, err := w.runtime.EnsureReady(pollCtx)
		cancel()
		if err == nil {
			w.markReady()
			return
		}
		if ctx.Err() != nil {
			return
		}

		// A poll that outlives its interval means the bootstrap is still
		// loading, which counts the same as an unreachable asset.
		slow := errors.Is(err, context.DeadlineExceeded)
		if slow || errors.Is(err, sandbox.ErrBootstrapUnavailable) {
			unavailable++
		} else {
			failed++
		}
		w.record(err)
		if unavailable >= w.maxUnavailable || failed >= w.maxFailed {
			w.markFailed(err)
			return
		}
		if slow {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

func (w *watcher) record(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Attempts++
	w.state.Err = err
}

func (w *watcher) markReady() {
	w.mu.Lock()
	w.state.Attempts++
	w.state.Ready = true
	w.state.Err = nil
	attempts := w.state.Attempts
	w.mu.Unlock()
	close(w.readyC)
	w.logger.Info("runtime.ready", map[string]any{"polls": attempts})
}

func (w *watcher) markFailed(err error) {
	w.mu.Lock()
	w.state.Failed = true
	attempts := w.state.Attempts
	w.mu.Unlock()
	w.logger.Error("runtime.unavailable", map[string]any{"polls": attempts, "error": err.Error()})
}

func (w *watcher) snapshot() Readiness {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// blocked returns ErrRuntimeUnavailable while a started warm-up is still
// polling. Once the warm-up gives up, submissions retry the bootstrap
// themselves.
func (w *watcher) blocked() error {
	s := w.snapshot()
	if !s.Started || s.Ready || s.Failed {
		return nil
	}
	if w.runtime.State().State == sandbox.StateReady {
		return nil
	}
	if s.Err != nil {
		return fmt.Errorf("%w: %w", grading.ErrRuntimeUnavailable, s.Err)
	}
	return grading.ErrRuntimeUnavailable
}
