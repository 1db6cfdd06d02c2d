package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pydojo/internal/telemetry"
)

const (
	DefaultBootstrapTimeout = 30 * time.Second
	bootstrapKey            = "bootstrap"
)

// Manager owns the process-wide interpreter instance. At most one bootstrap
// runs at a time; callers arriving during it share its result.
type Manager struct {
	engine Engine
	opts   Options
	logger *telemetry.Logger

	group singleflight.Group

	mu         sync.Mutex
	state      State
	inst       Instance
	lastErr    error
	bootstraps int
}

func NewManager(engine Engine, opts Options, logger *telemetry.Logger) *Manager {
	if opts.BootstrapTimeout <= 0 {
		opts.BootstrapTimeout = DefaultBootstrapTimeout
	}
	return &Manager{engine: engine, opts: opts, logger: logger}
}

// EnsureReady returns the ready instance, bootstrapping it first if needed.
// ctx bounds only this caller's wait; the bootstrap itself keeps running for
// the other callers sharing it.
func (m *Manager) EnsureReady(ctx context.Context) (Instance, error) {
	if inst := m.ready(); inst != nil {
		return inst, nil
	}
	ch := m.group.DoChan(bootstrapKey, m.bootstrap)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Instance), nil
	}
}

func (m *Manager) ready() Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateReady {
		return m.inst
	}
	return nil
}

func (m *Manager) bootstrap() (any, error) {
	m.mu.Lock()
	if m.state == StateReady {
		inst := m.inst
		m.mu.Unlock()
		return inst, nil
	}
	m.state = StateInitializing
	m.bootstraps++
	attempt := m.bootstraps
	m.mu.Unlock()

	info := m.engine.Info()
	m.logger.Info("runtime.bootstrap.start", map[string]any{
		"engine":    info.Name,
		"attempt":   attempt,
		"index_url": m.opts.IndexURL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.BootstrapTimeout)
	defer cancel()
	started := time.Now()
	inst, err := m.engine.Bootstrap(ctx, BootstrapOptions{
		IndexURL:   m.opts.IndexURL,
		Stdin:      m.opts.Stdin,
		MaxSteps:   m.opts.MaxSteps,
		HTTPClient: m.opts.HTTPClient,
	})
	if err == nil && inst == nil {
		err = errors.Join(ErrBootstrapFailed, errors.New("engine returned no instance"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateFailed
		m.lastErr = err
		m.logger.Error("runtime.bootstrap.failed", map[string]any{
			"engine":      info.Name,
			"attempt":     attempt,
			"unavailable": errors.Is(err, ErrBootstrapUnavailable),
			"error":       err.Error(),
		})
		return nil, err
	}
	m.state = StateReady
	m.inst = inst
	m.lastErr = nil
	m.logger.Info("runtime.bootstrap.done", map[string]any{
		"engine":      info.Name,
		"attempt":     attempt,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return inst, nil
}

func (m *Manager) State() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:      m.state,
		Engine:     m.engine.Info(),
		Bootstraps: m.bootstraps,
		Err:        m.lastErr,
	}
}

func (m *Manager) Info() EngineInfo {
	return m.engine.Info()
}

// Close releases the instance. The manager returns to Uninitialized.
func (m *Manager) Close() error {
	m.mu.Lock()
	inst := m.inst
	m.inst = nil
	m.state = StateUninitialized
	m.mu.Unlock()
	if inst == nil {
		return nil
	}
	return inst.Close()
}
