package sandbox

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pydojo/internal/telemetry"
)

type fakeInstance struct{ id int }

func (f *fakeInstance) Bind(io.Writer, io.Writer)         {}
func (f *fakeInstance) Run(context.Context, string) error { return nil }
func (f *fakeInstance) Close() error                      { return nil }

type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	gate    chan struct{}
	errs    []error
}

func (e *fakeEngine) Info() EngineInfo { return EngineInfo{Name: "fake", Version: "test"} }

func (e *fakeEngine) Bootstrap(ctx context.Context, _ BootstrapOptions) (Instance, error) {
	e.mu.Lock()
	e.calls++
	n := e.calls
	var err error
	if n <= len(e.errs) {
		err = e.errs[n-1]
	}
	e.mu.Unlock()
	if e.started != nil {
		select {
		case e.started <- struct{}{}:
		default:
		}
	}
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &fakeInstance{id: n}, nil
}

func (e *fakeEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestEnsureReadyConcurrentCallersShareOneBootstrap(t *testing.T) {
	engine := &fakeEngine{started: make(chan struct{}, 1), gate: make(chan struct{})}
	m := NewManager(engine, Options{}, telemetry.Nop())

	const callers = 10
	results := make([]Instance, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.EnsureReady(context.Background())
		}(i)
	}

	<-engine.started
	require.Equal(t, StateInitializing, m.State().State)
	close(engine.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Same(t, results[0], results[i])
	}
	require.Equal(t, 1, engine.Calls())
	require.Equal(t, StateReady, m.State().State)

	again, err := m.EnsureReady(context.Background())
	require.NoError(t, err)
	require.Same(t, results[0], again)
	require.Equal(t, 1, engine.Calls())
}

func TestEnsureReadyRetriesAfterFailure(t *testing.T) {
	unavailable := errors.Join(ErrBootstrapUnavailable, errors.New("connection refused"))
	engine := &fakeEngine{errs: []error{unavailable}}
	m := NewManager(engine, Options{}, telemetry.Nop())

	_, err := m.EnsureReady(context.Background())
	require.ErrorIs(t, err, ErrBootstrapUnavailable)
	st := m.State()
	require.Equal(t, StateFailed, st.State)
	require.ErrorIs(t, st.Err, ErrBootstrapUnavailable)

	inst, err := m.EnsureReady(context.Background())
	require.NoError(t, err)
	require.NotNil(t, inst)
	require.Equal(t, 2, engine.Calls())
	st = m.State()
	require.Equal(t, StateReady, st.State)
	require.NoError(t, st.Err)
	require.Equal(t, 2, st.Bootstraps)
}

func TestEnsureReadyCallerCancelDoesNotAbortBootstrap(t *testing.T) {
	engine := &fakeEngine{started: make(chan struct{}, 1), gate: make(chan struct{})}
	m := NewManager(engine, Options{}, telemetry.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.EnsureReady(ctx)
		done <- err
	}()
	<-engine.started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(engine.gate)
	inst, err := m.EnsureReady(context.Background())
	require.NoError(t, err)
	require.NotNil(t, inst)
	require.Equal(t, 1, engine.Calls())
}

func TestEnsureReadyBootstrapTimeoutMarksFailed(t *testing.T) {
	engine := &fakeEngine{gate: make(chan struct{})}
	m := NewManager(engine, Options{BootstrapTimeout: 20 * time.Millisecond}, telemetry.Nop())

	_, err := m.EnsureReady(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StateFailed, m.State().State)
}

func TestManagerCloseResetsState(t *testing.T) {
	m := NewManager(&fakeEngine{}, Options{}, telemetry.Nop())
	_, err := m.EnsureReady(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.Equal(t, StateUninitialized, m.State().State)
	require.Equal(t, "uninitialized", m.State().State.String())
}
