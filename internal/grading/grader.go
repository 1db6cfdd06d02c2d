package grading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pydojo/internal/sandbox"
	"pydojo/internal/telemetry"
)

type Options struct {
	ExecTimeout time.Duration
	Now         func() time.Time
}

// DefaultGrader runs one submission at a time against the shared runtime.
type DefaultGrader struct {
	runtime Runtime
	timeout time.Duration
	now     func() time.Time
	logger  *telemetry.Logger

	running sync.Mutex
}

func NewGrader(runtime Runtime, opts Options, logger *telemetry.Logger) *DefaultGrader {
	if opts.ExecTimeout <= 0 {
		opts.ExecTimeout = DefaultExecTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DefaultGrader{runtime: runtime, timeout: opts.ExecTimeout, now: opts.Now, logger: logger}
}

// Grade executes req.Source and classifies the result. Program failures are
// reported as outcomes; the returned error is reserved for ErrBusy,
// ErrRuntimeUnavailable and caller cancellation.
func (g *DefaultGrader) Grade(ctx context.Context, req Request) (Result, error) {
	if !g.running.TryLock() {
		return Result{}, ErrBusy
	}
	defer g.running.Unlock()

	inst, err := g.runtime.EnsureReady(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRuntimeUnavailable, err)
	}

	info := g.runtime.Info()
	started := g.now()
	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	raw := sandbox.Capture(runCtx, inst, req.Source)
	cancel()
	finished := g.now()

	if raw.Thrown != nil && errors.Is(raw.Thrown, context.Canceled) && ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	result := Result{
		Kind:          ResultKind,
		SchemaVersion: SchemaVersion,
		LessonID:      req.LessonID,
		Run: RunInfo{
			RunID:            req.RunID,
			Attempt:          max(1, req.Attempt),
			StartedAtUnixMS:  started.UnixMilli(),
			FinishedAtUnixMS: finished.UnixMilli(),
			DurationMS:       max(0, finished.Sub(started).Milliseconds()),
		},
		EngineDebug: EngineDebug{Engine: info.Name, Version: info.Version},
	}

	switch {
	case timedOut(raw.Thrown):
		result.Outcome = OutcomeTimeout
		result.Message = fmt.Sprintf("Your program ran longer than %s and was stopped. Look for a loop that never ends.", g.timeout)
		result.Output = ""
	default:
		exec := Normalize(raw)
		result.Output = exec.Output
		if exec.HasError() {
			result.Outcome = OutcomeRuntimeError
			result.Error = exec.Error
			result.Message = exec.Error
			break
		}
		checks, ok := Matches(exec.Output, req.Tests)
		result.Checks = checks
		if ok {
			result.Outcome = OutcomePass
		} else {
			result.Outcome = OutcomeMismatch
			result.Message = MismatchMessage
		}
	}

	g.logger.Info("grader.graded", map[string]any{
		"lesson_id":   req.LessonID,
		"run_id":      req.RunID,
		"attempt":     result.Run.Attempt,
		"outcome":     string(result.Outcome),
		"duration_ms": result.Run.DurationMS,
	})
	return result, nil
}

func timedOut(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sandbox.ErrStepBudgetExceeded)
}
