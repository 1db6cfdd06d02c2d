package sandbox

import "errors"

var (
	// ErrBootstrapUnavailable means the engine assets could not be reached.
	// The runtime stays retryable.
	ErrBootstrapUnavailable = errors.New("interpreter assets unavailable")

	// ErrBootstrapFailed means the assets loaded but engine setup threw.
	ErrBootstrapFailed = errors.New("interpreter bootstrap failed")

	// ErrStepBudgetExceeded is returned by Run when a program exhausts its
	// execution step budget.
	ErrStepBudgetExceeded = errors.New("execution step budget exceeded")

	ErrClosed = errors.New("interpreter closed")
)

// ProgramError is an exception raised by learner code. Message carries the
// interpreter's full report, including any traceback.
type ProgramError struct {
	Message string
}

func (e *ProgramError) Error() string {
	return e.Message
}
