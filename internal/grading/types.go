package grading

import (
	"errors"
	"time"
)

const (
	ResultKind    = "grader_result"
	SchemaVersion = 1

	DefaultExecTimeout = 5 * time.Second

	MismatchMessage = "Output doesn't match what the lesson asked for"
)

var (
	// ErrRuntimeUnavailable means the interpreter could not be made ready.
	// It is not a submission outcome.
	ErrRuntimeUnavailable = errors.New("interpreter not ready")

	// ErrBusy rejects a submission while another one is still running.
	ErrBusy = errors.New("a submission is already running")
)

type Outcome string

const (
	OutcomePass         Outcome = "pass"
	OutcomeRuntimeError Outcome = "runtime_error"
	OutcomeMismatch     Outcome = "mismatch"
	OutcomeTimeout      Outcome = "timeout"
)

// Failed reports whether the outcome counts as a failed submission.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeRuntimeError, OutcomeMismatch, OutcomeTimeout:
		return true
	default:
		return false
	}
}

type TestCase struct {
	Expected string
	Hint     string
}

type Request struct {
	LessonID string
	Source   string
	Tests    []TestCase

	RunID   string
	Attempt int
}

type ExecutionResult struct {
	Output string
	Error  string
}

func (r ExecutionResult) HasError() bool {
	return r.Error != ""
}

type Result struct {
	Kind          string `json:"kind"`
	SchemaVersion int    `json:"schema_version"`

	LessonID string  `json:"lesson_id"`
	Outcome  Outcome `json:"outcome"`
	Message  string  `json:"message,omitempty"`
	Output   string  `json:"output"`
	Error    string  `json:"error,omitempty"`

	Run         RunInfo       `json:"run"`
	Checks      []CheckResult `json:"checks,omitempty"`
	EngineDebug EngineDebug   `json:"engine_debug,omitempty"`
}

func (r Result) Passed() bool {
	return r.Outcome == OutcomePass
}

type RunInfo struct {
	RunID            string `json:"run_id,omitempty"`
	Attempt          int    `json:"attempt"`
	StartedAtUnixMS  int64  `json:"started_at_unix_ms"`
	FinishedAtUnixMS int64  `json:"finished_at_unix_ms"`
	DurationMS       int64  `json:"duration_ms"`
}

type CheckResult struct {
	Expected string `json:"expected"`
	Hint     string `json:"hint,omitempty"`
	Passed   bool   `json:"passed"`
}

type EngineDebug struct {
	Engine  string `json:"engine,omitempty"`
	Version string `json:"version,omitempty"`
}
