package sandbox

import (
	"net/http"
	"time"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type EngineInfo struct {
	Name    string
	Version string
}

// StdinFunc supplies a line of input to the learner program's input() calls.
type StdinFunc func(prompt string) (string, error)

type BootstrapOptions struct {
	IndexURL   string
	Stdin      StdinFunc
	MaxSteps   uint64
	HTTPClient *http.Client
}

type Options struct {
	IndexURL         string
	Stdin            StdinFunc
	MaxSteps         uint64
	BootstrapTimeout time.Duration
	HTTPClient       *http.Client
}

type Status struct {
	State      State
	Engine     EngineInfo
	Bootstraps int
	Err        error
}

// Raw is what one captured execution produced, before normalization.
type Raw struct {
	Stdout string
	Stderr string
	Thrown error
}
