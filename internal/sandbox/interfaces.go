package sandbox

import (
	"context"
	"io"
)

// Engine bootstraps interpreter instances from an asset location.
type Engine interface {
	Info() EngineInfo
	Bootstrap(ctx context.Context, opts BootstrapOptions) (Instance, error)
}

// Instance is a bootstrapped interpreter. Bind and Run must not be called
// concurrently with each other; the grader serializes access.
type Instance interface {
	Bind(stdout, stderr io.Writer)
	Run(ctx context.Context, source string) error
	Close() error
}

type Runtime interface {
	EnsureReady(ctx context.Context) (Instance, error)
	State() Status
	Info() EngineInfo
}
