package app

import (
	"context"

	"pydojo/internal/sandbox"
)

// Runtime is the interpreter handle the readiness watcher polls.
type Runtime interface {
	EnsureReady(ctx context.Context) (sandbox.Instance, error)
	State() sandbox.Status
	Info() sandbox.EngineInfo
	Close() error
}
