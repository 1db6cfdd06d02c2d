package grading

import (
	"context"

	"pydojo/internal/sandbox"
)

type Grader interface {
	Grade(ctx context.Context, req Request) (Result, error)
}

// Runtime hands out the ready interpreter instance.
type Runtime interface {
	EnsureReady(ctx context.Context) (sandbox.Instance, error)
	Info() sandbox.EngineInfo
}
