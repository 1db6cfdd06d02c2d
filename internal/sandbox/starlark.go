package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

const (
	engineName    = "starlark"
	engineVersion = "go.starlark.net"
	programFile   = "main.py"
	streamsKey    = "pydojo.streams"
	contextKey    = "pydojo.context"
)

// Python-leaning dialect: while loops, top-level if/for and rebinding
// globals are all allowed, since beginner programs rely on them.
// Recursion stays off: the interpreter has no depth limit, and a runaway
// call chain would overflow the Go stack and kill the process. A recursive
// call is reported as a program error instead.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

type StarlarkEngine struct{}

func NewStarlarkEngine() *StarlarkEngine {
	return &StarlarkEngine{}
}

func (e *StarlarkEngine) Info() EngineInfo {
	return EngineInfo{Name: engineName, Version: engineVersion}
}

func (e *StarlarkEngine) Bootstrap(ctx context.Context, opts BootstrapOptions) (Instance, error) {
	src, origin, err := loadPrelude(ctx, opts.HTTPClient, opts.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrapUnavailable, err)
	}

	inst := &starlarkInstance{
		stdout:   io.Discard,
		stderr:   io.Discard,
		stdin:    opts.Stdin,
		maxSteps: opts.MaxSteps,
	}
	builtins := inst.builtins()

	thread := &starlark.Thread{
		Name:  "prelude",
		Print: func(*starlark.Thread, string) {},
	}
	globals, err := starlark.ExecFileOptions(fileOptions, thread, origin, src, builtins)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBootstrapFailed, describe(err))
	}
	globals.Freeze()

	predeclared := make(starlark.StringDict, len(builtins)+len(globals))
	for name, v := range builtins {
		predeclared[name] = v
	}
	for name, v := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		predeclared[name] = v
	}
	inst.predeclared = predeclared
	return inst, nil
}

type starlarkInstance struct {
	mu          sync.Mutex
	stdout      io.Writer
	stderr      io.Writer
	stdin       StdinFunc
	maxSteps    uint64
	predeclared starlark.StringDict
	closed      bool
}

type streams struct {
	stdout io.Writer
	stderr io.Writer
}

func (s *starlarkInstance) Bind(stdout, stderr io.Writer) {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stdout = stdout
	s.stderr = stderr
}

// Run executes source with fresh module globals layered over the frozen
// prelude. Cancelling ctx interrupts the program at its next step.
func (s *starlarkInstance) Run(ctx context.Context, source string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	out := &streams{stdout: s.stdout, stderr: s.stderr}
	s.mu.Unlock()

	thread := &starlark.Thread{
		Name: "learner",
		Print: func(_ *starlark.Thread, msg string) {
			_, _ = io.WriteString(out.stdout, msg+"\n")
		},
	}
	thread.SetLocal(streamsKey, out)
	thread.SetLocal(contextKey, ctx)
	if s.maxSteps > 0 {
		thread.SetMaxExecutionSteps(s.maxSteps)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	_, err := starlark.ExecFileOptions(fileOptions, thread, programFile, source, s.predeclared)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("program interrupted: %w", ctxErr)
	}
	if s.maxSteps > 0 && thread.ExecutionSteps() >= s.maxSteps {
		return fmt.Errorf("%w (%d steps)", ErrStepBudgetExceeded, s.maxSteps)
	}
	return &ProgramError{Message: describe(err)}
}

func (s *starlarkInstance) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stdout = io.Discard
	s.stderr = io.Discard
	return nil
}

func (s *starlarkInstance) builtins() starlark.StringDict {
	sys := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"stdout": streamStruct("stdout", func(o *streams) io.Writer { return o.stdout }),
		"stderr": streamStruct("stderr", func(o *streams) io.Writer { return o.stderr }),
	})
	return starlark.StringDict{
		"sys":   sys,
		"input": starlark.NewBuiltin("input", s.input),
	}
}

func streamStruct(name string, pick func(*streams) io.Writer) *starlarkstruct.Struct {
	write := starlark.NewBuiltin(name+".write", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var text string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
			return nil, err
		}
		out, _ := thread.Local(streamsKey).(*streams)
		if out != nil {
			_, _ = io.WriteString(pick(out), text)
		}
		return starlark.MakeInt(len(text)), nil
	})
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{"write": write})
}

func (s *starlarkInstance) input(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var prompt string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "prompt?", &prompt); err != nil {
		return nil, err
	}
	if out, _ := thread.Local(streamsKey).(*streams); out != nil && prompt != "" {
		_, _ = io.WriteString(out.stdout, prompt)
	}
	if s.stdin == nil {
		return starlark.String(""), nil
	}
	ctx, _ := thread.Local(contextKey).(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	// The provider may block on a terminal. Cancellation is only checked
	// between steps, so wait for it here as well. An abandoned read
	// finishes in the background.
	type reply struct {
		line string
		err  error
	}
	replies := make(chan reply, 1)
	go func() {
		line, err := s.stdin(prompt)
		replies <- reply{line, err}
	}()
	select {
	case r := <-replies:
		if r.err != nil {
			return nil, fmt.Errorf("input: %w", r.err)
		}
		return starlark.String(strings.TrimRight(r.line, "\r\n")), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("input: %w", ctx.Err())
	}
}

// describe renders an interpreter error the way a Python learner expects to
// read it: runtime errors keep their traceback, compile errors get a kind.
func describe(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Backtrace()
	}
	var synErr syntax.Error
	if errors.As(err, &synErr) {
		return "SyntaxError: " + synErr.Error()
	}
	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		lines := make([]string, 0, len(resolveErrs))
		for _, e := range resolveErrs {
			kind := "SyntaxError: "
			if strings.Contains(e.Msg, "undefined") {
				kind = "NameError: "
			}
			lines = append(lines, kind+e.Error())
		}
		return strings.Join(lines, "\n")
	}
	return err.Error()
}
