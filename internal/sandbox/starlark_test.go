package sandbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func bootstrapEmbedded(t *testing.T, opts BootstrapOptions) Instance {
	t.Helper()
	inst, err := NewStarlarkEngine().Bootstrap(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close() })
	return inst
}

func TestCapturePrintsToStdout(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, `print("Python is legendary!")`)
	require.NoError(t, raw.Thrown)
	require.Equal(t, "Python is legendary!\n", raw.Stdout)
	require.Empty(t, raw.Stderr)
}

func TestCaptureDoesNotLeakBetweenRuns(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	first := Capture(context.Background(), inst, `print("A")`)
	second := Capture(context.Background(), inst, `print("B")`)
	require.Equal(t, "A\n", first.Stdout)
	require.Equal(t, "B\n", second.Stdout)
}

func TestCaptureStderrWrites(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "sys.stdout.write(\"out\")\nsys.stderr.write(\"careful\\n\")\n")
	require.NoError(t, raw.Thrown)
	require.Equal(t, "out", raw.Stdout)
	require.Equal(t, "careful\n", raw.Stderr)
}

func TestRunSyntaxError(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "# Fix me:\nprint \"Syntax\"\n")
	var perr *ProgramError
	require.ErrorAs(t, raw.Thrown, &perr)
	require.Contains(t, perr.Message, "SyntaxError")
	require.Empty(t, raw.Stdout)
}

func TestRunRuntimeErrorCarriesTraceback(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	src := "def split(total, people):\n    return total // people\n\nprint(\"before\")\nsplit(10, 0)\n"
	raw := Capture(context.Background(), inst, src)
	var perr *ProgramError
	require.ErrorAs(t, raw.Thrown, &perr)
	require.Contains(t, perr.Message, "Traceback")
	require.Contains(t, perr.Message, "division by zero")
	require.Equal(t, "before\n", raw.Stdout)
}

func TestRunUndefinedNameIsNameError(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "print(city)\n")
	require.Error(t, raw.Thrown)
	require.Contains(t, raw.Thrown.Error(), "NameError")
	require.Contains(t, raw.Thrown.Error(), "city")
}

func TestRunGlobalsAreFreshPerRun(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "wallet = 500\n")
	require.NoError(t, raw.Thrown)
	raw = Capture(context.Background(), inst, "print(wallet)\n")
	require.Error(t, raw.Thrown)
}

func TestPreludeHelpers(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "print(sum([1, 2, 3]))\nprint(pow(2, 5))\nprint(round(2.5))\nprint(round(3.14159, 2))\n")
	require.NoError(t, raw.Thrown)
	require.Equal(t, "6\n32\n3\n3.14\n", raw.Stdout)
}

func TestPreludePowExponents(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "print(pow(2, -1))\nprint(pow(2, -3))\nprint(pow(7, 0))\n")
	require.NoError(t, raw.Thrown)
	require.Equal(t, "0.5\n0.125\n1\n", raw.Stdout)

	raw = Capture(context.Background(), inst, "print(pow(2, 0.5))\n")
	require.Error(t, raw.Thrown)
	require.Contains(t, raw.Thrown.Error(), "ValueError: pow() exponent must be a whole number")
}

func TestRecursiveCallIsProgramError(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "def f(n):\n    return f(n + 1)\n\nf(0)\n")
	require.Error(t, raw.Thrown)
	require.Contains(t, raw.Thrown.Error(), "called recursively")

	raw = Capture(context.Background(), inst, `print("still alive")`)
	require.NoError(t, raw.Thrown)
	require.Equal(t, "still alive\n", raw.Stdout)
}

func TestRunCancelledByDeadline(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	raw := Capture(ctx, inst, "x = 0\nwhile True:\n    x += 1\n")
	require.ErrorIs(t, raw.Thrown, context.DeadlineExceeded)

	raw = Capture(context.Background(), inst, `print("still alive")`)
	require.NoError(t, raw.Thrown)
	require.Equal(t, "still alive\n", raw.Stdout)
}

func TestRunStepBudget(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{MaxSteps: 10000})
	raw := Capture(context.Background(), inst, "while True:\n    pass\n")
	require.ErrorIs(t, raw.Thrown, ErrStepBudgetExceeded)
}

func TestInputUsesStdinProvider(t *testing.T) {
	var prompts []string
	inst := bootstrapEmbedded(t, BootstrapOptions{Stdin: func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "Accra\n", nil
	}})
	raw := Capture(context.Background(), inst, "place = input(\"What is your location? \")\nprint(place)\n")
	require.NoError(t, raw.Thrown)
	require.Equal(t, "What is your location? Accra\n", raw.Stdout)
	require.Equal(t, []string{"What is your location? "}, prompts)
}

func TestInputWithoutProviderReturnsEmpty(t *testing.T) {
	inst := bootstrapEmbedded(t, BootstrapOptions{})
	raw := Capture(context.Background(), inst, "place = input()\nprint(len(place))\n")
	require.NoError(t, raw.Thrown)
	require.Equal(t, "0\n", raw.Stdout)
}

func TestInputGivesUpWhenRunIsCancelled(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	inst := bootstrapEmbedded(t, BootstrapOptions{Stdin: func(string) (string, error) {
		<-block
		return "", nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	raw := Capture(ctx, inst, "while True:\n    name = input(\"name? \")\n")
	require.ErrorIs(t, raw.Thrown, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestRunAfterClose(t *testing.T) {
	inst, err := NewStarlarkEngine().Bootstrap(context.Background(), BootstrapOptions{})
	require.NoError(t, err)
	require.NoError(t, inst.Close())
	raw := Capture(context.Background(), inst, `print("x")`)
	require.ErrorIs(t, raw.Thrown, ErrClosed)
}

func TestBootstrapFetchesPreludeOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/prelude.star" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("def greet(name):\n    return \"Akwaaba, \" + name\n"))
	}))
	defer srv.Close()

	inst, err := NewStarlarkEngine().Bootstrap(context.Background(), BootstrapOptions{IndexURL: srv.URL + "/assets"})
	require.NoError(t, err)
	raw := Capture(context.Background(), inst, `print(greet("Ama"))`)
	require.NoError(t, raw.Thrown)
	require.Equal(t, "Akwaaba, Ama\n", raw.Stdout)
}

func TestBootstrapHTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewStarlarkEngine().Bootstrap(context.Background(), BootstrapOptions{IndexURL: srv.URL})
	require.ErrorIs(t, err, ErrBootstrapUnavailable)
	require.False(t, errors.Is(err, ErrBootstrapFailed))
}

func TestBootstrapBrokenPreludeFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prelude.star"), []byte("def broken(:\n"), 0o644))

	_, err := NewStarlarkEngine().Bootstrap(context.Background(), BootstrapOptions{IndexURL: dir})
	require.ErrorIs(t, err, ErrBootstrapFailed)
	require.True(t, strings.Contains(err.Error(), "SyntaxError"), err.Error())
}

func TestBootstrapMissingDirectoryIsUnavailable(t *testing.T) {
	_, err := NewStarlarkEngine().Bootstrap(context.Background(), BootstrapOptions{IndexURL: filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, ErrBootstrapUnavailable)
}

func TestPreludeGlobalsAreFrozen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prelude.star"), []byte("REGIONS = [\"Accra\"]\n"), 0o644))
	inst, err := NewStarlarkEngine().Bootstrap(context.Background(), BootstrapOptions{IndexURL: "file://" + dir})
	require.NoError(t, err)

	raw := Capture(context.Background(), inst, "REGIONS.append(\"Tamale\")\n")
	require.Error(t, raw.Thrown)
	require.Contains(t, raw.Thrown.Error(), "frozen")
}
