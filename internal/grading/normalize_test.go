package grading

import (
	"errors"
	"strings"
	"testing"

	"pydojo/internal/sandbox"
)

func TestNormalizeThrownErrorDropsOutput(t *testing.T) {
	got := Normalize(sandbox.Raw{Stdout: "partial\n", Thrown: errors.New("  boom  ")})
	if got.Output != "" {
		t.Fatalf("expected empty output, got %q", got.Output)
	}
	if got.Error != "boom" {
		t.Fatalf("expected trimmed error, got %q", got.Error)
	}
	if !got.HasError() {
		t.Fatalf("expected HasError")
	}
}

func TestNormalizeShortensLongTraceback(t *testing.T) {
	lines := []string{"Traceback (most recent call last):"}
	for i := 0; i < 8; i++ {
		lines = append(lines, "  main.py:"+string(rune('1'+i))+":1: in f")
	}
	lines = append(lines, "Error: division by zero")
	if len(lines) != 10 {
		t.Fatalf("fixture should have 10 lines, has %d", len(lines))
	}

	got := Normalize(sandbox.Raw{Thrown: errors.New(strings.Join(lines, "\n"))})
	want := strings.Join(lines[7:], "\n")
	if got.Error != want {
		t.Fatalf("expected last 3 lines\n%s\ngot\n%s", want, got.Error)
	}
}

func TestNormalizeKeepsNonTracebackMessage(t *testing.T) {
	msg := "SyntaxError: main.py:2:7: got string literal, want newline\nsecond line\nthird\nfourth"
	got := Normalize(sandbox.Raw{Thrown: errors.New(msg)})
	if got.Error != msg {
		t.Fatalf("expected message unchanged, got %q", got.Error)
	}
}

func TestNormalizeStderrIsError(t *testing.T) {
	got := Normalize(sandbox.Raw{Stdout: " 495 \n", Stderr: "\nwarning: low balance\n"})
	if got.Output != "495" || got.Error != "warning: low balance" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestNormalizeWhitespaceOnlyStderrIsIgnored(t *testing.T) {
	got := Normalize(sandbox.Raw{Stdout: "\n  Akwaaba  \n\n", Stderr: " \n\t"})
	if got.HasError() {
		t.Fatalf("unexpected error %q", got.Error)
	}
	if got.Output != "Akwaaba" {
		t.Fatalf("expected trimmed output, got %q", got.Output)
	}
}

func TestNormalizeEmptyThrownMessage(t *testing.T) {
	got := Normalize(sandbox.Raw{Thrown: errors.New("   ")})
	if !got.HasError() {
		t.Fatalf("thrown error must always surface")
	}
}

func TestShortenTracebackShortInput(t *testing.T) {
	msg := "Traceback (most recent call last):\nError: x"
	if got := ShortenTraceback(msg); got != msg {
		t.Fatalf("expected unchanged, got %q", got)
	}
}

func TestMatchesCaseInsensitiveSubstring(t *testing.T) {
	checks, ok := Matches("Wow, PYTHON IS LEGENDARY! indeed", []TestCase{{Expected: "Python is legendary!"}})
	if !ok || len(checks) != 1 || !checks[0].Passed {
		t.Fatalf("expected match, got %#v", checks)
	}
}

func TestMatchesRequiresEveryCase(t *testing.T) {
	checks, ok := Matches("Mango", []TestCase{{Expected: "mango"}, {Expected: "Orange", Hint: "add Orange"}})
	if ok {
		t.Fatalf("expected overall failure")
	}
	if !checks[0].Passed || checks[1].Passed || checks[1].Hint != "add Orange" {
		t.Fatalf("unexpected checks %#v", checks)
	}
}

func TestMatchesEmptyExpectationAlwaysPasses(t *testing.T) {
	for _, out := range []string{"", "anything at all"} {
		if _, ok := Matches(out, []TestCase{{Expected: ""}}); !ok {
			t.Fatalf("empty expectation should match %q", out)
		}
	}
	if _, ok := Matches("", nil); !ok {
		t.Fatalf("no test cases should pass")
	}
}
