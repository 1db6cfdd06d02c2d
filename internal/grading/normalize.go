package grading

import (
	"strings"

	"pydojo/internal/sandbox"
)

const (
	tracebackMarker = "Traceback"
	tracebackTail   = 3

	unknownErrorMessage = "Your program stopped with an unknown error"
)

// Normalize turns a raw capture into the learner-facing result. A thrown
// error wins over anything written to the streams.
func Normalize(raw sandbox.Raw) ExecutionResult {
	if raw.Thrown != nil {
		msg := ShortenTraceback(raw.Thrown.Error())
		if msg == "" {
			msg = unknownErrorMessage
		}
		return ExecutionResult{Error: msg}
	}
	out := strings.TrimSpace(raw.Stdout)
	if errText := strings.TrimSpace(raw.Stderr); errText != "" {
		return ExecutionResult{Output: out, Error: errText}
	}
	return ExecutionResult{Output: out}
}

// ShortenTraceback keeps the last few lines of a traceback, where the
// exception itself is reported. Other messages are only trimmed.
func ShortenTraceback(msg string) string {
	msg = strings.TrimSpace(msg)
	if !strings.Contains(msg, tracebackMarker) {
		return msg
	}
	lines := []string{}
	for _, line := range strings.Split(msg, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " \t\r"))
		}
	}
	if len(lines) > tracebackTail {
		lines = lines[len(lines)-tracebackTail:]
	}
	return strings.Join(lines, "\n")
}

// Matches reports, per test case, whether output contains the expected text
// ignoring case. An empty expectation always matches.
func Matches(output string, tests []TestCase) ([]CheckResult, bool) {
	lower := strings.ToLower(output)
	checks := make([]CheckResult, 0, len(tests))
	all := true
	for _, tc := range tests {
		ok := strings.Contains(lower, strings.ToLower(tc.Expected))
		if !ok {
			all = false
		}
		checks = append(checks, CheckResult{Expected: tc.Expected, Hint: tc.Hint, Passed: ok})
	}
	return checks, all
}
