package sandbox

import (
	"context"
	"io"
	"strings"
)

// Capture runs source on inst with stdout and stderr rebound to fresh sinks,
// then reads both back once execution settles. The sinks are detached again
// before returning, so nothing written after this call can reach them.
func Capture(ctx context.Context, inst Instance, source string) Raw {
	var stdout, stderr strings.Builder
	inst.Bind(&stdout, &stderr)
	err := inst.Run(ctx, source)
	inst.Bind(io.Discard, io.Discard)
	return Raw{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Thrown: err,
	}
}
