package advice

import (
	"context"
	"strings"
	"time"
)

const (
	// FallbackMessage is returned whenever a remote mentor cannot answer.
	FallbackMessage = "Ei, I'm having a little trouble connecting to the network. But don't give up, check your code again!"
	// EmptyReplyMessage stands in for a mentor reply with no text.
	EmptyReplyMessage = "Keep trying, you are doing great!"

	DefaultTimeout = 8 * time.Second
)

// Advisor produces a short hint after a failed submission. Advise never
// fails: problems are absorbed into a fallback message.
type Advisor interface {
	Advise(ctx context.Context, req Request) string
}

type Request struct {
	Source      string
	Problem     string
	Challenge   string
	LearnerName string

	Outcome  string
	Output   string
	Expected []string
	Hints    []string
}

// WithTimeout bounds every Advise call on next.
func WithTimeout(next Advisor, timeout time.Duration) Advisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return bounded{next: next, timeout: timeout}
}

type bounded struct {
	next    Advisor
	timeout time.Duration
}

func (b bounded) Advise(ctx context.Context, req Request) string {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	out := make(chan string, 1)
	go func() { out <- b.next.Advise(ctx, req) }()
	select {
	case msg := <-out:
		return msg
	case <-ctx.Done():
		return FallbackMessage
	}
}

// Chain asks each advisor in turn and returns the first reply that is not
// the network fallback.
func Chain(advisors ...Advisor) Advisor {
	return chain(advisors)
}

type chain []Advisor

func (c chain) Advise(ctx context.Context, req Request) string {
	reply := FallbackMessage
	for _, a := range c {
		if a == nil {
			continue
		}
		reply = a.Advise(ctx, req)
		if strings.TrimSpace(reply) != "" && reply != FallbackMessage {
			return reply
		}
	}
	return reply
}
