package runner

import (
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is used when Options.Concurrency is not set.
const DefaultConcurrency = 5

// ToleranceUnlimited disables the failure-tolerance abort entirely.
// Any negative tolerance value behaves the same way.
const ToleranceUnlimited = -1

// Options configure a Runner.
type Options[T any] struct {
	Concurrency   int // max tasks in flight at once (default 5)
	Tolerance     int // max failures before abort; 0 aborts on first failure, negative disables
	RatePerSecond int // task starts per second pacing (0 means unpaced)

	// Logf, when non-nil, receives per-task progress lines. A nil Logf is
	// silent; the Runner never writes anywhere on its own.
	Logf func(format string, args ...any)

	// Tracer, when non-nil, wraps every task execution in a span.
	Tracer trace.Tracer

	// OnTaskComplete and OnTaskFailed are shorthand for one
	// OnTaskCompleted/OnTaskFailed subscription at construction time.
	OnTaskComplete func(Outcome[T])
	OnTaskFailed   func(Outcome[T])

	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options[T]) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Tolerance < 0 {
		o.Tolerance = ToleranceUnlimited
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return nil
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
