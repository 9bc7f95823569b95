package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Task is a single asynchronous unit of work. The index is the task's
// run-unique sequence number assigned at dequeue; the label is whatever the
// caller passed to Enqueue, or empty.
type Task[T any] func(ctx context.Context, index int, label string) (T, error)

// Outcome records the result of executing one task. Exactly one Outcome is
// produced per dequeued task; Err is nil for successes. Outcomes are
// immutable once constructed and listeners must not mutate them.
type Outcome[T any] struct {
	Value    T
	Err      error
	Index    int
	Label    string
	Duration time.Duration
}

// Failed reports whether the task ended in an error.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// DurationMs returns the task's wall-clock duration in milliseconds.
func (o Outcome[T]) DurationMs() float64 {
	return float64(o.Duration) / float64(time.Millisecond)
}

// Name returns the label when set, otherwise "task <index>".
func (o Outcome[T]) Name() string {
	if o.Label != "" {
		return o.Label
	}
	return fmt.Sprintf("task %d", o.Index)
}

// ErrRunInProgress is returned by Run when the Runner is already running.
var ErrRunInProgress = errors.New("runner: run already in progress")

// ToleranceError is the run-level error produced when failures exceed the
// configured tolerance. The successes gathered before the abort are still
// returned by Run alongside this error.
type ToleranceError struct {
	Failures  int
	Tolerance int
}

func (e *ToleranceError) Error() string {
	return fmt.Sprintf("%d tasks failed (tolerance %d)", e.Failures, e.Tolerance)
}

// TaskPanicError reports a panic that escaped a task. It aborts the run and
// is surfaced distinctly from the tolerance path: the panicking task does not
// count as an ordinary failure, and its outcome is intentionally suppressed:
// no completion or failure event fires for it. The panic itself is the whole
// record of the task.
type TaskPanicError struct {
	Index int
	Label string
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task %d (%s) panicked: %v", e.Index, e.Label, e.Value)
}
