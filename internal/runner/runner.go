package runner

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type taskEntry[T any] struct {
	fn    Task[T]
	label string
}

// Runner coordinates bounded-concurrency execution of queued tasks.
// The queue and listener lists persist across runs; all run-level state
// (counters, abort flag, accumulators) is scoped to a single Run invocation.
type Runner[T any] struct {
	opt     Options[T]
	running atomic.Bool

	mu                sync.Mutex
	queue             []taskEntry[T]
	completedHandlers []func(Outcome[T])
	failedHandlers    []func(Outcome[T])
}

// runState holds the state of one Run invocation. Guarded by Runner.mu so
// that dequeue, counter updates, and the completion/abort decision are a
// single critical section per worker step.
type runState[T any] struct {
	total     int
	seq       int // next outcome index, incremented once per dequeue
	active    int
	complete  int
	abort     bool
	snapshot  int           // len(completed) frozen when the abort was set
	abortCh   chan struct{} // closed by the abort-triggering worker; resolves Run promptly
	completed []Outcome[T]
	failed    []Outcome[T]
	runErr    error // first tolerance breach or task panic
}

// triggerAbort records the run-level error and freezes the partial-results
// boundary at the outcomes settled so far. Caller must hold the run lock;
// calls after the first are no-ops. The caller that triggered the abort
// (true return) closes abortCh once the breaching outcome is dispatched.
func (st *runState[T]) triggerAbort(err error) bool {
	if st.abort {
		return false
	}
	st.abort = true
	st.runErr = err
	st.snapshot = len(st.completed)
	return true
}

// New creates a Runner from opts. The OnTaskComplete/OnTaskFailed options are
// registered as the first listeners of their respective events.
func New[T any](opt Options[T]) *Runner[T] {
	opt.normalize()
	r := &Runner[T]{opt: opt}
	if opt.OnTaskComplete != nil {
		r.OnTaskCompleted(opt.OnTaskComplete)
	}
	if opt.OnTaskFailed != nil {
		r.OnTaskFailed(opt.OnTaskFailed)
	}
	return r
}

// Enqueue appends a task to the tail of the queue. The optional label is
// free-form and used only for observability.
func (r *Runner[T]) Enqueue(task Task[T], label ...string) {
	var l string
	if len(label) > 0 {
		l = label[0]
	}
	r.mu.Lock()
	r.queue = append(r.queue, taskEntry[T]{fn: task, label: l})
	r.mu.Unlock()
}

// EnqueueMany appends tasks in order, pairing them with labels positionally.
// Tasks beyond len(labels) get no label.
func (r *Runner[T]) EnqueueMany(tasks []Task[T], labels []string) {
	r.mu.Lock()
	for i, task := range tasks {
		var l string
		if i < len(labels) {
			l = labels[i]
		}
		r.queue = append(r.queue, taskEntry[T]{fn: task, label: l})
	}
	r.mu.Unlock()
}

// Pending returns the number of tasks waiting in the queue.
func (r *Runner[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// OnTaskCompleted registers a listener for success outcomes. Listeners are
// invoked in registration order, exactly once per outcome.
func (r *Runner[T]) OnTaskCompleted(h func(Outcome[T])) {
	r.mu.Lock()
	r.completedHandlers = append(r.completedHandlers, h)
	r.mu.Unlock()
}

// OnTaskFailed registers a listener for failure outcomes.
func (r *Runner[T]) OnTaskFailed(h func(Outcome[T])) {
	r.mu.Lock()
	r.failedHandlers = append(r.failedHandlers, h)
	r.mu.Unlock()
}

// Run drains the queue with at most Concurrency tasks in flight and returns
// the success outcomes. On a tolerance breach it resolves as soon as the
// breaching failure is processed, returning only the successes settled
// strictly before the abort together with a *ToleranceError; a task panic
// aborts similarly with a *TaskPanicError. In-flight tasks still settle and
// dispatch their events in the background, but never join an aborted run's
// results. Run resolves exactly once per invocation; a second concurrent
// call returns ErrRunInProgress.
func (r *Runner[T]) Run(ctx context.Context) ([]Outcome[T], error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	r.mu.Lock()
	total := len(r.queue)
	r.mu.Unlock()

	if total == 0 {
		return []Outcome[T]{}, nil
	}

	st := &runState[T]{total: total, abortCh: make(chan struct{})}
	limiter := r.opt.LimiterFactory(r.opt.RatePerSecond)

	workers := r.opt.Concurrency
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r.work(ctx, st, limiter)
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-st.abortCh:
	case <-finished:
	}

	r.mu.Lock()
	results := st.completed
	if st.abort {
		// Copy the frozen prefix; stragglers may still append to completed.
		results = append([]Outcome[T](nil), st.completed[:st.snapshot]...)
	}
	err := st.runErr
	r.mu.Unlock()

	if err == nil {
		err = ctx.Err()
	}
	if results == nil {
		results = []Outcome[T]{}
	}
	return results, err
}

// work is one worker loop: dequeue, execute, settle, repeat until the queue
// is empty or the run aborted.
func (r *Runner[T]) work(ctx context.Context, st *runState[T], limiter *rate.Limiter) {
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		r.mu.Lock()
		if st.abort || ctx.Err() != nil || len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		entry := r.queue[0]
		r.queue = r.queue[1:]
		idx := st.seq
		st.seq++
		st.active++
		r.mu.Unlock()

		start := time.Now()
		value, err := r.execute(ctx, entry, idx)
		out := Outcome[T]{
			Value:    value,
			Err:      err,
			Index:    idx,
			Label:    entry.label,
			Duration: time.Since(start),
		}

		panicErr, isPanic := err.(*TaskPanicError)

		r.mu.Lock()
		st.active--
		st.complete++
		var aborted bool
		switch {
		case isPanic:
			// Bug escaping the task's own control flow: abort the run on a
			// path distinct from the tolerance policy. No outcome is posted.
			aborted = st.triggerAbort(panicErr)
		case err != nil:
			st.failed = append(st.failed, out)
			// In-flight tasks that settle after the abort still post their
			// outcome but do not re-trigger abort processing.
			if !st.abort && r.opt.Tolerance >= 0 && len(st.failed) > r.opt.Tolerance {
				aborted = st.triggerAbort(&ToleranceError{Failures: len(st.failed), Tolerance: r.opt.Tolerance})
			}
		default:
			st.completed = append(st.completed, out)
		}
		done := st.complete
		r.mu.Unlock()

		if isPanic {
			r.logf("%s panicked after %.1fms: %v", out.Name(), out.DurationMs(), panicErr.Value)
			if aborted {
				close(st.abortCh)
			}
			return
		}

		r.dispatch(out)

		if aborted {
			// Resolve the run only after the breaching failure's own event
			// has fired; stragglers keep dispatching in the background.
			close(st.abortCh)
		}

		if err != nil {
			r.logf("%s failed after %.1fms: %v [%d/%d]", out.Name(), out.DurationMs(), err, done, st.total)
		} else {
			r.logf("%s completed in %.1fms [%d/%d]", out.Name(), out.DurationMs(), done, st.total)
		}
	}
}

// execute runs one task with panic containment and optional tracing.
func (r *Runner[T]) execute(ctx context.Context, entry taskEntry[T], idx int) (value T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &TaskPanicError{Index: idx, Label: entry.label, Value: rec, Stack: debug.Stack()}
		}
	}()

	if r.opt.Tracer == nil {
		return entry.fn(ctx, idx, entry.label)
	}

	spanCtx, span := r.opt.Tracer.Start(ctx, "workmill.task",
		trace.WithAttributes(
			attribute.Int("task.index", idx),
			attribute.String("task.label", entry.label),
		))
	defer span.End()

	value, err = entry.fn(spanCtx, idx, entry.label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return value, err
}

// dispatch invokes the registered listeners for the outcome, outside the run
// lock so a slow listener cannot stall other workers.
func (r *Runner[T]) dispatch(out Outcome[T]) {
	r.mu.Lock()
	var handlers []func(Outcome[T])
	if out.Failed() {
		handlers = append(handlers, r.failedHandlers...)
	} else {
		handlers = append(handlers, r.completedHandlers...)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(out)
	}
}

func (r *Runner[T]) logf(format string, args ...any) {
	if r.opt.Logf != nil {
		r.opt.Logf(format, args...)
	}
}
