// Package runner provides the core bounded-concurrency task execution engine
// for workmill.
//
// A [Runner] owns a FIFO queue of tasks and executes them with at most
// Concurrency tasks in flight at once. Each task produces exactly one
// [Outcome] carrying its value or error, a unique monotonic index, its label,
// and its wall-clock duration.
//
// # Basic Usage
//
// Create a runner, enqueue tasks, and run:
//
//	r := runner.New(runner.Options[string]{
//		Concurrency: 8,
//		Tolerance:   3,
//	})
//	r.Enqueue(fetchUser, "user")
//	r.Enqueue(fetchOrders, "orders")
//	results, err := r.Run(ctx)
//
// Run returns the success outcomes. When the number of failed tasks exceeds
// Tolerance the run aborts: workers stop dequeuing, in-flight tasks finish
// and still post their outcomes, and Run returns the successes gathered so
// far together with a [*ToleranceError].
//
// # Task Contract
//
// A [Task] is any function with the signature
//
//	func(ctx context.Context, index int, label string) (T, error)
//
// Tasks that return an error are recorded as failures; they never crash the
// run. A panic inside a task is contained to its worker and aborts the run
// with a [*TaskPanicError], distinct from the tolerance path.
//
// # Events
//
// Listeners registered via [Runner.OnTaskCompleted] and [Runner.OnTaskFailed]
// receive each outcome exactly once, in registration order, as tasks settle.
// The OnTaskComplete/OnTaskFailed options are shorthand for one subscription
// each at construction time.
//
// # Middleware
//
// Tasks can be wrapped before enqueueing:
//   - [WithRetry]: opt-in retry with backoff (the Runner itself never retries)
//   - [WithFailureLogging]: log task failures as they happen
package runner
