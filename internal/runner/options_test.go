package runner

import (
	"context"
	"testing"

	"golang.org/x/time/rate"
)

func TestNormalizeDefaults(t *testing.T) {
	opt := Options[int]{}
	opt.normalize()

	if opt.Concurrency != DefaultConcurrency {
		t.Fatalf("expected default concurrency %d, got %d", DefaultConcurrency, opt.Concurrency)
	}
	if opt.Tolerance != 0 {
		t.Fatalf("expected default tolerance 0, got %d", opt.Tolerance)
	}
	if opt.LimiterFactory == nil {
		t.Fatal("expected a default limiter factory")
	}
	if l := opt.LimiterFactory(0); l != nil {
		t.Fatalf("rps 0 should produce no limiter, got %v", l)
	}
	if l := opt.LimiterFactory(50); l == nil || l.Limit() != rate.Limit(50) {
		t.Fatalf("rps 50 should produce a 50/s limiter, got %v", l)
	}
}

func TestNormalizeNegativeTolerance(t *testing.T) {
	opt := Options[int]{Tolerance: -7}
	opt.normalize()
	if opt.Tolerance != ToleranceUnlimited {
		t.Fatalf("negative tolerance should normalize to unlimited, got %d", opt.Tolerance)
	}
}

func TestConstructionHandlerSugar(t *testing.T) {
	var completed, failed int
	r := New(Options[string]{
		Concurrency:    1,
		Tolerance:      ToleranceUnlimited,
		OnTaskComplete: func(Outcome[string]) { completed++ },
		OnTaskFailed:   func(Outcome[string]) { failed++ },
	})

	r.Enqueue(func(ctx context.Context, index int, label string) (string, error) {
		return "ok", nil
	})
	r.Enqueue(func(ctx context.Context, index int, label string) (string, error) {
		return "", context.DeadlineExceeded
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed != 1 || failed != 1 {
		t.Fatalf("expected 1 completed + 1 failed via option handlers, got %d/%d", completed, failed)
	}
}

func TestEnqueueManyPairsLabels(t *testing.T) {
	r := New(Options[int]{Concurrency: 1})

	task := func(ctx context.Context, index int, label string) (int, error) { return index, nil }
	r.EnqueueMany([]Task[int]{task, task, task}, []string{"alpha", "beta"})
	if r.Pending() != 3 {
		t.Fatalf("expected 3 pending tasks, got %d", r.Pending())
	}

	var labels []string
	r.OnTaskCompleted(func(o Outcome[int]) { labels = append(labels, o.Label) })

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Pending() != 0 {
		t.Fatalf("queue should be drained, %d pending", r.Pending())
	}
	want := []string{"alpha", "beta", ""}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("label %d: expected %q, got %q", i, want[i], labels[i])
		}
	}
}
