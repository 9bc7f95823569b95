package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/workmill/workmill/internal/batch"
	"github.com/workmill/workmill/internal/config"
	"github.com/workmill/workmill/internal/httpclient"
	"github.com/workmill/workmill/internal/metrics"
	"github.com/workmill/workmill/internal/output"
	"github.com/workmill/workmill/internal/runner"
	"github.com/workmill/workmill/internal/tracing"
)

const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	file, err := batch.Load(cfg.BatchFile)
	if err != nil {
		return err
	}

	client := httpclient.NewClient(cfg.Timeout)
	tasks, err := buildTasks(cfg, file, client)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer provider.Shutdown(context.Background())

	runID := ulid.Make().String()
	collector := metrics.NewCollector()

	opts := runner.Options[string]{
		Concurrency:   cfg.Concurrency,
		Tolerance:     cfg.Tolerance,
		RatePerSecond: cfg.Rate,
	}
	if cfg.Verbose {
		opts.Logf = func(format string, a ...any) {
			fmt.Fprintf(os.Stderr, "[workmill %s] %s\n", runID, fmt.Sprintf(format, a...))
		}
	}
	if provider.Enabled() {
		opts.Tracer = provider.Tracer()
	}

	r := runner.New(opts)
	r.EnqueueMany(tasks, file.Labels())

	var mu sync.Mutex
	var failedTasks []output.FailedTask
	r.OnTaskCompleted(func(o runner.Outcome[string]) {
		collector.RecordTask(o.Duration, nil)
	})
	r.OnTaskFailed(func(o runner.Outcome[string]) {
		collector.RecordTask(o.Duration, o.Err)
		mu.Lock()
		failedTasks = append(failedTasks, output.FailedTask{
			Index:      o.Index,
			Label:      o.Label,
			Reason:     o.Err.Error(),
			DurationMs: o.DurationMs(),
		})
		mu.Unlock()
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Verbose {
		progress = output.NewProgressReporter(collector, len(file.Tasks), progressInterval, os.Stdout)
		progress.Start()
	}

	// Mark the actual start time in the collector for accurate throughput
	// calculation; the reporter may have been created earlier.
	collector.Start()
	start := time.Now()
	results, runErr := r.Run(ctx)
	elapsed := time.Since(start)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	mu.Lock()
	report := output.Report{
		RunID:       runID,
		Stats:       collector.Stats(elapsed),
		FailedTasks: failedTasks,
	}
	mu.Unlock()

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, report)
	}

	if cfg.OutputFile != "" {
		if err := output.WriteJSONReport(cfg.OutputFile, report); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("run %s aborted after %d/%d tasks: %w", runID, len(results)+len(report.FailedTasks), len(file.Tasks), runErr)
	}
	return nil
}
