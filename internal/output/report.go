package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gofrs/flock"

	"github.com/workmill/workmill/internal/metrics"
)

// FailedTask is one failed task entry in the final summary.
type FailedTask struct {
	Index      int     `json:"index"`
	Label      string  `json:"label,omitempty"`
	Reason     string  `json:"reason"`
	DurationMs float64 `json:"duration_ms"`
}

// Report bundles the run id, aggregated stats, and the failed-task list.
type Report struct {
	RunID       string        `json:"run_id,omitempty"`
	Stats       metrics.Stats `json:"stats"`
	FailedTasks []FailedTask  `json:"failed_tasks,omitempty"`
}

// PrintReport outputs a human-readable run summary.
func PrintReport(w io.Writer, report Report) {
	stats := report.Stats
	fmt.Fprintln(w, "\n--- Run Results ---")
	if report.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", report.RunID)
	}
	fmt.Fprintf(w, "Total Tasks:       %d\n", stats.Total)
	fmt.Fprintf(w, "Completed:         %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Elapsed)
	fmt.Fprintf(w, "Tasks/sec:         %.2f\n", stats.TasksPerSec)
	fmt.Fprintln(w, "\nTask Duration:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinDuration)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxDuration)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanDuration)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Duration)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Duration)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Duration)

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nError Breakdown:")
		names := make([]string, 0, len(stats.Errors))
		for name := range stats.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, stats.Errors[name])
		}
	}

	if len(report.FailedTasks) > 0 {
		fmt.Fprintln(w, "\nFailed Tasks:")
		for _, ft := range report.FailedTasks {
			name := ft.Label
			if name == "" {
				name = fmt.Sprintf("task %d", ft.Index)
			}
			fmt.Fprintf(w, "  - %s (index %d, %.1fms): %s\n", name, ft.Index, ft.DurationMs, ft.Reason)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteJSONReport writes the JSON report to a file, holding an advisory file
// lock so concurrent runs targeting the same artifact cannot interleave.
func WriteJSONReport(path string, report Report) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer func() {
		lock.Unlock()
		os.Remove(lock.Path())
	}()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := PrintJSONReport(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
