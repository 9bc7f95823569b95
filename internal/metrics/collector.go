package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-task metrics in a thread-safe manner.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minDuration  time.Duration
	maxDuration  time.Duration
	sumDuration  time.Duration
	errorsByType map[string]int64
	start        time.Time
}

// Stats represents aggregated metrics for one run.
type Stats struct {
	Total        int64         `json:"total"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	MinDuration  time.Duration `json:"-"`
	MaxDuration  time.Duration `json:"-"`
	MeanDuration time.Duration `json:"-"`
	P50Duration  time.Duration `json:"-"`
	P90Duration  time.Duration `json:"-"`
	P99Duration  time.Duration `json:"-"`
	Elapsed      time.Duration `json:"-"`
	TasksPerSec  float64       `json:"tasks_per_sec"`

	// JSON-friendly millisecond fields.
	MinDurationMs  float64        `json:"min_duration_ms"`
	MaxDurationMs  float64        `json:"max_duration_ms"`
	MeanDurationMs float64        `json:"mean_duration_ms"`
	P50DurationMs  float64        `json:"p50_duration_ms"`
	P90DurationMs  float64        `json:"p90_duration_ms"`
	P99DurationMs  float64        `json:"p99_duration_ms"`
	ElapsedMs      float64        `json:"elapsed_ms"`
	Errors         map[string]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track durations from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the run for throughput calculation. Call it
// right before the runner starts; construction time is used otherwise.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// RecordTask records a single task's duration and error state.
func (c *Collector) RecordTask(duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if duration > 0 {
		us := duration.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumDuration += duration

	if c.minDuration == 0 || duration < c.minDuration {
		c.minDuration = duration
	}
	if duration > c.maxDuration {
		c.maxDuration = duration
	}

	if err == nil {
		c.successes++
	} else {
		errorType := fmt.Sprintf("%T", err)
		if len(errorType) > 30 {
			errorType = errorType[len(errorType)-30:]
		}
		c.failures++
		c.errorsByType[errorType]++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:       total,
		Successes:   c.successes,
		Failures:    c.failures,
		MinDuration: c.minDuration,
		MaxDuration: c.maxDuration,
	}

	if total > 0 {
		stats.MeanDuration = time.Duration(int64(c.sumDuration) / total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Duration = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Duration = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Duration = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinDurationMs = float64(stats.MinDuration) / float64(time.Millisecond)
	stats.MaxDurationMs = float64(stats.MaxDuration) / float64(time.Millisecond)
	stats.MeanDurationMs = float64(stats.MeanDuration) / float64(time.Millisecond)
	stats.P50DurationMs = float64(stats.P50Duration) / float64(time.Millisecond)
	stats.P90DurationMs = float64(stats.P90Duration) / float64(time.Millisecond)
	stats.P99DurationMs = float64(stats.P99Duration) / float64(time.Millisecond)

	stats.Elapsed = elapsed
	stats.ElapsedMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		stats.TasksPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[FriendlyErrorName(k)] += int(v)
		}
	}

	return stats
}

// ErrorBreakdown returns raw error type names to their counts.
func (c *Collector) ErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int)
	for k, v := range c.errorsByType {
		result[k] = int(v)
	}
	return result
}
