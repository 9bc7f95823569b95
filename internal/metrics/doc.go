// Package metrics provides run-level metrics collection for workmill.
//
// The central [Collector] aggregates per-task measurements from all workers:
//
//	collector := metrics.NewCollector()
//	collector.Start() // mark run start for accurate throughput calculation
//
//	// Record a settled task
//	collector.RecordTask(duration, err)
//
//	// Get aggregated statistics
//	stats := collector.Stats(elapsed)
//
// [Stats] carries task counts, duration percentiles (P50/P90/P99), tasks per
// second, and an error-type breakdown with humanized names.
//
// The Collector is safe for concurrent use; every worker may call RecordTask.
package metrics
