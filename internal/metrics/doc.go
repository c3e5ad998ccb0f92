// Package metrics collects per-connection statistics for the dispatcher and
// exports them, together with worker pool statistics, to Prometheus.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	// ... handle a connection ...
//	m.RecordResponse(200, time.Since(start))
//
//	snap := m.Snapshot()
//	fmt.Printf("served: %d, p99: %v\n", snap.Served, snap.P99Latency)
//
// # Prometheus
//
// NewCollector wraps a Metrics value and anything exposing threadpool
// statistics into a prometheus.Collector:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector("hello", pool, m))
//
// Values are read at scrape time, so the collector never goes stale.
//
// # Thread Safety
//
// Counters are atomics; the latency sample ring is guarded by a mutex.
package metrics
