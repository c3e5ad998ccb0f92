package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"hello-server/internal/threadpool"
)

// PoolSource はプールの統計を返すもの
type PoolSource interface {
	Stats() threadpool.Stats
}

// Collector はプールと接続のメトリクスを Prometheus に公開する
type Collector struct {
	pool PoolSource
	m    *Metrics

	workers       *prometheus.Desc
	activeWorkers *prometheus.Desc
	pendingJobs   *prometheus.Desc
	jobs          *prometheus.Desc
	connections   *prometheus.Desc
	responses     *prometheus.Desc
	avgLatency    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector は Collector を作成する。pool と m はどちらも nil でよい
func NewCollector(namespace string, pool PoolSource, m *Metrics) *Collector {
	return &Collector{
		pool: pool,
		m:    m,
		workers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "workers"),
			"Number of workers in the pool.", nil, nil),
		activeWorkers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "active_workers"),
			"Number of workers currently executing a job.", nil, nil),
		pendingJobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "pending_jobs"),
			"Number of jobs waiting in the queue.", nil, nil),
		jobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "jobs_total"),
			"Jobs seen by the pool by state.", []string{"state"}, nil),
		connections: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "server", "connections_total"),
			"Handled connections by result.", []string{"result"}, nil),
		responses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "server", "responses_total"),
			"Written responses by status code.", []string{"code"}, nil),
		avgLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "server", "connection_latency_average_seconds"),
			"Average time spent handling a connection.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.pool != nil {
		ch <- c.workers
		ch <- c.activeWorkers
		ch <- c.pendingJobs
		ch <- c.jobs
	}
	if c.m != nil {
		ch <- c.connections
		ch <- c.responses
		ch <- c.avgLatency
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.pool != nil {
		s := c.pool.Stats()
		ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(s.Size))
		ch <- prometheus.MustNewConstMetric(c.activeWorkers, prometheus.GaugeValue, float64(s.ActiveWorkers))
		ch <- prometheus.MustNewConstMetric(c.pendingJobs, prometheus.GaugeValue, float64(s.PendingJobs))
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.SubmittedJobs), "submitted")
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.CompletedJobs), "completed")
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.PanickedJobs), "panicked")
	}
	if c.m != nil {
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.CounterValue, float64(c.m.Served()), "served")
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.CounterValue, float64(c.m.Empty()), "empty")
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.CounterValue, float64(c.m.Failed()), "failed")
		ch <- prometheus.MustNewConstMetric(c.responses, prometheus.CounterValue, float64(c.m.OK()), "200")
		ch <- prometheus.MustNewConstMetric(c.responses, prometheus.CounterValue, float64(c.m.NotFound()), "404")
		ch <- prometheus.MustNewConstMetric(c.avgLatency, prometheus.GaugeValue, c.m.AverageLatency().Seconds())
	}
}
