package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Metrics は接続処理のメトリクスを収集する
type Metrics struct {
	totalConns     atomic.Uint64
	servedConns    atomic.Uint64
	failedConns    atomic.Uint64
	emptyConns     atomic.Uint64
	okResponses    atomic.Uint64
	notFound       atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu         sync.RWMutex
	startTime  time.Time
	latencies  []time.Duration // 直近のサンプル（リングバッファ）
	next       int
	maxSamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithSamples(defaultMaxLatencySamples)
}

// NewWithSamples は保持するレイテンシサンプル数を指定して作成する
func NewWithSamples(maxSamples int) *Metrics {
	if maxSamples <= 0 {
		maxSamples = defaultMaxLatencySamples
	}
	return &Metrics{
		startTime:  time.Now(),
		latencies:  make([]time.Duration, 0, maxSamples),
		maxSamples: maxSamples,
	}
}

// RecordResponse はレスポンスを書き込んだ接続を記録する
func (m *Metrics) RecordResponse(status int, latency time.Duration) {
	m.totalConns.Add(1)
	m.servedConns.Add(1)
	switch status {
	case 200:
		m.okResponses.Add(1)
	case 404:
		m.notFound.Add(1)
	}
	m.addLatency(latency)
}

// RecordEmpty は空リクエストの接続を記録する（レスポンスなし）
func (m *Metrics) RecordEmpty(latency time.Duration) {
	m.totalConns.Add(1)
	m.emptyConns.Add(1)
	m.addLatency(latency)
}

// RecordFailure は I/O エラーで終わった接続を記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.totalConns.Add(1)
	m.failedConns.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
}

func (m *Metrics) addLatency(latency time.Duration) {
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) < m.maxSamples {
		m.latencies = append(m.latencies, latency)
		return
	}
	m.latencies[m.next] = latency
	m.next = (m.next + 1) % m.maxSamples
}

// Total は総接続数を返す
func (m *Metrics) Total() uint64 {
	return m.totalConns.Load()
}

// Served はレスポンスを返した接続数を返す
func (m *Metrics) Served() uint64 {
	return m.servedConns.Load()
}

// Failed は失敗した接続数を返す
func (m *Metrics) Failed() uint64 {
	return m.failedConns.Load()
}

// Empty は空リクエストの接続数を返す
func (m *Metrics) Empty() uint64 {
	return m.emptyConns.Load()
}

// OK は 200 レスポンス数を返す
func (m *Metrics) OK() uint64 {
	return m.okResponses.Load()
}

// NotFound は 404 レスポンス数を返す
func (m *Metrics) NotFound() uint64 {
	return m.notFound.Load()
}

// ConnectionsPerSecond は開始からの平均接続数/秒を返す
func (m *Metrics) ConnectionsPerSecond() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalConns.Load()) / elapsed
}

// AverageLatency は平均処理時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalConns.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99処理時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	m.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ErrorRate は失敗率を返す（0.0〜1.0）
func (m *Metrics) ErrorRate() float64 {
	total := m.totalConns.Load()
	if total == 0 {
		return 0
	}
	return float64(m.failedConns.Load()) / float64(total)
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Total                uint64        `json:"total"`
	Served               uint64        `json:"served"`
	Failed               uint64        `json:"failed"`
	Empty                uint64        `json:"empty"`
	OK                   uint64        `json:"ok"`
	NotFound             uint64        `json:"not_found"`
	ConnectionsPerSecond float64       `json:"connections_per_second"`
	AverageLatency       time.Duration `json:"average_latency_ns"`
	P99Latency           time.Duration `json:"p99_latency_ns"`
	ErrorRate            float64       `json:"error_rate"`
	Elapsed              time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Total:                m.Total(),
		Served:               m.Served(),
		Failed:               m.Failed(),
		Empty:                m.Empty(),
		OK:                   m.OK(),
		NotFound:             m.NotFound(),
		ConnectionsPerSecond: m.ConnectionsPerSecond(),
		AverageLatency:       m.AverageLatency(),
		P99Latency:           m.P99Latency(),
		ErrorRate:            m.ErrorRate(),
		Elapsed:              time.Since(m.startTime),
	}
}
