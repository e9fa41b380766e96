package prerender

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const latencyRingSize = 1000

// Metrics tracks prerender interception activity.
type Metrics struct {
	Checked      atomic.Int64
	Served       atomic.Int64
	Redirects    atomic.Int64
	Terminations atomic.Int64
	Fallthroughs atomic.Int64
	Errors       atomic.Int64

	latencies []time.Duration
	latIdx    int
	latMu     sync.Mutex

	fetchDuration prometheus.Histogram
	outcomes      *prometheus.CounterVec
}

// NewMetrics creates Metrics and registers the prometheus collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		latencies: make([]time.Duration, 0, latencyRingSize),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prerender_fetch_duration_seconds",
			Help:    "Render service fetch latency.",
			Buckets: prometheus.DefBuckets,
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prerender_outcomes_total",
			Help: "Prerender interception outcomes.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetchDuration, m.outcomes)
	}
	return m
}

// RecordFetch records a render-service fetch latency.
func (m *Metrics) RecordFetch(latency time.Duration) {
	m.fetchDuration.Observe(latency.Seconds())
	m.addLatency(latency)
}

// RecordOutcome records how an intercepted request concluded.
func (m *Metrics) RecordOutcome(k Kind) {
	m.Checked.Add(1)
	m.outcomes.WithLabelValues(k.String()).Inc()
	switch k {
	case Respond:
		m.Served.Add(1)
	case Redirect:
		m.Redirects.Add(1)
	case Terminate:
		m.Terminations.Add(1)
	case Passthrough:
		m.Fallthroughs.Add(1)
	case Propagate:
		m.Errors.Add(1)
	}
}

func (m *Metrics) addLatency(d time.Duration) {
	m.latMu.Lock()
	defer m.latMu.Unlock()

	if len(m.latencies) < latencyRingSize {
		m.latencies = append(m.latencies, d)
	} else {
		m.latencies[m.latIdx] = d
	}
	m.latIdx = (m.latIdx + 1) % latencyRingSize
}

// Snapshot is a point-in-time summary of prerender metrics.
type Snapshot struct {
	Checked      int64         `json:"checked"`
	Served       int64         `json:"served"`
	Redirects    int64         `json:"redirects"`
	Terminations int64         `json:"terminations"`
	Fallthroughs int64         `json:"fallthroughs"`
	Errors       int64         `json:"errors"`
	LatencyP50   time.Duration `json:"latency_p50_ms"`
	LatencyP95   time.Duration `json:"latency_p95_ms"`
	LatencyP99   time.Duration `json:"latency_p99_ms"`
}

// Snapshot returns a point-in-time summary.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Checked:      m.Checked.Load(),
		Served:       m.Served.Load(),
		Redirects:    m.Redirects.Load(),
		Terminations: m.Terminations.Load(),
		Fallthroughs: m.Fallthroughs.Load(),
		Errors:       m.Errors.Load(),
	}

	m.latMu.Lock()
	n := len(m.latencies)
	if n > 0 {
		sorted := make([]time.Duration, n)
		copy(sorted, m.latencies)
		m.latMu.Unlock()

		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		snap.LatencyP50 = sorted[percentileIdx(n, 50)]
		snap.LatencyP95 = sorted[percentileIdx(n, 95)]
		snap.LatencyP99 = sorted[percentileIdx(n, 99)]
	} else {
		m.latMu.Unlock()
	}

	return snap
}

func percentileIdx(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}
