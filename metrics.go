package logtide

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyWindowSize is how many recent send latencies feed AvgLatencyMs.
const latencyWindowSize = 100

// Metrics is a point-in-time copy of the client's delivery counters.
// Snapshots are independent of the live register.
type Metrics struct {
	LogsSent     int64
	LogsDropped  int64
	Errors       int64
	Retries      int64
	BreakerTrips int64
	// AvgLatencyMs is the mean of the most recent successful send latencies,
	// over a window of at most 100 samples.
	AvgLatencyMs float64
}

// metricsRegister accumulates delivery counters under its own mutex. A
// disabled register ignores every update. The optional Prometheus mirror
// publishes the same counters to a caller-supplied registerer; it is not
// affected by Reset, since Prometheus counters are monotonic.
type metricsRegister struct {
	mu      sync.Mutex
	enabled bool

	sent    int64
	dropped int64
	errors  int64
	retries int64
	trips   int64

	// latency ring, O(1) push and mean
	window [latencyWindowSize]float64
	count  int
	next   int
	sum    float64

	prom *promMetrics
}

func newMetricsRegister(enabled bool, reg prometheus.Registerer) *metricsRegister {
	m := &metricsRegister{enabled: enabled}
	if enabled && reg != nil {
		m.prom = newPromMetrics(reg)
	}
	return m
}

func (m *metricsRegister) addSent(n int) {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	m.sent += int64(n)
	m.mu.Unlock()
	if m.prom != nil {
		m.prom.sent.Add(float64(n))
	}
}

func (m *metricsRegister) addDropped(n int) {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	m.dropped += int64(n)
	m.mu.Unlock()
	if m.prom != nil {
		m.prom.dropped.Add(float64(n))
	}
}

func (m *metricsRegister) addError() {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
	if m.prom != nil {
		m.prom.errors.Inc()
	}
}

func (m *metricsRegister) addRetry() {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	m.retries++
	m.mu.Unlock()
	if m.prom != nil {
		m.prom.retries.Inc()
	}
}

func (m *metricsRegister) addTrip() {
	if !m.enabled {
		return
	}
	m.mu.Lock()
	m.trips++
	m.mu.Unlock()
	if m.prom != nil {
		m.prom.trips.Inc()
	}
}

func (m *metricsRegister) observeLatency(d time.Duration) {
	if !m.enabled {
		return
	}
	ms := float64(d) / float64(time.Millisecond)
	m.mu.Lock()
	if m.count == latencyWindowSize {
		m.sum -= m.window[m.next]
	} else {
		m.count++
	}
	m.window[m.next] = ms
	m.sum += ms
	m.next = (m.next + 1) % latencyWindowSize
	m.mu.Unlock()
	if m.prom != nil {
		m.prom.latency.Observe(d.Seconds())
	}
}

// snapshot returns an independent copy of the counters.
func (m *metricsRegister) snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Metrics{
		LogsSent:     m.sent,
		LogsDropped:  m.dropped,
		Errors:       m.errors,
		Retries:      m.retries,
		BreakerTrips: m.trips,
	}
	if m.count > 0 {
		s.AvgLatencyMs = m.sum / float64(m.count)
	}
	return s
}

// reset zeroes every counter and clears the latency window.
func (m *metricsRegister) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent, m.dropped, m.errors, m.retries, m.trips = 0, 0, 0, 0, 0
	m.window = [latencyWindowSize]float64{}
	m.count, m.next = 0, 0
	m.sum = 0
}

// promMetrics mirrors the register into Prometheus collectors.
type promMetrics struct {
	sent    prometheus.Counter
	dropped prometheus.Counter
	errors  prometheus.Counter
	retries prometheus.Counter
	trips   prometheus.Counter
	latency prometheus.Histogram
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	factory := promauto.With(reg)
	return &promMetrics{
		sent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logtide",
			Subsystem: "client",
			Name:      "logs_sent_total",
			Help:      "Total number of records delivered to the ingestion endpoint.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logtide",
			Subsystem: "client",
			Name:      "logs_dropped_total",
			Help:      "Total number of records dropped on overflow or delivery failure.",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logtide",
			Subsystem: "client",
			Name:      "errors_total",
			Help:      "Total number of failed delivery attempts.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logtide",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Total number of delivery retries.",
		}),
		trips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logtide",
			Subsystem: "client",
			Name:      "breaker_trips_total",
			Help:      "Total number of batches abandoned or dropped with the breaker open.",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logtide",
			Subsystem: "client",
			Name:      "send_latency_seconds",
			Help:      "Latency of successful batch deliveries.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
