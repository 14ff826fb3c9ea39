package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a pool reports to. One Metrics
// value can serve many pools; series are labelled by pool name.
//
// Exposed series (namespace prefix omitted):
//   - pool_acquires_total: successful checkouts
//   - pool_releases_total: effective releases
//   - pool_rejected_total: acquires refused with ErrDrained
//   - pool_grown_total: instances added by the Dynamic policy
//   - pool_drains_total: Drain requests served
//   - pool_size: instances in the pool
//   - pool_in_use: instances checked out
//   - pool_acquire_wait_seconds: time from Acquire call to result
type Metrics struct {
	acquires    *prometheus.CounterVec
	releases    *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	grown       *prometheus.CounterVec
	drains      *prometheus.CounterVec
	size        *prometheus.GaugeVec
	inUse       *prometheus.GaugeVec
	acquireWait *prometheus.HistogramVec
}

// NewMetrics creates pool collectors under namespace and registers them with
// reg. A nil reg leaves them unregistered.
//
// Example:
//
//	m := pool.NewMetrics("oganesson", prometheus.DefaultRegisterer)
//	p := pool.New[*bytes.Buffer](8, pool.Static, nil, pool.WithName("buffers"), pool.WithMetrics(m))
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"pool"}

	return &Metrics{
		acquires: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "acquires_total",
			Help:      "Total number of successful acquires",
		}, labels),
		releases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "releases_total",
			Help:      "Total number of instances returned to the pool",
		}, labels),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "rejected_total",
			Help:      "Total number of acquires rejected because the pool was drained",
		}, labels),
		grown: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "grown_total",
			Help:      "Total number of instances created by dynamic growth",
		}, labels),
		drains: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "drains_total",
			Help:      "Total number of drain requests served",
		}, labels),
		size: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "size",
			Help:      "Number of instances in the pool",
		}, labels),
		inUse: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "in_use",
			Help:      "Number of instances currently checked out",
		}, labels),
		acquireWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "acquire_wait_seconds",
			Help:      "Time spent waiting for an acquire to be served",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, labels),
	}
}

func (m *Metrics) acquired(pool string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(pool).Inc()
}

func (m *Metrics) released(pool string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(pool).Inc()
}

func (m *Metrics) rejectedAcquire(pool string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(pool).Inc()
}

func (m *Metrics) grew(pool string) {
	if m == nil {
		return
	}
	m.grown.WithLabelValues(pool).Inc()
}

func (m *Metrics) drained(pool string) {
	if m == nil {
		return
	}
	m.drains.WithLabelValues(pool).Inc()
}

func (m *Metrics) setGauges(pool string, size, inUse int) {
	if m == nil {
		return
	}
	m.size.WithLabelValues(pool).Set(float64(size))
	m.inUse.WithLabelValues(pool).Set(float64(inUse))
}

func (m *Metrics) observeWait(pool string, d time.Duration) {
	if m == nil {
		return
	}
	m.acquireWait.WithLabelValues(pool).Observe(d.Seconds())
}
