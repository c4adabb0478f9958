package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the platform's counters and histograms. A nil *Metrics
// is safe to call, so wiring them up stays optional in tests.
type Metrics struct {
	sessionsActive     prometheus.Gauge
	sessionInitFailed  prometheus.Counter
	sessionsReclaimed  *prometheus.CounterVec
	messagesTotal      *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	rateLimitRejected  *prometheus.CounterVec
	ordersCompleted    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wabot",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently registered",
		}),
		sessionInitFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wabot",
			Subsystem: "session",
			Name:      "init_failed_total",
			Help:      "Sessions that exhausted their init retries",
		}),
		sessionsReclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wabot",
			Subsystem: "session",
			Name:      "reclaimed_total",
			Help:      "Sessions removed by the idle sweep",
		}, []string{"reason"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wabot",
			Subsystem: "messaging",
			Name:      "messages_total",
			Help:      "Messages by direction",
		}, []string{"direction"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wabot",
			Subsystem: "completion",
			Name:      "duration_seconds",
			Help:      "Latency of completion backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wabot",
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Messages rejected by the rate limiter",
		}, []string{"reason"}),
		ordersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wabot",
			Subsystem: "orders",
			Name:      "completed_total",
			Help:      "Orders that reached the completed state",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsActive, m.sessionInitFailed, m.sessionsReclaimed,
		m.messagesTotal, m.completionDuration, m.rateLimitRejected, m.ordersCompleted)
	return m
}

func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

func (m *Metrics) ObserveInitFailure() {
	if m == nil {
		return
	}
	m.sessionInitFailed.Inc()
}

func (m *Metrics) ObserveReclaim(reason string) {
	if m == nil {
		return
	}
	m.sessionsReclaimed.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveMessage(direction string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) ObserveCompletion(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.completionDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObserveRateLimitRejection(reason string) {
	if m == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveOrderCompleted() {
	if m == nil {
		return
	}
	m.ordersCompleted.Inc()
}
