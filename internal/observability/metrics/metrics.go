package metrics

import "github.com/prometheus/client_golang/prometheus"

// CallMetrics exposes counters/histograms for outbound call flows.
type CallMetrics struct {
	callsPlaced    *prometheus.CounterVec
	callOutcomes   *prometheus.CounterVec
	turnsTotal     prometheus.Counter
	webhookLatency *prometheus.HistogramVec
	ttsCacheTotal  *prometheus.CounterVec
}

func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		callsPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caller",
			Subsystem: "calls",
			Name:      "placed_total",
			Help:      "Total outbound calls requested",
		}, []string{"status"}),
		callOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caller",
			Subsystem: "calls",
			Name:      "outcome_total",
			Help:      "Total completed conversations by terminal state",
		}, []string{"outcome"}),
		turnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "caller",
			Subsystem: "calls",
			Name:      "turns_total",
			Help:      "Total conversation turns processed",
		}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "caller",
			Subsystem: "http",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of Twilio webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ttsCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caller",
			Subsystem: "tts",
			Name:      "cache_total",
			Help:      "TTS cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsPlaced, m.callOutcomes, m.turnsTotal, m.webhookLatency, m.ttsCacheTotal)
	return m
}

func (m *CallMetrics) ObserveCallPlaced(status string) {
	if m == nil {
		return
	}
	m.callsPlaced.WithLabelValues(status).Inc()
}

func (m *CallMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.callOutcomes.WithLabelValues(outcome).Inc()
}

func (m *CallMetrics) ObserveTurn() {
	if m == nil {
		return
	}
	m.turnsTotal.Inc()
}

func (m *CallMetrics) ObserveWebhookLatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *CallMetrics) ObserveTTSCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ttsCacheTotal.WithLabelValues(result).Inc()
}
