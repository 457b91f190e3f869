package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parkslot"

// Outcome labels shared by the workflow counters.
const (
	OutcomeOffered   = "offered"
	OutcomeEmpty     = "empty"
	OutcomeInvalid   = "invalid"
	OutcomeCommitted = "committed"
	OutcomeLostRace  = "lost_race"
	OutcomeError     = "error"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
)

// Metrics owns a private registry so tests can build as many instances as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	offers              *prometheus.CounterVec
	commits             *prometheus.CounterVec
	notificationFailure *prometheus.CounterVec
	slotLockWait        prometheus.Histogram
	kafkaPublished      *prometheus.CounterVec
	kafkaConsumed       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_offers_total",
			Help:      "Availability requests by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_commits_total",
			Help:      "Confirmation attempts by outcome.",
		}, []string{"outcome"}),
		notificationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Confirmation messages that could not be delivered.",
		}, []string{"channel"}),
		slotLockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_lock_wait_seconds",
			Help:      "Time spent acquiring a per-slot commit lock.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		kafkaPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_published_total",
			Help:      "Kafka messages published by status.",
		}, []string{"topic", "status"}),
		kafkaConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Kafka messages consumed by status.",
		}, []string{"topic", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.offers,
		m.commits,
		m.notificationFailure,
		m.slotLockWait,
		m.kafkaPublished,
		m.kafkaConsumed,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Offer(outcome string) {
	if m == nil {
		return
	}
	m.offers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Commit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotificationFailed(channel string) {
	if m == nil {
		return
	}
	m.notificationFailure.WithLabelValues(channel).Inc()
}

func (m *Metrics) SlotLockWait(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.slotLockWait.Observe(elapsed.Seconds())
}

func (m *Metrics) KafkaPublished(topic string, err error) {
	if m == nil {
		return
	}
	m.kafkaPublished.WithLabelValues(topic, errStatus(err)).Inc()
}

func (m *Metrics) KafkaConsumed(topic string, err error) {
	if m == nil {
		return
	}
	m.kafkaConsumed.WithLabelValues(topic, errStatus(err)).Inc()
}

func errStatus(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
