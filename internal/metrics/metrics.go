// Package metrics collects Prometheus metrics for the console and exposes
// them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "halolight"

// Recorder is the metrics interface used by the stores, the mock API and the
// HTTP layer.
type Recorder interface {
	StoreChanged(store string)
	NotificationEmitted(kind string)
	PushStatus(status string)
	MockAPICall(op string, code int, elapsed time.Duration)
	HTTPRequest(method, route string, status int, elapsed time.Duration)
	LoginAttempt(ok bool)
	StreamOpened(transport string)
	StreamClosed(transport string)
}

// Collector is the Prometheus [Recorder].
type Collector struct {
	storeChanges  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pushStatus    *prometheus.GaugeVec
	apiCalls      *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	logins        *prometheus.CounterVec
	streams       *prometheus.GaugeVec
}

var _ Recorder = (*Collector)(nil)

// pushStatuses are the values the push status gauge is reported for.
var pushStatuses = []string{"disconnected", "connecting", "connected", "error"}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		storeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_changes_total",
			Help:      "State changes published by each observable store.",
		}, []string{"store"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_emitted_total",
			Help:      "Notifications emitted by the push source, by type.",
		}, []string{"type"}),
		pushStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_status",
			Help:      "1 for the push source's current connection status, 0 otherwise.",
		}, []string{"status"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mockapi_calls_total",
			Help:      "Mock API calls by operation and envelope code.",
		}, []string{"op", "code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mockapi_latency_seconds",
			Help:      "Mock API call latency including the simulated delay.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		streams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected push clients by transport.",
		}, []string{"transport"}),
	}

	reg.MustRegister(
		c.storeChanges,
		c.notifications,
		c.pushStatus,
		c.apiCalls,
		c.apiLatency,
		c.httpRequests,
		c.httpDuration,
		c.logins,
		c.streams,
	)

	c.PushStatus("disconnected")
	return c
}

// StoreChanged counts a state change of store. Its signature matches
// store.ChangeHook.
func (c *Collector) StoreChanged(store string) {
	c.storeChanges.WithLabelValues(store).Inc()
}

// NotificationEmitted counts a pushed notification.
func (c *Collector) NotificationEmitted(kind string) {
	c.notifications.WithLabelValues(kind).Inc()
}

// PushStatus records the push source's current status.
func (c *Collector) PushStatus(status string) {
	for _, s := range pushStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		c.pushStatus.WithLabelValues(s).Set(v)
	}
}

// MockAPICall records a completed mock API call. Its signature matches
// mockapi.Observer.
func (c *Collector) MockAPICall(op string, code int, elapsed time.Duration) {
	c.apiCalls.WithLabelValues(op, strconv.Itoa(code)).Inc()
	c.apiLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// HTTPRequest records a served request.
func (c *Collector) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// LoginAttempt counts a login by outcome.
func (c *Collector) LoginAttempt(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// StreamOpened counts a connected push client.
func (c *Collector) StreamOpened(transport string) {
	c.streams.WithLabelValues(transport).Inc()
}

// StreamClosed discounts a disconnected push client.
func (c *Collector) StreamClosed(transport string) {
	c.streams.WithLabelValues(transport).Dec()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
