// Package metrics exposes Prometheus collectors for the lab service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labhub"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds every collector on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	labOperationsTotal  *prometheus.CounterVec
	mediaOperations     *prometheus.CounterVec
	mediaBytesStored    *prometheus.CounterVec
	qrFailuresTotal     prometheus.Counter
}

// New creates and registers all collectors, plus Go runtime and process collectors.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time taken for HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		labOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lab_operations_total",
				Help:      "Lab create, update, delete and media removal operations",
			},
			[]string{"operation", "outcome"},
		),
		mediaOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "media_operations_total",
				Help:      "Media store writes and unlinks by kind",
			},
			[]string{"operation", "kind", "outcome"},
		),
		mediaBytesStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "media_bytes_stored_total",
				Help:      "Bytes written to the media store by kind",
			},
			[]string{"kind"},
		),
		qrFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "qr_failures_total",
				Help:      "QR code renders that failed after a lab was created",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.labOperationsTotal,
		m.mediaOperations,
		m.mediaBytesStored,
		m.qrFailuresTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLabOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.labOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) RecordMediaStore(kind string, bytes int64, err error) {
	if m == nil {
		return
	}
	m.mediaOperations.WithLabelValues("store", kind, outcome(err)).Inc()
	if err == nil && bytes > 0 {
		m.mediaBytesStored.WithLabelValues(kind).Add(float64(bytes))
	}
}

func (m *Metrics) RecordMediaRemove(kind string, err error) {
	if m == nil {
		return
	}
	m.mediaOperations.WithLabelValues("remove", kind, outcome(err)).Inc()
}

func (m *Metrics) RecordQRFailure() {
	if m == nil {
		return
	}
	m.qrFailuresTotal.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
