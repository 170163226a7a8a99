// Package metrics exposes Prometheus counters for HTTP traffic and for the
// membership and payment workflows.
//
// A nil *Metrics is valid and records nothing, so services can be built
// without a registry in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grouphub"

// Metrics holds every collector the app records to.
type Metrics struct {
	registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	GroupsCreated  prometheus.Counter
	Joins          *prometheus.CounterVec // outcome
	OTPMail        *prometheus.CounterVec // result
	PaymentsMarked prometheus.Counter
	LedgerConflict prometheus.Counter

	Totals *prometheus.GaugeVec // collection
}

// New registers all collectors on a fresh registry, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GroupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "membership",
			Name:      "groups_created_total",
			Help:      "Groups created",
		}),
		Joins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "joins_total",
				Help:      "Join attempts that reached a terminal outcome",
			},
			[]string{"outcome"},
		),
		OTPMail: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "otp_mail_total",
				Help:      "OTP mail dispatches by result",
			},
			[]string{"result"},
		),
		PaymentsMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_marked_total",
			Help:      "Ledger entries changed by mark-paid requests",
		}),
		LedgerConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "edit_conflicts_total",
			Help:      "Ledger edits that exhausted their retries",
		}),
		Totals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "documents",
				Help:      "Document totals sampled by the count refresher",
			},
			[]string{"collection"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.GroupsCreated,
		m.Joins,
		m.OTPMail,
		m.PaymentsMarked,
		m.LedgerConflict,
		m.Totals,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per chi route pattern. Using the
// pattern rather than the raw path keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// GroupCreated counts one new group.
func (m *Metrics) GroupCreated() {
	if m != nil {
		m.GroupsCreated.Inc()
	}
}

// Joined counts a join by outcome ("new_user", "existing", "already_member").
func (m *Metrics) Joined(outcome string) {
	if m != nil {
		m.Joins.WithLabelValues(outcome).Inc()
	}
}

// OTPSent counts an OTP dispatch; ok=false means the mail could not be handed off.
func (m *Metrics) OTPSent(ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.OTPMail.WithLabelValues(result).Inc()
}

// Marked adds n changed ledger entries.
func (m *Metrics) Marked(n int) {
	if m != nil && n > 0 {
		m.PaymentsMarked.Add(float64(n))
	}
}

// Conflict counts one ledger edit abandoned after retries.
func (m *Metrics) Conflict() {
	if m != nil {
		m.LedgerConflict.Inc()
	}
}

// SetTotal records the latest sampled size of one collection.
func (m *Metrics) SetTotal(collection string, n int64) {
	if m != nil {
		m.Totals.WithLabelValues(collection).Set(float64(n))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
