// Package metrics owns the Prometheus registry: HTTP RED metrics, build
// info and the domain counters the content, auth, admin and video code
// report through their small metrics interfaces.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/folio/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter
	buildInfo      *prometheus.GaugeVec

	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter
	profilingActive        prometheus.Gauge

	contentLoadDur         prometheus.Histogram
	contentItems           prometheus.Gauge
	contentSkippedTotal    prometheus.Counter
	contentRevisionChanges prometheus.Counter
	authDecisions          *prometheus.CounterVec
	adminOps               *prometheus.CounterVec
	videoLookups           *prometheus.CounterVec
}

// New returns a fresh registry with the Go and process collectors.
// HTTP labels are limited to method, route pattern and status.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 9),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total times the rate limiter visitor table was full",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		contentLoadDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_load_duration_seconds",
			Help:    "Time to read, parse and validate the content directory",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
		contentItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_items_loaded",
			Help: "Valid items returned by the most recent content load",
		}),
		contentSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_files_skipped_total",
			Help: "Content files skipped because they failed to parse or validate",
		}),
		contentRevisionChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_revision_changes_total",
			Help: "Times the content directory revision changed",
		}),
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_auth_decisions_total",
			Help: "Auth gate decisions by outcome",
		}, []string{"outcome"}),
		adminOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_operations_total",
			Help: "Admin API operations by operation and result",
		}, []string{"op", "result"}),
		videoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_lookups_total",
			Help: "Video lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.profilingActive,
		m.contentLoadDur,
		m.contentItems,
		m.contentSkippedTotal,
		m.contentRevisionChanges,
		m.authDecisions,
		m.adminOps,
		m.videoLookups,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// SetBuildInfo is called once at startup.
func (m *ServerMetrics) SetBuildInfo(component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        vi.App,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncHTTPPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacityTotal.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// ObserveContentLoad implements content.ContentMetrics.
func (m *ServerMetrics) ObserveContentLoad(loaded, skipped int, seconds float64) {
	m.contentLoadDur.Observe(seconds)
	m.contentItems.Set(float64(loaded))
	m.contentSkippedTotal.Add(float64(skipped))
}

// IncContentRevisionChange implements content.RevisionMetrics.
func (m *ServerMetrics) IncContentRevisionChange() {
	m.contentRevisionChanges.Inc()
}

// IncAuthDecision implements auth.GateMetrics.
func (m *ServerMetrics) IncAuthDecision(outcome string) {
	m.authDecisions.WithLabelValues(outcome).Inc()
}

// IncAdminOp implements adminhttp.AdminMetrics.
func (m *ServerMetrics) IncAdminOp(op, result string) {
	m.adminOps.WithLabelValues(op, result).Inc()
}

// IncVideoLookup implements blob.VideoMetrics.
func (m *ServerMetrics) IncVideoLookup(result string) {
	m.videoLookups.WithLabelValues(result).Inc()
}
