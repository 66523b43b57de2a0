package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IFSMetrics wraps collectors tracking submission, evaluation and export
// health for the scoring service.
type IFSMetrics struct {
	submissions *prometheus.CounterVec
	evaluations prometheus.Counter
	warnings    *prometheus.CounterVec
	flags       *prometheus.CounterVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	exportRuns  *prometheus.CounterVec
	exportRows  prometheus.Gauge
}

var (
	ifsMetricsOnce sync.Once
	ifsRegistry    *IFSMetrics
)

// IFS returns the lazily-initialised metrics registry for the service.
func IFS() *IFSMetrics {
	ifsMetricsOnce.Do(func() {
		ifsRegistry = &IFSMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ifs",
				Name:      "submissions_total",
				Help:      "Count of score submissions segmented by outcome.",
			}, []string{"outcome"}),
			evaluations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "ifs",
				Name:      "evaluations_total",
				Help:      "Count of trigger evaluations performed.",
			}),
			warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ifs",
				Name:      "integrity_warnings_total",
				Help:      "Count of data-integrity warnings surfaced by evaluations, segmented by code.",
			}, []string{"code"}),
			flags: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ifs",
				Name:      "trigger_flags_total",
				Help:      "Count of evaluations that raised an accountability flag, segmented by flag.",
			}, []string{"flag"}),
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ifs",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests segmented by route, method and status.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "ifs",
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			exportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ifs",
				Name:      "export_runs_total",
				Help:      "Count of compliance export runs segmented by outcome.",
			}, []string{"outcome"}),
			exportRows: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "ifs",
				Name:      "export_rows",
				Help:      "Rows written by the most recent compliance export run.",
			}),
		}
		prometheus.MustRegister(
			ifsRegistry.submissions,
			ifsRegistry.evaluations,
			ifsRegistry.warnings,
			ifsRegistry.flags,
			ifsRegistry.requests,
			ifsRegistry.latency,
			ifsRegistry.exportRuns,
			ifsRegistry.exportRows,
		)
	})
	return ifsRegistry
}

// RecordSubmission counts a submission attempt by its outcome.
func (m *IFSMetrics) RecordSubmission(err error) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordEvaluation counts one trigger evaluation.
func (m *IFSMetrics) RecordEvaluation() {
	if m == nil {
		return
	}
	m.evaluations.Inc()
}

// RecordWarning counts a data-integrity warning by its code.
func (m *IFSMetrics) RecordWarning(code string) {
	if m == nil {
		return
	}
	if code = strings.TrimSpace(code); code == "" {
		code = "unspecified"
	}
	m.warnings.WithLabelValues(code).Inc()
}

// RecordFlag counts an evaluation that raised the named accountability flag.
// Flag names should be stable strings such as "sanction" or "review" so
// dashboards and alerts remain consistent.
func (m *IFSMetrics) RecordFlag(flag string) {
	if m == nil {
		return
	}
	if flag = strings.TrimSpace(flag); flag == "" {
		return
	}
	m.flags.WithLabelValues(flag).Inc()
}

// ObserveHTTP records the outcome of one HTTP request. The status code should
// be the one ultimately written to the response writer.
func (m *IFSMetrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordExport records the outcome and size of a compliance export run.
func (m *IFSMetrics) RecordExport(err error, rows int) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.exportRuns.WithLabelValues(outcome).Inc()
	if err == nil {
		m.exportRows.Set(float64(rows))
	}
}
