// Package metrics exposes Prometheus metrics for translation runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider request outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Recorder records run and provider metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	fieldsTranslated *prometheus.CounterVec
	fieldsFailed     *prometheus.CounterVec
	pathsRewritten   *prometheus.CounterVec
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder with a fresh registry that also carries
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fieldsTranslated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prismlate_fields_translated_total",
				Help: "Total number of fields translated, labeled by field kind.",
			},
			[]string{"kind"},
		),
		fieldsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prismlate_fields_failed_total",
				Help: "Total number of fields that failed to translate, labeled by field kind.",
			},
			[]string{"kind"},
		),
		pathsRewritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prismlate_fields_path_rewritten_total",
				Help: "Total number of fields whose localized paths were rewritten without translation.",
			},
			[]string{"kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prismlate_runs_total",
				Help: "Total number of translation runs, labeled by result.",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "prismlate_run_duration_seconds",
				Help:    "Duration of translation runs in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prismlate_provider_requests_total",
				Help: "Total number of provider requests, labeled by service and outcome.",
			},
			[]string{"service", "outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prismlate_provider_request_duration_seconds",
				Help:    "Duration of provider requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
	}

	r.registry.MustRegister(
		r.fieldsTranslated,
		r.fieldsFailed,
		r.pathsRewritten,
		r.runs,
		r.runDuration,
		r.providerRequests,
		r.providerDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// FieldTranslated implements prismlate.Observer.
func (r *Recorder) FieldTranslated(kind prismlate.FieldKind) {
	r.fieldsTranslated.WithLabelValues(string(kind)).Inc()
}

// FieldFailed implements prismlate.Observer.
func (r *Recorder) FieldFailed(kind prismlate.FieldKind) {
	r.fieldsFailed.WithLabelValues(string(kind)).Inc()
}

// FieldRewritten implements prismlate.Observer.
func (r *Recorder) FieldRewritten(kind prismlate.FieldKind) {
	r.pathsRewritten.WithLabelValues(string(kind)).Inc()
}

// RunFinished implements prismlate.Observer.
func (r *Recorder) RunFinished(result *prismlate.RunResult, elapsed time.Duration) {
	r.runs.WithLabelValues(runLabel(result)).Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

func runLabel(result *prismlate.RunResult) string {
	switch {
	case result == nil:
		return "error"
	case result.Cancelled:
		return "cancelled"
	case len(result.Errors) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// InstrumentGateway wraps gw so that every request is counted and timed
// under service.
func (r *Recorder) InstrumentGateway(gw prismlate.Gateway, service string) prismlate.Gateway {
	return prismlate.GatewayFunc(func(ctx context.Context, req prismlate.Request) (string, error) {
		start := time.Now()
		out, err := gw.Translate(ctx, req)
		r.providerDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
		r.providerRequests.WithLabelValues(service, outcome(err)).Inc()
		return out, err
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

var _ prismlate.Observer = (*Recorder)(nil)
