// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing, and HTTP middleware that ties them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "draftloop"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// IdeasExtracted counts content ideas recorded by the mining queue.
	IdeasExtracted metric.Int64Counter

	// DuplicatesSkipped counts ideas dropped because their hook matched an
	// already-known one.
	DuplicatesSkipped metric.Int64Counter

	// DraftsGenerated counts generated drafts. Use with attribute:
	//   attribute.String("format", ...)
	DraftsGenerated metric.Int64Counter

	// ExternalErrors counts failed calls to external services. Use with
	// attribute: attribute.String("service", ...)
	ExternalErrors metric.Int64Counter

	// --- Histograms ---

	// ExtractionDuration tracks idea-extraction latency per batch.
	ExtractionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveSessions tracks the number of interview sessions currently in
	// progress.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM extraction calls, which routinely take several seconds.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.IdeasExtracted, err = m.Int64Counter("draftloop.ideas.extracted",
		metric.WithDescription("Total content ideas recorded by the mining queue."),
	); err != nil {
		return nil, err
	}
	if met.DuplicatesSkipped, err = m.Int64Counter("draftloop.ideas.duplicates_skipped",
		metric.WithDescription("Total ideas dropped because their hook was already known."),
	); err != nil {
		return nil, err
	}
	if met.DraftsGenerated, err = m.Int64Counter("draftloop.drafts.generated",
		metric.WithDescription("Total drafts generated by format."),
	); err != nil {
		return nil, err
	}
	if met.ExternalErrors, err = m.Int64Counter("draftloop.external.errors",
		metric.WithDescription("Total failed calls to external services by service name."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.ExtractionDuration, err = m.Float64Histogram("draftloop.extraction.duration",
		metric.WithDescription("Latency of one idea-extraction batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("draftloop.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("draftloop.active_sessions",
		metric.WithDescription("Number of interview sessions currently in progress."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordExternalError records a failed external call with the standard
// service attribute.
func (m *Metrics) RecordExternalError(ctx context.Context, service string) {
	m.ExternalErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("service", service)),
	)
}

// RecordDraft records a generated draft with its format attribute.
func (m *Metrics) RecordDraft(ctx context.Context, format string) {
	m.DraftsGenerated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("format", format)),
	)
}
