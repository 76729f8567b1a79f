package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

// Registry records generation metrics twice: as OpenTelemetry instruments for the
// OTLP pipeline and as Prometheus collectors that are pushed once the run ends.
type Registry struct {
	meter metric.Meter

	// OpenTelemetry instruments
	RowsGenerated  metric.Int64Counter
	StageDuration  metric.Float64Histogram
	Violations     metric.Int64Counter
	DNCSize        metric.Int64ObservableGauge
	BytesWritten   metric.Int64Counter
	SinkOperations metric.Int64Counter

	// Prometheus collectors
	prom           *prometheus.Registry
	promRows       *prometheus.CounterVec
	promStage      *prometheus.HistogramVec
	promViolations prometheus.Counter
	promDNC        prometheus.Gauge
	promBytes      *prometheus.CounterVec
	promSinks      *prometheus.CounterVec
	promLastRun    prometheus.Gauge

	mu      sync.RWMutex
	dncSize int64
}

// NewRegistry creates every instrument on the global meter provider
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{
		meter: otel.Meter(meterName),
		prom:  prometheus.NewRegistry(),
	}

	if err := r.initOtelMetrics(); err != nil {
		return nil, errors.NewInternalError(errors.StageMetrics, "cannot create instruments").WithCause(err)
	}
	r.initPromMetrics()
	return r, nil
}

func (r *Registry) initOtelMetrics() error {
	var err error

	r.RowsGenerated, err = r.meter.Int64Counter(
		"synth.rows.generated",
		metric.WithDescription("Rows generated per entity"),
	)
	if err != nil {
		return err
	}

	r.StageDuration, err = r.meter.Float64Histogram(
		"synth.stage.duration",
		metric.WithDescription("Duration of a generation stage in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.Violations, err = r.meter.Int64Counter(
		"synth.violations.injected",
		metric.WithDescription("Contact attempts deliberately placed in quiet hours"),
	)
	if err != nil {
		return err
	}

	r.DNCSize, err = r.meter.Int64ObservableGauge(
		"synth.dnc.size",
		metric.WithDescription("Entries in the generated do-not-call registry"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.dncSize)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.BytesWritten, err = r.meter.Int64Counter(
		"synth.output.bytes",
		metric.WithDescription("Bytes committed per output format"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	r.SinkOperations, err = r.meter.Int64Counter(
		"synth.sink.operations",
		metric.WithDescription("Downstream publish, load and seed operations"),
	)
	return err
}

func (r *Registry) initPromMetrics() {
	factory := promauto.With(r.prom)

	r.promRows = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_rows_generated_total",
		Help: "Rows generated per entity",
	}, []string{"entity"})

	r.promStage = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synth_stage_duration_seconds",
		Help:    "Duration of a generation stage",
		Buckets: prometheus.ExponentialBuckets(0.0001, 10, 7),
	}, []string{"stage"})

	r.promViolations = factory.NewCounter(prometheus.CounterOpts{
		Name: "synth_violations_injected_total",
		Help: "Contact attempts deliberately placed in quiet hours",
	})

	r.promDNC = factory.NewGauge(prometheus.GaugeOpts{
		Name: "synth_dnc_size",
		Help: "Entries in the generated do-not-call registry",
	})

	r.promBytes = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_output_bytes_total",
		Help: "Bytes committed per output format",
	}, []string{"format"})

	r.promSinks = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_sink_operations_total",
		Help: "Downstream publish, load and seed operations",
	}, []string{"sink", "result"})

	r.promLastRun = factory.NewGauge(prometheus.GaugeOpts{
		Name: "synth_last_run_timestamp_seconds",
		Help: "Completion time of the last run",
	})
}

// RecordStage records rows produced and time spent by a generation stage
func (r *Registry) RecordStage(ctx context.Context, stage string, rows int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	r.RowsGenerated.Add(ctx, int64(rows), attrs)
	r.StageDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

	r.promRows.WithLabelValues(stage).Add(float64(rows))
	r.promStage.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordViolations records injected quiet-hour attempts
func (r *Registry) RecordViolations(ctx context.Context, n int) {
	r.Violations.Add(ctx, int64(n))
	r.promViolations.Add(float64(n))
}

// RecordDNCSize sets the registry size gauge
func (r *Registry) RecordDNCSize(_ context.Context, n int) {
	r.mu.Lock()
	r.dncSize = int64(n)
	r.mu.Unlock()
	r.promDNC.Set(float64(n))
}

// RecordFile records a committed output file
func (r *Registry) RecordFile(ctx context.Context, format string, _ int, bytes int64) {
	r.BytesWritten.Add(ctx, bytes, metric.WithAttributes(attribute.String("format", format)))
	r.promBytes.WithLabelValues(format).Add(float64(bytes))
}

// RecordSink records the outcome of a publish, load or seed step
func (r *Registry) RecordSink(ctx context.Context, sink string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.SinkOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("result", result),
	))
	r.promSinks.WithLabelValues(sink, result).Inc()
}

// MarkRunComplete stamps the completion time
func (r *Registry) MarkRunComplete(at time.Time) {
	r.promLastRun.Set(float64(at.Unix()))
}

// Gatherer exposes the Prometheus registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}

// Push sends the Prometheus registry to a Pushgateway under job, replacing any
// previous push with the same grouping.
func (r *Registry) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	pusher := push.New(url, job).Gatherer(r.Gatherer())
	for k, v := range grouping {
		pusher = pusher.Grouping(k, v)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return errors.NewExternalError(errors.StageMetrics, "pushgateway", "push failed").WithCause(err)
	}
	return nil
}
