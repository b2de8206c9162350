// Package telemetry owns the otel providers a CLI invocation hands to the
// query pipeline. Spans are exported to the structured logger as they end;
// metrics are held in memory and collected on demand.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/roach88/docql/internal/query"
)

const instrumentationName = "github.com/roach88/docql"

// Telemetry is a tracer and meter provider pair.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
}

// New creates providers whose spans are logged at debug level on logger.
func New(logger *slog.Logger) *Telemetry {
	if logger == nil {
		logger = slog.Default()
	}
	reader := sdkmetric.NewManualReader()
	return &Telemetry{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(NewLogSpanExporter(logger))),
		),
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:        reader,
	}
}

// QueryOptions routes a query's spans and instruments to these providers.
func (t *Telemetry) QueryOptions() []query.Option {
	return []query.Option{
		query.WithTracer(t.tracerProvider.Tracer(instrumentationName)),
		query.WithMeter(t.meterProvider.Meter(instrumentationName)),
	}
}

// Stat is one collected metric. Counters report their total; histograms
// report the number of recordings and their sum.
type Stat struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Count uint64 `json:"count,omitempty"`
}

// Collect reads the current value of every metric recorded so far,
// sorted by name. Data points with different attributes are summed.
func (t *Telemetry) Collect(ctx context.Context) ([]Stat, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	var stats []Stat
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			stat := Stat{Name: m.Name}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					stat.Value += dp.Value
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					stat.Value += dp.Sum
					stat.Count += dp.Count
				}
			default:
				continue
			}
			stats = append(stats, stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.tracerProvider.Shutdown(ctx), t.meterProvider.Shutdown(ctx))
}

// LogSpanExporter writes each finished span as one debug record.
type LogSpanExporter struct {
	logger *slog.Logger
}

// NewLogSpanExporter creates an exporter writing to logger.
func NewLogSpanExporter(logger *slog.Logger) *LogSpanExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSpanExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		args := []any{
			"span", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"duration", span.EndTime().Sub(span.StartTime()).Round(time.Microsecond),
			"status", span.Status().Code.String(),
		}
		if desc := span.Status().Description; desc != "" {
			args = append(args, "status_description", desc)
		}
		args = append(args, attrArgs(span.Attributes())...)
		e.logger.DebugContext(ctx, "span ended", args...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogSpanExporter) Shutdown(context.Context) error {
	return nil
}

func attrArgs(attrs []attribute.KeyValue) []any {
	out := make([]any, 0, 2*len(attrs))
	for _, kv := range attrs {
		out = append(out, string(kv.Key), kv.Value.Emit())
	}
	return out
}
