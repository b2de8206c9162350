package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/roach88/docql/internal/query"

// instruments are created once per Enumerable and shared by its
// enumerators.
type instruments struct {
	executions metric.Int64Counter
	failures   metric.Int64Counter
	documents  metric.Int64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var (
		ins instruments
		err error
	)
	ins.executions, err = meter.Int64Counter(
		"docql.query.executions",
		metric.WithDescription("Queries handed to the driver"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create executions counter: %w", err)
	}

	ins.failures, err = meter.Int64Counter(
		"docql.query.failures",
		metric.WithDescription("Enumerations that ended in a fault"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}

	ins.documents, err = meter.Int64Histogram(
		"docql.query.documents",
		metric.WithDescription("Documents streamed per enumeration"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create documents histogram: %w", err)
	}
	return &ins, nil
}

func (ins *instruments) recordExecution(ctx context.Context, attrs []attribute.KeyValue) {
	ins.executions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (ins *instruments) recordFailure(ctx context.Context, attrs []attribute.KeyValue) {
	ins.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (ins *instruments) recordDocuments(ctx context.Context, n int64, attrs []attribute.KeyValue) {
	ins.documents.Record(ctx, n, metric.WithAttributes(attrs...))
}
