package query

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/querysql"
)

// Option configures an Enumerable.
type Option func(*options)

type options struct {
	threadSafetyChecks bool
	standalone         bool
	logger             *slog.Logger
	tracer             trace.Tracer
	meter              metric.Meter
	detector           ExceptionDetector
	entityType         string
	queryIDs           QueryIDGenerator
}

// WithThreadSafetyChecks enables or disables the reentrancy guard.
// Enabled by default.
func WithThreadSafetyChecks(enabled bool) Option {
	return func(o *options) { o.threadSafetyChecks = enabled }
}

// WithStandaloneStateManager is passed to StateManager.Initialize.
func WithStandaloneStateManager(standalone bool) Option {
	return func(o *options) { o.standalone = standalone }
}

// WithLogger sets the diagnostics logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer sets the tracer. Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMeter sets the meter. Default: the global otel meter provider.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithExceptionDetector replaces the cancellation classifier.
func WithExceptionDetector(d ExceptionDetector) Option {
	return func(o *options) { o.detector = d }
}

// WithEntityType names the result type in diagnostics. Default: the
// plan's entity name.
func WithEntityType(name string) Option {
	return func(o *options) { o.entityType = name }
}

// WithQueryIDGenerator sets the query ID source. Default: UUIDv7Generator.
func WithQueryIDGenerator(g QueryIDGenerator) Option {
	return func(o *options) { o.queryIDs = g }
}

// Enumerable is a re-runnable query. It is safe to create several
// enumerators from one Enumerable; each owns its cursor and parameter
// snapshot.
type Enumerable[T any] struct {
	plan      *queryir.Select
	factory   *queryir.Factory
	generator *querysql.Generator
	driver    Driver
	shaper    Shaper[T]
	qctx      *Context
	opts      options
	ins       *instruments
}

// New binds plan to its execution collaborators.
func New[T any](plan *queryir.Select, factory *queryir.Factory, driver Driver, shaper Shaper[T], qctx *Context, opts ...Option) (*Enumerable[T], error) {
	switch {
	case plan == nil:
		return nil, errors.New("query: nil plan")
	case factory == nil:
		return nil, errors.New("query: nil factory")
	case driver == nil:
		return nil, errors.New("query: nil driver")
	case shaper == nil:
		return nil, errors.New("query: nil shaper")
	}
	if qctx == nil {
		qctx = NewContext()
	}

	o := options{
		threadSafetyChecks: true,
		logger:             slog.Default(),
		detector:           DefaultExceptionDetector{},
		queryIDs:           UUIDv7Generator{},
	}
	if plan.Entity != nil {
		o.entityType = plan.Entity.Name
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}

	ins, err := newInstruments(o.meter)
	if err != nil {
		return nil, err
	}

	return &Enumerable[T]{
		plan:      plan,
		factory:   factory,
		generator: querysql.NewGenerator(factory.Source()),
		driver:    driver,
		shaper:    shaper,
		qctx:      qctx,
		opts:      o,
		ins:       ins,
	}, nil
}

// Context returns the query context.
func (e *Enumerable[T]) Context() *Context {
	return e.qctx
}

// GenerateQuery expands and generates the plan against the current
// parameter snapshot without executing it.
func (e *Enumerable[T]) GenerateQuery() (*querysql.Query, error) {
	params := e.qctx.Parameters()
	sel, err := e.factory.ExpandSelect(e.plan, params)
	if err != nil {
		return nil, err
	}
	return e.generator.Generate(sel, params)
}

// ToQueryString renders the generated query with its parameter values.
func (e *Enumerable[T]) ToQueryString() (string, error) {
	q, err := e.GenerateQuery()
	if err != nil {
		return "", err
	}
	return q.ToQueryString(), nil
}

// Enumerator starts a blocking enumeration.
func (e *Enumerable[T]) Enumerator() *Enumerator[T] {
	return &Enumerator[T]{it: newIteration(e)}
}

// AsyncEnumerator starts a context-driven enumeration.
func (e *Enumerable[T]) AsyncEnumerator() *AsyncEnumerator[T] {
	return &AsyncEnumerator[T]{it: newIteration(e)}
}

// All iterates the results. A failure is yielded once as the final pair.
//
//	for v, err := range q.All(ctx) {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (e *Enumerable[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		en := e.AsyncEnumerator()
		defer en.Close()
		for {
			ok, err := en.MoveNext(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok || !yield(en.Current(), nil) {
				return
			}
		}
	}
}

// ToList drains the results.
func (e *Enumerable[T]) ToList(ctx context.Context) ([]T, error) {
	out := []T{}
	for v, err := range e.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
