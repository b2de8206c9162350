package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/docql/internal/querysql"
)

// State is an enumeration's lifecycle position.
type State int

const (
	StateNotStarted State = iota
	StateGenerating
	StateExecuting
	StateStreaming
	StateExhausted
	StateFaulted
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateGenerating:
		return "Generating"
	case StateExecuting:
		return "Executing"
	case StateStreaming:
		return "Streaming"
	case StateExhausted:
		return "Exhausted"
	case StateFaulted:
		return "Faulted"
	case StateCanceled:
		return "Canceled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further advance can produce a document.
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateFaulted || s == StateCanceled
}

// iteration is the state machine shared by both enumerator forms.
type iteration[T any] struct {
	e       *Enumerable[T]
	state   State
	err     error
	cursor  Cursor
	query   *querysql.Query
	queryID string
	current T
	count   int64
	span    trace.Span
	attrs   []attribute.KeyValue
	closed  bool
}

func newIteration[T any](e *Enumerable[T]) *iteration[T] {
	return &iteration[T]{e: e}
}

// moveNext enters the reentrancy guard before it reads any iteration
// state; a rejected advance touches nothing.
func (it *iteration[T]) moveNext(ctx context.Context) (bool, error) {
	if it.e.opts.threadSafetyChecks {
		d := it.e.qctx.ConcurrencyDetector()
		if err := d.Enter(); err != nil {
			it.e.opts.logger.Error("query iteration failed",
				"entity_type", it.e.opts.entityType,
				"error", err)
			return false, err
		}
		defer d.Exit()
	}

	if it.closed {
		return false, nil
	}
	switch it.state {
	case StateExhausted:
		return false, nil
	case StateFaulted, StateCanceled:
		return false, it.err
	}

	ok, err := it.advance(ctx)
	if err != nil {
		return false, it.fail(ctx, err)
	}
	return ok, nil
}

func (it *iteration[T]) advance(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if it.cursor == nil {
		if err := it.start(ctx); err != nil {
			return false, err
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	doc, ok, err := it.cursor.Next(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		var zero T
		it.current = zero
		it.state = StateExhausted
		it.finish(ctx, nil)
		return false, nil
	}

	v, err := it.e.shaper(it.e.qctx, doc)
	if err != nil {
		return false, fmt.Errorf("shape %s document: %w", it.e.opts.entityType, err)
	}
	it.current = v
	it.count++
	return true, nil
}

// start generates the query once and opens the cursor.
func (it *iteration[T]) start(ctx context.Context) error {
	e := it.e
	it.queryID = e.opts.queryIDs.Generate()
	it.attrs = []attribute.KeyValue{
		attribute.String("docql.collection", e.plan.Collection),
		attribute.String("docql.entity_type", e.opts.entityType),
	}
	_, it.span = e.opts.tracer.Start(ctx, "docql.query",
		trace.WithAttributes(append(it.attrs, attribute.String("docql.query_id", it.queryID))...))

	it.state = StateGenerating
	q, err := e.GenerateQuery()
	if err != nil {
		return err
	}
	it.query = q

	it.state = StateExecuting
	e.opts.logger.Debug("executing query",
		"query_id", it.queryID,
		"entity_type", e.opts.entityType,
		"collection", e.plan.Collection,
		"parameters", len(q.Parameters),
		"sql", q.Text)
	e.ins.recordExecution(ctx, it.attrs)

	cursor, err := e.driver.ExecuteQuery(ctx, e.plan.Collection, q)
	if err != nil {
		return err
	}
	it.cursor = cursor
	e.qctx.InitializeStateManager(e.opts.standalone)
	it.state = StateStreaming
	return nil
}

func (it *iteration[T]) fail(ctx context.Context, err error) error {
	e := it.e
	var zero T
	it.current = zero

	if e.opts.detector.IsCancellation(ctx, err) {
		it.state = StateCanceled
		e.opts.logger.Info("query canceled",
			"entity_type", e.opts.entityType,
			"query_id", it.queryID)
		err = &CanceledError{QueryID: it.queryID, Err: err}
	} else {
		it.state = StateFaulted
		e.opts.logger.Error("query iteration failed",
			"entity_type", e.opts.entityType,
			"query_id", it.queryID,
			"error", err)
		e.ins.recordFailure(context.WithoutCancel(ctx), it.attrs)
	}
	it.err = err
	it.finish(ctx, err)
	return err
}

// finish ends the span and records the document count, once.
func (it *iteration[T]) finish(ctx context.Context, err error) {
	if it.span == nil {
		return
	}
	it.e.ins.recordDocuments(context.WithoutCancel(ctx), it.count, it.attrs)
	it.span.SetAttributes(
		attribute.Int64("docql.documents", it.count),
		attribute.String("docql.state", it.state.String()),
	)
	if err != nil {
		it.span.RecordError(err)
		it.span.SetStatus(codes.Error, err.Error())
	} else {
		it.span.SetStatus(codes.Ok, "")
	}
	it.span.End()
	it.span = nil
}

func (it *iteration[T]) close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.finish(context.Background(), nil)

	var err error
	if it.cursor != nil {
		err = it.cursor.Close()
		it.cursor = nil
	}
	var zero T
	it.current = zero
	return err
}

// Enumerator is the blocking enumerator.
//
//	en := q.Enumerator()
//	defer en.Close()
//	for en.Next() {
//		use(en.Current())
//	}
//	if err := en.Err(); err != nil { ... }
type Enumerator[T any] struct {
	it  *iteration[T]
	err error
}

// Next advances to the next result.
func (en *Enumerator[T]) Next() bool {
	ok, err := en.it.moveNext(context.Background())
	if err != nil {
		en.err = err
	}
	return ok
}

// Current returns the result at the current position.
func (en *Enumerator[T]) Current() T { return en.it.current }

// Err returns the error that stopped Next.
func (en *Enumerator[T]) Err() error { return en.err }

// State returns the lifecycle position.
func (en *Enumerator[T]) State() State { return en.it.state }

// Query returns the generated query once generation has run.
func (en *Enumerator[T]) Query() *querysql.Query { return en.it.query }

// Close releases the cursor. It is idempotent.
func (en *Enumerator[T]) Close() error { return en.it.close() }

// AsyncEnumerator advances under a caller-supplied context.
type AsyncEnumerator[T any] struct {
	it *iteration[T]
}

// MoveNext advances to the next result. ctx is checked before every
// driver round trip.
func (en *AsyncEnumerator[T]) MoveNext(ctx context.Context) (bool, error) {
	return en.it.moveNext(ctx)
}

// Current returns the result at the current position.
func (en *AsyncEnumerator[T]) Current() T { return en.it.current }

// State returns the lifecycle position.
func (en *AsyncEnumerator[T]) State() State { return en.it.state }

// QueryID returns the enumeration's query ID once it has started.
func (en *AsyncEnumerator[T]) QueryID() string { return en.it.queryID }

// Close releases the cursor. It is idempotent.
func (en *AsyncEnumerator[T]) Close() error { return en.it.close() }
