package planspec

import (
	"context"
	"fmt"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/query"
	"github.com/roach88/docql/internal/querysql"
)

// Execution is the outcome of running a plan.
type Execution struct {
	// Query is the generated query, nil if generation failed.
	Query *querysql.Query

	// Documents holds the shaped results in store order.
	Documents []document.Object
}

// Prepare builds p and wraps it in an enumerable over driver. Plans with a
// select list yield projected documents; other plans yield whole entities
// checked against the plan's entity.
func (b *Builder) Prepare(p *Plan, driver query.Driver, params map[string]any, opts ...query.Option) (*query.Enumerable[document.Object], error) {
	entity, err := b.Entity(p)
	if err != nil {
		return nil, err
	}
	shaper := query.EntityShaper(entity)
	if len(p.Select) > 0 {
		shaper = query.DocumentShaper()
	}
	return PrepareAs(b, p, driver, params, shaper, opts...)
}

// PrepareAs builds p and wraps it in an enumerable whose results are
// produced by shaper.
func PrepareAs[T any](b *Builder, p *Plan, driver query.Driver, params map[string]any, shaper query.Shaper[T], opts ...query.Option) (*query.Enumerable[T], error) {
	entity, err := b.Entity(p)
	if err != nil {
		return nil, err
	}
	sel, err := b.Build(p)
	if err != nil {
		return nil, err
	}

	qctx := query.NewContext()
	for name, v := range p.ParameterValues(params) {
		qctx.SetParameter(name, v)
	}

	opts = append([]query.Option{query.WithEntityType(entity.Name)}, opts...)
	return query.New(sel, b.factory, driver, shaper, qctx, opts...)
}

// Execute prepares p, generates its query and drains the results.
func (b *Builder) Execute(ctx context.Context, p *Plan, driver query.Driver, params map[string]any, opts ...query.Option) (*Execution, error) {
	q, err := b.Prepare(p, driver, params, opts...)
	if err != nil {
		return nil, err
	}
	generated, err := q.GenerateQuery()
	if err != nil {
		return nil, fmt.Errorf("generate %s query: %w", p.Entity, err)
	}
	docs, err := q.ToList(ctx)
	if err != nil {
		return &Execution{Query: generated}, err
	}
	return &Execution{Query: generated, Documents: docs}, nil
}
