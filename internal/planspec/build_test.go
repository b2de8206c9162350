package planspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/querysql"
	"github.com/roach88/docql/internal/testutil"
	"github.com/roach88/docql/internal/translate"
	"github.com/roach88/docql/internal/typemap"
)

type fixture struct {
	f        *queryir.Factory
	b        *Builder
	customer *model.EntityType
	root     *queryir.RootReference
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := testutil.FixtureModel(t)
	f := queryir.NewFactory(typemap.NewRegistry())
	customer := testutil.Entity(t, m, "Customer")
	return &fixture{
		f:        f,
		b:        NewBuilder(m, f),
		customer: customer,
		root:     f.Root(queryir.DefaultAlias, customer),
	}
}

func (fx *fixture) prop(t *testing.T, name string) queryir.Expr {
	t.Helper()
	k, err := fx.f.Property(fx.root, name)
	require.NoError(t, err)
	return k
}

func (fx *fixture) build(t *testing.T, yamlText string) *queryir.Select {
	t.Helper()
	p, err := Parse([]byte(yamlText))
	require.NoError(t, err)
	sel, err := fx.b.Build(p)
	require.NoError(t, err)
	return sel
}

func generate(t *testing.T, f *queryir.Factory, sel *queryir.Select, params map[string]any) *querysql.Query {
	t.Helper()
	expanded, err := f.ExpandSelect(sel, params)
	require.NoError(t, err)
	q, err := querysql.NewGenerator(typemap.NewRegistry()).Generate(expanded, params)
	require.NoError(t, err)
	return q
}

func TestBuild_MatchesFactory(t *testing.T) {
	fx := newFixture(t)
	f := fx.f

	want, err := f.Select(fx.customer)
	require.NoError(t, err)
	want = f.Where(want, f.AndAlso(
		f.AndAlso(
			f.Equal(fx.prop(t, "Name"), f.Parameter("name", typemap.String, nil)),
			f.GreaterThan(fx.prop(t, "Id"), f.Constant(1, nil)),
		),
		fx.prop(t, "Active"),
	))
	want = f.OrderBy(want, fx.prop(t, "Name"), false)
	want = f.OrderBy(want, fx.prop(t, "Id"), true)

	got := fx.build(t, `
entity: Customer
parameters:
  name: string
where:
  and:
    - eq: [{prop: Name}, {param: name}]
    - gt: [{prop: Id}, 1]
    - prop: Active
order_by:
  - expr: {prop: Name}
    desc: true
  - expr: {prop: Id}
`)

	params := map[string]any{"name": "Ann"}
	assert.Equal(t, generate(t, f, want, params).Text, generate(t, f, got, params).Text)
}

func TestBuild_Paging(t *testing.T) {
	fx := newFixture(t)

	sel := fx.build(t, `
entity: Customer
parameters:
  skip: int
skip: {param: skip}
take: 10
`)
	q := generate(t, fx.f, sel, map[string]any{"skip": 5})

	assert.Equal(t, "SELECT c.doc\nFROM \"Customers\" AS c\nLIMIT 10 OFFSET @p0", q.Text)
	require.Len(t, q.Parameters, 1)
	assert.Equal(t, "skip", q.Parameters[0].Source)
}

func TestBuild_Predicates(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name     string
		where    string
		params   map[string]any
		expected string
	}{
		{
			name:     "nested property",
			where:    `{eq: [{prop: Address.City}, "O'Hare"]}`,
			expected: "(json_extract(c.doc, '$.Address.City') = 'O''Hare')",
		},
		{
			name:     "constant membership",
			where:    `{in: {item: {prop: Id}, values: [1, 2, 3]}}`,
			expected: "(json_extract(c.doc, '$.Id') IN (1, 2, 3))",
		},
		{
			name:     "negated enum membership",
			where:    `{in: {item: {prop: Status}, values: {const: [Active, 2]}, negated: true}}`,
			expected: "(json_extract(c.doc, '$.Status') NOT IN ('Active', 'Closed'))",
		},
		{
			name:     "convert",
			where:    `{gt: [{convert: {expr: {prop: Id}, type: float}}, 1.5]}`,
			expected: "(CAST(json_extract(c.doc, '$.Id') AS REAL) > 1.5)",
		},
		{
			name:     "conditional",
			where:    `{eq: [{if: [{prop: Active}, 1, 0]}, 1]}`,
			expected: "(CASE WHEN json_extract(c.doc, '$.Active') THEN 1 ELSE 0 END = 1)",
		},
		{
			name:     "utc now",
			where:    `{lt: [{prop: Joined}, {member: {name: UtcNow, declaring: DateTime}}]}`,
			expected: "(json_extract(c.doc, '$.Joined') < strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))",
		},
		{
			name:     "equals across types folds to false",
			where:    `{call: {method: Equals, on: {prop: Id}, args: [{prop: Name}]}}`,
			expected: "false",
		},
		{
			name:     "null test",
			where:    `{is_null: {prop: Age}}`,
			expected: "(json_extract(c.doc, '$.Age') IS NULL)",
		},
		{
			name:     "or of comparisons",
			where:    `{or: [{eq: [{prop: Name}, x]}, {eq: [{prop: Name}, y]}]}`,
			expected: "((json_extract(c.doc, '$.Name') = 'x') OR (json_extract(c.doc, '$.Name') = 'y'))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := fx.build(t, "entity: Customer\nwhere: "+tt.where+"\n")
			q := generate(t, fx.f, sel, tt.params)
			assert.Equal(t, "SELECT c.doc\nFROM \"Customers\" AS c\nWHERE "+tt.expected, q.Text)
		})
	}
}

func TestBuild_Translations(t *testing.T) {
	fx := newFixture(t)
	f := fx.f

	tests := []struct {
		name  string
		where string
		want  func() queryir.Expr
	}{
		{
			name:  "string length",
			where: `{gt: [{member: {name: Length, on: {prop: Name}}}, 3]}`,
			want: func() queryir.Expr {
				return f.GreaterThan(f.Function("length", []queryir.Expr{fx.prop(t, "Name")}, typemap.Int, nil), f.Constant(3, nil))
			},
		},
		{
			name:  "to upper",
			where: `{eq: [{call: {method: ToUpper, on: {prop: Name}}}, ANN]}`,
			want: func() queryir.Expr {
				return f.Equal(f.Function("upper", []queryir.Expr{fx.prop(t, "Name")}, typemap.String, nil), f.Constant("ANN", nil))
			},
		},
		{
			name:  "contains",
			where: `{call: {method: Contains, on: {prop: Name}, args: [nn]}}`,
			want: func() queryir.Expr {
				instr := f.Function("instr", []queryir.Expr{fx.prop(t, "Name"), f.Constant("nn", nil)}, typemap.Int, nil)
				return f.GreaterThan(instr, f.Constant(0, nil))
			},
		},
		{
			name:  "static equals",
			where: `{call: {method: Equals, args: [{prop: Id}, 44]}}`,
			want: func() queryir.Expr {
				return f.Equal(fx.prop(t, "Id"), f.Constant(44, nil))
			},
		},
		{
			name:  "function",
			where: `{gt: [{func: {name: abs, args: [{prop: Id}], returns: int}}, 2]}`,
			want: func() queryir.Expr {
				return f.GreaterThan(f.Function("abs", []queryir.Expr{fx.prop(t, "Id")}, typemap.Int, nil), f.Constant(2, nil))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := f.Select(fx.customer)
			require.NoError(t, err)
			want = f.Where(want, tt.want())

			got := fx.build(t, "entity: Customer\nwhere: "+tt.where+"\n")

			assert.Equal(t, generate(t, f, want, nil).Text, generate(t, f, got, nil).Text)
		})
	}
}

func TestBuild_PluginTranslator(t *testing.T) {
	fx := newFixture(t)
	f := fx.f
	fx.b.Methods().AddPlugins(translate.MethodTranslatorFunc(
		func(instance queryir.Expr, method translate.Method, args []queryir.Expr) queryir.Expr {
			if method.Name != "Reverse" || instance == nil {
				return nil
			}
			return f.Function("reverse", []queryir.Expr{instance}, typemap.String, nil)
		}))

	sel := fx.build(t, "entity: Customer\nwhere: {eq: [{call: {method: Reverse, on: {prop: Name}}}, nnA]}\n")
	q := generate(t, f, sel, nil)

	assert.Contains(t, q.Text, "reverse(json_extract(c.doc, '$.Name'))")
}

func TestBuild_ListParameterMembership(t *testing.T) {
	fx := newFixture(t)

	sel := fx.build(t, `
entity: Customer
parameters:
  ids: "[]int"
where:
  in: {item: {prop: Id}, values: {param: ids}}
`)
	q := generate(t, fx.f, sel, map[string]any{"ids": []any{1, 2}})

	assert.Equal(t, "SELECT c.doc\nFROM \"Customers\" AS c\nWHERE (json_extract(c.doc, '$.Id') IN (1, 2))", q.Text)
}

func TestBuild_Projection(t *testing.T) {
	fx := newFixture(t)
	f := fx.f

	address, err := f.Navigation(fx.root, "Address")
	require.NoError(t, err)
	orders, err := f.ObjectArray(fx.root, "Orders")
	require.NoError(t, err)
	want, err := f.Select(fx.customer)
	require.NoError(t, err)
	want = f.Project(want, "name", fx.prop(t, "Name"))
	want = f.Project(want, "address", address)
	want = f.Project(want, "orders", orders)
	want = f.Distinct(want)

	got := fx.build(t, `
entity: Customer
select:
  - {as: name, expr: {prop: Name}}
  - {as: address, expr: {nav: Address}}
  - {as: orders, expr: {array: Orders}}
distinct: true
`)

	assert.Equal(t, generate(t, f, want, nil).Text, generate(t, f, got, nil).Text)
}

func TestBuild_Hierarchy(t *testing.T) {
	fx := newFixture(t)

	sel := fx.build(t, "entity: Teacher\nwhere: {eq: [{prop: Name}, Ann]}\n")
	q := generate(t, fx.f, sel, nil)

	assert.Equal(t,
		"SELECT c.doc\nFROM \"People\" AS c\nWHERE ((json_extract(c.doc, '$.Kind') IN ('Teacher', 'Professor')) AND (json_extract(c.doc, '$.Name') = 'Ann'))",
		q.Text)
}

func TestBuild_FromRaw(t *testing.T) {
	fx := newFixture(t)

	sel := fx.build(t, `
entity: Customer
parameters:
  args: object
from_raw:
  text: SELECT * FROM "Customers" WHERE json_extract(doc, '$.Age') > {0}
  args: {param: args}
`)
	q := generate(t, fx.f, sel, map[string]any{"args": []any{30}})

	assert.Equal(t,
		"SELECT c.doc\nFROM (\n    SELECT * FROM \"Customers\" WHERE json_extract(doc, '$.Age') > @p0\n) c",
		q.Text)
	require.Len(t, q.Parameters, 1)
}

func TestBuild_Errors(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name    string
		plan    string
		wantErr string
	}{
		{"unknown entity", "entity: Nope\n", `unknown entity "Nope"`},
		{"bad parameter type", "entity: Customer\nparameters: {x: decimal}\n", "parameters.x"},
		{"unknown form", "entity: Customer\nwhere: {like: [1, 2]}\n", `unknown expression form "like"`},
		{"two keys", "entity: Customer\nwhere: {eq: [1, 1], ne: [1, 2]}\n", "exactly one key"},
		{"unknown property", "entity: Customer\nwhere: {prop: Nope}\n", `property "Nope" not found`},
		{"unknown navigation", "entity: Customer\nwhere: {prop: Nope.City}\n", `navigation "Nope" not found`},
		{"undeclared parameter", "entity: Customer\nwhere: {eq: [{prop: Id}, {param: id}]}\n", `parameter "id" not declared`},
		{"wrong arity", "entity: Customer\nwhere: {eq: [1]}\n", "expected 2 operands, got 1"},
		{"logical arity", "entity: Customer\nwhere: {and: [true]}\n", "expected at least 2 operands"},
		{"operands not a list", "entity: Customer\nwhere: {eq: 1}\n", "expected a list of operands"},
		{"unsupported operator", "entity: Customer\nwhere: {coalesce: [{prop: Age}, 1]}\n", "Coalesce"},
		{"unknown in field", "entity: Customer\nwhere: {in: {item: 1, values: [1], not: true}}\n", `unknown field "not"`},
		{"missing in field", "entity: Customer\nwhere: {in: {item: 1}}\n", "values is required"},
		{"untranslatable member", "entity: Customer\nwhere: {member: {name: Ticks, on: {prop: Joined}}}\n", "no translation for member"},
		{"member without receiver", "entity: Customer\nwhere: {member: {name: UtcNow}}\n", "on or declaring is required"},
		{"untranslatable method", "entity: Customer\nwhere: {call: {method: Frobnicate, on: {prop: Name}}}\n", "no translation for method Frobnicate"},
		{"array as property", "entity: Customer\nselect: [{as: o, expr: {nav: Orders}}]\n", `navigation "Orders" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.plan))
			require.NoError(t, err)
			_, err = fx.b.Build(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild_ErrorLocation(t *testing.T) {
	fx := newFixture(t)
	p, err := Parse([]byte("entity: Customer\nwhere:\n  and:\n    - prop: Active\n    - prop: Nope\n"))
	require.NoError(t, err)

	_, err = fx.b.Build(p)

	require.True(t, IsPlanError(err))
	var pe *PlanError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "where.and[1].prop", pe.Path)
	assert.Equal(t, 5, pe.Line)
	assert.True(t, queryir.IsGenerationError(err, ""))
}
