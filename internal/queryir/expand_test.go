package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/typemap"
)

func TestExpandMembership(t *testing.T) {
	tests := []struct {
		name    string
		values  any
		negated bool
		check   func(t *testing.T, e Expr)
	}{
		{
			name:   "non-null values",
			values: []int{1, 2},
			check: func(t *testing.T, e Expr) {
				in, ok := e.(*In)
				require.True(t, ok, "got %T", e)
				assert.Equal(t, []any{1, 2}, in.Values.(*Constant).Value)
				assert.NotNil(t, in.Values.Mapping())
			},
		},
		{
			name:   "values with null",
			values: []any{1, nil},
			check: func(t *testing.T, e Expr) {
				or, ok := e.(*Binary)
				require.True(t, ok, "got %T", e)
				assert.Equal(t, OpOrElse, or.Op)
				assert.IsType(t, &In{}, or.Left)
				assert.Equal(t, OpEq, or.Right.(*Binary).Op)
			},
		},
		{
			name:    "negated values with null",
			values:  []any{1, nil},
			negated: true,
			check: func(t *testing.T, e Expr) {
				and, ok := e.(*Binary)
				require.True(t, ok, "got %T", e)
				assert.Equal(t, OpAndAlso, and.Op)
				assert.True(t, and.Left.(*In).Negated)
				assert.Equal(t, OpNeq, and.Right.(*Binary).Op)
			},
		},
		{
			name:   "only nulls",
			values: []any{nil, nil},
			check: func(t *testing.T, e Expr) {
				b, ok := e.(*Binary)
				require.True(t, ok, "got %T", e)
				assert.Equal(t, OpEq, b.Op)
				assert.Nil(t, b.Right.(*Constant).Value)
			},
		},
		{
			name:    "negated only nulls",
			values:  []any{nil},
			negated: true,
			check: func(t *testing.T, e Expr) {
				assert.Equal(t, OpNeq, e.(*Binary).Op)
			},
		},
		{
			name:   "empty",
			values: []any{},
			check: func(t *testing.T, e Expr) {
				b := e.(*Binary)
				assert.Equal(t, OpEq, b.Op)
				assert.Equal(t, true, b.Left.(*Constant).Value)
				assert.Equal(t, false, b.Right.(*Constant).Value)
			},
		},
		{
			name:    "negated empty",
			values:  []string{},
			negated: true,
			check: func(t *testing.T, e Expr) {
				b := e.(*Binary)
				assert.Equal(t, true, b.Right.(*Constant).Value)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, root := newTestFactory(t)
			in := f.In(prop(t, f, root, "Id"), f.Parameter("ids", typemap.Object, nil), tt.negated)

			out, err := f.ExpandMembership(in, map[string]any{"ids": tt.values})
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestExpandMembership_ConstantValues(t *testing.T) {
	f, root := newTestFactory(t)
	in := f.In(prop(t, f, root, "Name"), f.Constant([]any{"a", nil}, nil), false)

	out, err := f.ExpandMembership(in, nil)
	require.NoError(t, err)
	or := out.(*Binary)
	assert.Equal(t, []any{"a"}, or.Left.(*In).Values.(*Constant).Value)
}

func TestExpandMembership_Errors(t *testing.T) {
	f, root := newTestFactory(t)
	in := f.In(prop(t, f, root, "Id"), f.Parameter("ids", typemap.Object, nil), false)

	_, err := f.ExpandMembership(in, map[string]any{})
	assert.True(t, IsGenerationError(err, ErrCodeMissingParameter))
	assert.Contains(t, err.Error(), "parameter=ids")

	_, err = f.ExpandMembership(in, map[string]any{"ids": 5})
	assert.True(t, IsGenerationError(err, ErrCodeInvalidParameter))

	_, err = f.ExpandMembership(in, map[string]any{"ids": []byte("ab")})
	assert.True(t, IsGenerationError(err, ErrCodeInvalidParameter), "bytes are a scalar")
}

func TestExpandSelect_NestedAndUntouched(t *testing.T) {
	f, root := newTestFactory(t)
	sel, err := f.Select(root.Entity)
	require.NoError(t, err)

	untouched := f.Where(sel, f.Equal(prop(t, f, root, "Id"), f.Constant(1, nil)))
	out, err := f.ExpandSelect(untouched, nil)
	require.NoError(t, err)
	assert.Same(t, untouched, out, "no membership nodes: identity preserved")

	nested := f.Where(sel, f.Not(f.In(prop(t, f, root, "Id"), f.Parameter("ids", typemap.Object, nil), false)))
	out, err = f.ExpandSelect(nested, map[string]any{"ids": []int64{7}})
	require.NoError(t, err)
	not := out.Predicate.(*Unary)
	assert.Equal(t, []any{int64(7)}, not.Operand.(*In).Values.(*Constant).Value)
}
