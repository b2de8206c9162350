package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/typemap"
)

func TestValidate_CleanPlan(t *testing.T) {
	f, root := newTestFactory(t)
	sel, err := f.Select(root.Entity)
	require.NoError(t, err)
	sel = f.Where(sel, f.Equal(prop(t, f, root, "Id"), f.Parameter("id", typemap.Int, nil)))
	sel = f.Take(sel, f.Constant(10, nil))
	sel = f.Skip(sel, f.Constant(5, nil))

	result := Validate(sel)

	assert.True(t, result.OK())
	assert.NoError(t, result.Err())
	assert.Empty(t, result.Warnings)
}

func TestValidate_OffsetWithoutLimit(t *testing.T) {
	f, root := newTestFactory(t)
	sel, err := f.Select(root.Entity)
	require.NoError(t, err)
	sel = f.Skip(sel, f.Constant(5, nil))

	result := Validate(sel)

	assert.False(t, result.OK())
	assert.True(t, IsGenerationError(result.Err(), ErrCodeOffsetWithoutLimit))
}

func TestValidate_Rules(t *testing.T) {
	f, root := newTestFactory(t)
	base, err := f.Select(root.Entity)
	require.NoError(t, err)

	tests := []struct {
		name string
		sel  *Select
		code GenerationErrorCode
	}{
		{
			name: "raw arguments not a list",
			sel: func() *Select {
				s, _ := f.FromRaw(root.Entity, "SELECT * FROM x", f.Constant(3, nil))
				return s
			}(),
			code: ErrCodeInvalidFromRaw,
		},
		{
			name: "raw arguments are an expression",
			sel: func() *Select {
				s, _ := f.FromRaw(root.Entity, "SELECT * FROM x", prop(t, f, root, "Id"))
				return s
			}(),
			code: ErrCodeInvalidFromRaw,
		},
		{
			name: "membership over non-list constant",
			sel:  f.Where(base, f.In(prop(t, f, root, "Id"), f.Constant(1, nil), false)),
			code: ErrCodeInvalidConstant,
		},
		{
			name: "duplicate alias",
			sel:  f.Project(f.Project(base, "x", prop(t, f, root, "Id")), "x", prop(t, f, root, "Name")),
			code: ErrCodeUnresolvableProjection,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sel)
			require.False(t, result.OK())
			assert.True(t, IsGenerationError(result.Err(), tt.code), "got %v", result.Err())
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	f, root := newTestFactory(t)
	sel, err := f.Select(root.Entity)
	require.NoError(t, err)
	sel.Predicate = &Binary{
		Op:      OpEq,
		Left:    &KeyAccess{Accessor: root, Name: "Extra", ClrType: typemap.Object},
		Right:   f.Parameter("v", typemap.Int, nil),
		ClrType: typemap.Bool,
	}

	result := Validate(sel)

	assert.True(t, result.OK())
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "Property 'Extra'")
	assert.Contains(t, result.Warnings[1], "Parameter 'v'")
}

func TestValidate_NilPlan(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.OK())
}
