package queryir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

var statusEnum = &typemap.EnumInfo{Name: "Status", Names: []string{"Active", "Suspended", "Closed"}}

// testModel returns Customer (with an owned Address and Orders) and the
// People hierarchy Person <- Student, Teacher <- Professor.
func testModel(t *testing.T) *model.Model {
	t.Helper()
	defs := []model.EntityDef{
		{
			Name:  "Address",
			Owned: true,
			Properties: []model.Property{
				{Name: "City", Type: typemap.String},
				{Name: "Zip", Type: typemap.String},
			},
		},
		{
			Name:  "Order",
			Owned: true,
			Properties: []model.Property{
				{Name: "Total", Type: typemap.Float},
			},
		},
		{
			Name:       "Customer",
			Collection: "Customers",
			Key:        "Id",
			Properties: []model.Property{
				{Name: "Id", Type: typemap.Int},
				{Name: "Name", Type: typemap.String},
				{Name: "Status", Type: typemap.EnumOf(statusEnum)},
				{Name: "Age", Type: typemap.NullableOf(typemap.Int)},
				{Name: "Active", Type: typemap.Bool},
			},
			Navigations: []model.NavigationDef{
				{Name: "Address", Target: "Address"},
				{Name: "Orders", Target: "Order", Collection: true},
			},
		},
		{
			Name:          "Person",
			Collection:    "People",
			Abstract:      true,
			Discriminator: "Kind",
			Properties: []model.Property{
				{Name: "Id", Type: typemap.Int},
				{Name: "Kind", Type: typemap.String},
			},
		},
		{Name: "Student", Base: "Person"},
		{Name: "Teacher", Base: "Person"},
		{Name: "Professor", Base: "Teacher"},
		{Name: "Animal", Properties: []model.Property{{Name: "Id", Type: typemap.Int}}},
		{Name: "Dog", Base: "Animal"},
	}
	m, err := model.Build(defs, map[string]*typemap.EnumInfo{"Status": statusEnum})
	require.NoError(t, err)
	return m
}

func entity(t *testing.T, m *model.Model, name string) *model.EntityType {
	t.Helper()
	e, ok := m.Entity(name)
	require.True(t, ok, "entity %s", name)
	return e
}

func prop(t *testing.T, f *Factory, root Expr, name string) *KeyAccess {
	t.Helper()
	k, err := f.Property(root, name)
	require.NoError(t, err)
	return k
}
