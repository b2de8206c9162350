package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// StatusEnum is the enumeration used by the fixture model.
var StatusEnum = &typemap.EnumInfo{Name: "Status", Names: []string{"Active", "Suspended", "Closed"}}

// FixtureModel builds the model shared by package tests:
//
//	Customer (collection "Customers"): Id int, Name string, Status enum,
//	    Age int?, Active bool, Joined time, owned Address, owned Orders[]
//	Person (collection "People", abstract, discriminator Kind)
//	    <- Student, Teacher <- Professor
func FixtureModel(t testing.TB) *model.Model {
	t.Helper()
	m, err := model.Build(FixtureDefs(), map[string]*typemap.EnumInfo{"Status": StatusEnum})
	require.NoError(t, err)
	return m
}

// FixtureDefs returns the unresolved definitions behind FixtureModel.
func FixtureDefs() []model.EntityDef {
	return []model.EntityDef{
		{
			Name:  "Address",
			Owned: true,
			Properties: []model.Property{
				{Name: "City", Type: typemap.String},
				{Name: "Zip", Type: typemap.String},
			},
		},
		{
			Name:       "Order",
			Owned:      true,
			Properties: []model.Property{{Name: "Total", Type: typemap.Float}},
		},
		{
			Name:       "Customer",
			Collection: "Customers",
			Key:        "Id",
			Properties: []model.Property{
				{Name: "Id", Type: typemap.Int},
				{Name: "Name", Type: typemap.String},
				{Name: "Status", Type: typemap.EnumOf(StatusEnum)},
				{Name: "Age", Type: typemap.NullableOf(typemap.Int)},
				{Name: "Active", Type: typemap.Bool},
				{Name: "Joined", Type: typemap.Time},
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
			Key:           "Id",
			Discriminator: "Kind",
			Properties: []model.Property{
				{Name: "Id", Type: typemap.Int},
				{Name: "Kind", Type: typemap.String},
				{Name: "Name", Type: typemap.String},
			},
		},
		{Name: "Student", Base: "Person"},
		{Name: "Teacher", Base: "Person"},
		{Name: "Professor", Base: "Teacher"},
	}
}

// Entity returns the named entity from m or fails the test.
func Entity(t testing.TB, m *model.Model, name string) *model.EntityType {
	t.Helper()
	e, ok := m.Entity(name)
	require.True(t, ok, "entity %s not in model", name)
	return e
}
