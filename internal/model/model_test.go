package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/typemap"
)

func peopleDefs() []EntityDef {
	return []EntityDef{
		{
			Name:          "Person",
			Collection:    "People",
			Abstract:      true,
			Key:           "Id",
			Discriminator: "Kind",
			Properties: []Property{
				{Name: "Id", Type: typemap.Int},
				{Name: "Kind", Type: typemap.String},
				{Name: "Name", Type: typemap.String},
			},
		},
		{Name: "Student", Base: "Person", Properties: []Property{{Name: "School", Type: typemap.String}}},
		{Name: "Teacher", Base: "Person", DiscriminatorValue: "T"},
		{Name: "Professor", Base: "Teacher"},
	}
}

func TestBuild_Hierarchy(t *testing.T) {
	m, err := Build(peopleDefs(), nil)
	require.NoError(t, err)

	person, ok := m.Entity("Person")
	require.True(t, ok)
	teacher, _ := m.Entity("Teacher")
	professor, _ := m.Entity("Professor")

	assert.True(t, person.IsInHierarchy())
	assert.Equal(t, "People", professor.Collection())
	assert.Same(t, person, professor.Root())
	assert.Equal(t, "T", teacher.DiscriminatorValue)
	assert.Equal(t, "Professor", professor.DiscriminatorValue)

	var names []string
	for _, e := range person.ConcreteDerivedTypesInclusive() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Student", "Teacher", "Professor"}, names)

	require.NotNil(t, professor.DiscriminatorProperty())
	assert.Equal(t, "Kind", professor.DiscriminatorProperty().Name)
}

func TestFindProperty(t *testing.T) {
	m, err := Build(peopleDefs(), nil)
	require.NoError(t, err)
	person, _ := m.Entity("Person")
	student, _ := m.Entity("Student")

	assert.NotNil(t, student.FindProperty("Name"), "inherited")
	assert.NotNil(t, person.FindProperty("School"), "declared on a subtype")
	assert.Nil(t, person.FindProperty("Missing"))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		defs []EntityDef
	}{
		{"unknown base", []EntityDef{{Name: "A", Base: "Nope"}}},
		{"duplicate", []EntityDef{{Name: "A"}, {Name: "A"}}},
		{"cycle", []EntityDef{{Name: "A", Base: "B"}, {Name: "B", Base: "A"}}},
		{"unknown navigation target", []EntityDef{{Name: "A", Navigations: []NavigationDef{{Name: "X", Target: "Y"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.defs, nil)
			assert.Error(t, err)
		})
	}
}

func TestCollectionDefaultsToRootName(t *testing.T) {
	m, err := Build([]EntityDef{{Name: "Customer"}}, nil)
	require.NoError(t, err)
	c, _ := m.Entity("Customer")
	assert.Equal(t, "Customer", c.Collection())
	assert.False(t, c.IsInHierarchy())
	assert.Nil(t, c.DiscriminatorProperty())
}
