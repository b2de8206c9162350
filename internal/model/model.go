// Package model describes the entity types stored in document collections:
// their properties, owned navigations, inheritance and discriminators.
package model

import (
	"fmt"
	"sort"

	"github.com/roach88/docql/internal/typemap"
)

// Property is a scalar field of an entity document.
type Property struct {
	Name string
	Type typemap.Type
}

// Navigation is an owned sub-document (or array of sub-documents).
type Navigation struct {
	Name       string
	Target     *EntityType
	Collection bool
}

// EntityType is a resolved entity in a Model.
type EntityType struct {
	Name               string
	Base               *EntityType
	Abstract           bool
	Owned              bool
	Key                string
	Discriminator      string // property name; only meaningful on the hierarchy root
	DiscriminatorValue any
	Properties         []Property
	Navigations        []Navigation

	collection string
	derived    []*EntityType
}

// Root returns the top of the entity's inheritance chain.
func (e *EntityType) Root() *EntityType {
	root := e
	for root.Base != nil {
		root = root.Base
	}
	return root
}

// Collection returns the collection holding documents of this type. Derived
// types share their root's collection.
func (e *EntityType) Collection() string {
	root := e.Root()
	if root.collection != "" {
		return root.collection
	}
	return root.Name
}

// Derived returns the direct subtypes in declaration order.
func (e *EntityType) Derived() []*EntityType {
	return e.derived
}

// IsInHierarchy reports whether the type has a base type or subtypes.
func (e *EntityType) IsInHierarchy() bool {
	return e.Base != nil || len(e.derived) > 0
}

// DiscriminatorProperty returns the hierarchy's discriminator property, or
// nil when none is declared.
func (e *EntityType) DiscriminatorProperty() *Property {
	for t := e; t != nil; t = t.Base {
		if t.Discriminator != "" {
			return t.FindProperty(t.Discriminator)
		}
	}
	return nil
}

// ConcreteDerivedTypesInclusive returns e and all of its descendants that
// are not abstract, depth-first in declaration order.
func (e *EntityType) ConcreteDerivedTypesInclusive() []*EntityType {
	var out []*EntityType
	var walk func(t *EntityType)
	walk = func(t *EntityType) {
		if !t.Abstract {
			out = append(out, t)
		}
		for _, d := range t.derived {
			walk(d)
		}
	}
	walk(e)
	return out
}

// FindProperty looks the property up on e, its ancestors, then its
// descendants (a query over a base type may filter on subtype fields).
func (e *EntityType) FindProperty(name string) *Property {
	for t := e; t != nil; t = t.Base {
		for i := range t.Properties {
			if t.Properties[i].Name == name {
				return &t.Properties[i]
			}
		}
	}
	for _, d := range e.derived {
		if p := d.findOwnOrDerivedProperty(name); p != nil {
			return p
		}
	}
	return nil
}

func (e *EntityType) findOwnOrDerivedProperty(name string) *Property {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	for _, d := range e.derived {
		if p := d.findOwnOrDerivedProperty(name); p != nil {
			return p
		}
	}
	return nil
}

// FindNavigation looks up an owned navigation on e or its ancestors.
func (e *EntityType) FindNavigation(name string) *Navigation {
	for t := e; t != nil; t = t.Base {
		for i := range t.Navigations {
			if t.Navigations[i].Name == name {
				return &t.Navigations[i]
			}
		}
	}
	return nil
}

// Model is an immutable set of resolved entity types.
type Model struct {
	entities map[string]*EntityType
	enums    map[string]*typemap.EnumInfo
	order    []string
}

// Entity returns the named entity type.
func (m *Model) Entity(name string) (*EntityType, bool) {
	e, ok := m.entities[name]
	return e, ok
}

// Entities returns all entity types in declaration order.
func (m *Model) Entities() []*EntityType {
	out := make([]*EntityType, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.entities[name])
	}
	return out
}

// Enum returns the named enumeration.
func (m *Model) Enum(name string) (*typemap.EnumInfo, bool) {
	e, ok := m.enums[name]
	return e, ok
}

// Enums returns the model's enumerations keyed by name.
func (m *Model) Enums() map[string]*typemap.EnumInfo {
	return m.enums
}

// EnumNames returns enum names sorted.
func (m *Model) EnumNames() []string {
	names := make([]string, 0, len(m.enums))
	for n := range m.enums {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EntityDef is the unresolved form of an entity, as produced by the model
// compiler. References to other entities are by name.
type EntityDef struct {
	Name               string          `json:"name"`
	Collection         string          `json:"collection,omitempty"`
	Base               string          `json:"base,omitempty"`
	Abstract           bool            `json:"abstract,omitempty"`
	Owned              bool            `json:"owned,omitempty"`
	Key                string          `json:"key,omitempty"`
	Discriminator      string          `json:"discriminator,omitempty"`
	DiscriminatorValue any             `json:"discriminator_value,omitempty"`
	Properties         []Property      `json:"-"`
	Navigations        []NavigationDef `json:"navigations,omitempty"`
}

// NavigationDef references its target entity by name.
type NavigationDef struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	Collection bool   `json:"collection,omitempty"`
}

// Build resolves definitions into a Model. Base and navigation targets must
// name defined entities and the inheritance graph must be acyclic.
//
// Discriminator values default to the entity name.
func Build(defs []EntityDef, enums map[string]*typemap.EnumInfo) (*Model, error) {
	m := &Model{
		entities: make(map[string]*EntityType, len(defs)),
		enums:    enums,
	}
	if m.enums == nil {
		m.enums = map[string]*typemap.EnumInfo{}
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("entity without name")
		}
		if _, dup := m.entities[def.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", def.Name)
		}
		discValue := def.DiscriminatorValue
		if discValue == nil {
			discValue = def.Name
		}
		m.entities[def.Name] = &EntityType{
			Name:               def.Name,
			Abstract:           def.Abstract,
			Owned:              def.Owned,
			Key:                def.Key,
			Discriminator:      def.Discriminator,
			DiscriminatorValue: discValue,
			Properties:         append([]Property(nil), def.Properties...),
			collection:         def.Collection,
		}
		m.order = append(m.order, def.Name)
	}

	for _, def := range defs {
		e := m.entities[def.Name]
		if def.Base != "" {
			base, ok := m.entities[def.Base]
			if !ok {
				return nil, fmt.Errorf("entity %q: unknown base %q", def.Name, def.Base)
			}
			e.Base = base
			base.derived = append(base.derived, e)
		}
		for _, nav := range def.Navigations {
			target, ok := m.entities[nav.Target]
			if !ok {
				return nil, fmt.Errorf("entity %q: navigation %q targets unknown entity %q", def.Name, nav.Name, nav.Target)
			}
			e.Navigations = append(e.Navigations, Navigation{Name: nav.Name, Target: target, Collection: nav.Collection})
		}
	}

	for _, name := range m.order {
		steps := 0
		for t := m.entities[name]; t.Base != nil; t = t.Base {
			steps++
			if steps > len(m.order) {
				return nil, fmt.Errorf("entity %q: inheritance cycle", name)
			}
		}
	}

	return m, nil
}
