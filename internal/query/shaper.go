package query

import (
	"fmt"
	"slices"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/model"
)

// Shaper rebuilds one typed result from a returned document.
type Shaper[T any] func(qctx *Context, doc document.Object) (T, error)

// DocumentShaper returns documents as-is.
func DocumentShaper() Shaper[document.Object] {
	return func(_ *Context, doc document.Object) (document.Object, error) {
		return doc, nil
	}
}

// EntityShaper returns documents as-is after checking that the
// discriminator names one of entity's concrete types.
func EntityShaper(entity *model.EntityType) Shaper[document.Object] {
	prop := entity.DiscriminatorProperty()
	if prop == nil {
		return DocumentShaper()
	}

	var allowed []any
	for _, t := range entity.ConcreteDerivedTypesInclusive() {
		allowed = append(allowed, t.DiscriminatorValue)
	}

	return func(_ *Context, doc document.Object) (document.Object, error) {
		raw, ok := doc[prop.Name]
		if !ok {
			return nil, fmt.Errorf("document has no discriminator %q", prop.Name)
		}
		value := document.ToAny(raw)
		if !slices.ContainsFunc(allowed, func(a any) bool { return discriminatorEqual(a, value) }) {
			return nil, fmt.Errorf("discriminator %q value %v is not a concrete %s type", prop.Name, value, entity.Name)
		}
		return doc, nil
	}
}

func discriminatorEqual(want, got any) bool {
	return fmt.Sprint(want) == fmt.Sprint(got)
}
