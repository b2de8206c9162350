package typemap

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Converter translates values between their model form and the form the
// document store persists ("provider" values).
type Converter interface {
	ConvertToProvider(v any) (any, error)
	ConvertFromProvider(v any) (any, error)
}

// FuncConverter adapts a pair of functions to Converter. A nil function is
// the identity.
type FuncConverter struct {
	ToProvider   func(any) (any, error)
	FromProvider func(any) (any, error)
}

func (c FuncConverter) ConvertToProvider(v any) (any, error) {
	if c.ToProvider == nil || v == nil {
		return v, nil
	}
	return c.ToProvider(v)
}

func (c FuncConverter) ConvertFromProvider(v any) (any, error) {
	if c.FromProvider == nil || v == nil {
		return v, nil
	}
	return c.FromProvider(v)
}

// Mapping is the conversion rule for one semantic type.
type Mapping struct {
	ClrType   Type
	StoreType string
	Converter Converter
}

func (m *Mapping) String() string {
	if m == nil {
		return "<unmapped>"
	}
	return fmt.Sprintf("%s->%s", m.ClrType, m.StoreType)
}

// Source resolves semantic types to mappings. A nil result means the type
// has no mapping.
type Source interface {
	FindMapping(t Type) *Mapping
}

// Registry is the default Source. It is safe for concurrent lookups;
// Register is meant for setup time.
type Registry struct {
	mu     sync.RWMutex
	byKind map[Kind]*Mapping
	byName map[string]*Mapping
	enums  map[*EnumInfo]*Mapping
}

// NewRegistry creates a registry with the built-in mappings.
func NewRegistry() *Registry {
	r := &Registry{
		byKind: make(map[Kind]*Mapping),
		byName: make(map[string]*Mapping),
		enums:  make(map[*EnumInfo]*Mapping),
	}
	r.byKind[KindBool] = &Mapping{ClrType: Bool, StoreType: "INTEGER"}
	r.byKind[KindInt] = &Mapping{ClrType: Int, StoreType: "INTEGER"}
	r.byKind[KindFloat] = &Mapping{ClrType: Float, StoreType: "REAL"}
	r.byKind[KindString] = &Mapping{ClrType: String, StoreType: "TEXT", Converter: NFCConverter}
	r.byKind[KindChar] = &Mapping{ClrType: Char, StoreType: "TEXT", Converter: CharConverter}
	r.byKind[KindTime] = &Mapping{ClrType: Time, StoreType: "TEXT", Converter: TimeConverter}
	r.byKind[KindUUID] = &Mapping{ClrType: UUID, StoreType: "TEXT", Converter: UUIDConverter}
	r.byKind[KindBytes] = &Mapping{ClrType: Bytes, StoreType: "BLOB"}
	r.byKind[KindObject] = &Mapping{ClrType: Object}
	return r
}

// Register installs a mapping for types with the given name, taking
// precedence over the kind's built-in mapping.
func (r *Registry) Register(name string, m *Mapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = m
}

// FindMapping implements Source.
func (r *Registry) FindMapping(t Type) *Mapping {
	t = t.Unwrap()

	r.mu.RLock()
	if t.Name != "" {
		if m, ok := r.byName[t.Name]; ok {
			r.mu.RUnlock()
			return m
		}
	}
	if t.Kind == KindEnum && t.Enum != nil {
		if m, ok := r.enums[t.Enum]; ok {
			r.mu.RUnlock()
			return m
		}
	}
	builtin := r.byKind[t.Kind]
	r.mu.RUnlock()

	switch t.Kind {
	case KindNull:
		return nil
	case KindEnum:
		if t.Enum == nil {
			return nil
		}
		return r.enumMapping(t)
	case KindArray:
		var elem *Mapping
		if t.Elem != nil {
			elem = r.FindMapping(*t.Elem)
		}
		return &Mapping{ClrType: t, StoreType: "TEXT", Converter: arrayConverter{elem: elem}}
	case KindTime:
		if builtin != nil && t.Name != "" {
			return &Mapping{ClrType: t, StoreType: builtin.StoreType, Converter: builtin.Converter}
		}
	}
	return builtin
}

func (r *Registry) enumMapping(t Type) *Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.enums[t.Enum]; ok {
		return m
	}
	storeType := "TEXT"
	if t.Enum.StoreAsOrdinal {
		storeType = "INTEGER"
	}
	m := &Mapping{ClrType: t, StoreType: storeType, Converter: EnumConverter(t.Enum)}
	r.enums[t.Enum] = m
	return m
}

// NFCConverter normalizes strings to Unicode NFC on the way to the store.
var NFCConverter = FuncConverter{
	ToProvider: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return norm.NFC.String(s), nil
	},
}

// CharConverter stores runes as one-character strings.
var CharConverter = FuncConverter{
	ToProvider: func(v any) (any, error) {
		switch c := v.(type) {
		case rune:
			return string(c), nil
		case string:
			return c, nil
		}
		if n, ok := AsInt64(v); ok {
			return string(rune(n)), nil
		}
		return nil, fmt.Errorf("expected char, got %T", v)
	},
	FromProvider: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || len([]rune(s)) != 1 {
			return nil, fmt.Errorf("expected one-character string, got %v", v)
		}
		return []rune(s)[0], nil
	},
}

// TimeConverter stores times as RFC 3339 UTC strings.
var TimeConverter = FuncConverter{
	ToProvider: func(v any) (any, error) {
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(time.RFC3339Nano), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("parse time: %w", err)
			}
			return parsed.UTC().Format(time.RFC3339Nano), nil
		}
		return nil, fmt.Errorf("expected time, got %T", v)
	},
	FromProvider: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return time.Parse(time.RFC3339Nano, s)
	},
}

// UUIDConverter stores UUIDs in their canonical string form.
var UUIDConverter = FuncConverter{
	ToProvider: func(v any) (any, error) {
		switch id := v.(type) {
		case uuid.UUID:
			return id.String(), nil
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("parse uuid: %w", err)
			}
			return parsed.String(), nil
		}
		return nil, fmt.Errorf("expected uuid, got %T", v)
	},
	FromProvider: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return uuid.Parse(s)
	},
}

// EnumConverter stores enum members by name, or by ordinal when the enum
// is declared StoreAsOrdinal.
func EnumConverter(info *EnumInfo) Converter {
	return FuncConverter{
		ToProvider: func(v any) (any, error) {
			var ordinal int64
			switch e := v.(type) {
			case EnumValue:
				ordinal = e.Ordinal
			case string:
				o, ok := info.Ordinal(e)
				if !ok {
					return nil, fmt.Errorf("%q is not a member of enum %s", e, info.Name)
				}
				ordinal = o
			default:
				n, ok := AsInt64(v)
				if !ok {
					return nil, fmt.Errorf("expected enum %s, got %T", info.Name, v)
				}
				ordinal = n
			}
			if info.StoreAsOrdinal {
				return ordinal, nil
			}
			if ordinal < 0 || ordinal >= int64(len(info.Names)) {
				return nil, fmt.Errorf("ordinal %d out of range for enum %s", ordinal, info.Name)
			}
			return info.Names[ordinal], nil
		},
		FromProvider: func(v any) (any, error) {
			if s, ok := v.(string); ok {
				o, found := info.Ordinal(s)
				if !found {
					return nil, fmt.Errorf("%q is not a member of enum %s", s, info.Name)
				}
				return EnumValue{Enum: info, Ordinal: o}, nil
			}
			n, ok := AsInt64(v)
			if !ok {
				return nil, fmt.Errorf("expected enum %s, got %T", info.Name, v)
			}
			return EnumValue{Enum: info, Ordinal: n}, nil
		},
	}
}

// arrayConverter applies the element mapping's converter to each element.
type arrayConverter struct {
	elem *Mapping
}

func (c arrayConverter) ConvertToProvider(v any) (any, error) {
	return c.convert(v, true)
}

func (c arrayConverter) ConvertFromProvider(v any) (any, error) {
	return c.convert(v, false)
}

func (c arrayConverter) convert(v any, toProvider bool) (any, error) {
	items, ok := v.([]any)
	if !ok || c.elem == nil || c.elem.Converter == nil {
		return v, nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		var err error
		if toProvider {
			out[i], err = c.elem.Converter.ConvertToProvider(item)
		} else {
			out[i], err = c.elem.Converter.ConvertFromProvider(item)
		}
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}
