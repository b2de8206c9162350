package typemap

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the semantic category of a value type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindChar
	KindEnum
	KindTime
	KindUUID
	KindBytes
	KindObject
	KindArray
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindChar:   "char",
	KindEnum:   "enum",
	KindTime:   "time",
	KindUUID:   "uuid",
	KindBytes:  "bytes",
	KindObject: "object",
	KindArray:  "array",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// EnumInfo describes an enumeration: ordinal i has name Names[i].
type EnumInfo struct {
	Name           string
	Names          []string
	StoreAsOrdinal bool
}

// Ordinal returns the ordinal of the named member.
func (e *EnumInfo) Ordinal(name string) (int64, bool) {
	for i, n := range e.Names {
		if n == name {
			return int64(i), true
		}
	}
	return 0, false
}

// EnumValue is a typed enum member. Integer constants compared against an
// enum-mapped expression are normalized into EnumValue before conversion.
type EnumValue struct {
	Enum    *EnumInfo
	Ordinal int64
}

// String returns the member name, or the ordinal when out of range.
func (v EnumValue) String() string {
	if v.Enum != nil && v.Ordinal >= 0 && v.Ordinal < int64(len(v.Enum.Names)) {
		return v.Enum.Names[v.Ordinal]
	}
	return fmt.Sprintf("%d", v.Ordinal)
}

// Type is the semantic ("CLR") type of an expression.
//
// Types are plain values. Elem is set for arrays, Enum for enums. Name
// distinguishes named variants of a kind (e.g. "DateTimeOffset" vs
// "DateTime" for KindTime) and is used for registry overrides.
type Type struct {
	Kind     Kind
	Name     string
	Nullable bool
	Elem     *Type
	Enum     *EnumInfo
}

// Predefined types.
var (
	Null   = Type{Kind: KindNull}
	Bool   = Type{Kind: KindBool}
	Int    = Type{Kind: KindInt}
	Float  = Type{Kind: KindFloat}
	String = Type{Kind: KindString}
	Char   = Type{Kind: KindChar}
	Time   = Type{Kind: KindTime}
	UUID   = Type{Kind: KindUUID}
	Bytes  = Type{Kind: KindBytes}
	Object = Type{Kind: KindObject}
)

// NullableOf returns t marked nullable.
func NullableOf(t Type) Type {
	t.Nullable = true
	return t
}

// ArrayOf returns an array type with element type elem.
func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// EnumOf returns the type of the given enumeration.
func EnumOf(info *EnumInfo) Type {
	return Type{Kind: KindEnum, Name: info.Name, Enum: info}
}

// Unwrap drops nullability.
func (t Type) Unwrap() Type {
	t.Nullable = false
	return t
}

// IsZero reports whether t is the zero Type (no type information).
func (t Type) IsZero() bool {
	return t.Kind == KindNull && t.Name == "" && !t.Nullable && t.Elem == nil && t.Enum == nil
}

// Equal compares two types structurally.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Name != o.Name || t.Nullable != o.Nullable {
		return false
	}
	if (t.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	return true
}

func (t Type) String() string {
	var s string
	switch t.Kind {
	case KindArray:
		if t.Elem != nil {
			s = "[]" + t.Elem.String()
		} else {
			s = "[]object"
		}
	case KindEnum:
		s = "enum:" + t.Name
	default:
		s = t.Kind.String()
		if t.Name != "" {
			s = t.Name
		}
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

// ParseType parses a type string as written in model definitions:
//
//	int, string, bool, float, char, time, uuid, bytes, object
//	int?            nullable
//	[]string        array
//	enum:Status     enumeration declared in enums
func ParseType(s string, enums map[string]*EnumInfo) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Type{}, fmt.Errorf("empty type")
	}
	if strings.HasSuffix(s, "?") {
		inner, err := ParseType(strings.TrimSuffix(s, "?"), enums)
		if err != nil {
			return Type{}, err
		}
		return NullableOf(inner), nil
	}
	if strings.HasPrefix(s, "[]") {
		elem, err := ParseType(strings.TrimPrefix(s, "[]"), enums)
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	}
	if name, ok := strings.CutPrefix(s, "enum:"); ok {
		info, found := enums[name]
		if !found {
			return Type{}, fmt.Errorf("unknown enum %q", name)
		}
		return EnumOf(info), nil
	}
	switch s {
	case "bool":
		return Bool, nil
	case "int":
		return Int, nil
	case "float":
		return Float, nil
	case "string":
		return String, nil
	case "char":
		return Char, nil
	case "time":
		return Time, nil
	case "DateTime", "DateTimeOffset":
		return Type{Kind: KindTime, Name: s}, nil
	case "uuid":
		return UUID, nil
	case "bytes":
		return Bytes, nil
	case "object":
		return Object, nil
	}
	return Type{}, fmt.Errorf("unknown type %q", s)
}

// TypeOf infers the semantic type of a Go value.
func TypeOf(v any) Type {
	switch val := v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case string:
		return String
	case float32, float64:
		return Float
	case time.Time:
		return Time
	case uuid.UUID:
		return UUID
	case []byte:
		return Bytes
	case EnumValue:
		if val.Enum != nil {
			return EnumOf(val.Enum)
		}
		return Int
	case map[string]any:
		return Object
	case []any:
		for _, elem := range val {
			if elem != nil {
				return ArrayOf(TypeOf(elem))
			}
		}
		return ArrayOf(Object)
	}
	if _, ok := AsInt64(v); ok {
		return Int
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elem := reflect.Zero(rv.Type().Elem()).Interface()
		return ArrayOf(TypeOf(elem))
	case reflect.Map, reflect.Struct:
		return Object
	case reflect.Pointer:
		if rv.IsNil() {
			return Null
		}
		return NullableOf(TypeOf(rv.Elem().Interface()))
	}
	return Object
}

// AsInt64 reports whether v is an integer that fits in int64 and returns
// it widened.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
