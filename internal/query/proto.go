package query

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/roach88/docql/internal/document"
)

// ProtoShaper fills a new message per document, field by field. Document
// keys match the proto field name or its JSON name; absent keys and nulls
// leave the field unset, and keys without a field are ignored.
func ProtoShaper[T proto.Message](newMessage func() T) Shaper[T] {
	return func(_ *Context, doc document.Object) (T, error) {
		msg := newMessage()
		if err := fillMessage(msg.ProtoReflect(), doc); err != nil {
			var zero T
			return zero, err
		}
		return msg, nil
	}
}

func fillMessage(msg protoreflect.Message, doc document.Object) error {
	fields := msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		v, ok := doc[string(fd.Name())]
		if !ok {
			v, ok = doc[fd.JSONName()]
		}
		if !ok {
			continue
		}
		if _, isNull := v.(document.Null); isNull {
			continue
		}
		if err := setField(msg, fd, v); err != nil {
			return fmt.Errorf("field %q: %w", fd.Name(), err)
		}
	}
	return nil
}

func setField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, v document.Value) error {
	switch {
	case fd.IsList():
		arr, ok := v.(document.Array)
		if !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
		list := msg.Mutable(fd).List()
		for i, elem := range arr {
			if fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind {
				obj, ok := elem.(document.Object)
				if !ok {
					return fmt.Errorf("element %d: expected object, got %T", i, elem)
				}
				item := list.NewElement()
				if err := fillMessage(item.Message(), obj); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
				list.Append(item)
				continue
			}
			pv, err := scalarValue(fd, elem)
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			list.Append(pv)
		}
		return nil

	case fd.IsMap():
		obj, ok := v.(document.Object)
		if !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
		if fd.MapKey().Kind() != protoreflect.StringKind {
			return fmt.Errorf("map key kind %s is not supported", fd.MapKey().Kind())
		}
		m := msg.Mutable(fd).Map()
		for _, k := range obj.SortedKeys() {
			val, err := scalarValue(fd.MapValue(), obj[k])
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(protoreflect.ValueOfString(k).MapKey(), val)
		}
		return nil

	case fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind:
		obj, ok := v.(document.Object)
		if !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
		return fillMessage(msg.Mutable(fd).Message(), obj)
	}

	pv, err := scalarValue(fd, v)
	if err != nil {
		return err
	}
	msg.Set(fd, pv)
	return nil
}

func scalarValue(fd protoreflect.FieldDescriptor, v document.Value) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		b, ok := v.(document.Bool)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("expected bool, got %T", v)
		}
		return protoreflect.ValueOfBool(bool(b)), nil

	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := intValue(v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return protoreflect.Value{}, fmt.Errorf("value %d overflows int32", n)
		}
		return protoreflect.ValueOfInt32(int32(n)), nil

	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := intValue(v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt64(n), nil

	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := intValue(v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		if n < 0 || n > math.MaxUint32 {
			return protoreflect.Value{}, fmt.Errorf("value %d overflows uint32", n)
		}
		return protoreflect.ValueOfUint32(uint32(n)), nil

	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := intValue(v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		if n < 0 {
			return protoreflect.Value{}, fmt.Errorf("negative value %d for uint64", n)
		}
		return protoreflect.ValueOfUint64(uint64(n)), nil

	case protoreflect.FloatKind:
		f, err := floatValue(v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat32(float32(f)), nil

	case protoreflect.DoubleKind:
		f, err := floatValue(v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat64(f), nil

	case protoreflect.StringKind:
		s, ok := v.(document.String)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("expected string, got %T", v)
		}
		return protoreflect.ValueOfString(string(s)), nil

	case protoreflect.BytesKind:
		s, ok := v.(document.String)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("expected string, got %T", v)
		}
		return protoreflect.ValueOfBytes([]byte(s)), nil

	case protoreflect.EnumKind:
		n, err := enumNumber(fd, v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfEnum(n), nil
	}
	return protoreflect.Value{}, fmt.Errorf("unsupported field kind %s", fd.Kind())
}

func intValue(v document.Value) (int64, error) {
	switch n := v.(type) {
	case document.Int:
		return int64(n), nil
	case document.Float:
		f := float64(n)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		// float64(math.MinInt64) is exact; 2^63 is the first value past MaxInt64.
		if f < math.MinInt64 || f >= -math.MinInt64 {
			return 0, fmt.Errorf("value %v overflows int64", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func floatValue(v document.Value) (float64, error) {
	switch n := v.(type) {
	case document.Float:
		return float64(n), nil
	case document.Int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

// enumNumber accepts an enum value name (case-insensitive) or number.
func enumNumber(fd protoreflect.FieldDescriptor, v document.Value) (protoreflect.EnumNumber, error) {
	values := fd.Enum().Values()
	switch val := v.(type) {
	case document.String:
		ev := values.ByName(protoreflect.Name(val))
		if ev == nil {
			ev = values.ByName(protoreflect.Name(strings.ToUpper(string(val))))
		}
		if ev == nil {
			return 0, fmt.Errorf("unknown value %q for enum %s", string(val), fd.Enum().FullName())
		}
		return ev.Number(), nil
	case document.Int:
		if val < math.MinInt32 || val > math.MaxInt32 {
			return 0, fmt.Errorf("number %d overflows enum %s", int64(val), fd.Enum().FullName())
		}
		ev := values.ByNumber(protoreflect.EnumNumber(val))
		if ev == nil {
			return 0, fmt.Errorf("invalid number %d for enum %s", int64(val), fd.Enum().FullName())
		}
		return ev.Number(), nil
	}
	return 0, fmt.Errorf("expected enum name or number, got %T", v)
}
