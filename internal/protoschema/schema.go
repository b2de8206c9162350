// Package protoschema derives protobuf message descriptors from a model so
// query results can be shaped into messages without generated code.
//
// Each entity becomes a message named after it. A message carries the
// properties of the entity's ancestors, the entity itself and every
// descendant, so one message type holds any document a query over the
// entity returns. Owned navigations become message fields, collection
// navigations repeated ones. Enumerations become top-level enums whose
// value names are the member names and whose numbers are the ordinals.
// Enum values share the package scope, so member names must be unique
// across a model's enumerations.
package protoschema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// Package is the proto package of every derived descriptor.
const Package = "docql.model"

// Schema is the file descriptor derived from one model.
type Schema struct {
	file protoreflect.FileDescriptor
}

// Build derives the schema of m.
func Build(m *model.Model) (*Schema, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("docql/model.proto"),
		Package: proto.String(Package),
		Syntax:  proto.String("proto3"),
	}

	for _, name := range m.EnumNames() {
		info, _ := m.Enum(name)
		ed := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
		for i, member := range info.Names {
			ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
				Name:   proto.String(member),
				Number: proto.Int32(int32(i)),
			})
		}
		fdp.EnumType = append(fdp.EnumType, ed)
	}

	for _, entity := range m.Entities() {
		msg, err := message(entity)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", entity.Name, err)
		}
		fdp.MessageType = append(fdp.MessageType, msg)
	}

	file, err := protodesc.NewFile(fdp, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{file: file}, nil
}

// Message returns the descriptor of the named entity's message.
func (s *Schema) Message(entity string) (protoreflect.MessageDescriptor, error) {
	md := s.file.Messages().ByName(protoreflect.Name(entity))
	if md == nil {
		return nil, fmt.Errorf("no message for entity %q", entity)
	}
	return md, nil
}

// File returns the underlying file descriptor.
func (s *Schema) File() protoreflect.FileDescriptor {
	return s.file
}

func message(entity *model.EntityType) (*descriptorpb.DescriptorProto, error) {
	msg := &descriptorpb.DescriptorProto{Name: proto.String(entity.Name)}
	seen := make(map[string]bool)
	add := func(fd *descriptorpb.FieldDescriptorProto) {
		if seen[fd.GetName()] {
			return
		}
		seen[fd.GetName()] = true
		fd.Number = proto.Int32(int32(len(msg.Field) + 1))
		msg.Field = append(msg.Field, fd)
	}

	for _, t := range lineage(entity) {
		for _, p := range t.Properties {
			fd, err := propertyField(p)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", p.Name, err)
			}
			add(fd)
		}
		for _, nav := range t.Navigations {
			fd := &descriptorpb.FieldDescriptorProto{
				Name:     proto.String(nav.Name),
				Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
				TypeName: proto.String(qualified(nav.Target.Name)),
				Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			}
			if nav.Collection {
				fd.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
			}
			add(fd)
		}
	}
	return msg, nil
}

// lineage returns the ancestors of e from the root down, then e, then its
// descendants depth-first.
func lineage(e *model.EntityType) []*model.EntityType {
	var ancestors []*model.EntityType
	for t := e.Base; t != nil; t = t.Base {
		ancestors = append([]*model.EntityType{t}, ancestors...)
	}
	out := ancestors
	var walk func(t *model.EntityType)
	walk = func(t *model.EntityType) {
		out = append(out, t)
		for _, d := range t.Derived() {
			walk(d)
		}
	}
	walk(e)
	return out
}

func propertyField(p model.Property) (*descriptorpb.FieldDescriptorProto, error) {
	typ := p.Type.Unwrap()
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if typ.Kind == typemap.KindArray {
		if typ.Elem == nil {
			return nil, fmt.Errorf("array of %s has no element type", p.Type)
		}
		typ = typ.Elem.Unwrap()
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}

	fd := &descriptorpb.FieldDescriptorProto{
		Name:  proto.String(p.Name),
		Label: label.Enum(),
	}
	switch typ.Kind {
	case typemap.KindBool:
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum()
	case typemap.KindInt:
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_INT64.Enum()
	case typemap.KindFloat:
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE.Enum()
	case typemap.KindString, typemap.KindChar, typemap.KindTime, typemap.KindUUID:
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum()
	case typemap.KindBytes:
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum()
	case typemap.KindEnum:
		if typ.Enum == nil {
			return nil, fmt.Errorf("enum type %s has no definition", p.Type)
		}
		fd.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
		fd.TypeName = proto.String(qualified(typ.Enum.Name))
	default:
		return nil, fmt.Errorf("type %s has no protobuf equivalent", p.Type)
	}
	return fd, nil
}

func qualified(name string) string {
	return "." + Package + "." + name
}
