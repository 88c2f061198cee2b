// Package hatproto provides the protobuf message types of the example
// Haberdasher service without checking in generated code. The types are
// assembled at init time from a hand-built file descriptor and served by
// dynamicpb, so they behave exactly like generated messages under both
// the binary and JSON codecs.
package hatproto

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

var (
	// SizeType is the request message: one int32 field "inches".
	SizeType protoreflect.MessageType

	// HatType is the response message: "inches", "color" and "name".
	HatType protoreflect.MessageType
)

func init() {
	fd := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("twirl/example/haberdasher.proto"),
		Package: proto.String("twirl.example"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Size"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("inches", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				},
			},
			{
				Name: proto.String("Hat"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("inches", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalarField("color", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("name", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
		},
	}
	file, err := protodesc.NewFile(fd, nil)
	if err != nil {
		panic(fmt.Sprintf("hatproto: building file descriptor: %v", err))
	}
	SizeType = dynamicpb.NewMessageType(file.Messages().ByName("Size"))
	HatType = dynamicpb.NewMessageType(file.Messages().ByName("Hat"))
}

func scalarField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(name),
	}
}

// NewSize builds a Size message.
func NewSize(inches int32) proto.Message {
	m := SizeType.New()
	setInt32(m, "inches", inches)
	return m.Interface()
}

// NewHat builds a Hat message. Empty strings are left unset.
func NewHat(inches int32, color, name string) proto.Message {
	m := HatType.New()
	setInt32(m, "inches", inches)
	if color != "" {
		setString(m, "color", color)
	}
	if name != "" {
		setString(m, "name", name)
	}
	return m.Interface()
}

// Inches reads the "inches" field of a Size or Hat message.
func Inches(m proto.Message) int32 {
	return int32(get(m, "inches").Int())
}

// Color reads the "color" field of a Hat message.
func Color(m proto.Message) string {
	return get(m, "color").String()
}

// HatName reads the "name" field of a Hat message.
func HatName(m proto.Message) string {
	return get(m, "name").String()
}

func setInt32(m protoreflect.Message, field string, v int32) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(field)), protoreflect.ValueOfInt32(v))
}

func setString(m protoreflect.Message, field string, v string) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(field)), protoreflect.ValueOfString(v))
}

func get(m proto.Message, field string) protoreflect.Value {
	r := m.ProtoReflect()
	return r.Get(r.Descriptor().Fields().ByName(protoreflect.Name(field)))
}
