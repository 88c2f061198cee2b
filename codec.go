package twirl

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Content types accepted by the dispatcher. Negotiation is an exact
// string match: no parameters, no wildcards.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/protobuf"
)

// codec translates request and response messages to and from one wire
// format. Successful responses are encoded with the same codec that
// decoded the request; errors bypass codecs entirely and go out as JSON.
type codec interface {
	contentType() string
	marshal(m proto.Message) ([]byte, error)
	unmarshal(b []byte, m proto.Message) error
}

// codecFor selects the codec for a Content-Type header value.
func codecFor(contentType string) (codec, bool) {
	switch contentType {
	case ContentTypeJSON:
		return jsonCodec{}, true
	case ContentTypeProtobuf:
		return protoCodec{}, true
	}
	return nil, false
}

type jsonCodec struct{}

func (jsonCodec) contentType() string { return ContentTypeJSON }

func (jsonCodec) marshal(m proto.Message) ([]byte, error) {
	return protojson.Marshal(m)
}

func (jsonCodec) unmarshal(b []byte, m proto.Message) error {
	return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(b, m)
}

// name used in decode-failure messages.
func (jsonCodec) String() string { return "json" }

type protoCodec struct{}

func (protoCodec) contentType() string { return ContentTypeProtobuf }

func (protoCodec) marshal(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

func (protoCodec) unmarshal(b []byte, m proto.Message) error {
	return proto.Unmarshal(b, m)
}

func (protoCodec) String() string { return "protobuf" }

// encodeErrorBody writes the JSON error envelope. The envelope is a plain
// struct encoded with encoding/json, not a proto message: its byte layout
// must be stable, and protojson deliberately is not.
func encodeErrorBody(w byteWriter, rpcErr *Error) error {
	return json.NewEncoder(w).Encode(rpcErr)
}

// byteWriter is satisfied by http.ResponseWriter and allows testing.
type byteWriter interface {
	Write([]byte) (int, error)
}
