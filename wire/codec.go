package wire

import (
	"encoding/json"

	cbor "github.com/fxamacker/cbor/v2"
)

// Codec is the low-level wire encoding beneath the shape layer. Any
// self-describing encoding works, as long as the decoded generic form can be
// structurally checked against a Shape.
type Codec interface {
	ContentType() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

var _ Codec = jsonCodec{}
var _ Codec = cborCodec{}

// JSON returns the default JSON wire codec.
func JSON() Codec {
	return jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// CBOR returns a deterministic CBOR wire codec.
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(v interface{}) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborCodec) Unmarshal(data []byte, v interface{}) error {
	return c.dec.Unmarshal(data, v)
}
