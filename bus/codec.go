package bus

import (
	"encoding/json"
	"io"

	cbor "github.com/fxamacker/cbor/v2"
)

// Codec is an abstraction for receiving and sending bus frames. Once a Codec
// is established there is no inherent asymmetry between the two ends of a
// connection.
type Codec interface {
	ReadMessage() (*Message, error)
	WriteMessage(*Message) error
	Close() error
}

var _ Codec = jsonCodec{}

// IOCodec returns a Codec that wraps JSON frame encoding and decoding over
// IO.
func IOCodec(rwc io.ReadWriteCloser) Codec {
	return jsonCodec{
		dec:    json.NewDecoder(rwc),
		enc:    json.NewEncoder(rwc),
		closer: rwc,
	}
}

type jsonCodec struct {
	dec    *json.Decoder
	enc    *json.Encoder
	closer io.Closer
}

func (codec jsonCodec) ReadMessage() (*Message, error) {
	var msg Message
	err := codec.dec.Decode(&msg)
	return &msg, err
}

func (codec jsonCodec) WriteMessage(msg *Message) error {
	return codec.enc.Encode(msg)
}

func (codec jsonCodec) Close() error {
	return codec.closer.Close()
}

var _ Codec = cborFrameCodec{}

// CBORCodec returns a Codec that exchanges CBOR-encoded frames, for peers
// that prefer a binary framing.
func CBORCodec(rwc io.ReadWriteCloser) Codec {
	return cborFrameCodec{
		dec:    cbor.NewDecoder(rwc),
		enc:    cbor.NewEncoder(rwc),
		closer: rwc,
	}
}

type cborFrameCodec struct {
	dec    *cbor.Decoder
	enc    *cbor.Encoder
	closer io.Closer
}

func (codec cborFrameCodec) ReadMessage() (*Message, error) {
	var msg Message
	err := codec.dec.Decode(&msg)
	return &msg, err
}

func (codec cborFrameCodec) WriteMessage(msg *Message) error {
	return codec.enc.Encode(msg)
}

func (codec cborFrameCodec) Close() error {
	return codec.closer.Close()
}
