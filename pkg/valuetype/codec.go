package valuetype

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Op is the wire shape of a value op: {type, value}. Value is kept in the
// encoding of the codec that produced it.
type Op struct {
	Type  string
	Value []byte
}

// Codec encodes op values, ops and snapshots.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	MarshalOp(op Op) ([]byte, error)
	UnmarshalOp(data []byte) (Op, error)
}

// NewOp encodes value with the codec and wraps it in an Op.
func NewOp(codec Codec, opType string, value any) (Op, error) {
	b, err := codec.Marshal(value)
	if err != nil {
		return Op{}, fmt.Errorf("encode %s op: %w", opType, err)
	}
	return Op{Type: opType, Value: b}, nil
}

// Params is an op value or a snapshot still in its wire encoding; the
// receiving value type decodes it into its own types.
type Params struct {
	codec Codec
	data  []byte
}

func NewParams(codec Codec, data []byte) Params {
	return Params{codec: codec, data: data}
}

// IsZero returns true when there is nothing to decode.
func (r Params) IsZero() bool {
	return len(r.data) == 0
}

func (r Params) Decode(v any) error {
	if r.codec == nil {
		return fmt.Errorf("no codec to decode params")
	}
	return r.codec.Unmarshal(r.data, v)
}

func (r Params) Bytes() []byte { return r.data }

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

type jsonCodec struct{}

type jsonOp struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) MarshalOp(op Op) ([]byte, error) {
	return json.Marshal(jsonOp{Type: op.Type, Value: op.Value})
}

func (jsonCodec) UnmarshalOp(data []byte) (Op, error) {
	var o jsonOp
	if err := json.Unmarshal(data, &o); err != nil {
		return Op{}, fmt.Errorf("decode op: %w", err)
	}
	return Op{Type: o.Type, Value: o.Value}, nil
}

type msgpackCodec struct{}

type msgpackOp struct {
	Type  string             `msgpack:"type"`
	Value msgpack.RawMessage `msgpack:"value"`
}

func (msgpackCodec) Name() string                       { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

func (msgpackCodec) MarshalOp(op Op) ([]byte, error) {
	value := op.Value
	if len(value) == 0 {
		// msgpack nil
		value = []byte{0xc0}
	}
	return msgpack.Marshal(&msgpackOp{Type: op.Type, Value: value})
}

func (msgpackCodec) UnmarshalOp(data []byte) (Op, error) {
	var o msgpackOp
	if err := msgpack.Unmarshal(data, &o); err != nil {
		return Op{}, fmt.Errorf("decode op: %w", err)
	}
	return Op{Type: o.Type, Value: o.Value}, nil
}
