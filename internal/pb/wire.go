// Package pb decodes and encodes the protobuf payloads carried by notify
// messages. It works directly on the protobuf wire format, so every scalar
// keeps its presence: an absent field decodes to an absent model.Optional.
// Fields the engine does not use are skipped.
package pb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/resonance-tools/combatmeter/internal/model"
)

// ErrMalformed wraps every structural decode failure.
var ErrMalformed = errors.New("malformed protobuf message")

// field is one decoded tag plus its still-encoded value.
type field struct {
	num protowire.Number
	typ protowire.Type
	raw []byte
}

// walk calls visit for every field in b, in wire order.
func walk(msg string, b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %s: tag: %v", ErrMalformed, msg, protowire.ParseError(n))
		}
		b = b[n:]

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("%w: %s: field %d: %v", ErrMalformed, msg, num, protowire.ParseError(n))
		}
		if err := visit(field{num: num, typ: typ, raw: b[:n]}); err != nil {
			return fmt.Errorf("%s.%d: %w", msg, num, err)
		}
		b = b[n:]
	}
	return nil
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: wire type %d, want %d", ErrMalformed, f.typ, typ)
	}
	return nil
}

func (f field) varint() (uint64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(f.raw)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, nil
}

func (f field) int64() (model.Optional[int64], error) {
	v, err := f.varint()
	if err != nil {
		return model.None[int64](), err
	}
	return model.Some(int64(v)), nil
}

func (f field) int32() (model.Optional[int32], error) {
	v, err := f.varint()
	if err != nil {
		return model.None[int32](), err
	}
	return model.Some(int32(v)), nil
}

func (f field) bool() (model.Optional[bool], error) {
	v, err := f.varint()
	if err != nil {
		return model.None[bool](), err
	}
	return model.Some(protowire.DecodeBool(v)), nil
}

func (f field) bytes() ([]byte, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	v, n := protowire.ConsumeBytes(f.raw)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, nil
}

type unmarshaler interface {
	Unmarshal(b []byte) error
}

// message decodes a length-delimited submessage into m.
func (f field) message(m unmarshaler) error {
	raw, err := f.bytes()
	if err != nil {
		return err
	}
	return m.Unmarshal(raw)
}

// DecodeString reads a length-delimited UTF-8 string, the sub-encoding of
// string attribute blobs.
func DecodeString(raw []byte) (string, error) {
	v, n := protowire.ConsumeString(raw)
	if n < 0 {
		return "", fmt.Errorf("%w: string: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, nil
}

// DecodeInt32 reads a varint interpreted as a signed 32-bit integer, the
// sub-encoding of integer attribute blobs.
func DecodeInt32(raw []byte) (int32, error) {
	v, n := protowire.ConsumeVarint(raw)
	if n < 0 {
		return 0, fmt.Errorf("%w: int32: %v", ErrMalformed, protowire.ParseError(n))
	}
	return int32(v), nil
}

// EncodeString is the inverse of DecodeString.
func EncodeString(s string) []byte {
	return protowire.AppendString(nil, s)
}

// EncodeInt32 is the inverse of DecodeInt32. Negative values use the
// ten-byte sign-extended form, as protobuf int32 does.
func EncodeInt32(v int32) []byte {
	return protowire.AppendVarint(nil, uint64(int64(v)))
}

func appendInt64(b []byte, num protowire.Number, o model.Optional[int64]) []byte {
	if !o.Valid {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(o.Value))
}

func appendInt32(b []byte, num protowire.Number, o model.Optional[int32]) []byte {
	if !o.Valid {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(o.Value)))
}

func appendBool(b []byte, num protowire.Number, o model.Optional[bool]) []byte {
	if !o.Valid {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(o.Value))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
