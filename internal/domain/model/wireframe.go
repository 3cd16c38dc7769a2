// Package model holds the plain data types shared across the gateway: the
// wire frame exchanged with clients, the session snapshot kept by the
// registry, the broker message schema, and the directory record schema.
package model

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// FrameCode identifies the control or delivery kind of a wire frame.
type FrameCode int32

const (
	CodeRegister         FrameCode = 200
	CodeRegisterSuccess  FrameCode = 201
	CodeHeartBeat        FrameCode = 206
	CodeHeartBeatSuccess FrameCode = 207
)

// IsDelivery reports whether code falls in the range reserved for
// downstream business delivery traffic.
func (c FrameCode) IsDelivery() bool {
	return c >= 1000 && c < 2000
}

// Frame is the binary wire message exchanged with clients: a
// protocol-buffer-shaped envelope with fields {code, data}. The envelope is
// produced by hand against the stable protowire primitives instead of
// generated .pb.go types, so these bytes are genuine protobuf wire format
// without a protoc step. Field 1 is the varint code, field 2 is the
// length-delimited data.
type Frame struct {
	Code FrameCode
	Data []byte
}

const (
	fieldCode = protowire.Number(1)
	fieldData = protowire.Number(2)
)

// Marshal encodes the frame as a binary protobuf message.
func (f Frame) Marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldCode, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(int64(f.Code)))
	if len(f.Data) > 0 {
		buf = protowire.AppendTag(buf, fieldData, protowire.BytesType)
		buf = protowire.AppendBytes(buf, f.Data)
	}
	return buf
}

// UnmarshalFrame decodes a binary protobuf-shaped message produced by
// Marshal. Unknown fields are skipped rather than rejected, matching
// protobuf's forwards-compatibility rules.
func UnmarshalFrame(b []byte) (Frame, error) {
	var f Frame
	var sawCode bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Frame{}, fmt.Errorf("wireframe: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldCode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Frame{}, fmt.Errorf("wireframe: bad code field: %w", protowire.ParseError(n))
			}
			f.Code = FrameCode(int32(v))
			sawCode = true
			b = b[n:]
		case fieldData:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Frame{}, fmt.Errorf("wireframe: bad data field: %w", protowire.ParseError(n))
			}
			f.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Frame{}, fmt.Errorf("wireframe: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !sawCode {
		return Frame{}, fmt.Errorf("wireframe: missing code field")
	}
	return f, nil
}
