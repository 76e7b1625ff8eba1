// Package frame splits a byte buffer into length-prefixed protocol frames and
// walks nested FrameDown streams.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/resonance-tools/combatmeter/internal/protocol"
	"github.com/resonance-tools/combatmeter/internal/wire"
)

// ErrCorruptFrame marks a length prefix that cannot describe a frame in the
// buffer: shorter than the header, or longer than what is left.
var ErrCorruptFrame = errors.New("corrupt frame length")

// Frame is one protocol unit. Body excludes the 6-byte header.
type Frame struct {
	Type       protocol.MessageType
	Compressed bool
	Body       []byte
}

// Len returns the encoded size including the header.
func (f Frame) Len() int {
	return protocol.HeaderSize + len(f.Body)
}

// AppendFrame appends the wire encoding of f to dst.
func AppendFrame(dst []byte, f Frame) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(f.Len()))
	dst = binary.BigEndian.AppendUint16(dst, protocol.JoinKind(f.Type, f.Compressed))
	return append(dst, f.Body...)
}

// Encode returns the wire encoding of f.
func Encode(f Frame) []byte {
	return AppendFrame(make([]byte, 0, f.Len()), f)
}

// Next reads one frame from r. Body is a view into r's buffer. On
// ErrCorruptFrame the reader is left where it was.
func Next(r *wire.Reader) (Frame, error) {
	if err := r.Need(protocol.LengthPrefixSize, "length prefix"); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}

	size := r.PeekUint32()
	if size < protocol.MinFrameSize {
		return Frame{}, fmt.Errorf("%w: %d is below the %d-byte header", ErrCorruptFrame, size, protocol.MinFrameSize)
	}
	if uint64(size) > uint64(r.Remaining()) {
		return Frame{}, fmt.Errorf("%w: %d exceeds the %d bytes left", ErrCorruptFrame, size, r.Remaining())
	}

	fr := wire.NewReader(r.ReadBytes(int(size)))
	fr.ReadUint32()
	typ, compressed := protocol.SplitKind(fr.ReadUint16())

	return Frame{Type: typ, Compressed: compressed, Body: fr.ReadRemaining()}, nil
}
