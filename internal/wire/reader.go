// Package wire provides a big-endian cursor over an immutable byte buffer.
//
// Reads never copy: ReadBytes, PeekBytes and ReadRemaining return views into
// the underlying buffer. Reads are not bounds-clamped. Callers establish
// that enough bytes remain (Remaining, Need, or a preceding length field)
// before reading; an out-of-range read panics like any slice overrun.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned by Need when fewer bytes remain than required.
var ErrShortBuffer = errors.New("short buffer")

// Reader is a sequential big-endian reader over buf.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the current read offset.
func (r *Reader) Offset() int {
	return r.off
}

// Need returns ErrShortBuffer, annotated with what was being read, when
// fewer than n bytes remain.
func (r *Reader) Need(n int, what string) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("%w: %s needs %d bytes, %d remain", ErrShortBuffer, what, n, r.Remaining())
	}
	return nil
}

func (r *Reader) PeekUint16() uint16 {
	return binary.BigEndian.Uint16(r.buf[r.off : r.off+2])
}

func (r *Reader) ReadUint16() uint16 {
	v := r.PeekUint16()
	r.off += 2
	return v
}

func (r *Reader) PeekUint32() uint32 {
	return binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
}

func (r *Reader) ReadUint32() uint32 {
	v := r.PeekUint32()
	r.off += 4
	return v
}

func (r *Reader) PeekUint64() uint64 {
	return binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
}

func (r *Reader) ReadUint64() uint64 {
	v := r.PeekUint64()
	r.off += 8
	return v
}

// PeekBytes returns a view of the next n bytes without advancing.
// The returned slice has its capacity clipped so appends cannot clobber
// bytes that follow it.
func (r *Reader) PeekBytes(n int) []byte {
	return r.buf[r.off : r.off+n : r.off+n]
}

// ReadBytes returns a view of the next n bytes and advances past them.
func (r *Reader) ReadBytes(n int) []byte {
	v := r.PeekBytes(n)
	r.off += n
	return v
}

// ReadRemaining returns a view of every unread byte and moves the cursor
// to the end of the buffer.
func (r *Reader) ReadRemaining() []byte {
	v := r.buf[r.off:len(r.buf):len(r.buf)]
	r.off = len(r.buf)
	return v
}
