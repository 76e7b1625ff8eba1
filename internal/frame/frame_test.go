package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/codec"
	"github.com/resonance-tools/combatmeter/internal/protocol"
	"github.com/resonance-tools/combatmeter/internal/wire"
)

type notifyRecorder struct {
	bodies [][]byte
	flags  []bool
	err    error
}

func (r *notifyRecorder) HandleNotify(body []byte, compressed bool) error {
	r.bodies = append(r.bodies, append([]byte(nil), body...))
	r.flags = append(r.flags, compressed)
	return r.err
}

func newTestDecoder(t *testing.T, h Handler, opts ...Option) *Decoder {
	t.Helper()
	z, err := codec.NewZstd(0)
	require.NoError(t, err)
	t.Cleanup(z.Close)

	d, err := NewDecoder(h, z, slog.New(slog.DiscardHandler), opts...)
	require.NoError(t, err)
	return d
}

func frameDown(seq uint32, nested []byte, compressed bool) Frame {
	body := binary.BigEndian.AppendUint32(nil, seq)
	return Frame{Type: protocol.MessageFrameDown, Compressed: compressed, Body: append(body, nested...)}
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		{Type: protocol.MessageNotify, Body: []byte{1, 2, 3}},
		{Type: protocol.MessageReturn, Compressed: true, Body: []byte{}},
		{Type: protocol.MessageFrameDown, Body: bytes.Repeat([]byte{0xab}, 300)},
		{Type: protocol.MessageType(0x7fff), Compressed: true, Body: []byte{9}},
	}

	var buf []byte
	for _, f := range frames {
		buf = AppendFrame(buf, f)
	}

	r := wire.NewReader(buf)
	for _, want := range frames {
		got, err := Next(r)
		require.NoError(t, err)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Compressed, got.Compressed)
		assert.Equal(t, want.Body, got.Body)
	}
	assert.Zero(t, r.Remaining())
}

func TestNext_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"length below header", []byte{0, 0, 0, 5, 0, 2}},
		{"zero length", []byte{0, 0, 0, 0, 0, 0}},
		{"length past buffer", []byte{0, 0, 0, 9, 0, 2, 1}},
		{"truncated prefix", []byte{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := wire.NewReader(tt.buf)
			_, err := Next(r)
			assert.ErrorIs(t, err, ErrCorruptFrame)
			assert.Zero(t, r.Offset())
		})
	}
}

func TestDecode_NotifyFrames(t *testing.T) {
	rec := &notifyRecorder{}
	d := newTestDecoder(t, rec)

	buf := Encode(Frame{Type: protocol.MessageNotify, Body: []byte("a")})
	buf = AppendFrame(buf, Frame{Type: protocol.MessageReturn, Body: []byte("ignored")})
	buf = AppendFrame(buf, Frame{Type: protocol.MessageEcho, Body: []byte("ignored")})
	buf = AppendFrame(buf, Frame{Type: protocol.MessageNotify, Compressed: true, Body: []byte("b")})

	n, err := d.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, rec.bodies)
	assert.Equal(t, []bool{false, true}, rec.flags)
}

func TestDecode_CorruptStopsBuffer(t *testing.T) {
	rec := &notifyRecorder{}
	d := newTestDecoder(t, rec)

	buf := Encode(Frame{Type: protocol.MessageNotify, Body: []byte("first")})
	buf = append(buf, 0, 0, 0, 3, 0, 2)
	buf = AppendFrame(buf, Frame{Type: protocol.MessageNotify, Body: []byte("never")})

	n, err := d.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.bodies, 1)

	// the next buffer is unaffected
	n, err = d.Decode(Encode(Frame{Type: protocol.MessageNotify, Body: []byte("next")}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []byte("next"), rec.bodies[1])
}

func TestDecode_HandlerErrorAbortsBuffer(t *testing.T) {
	rec := &notifyRecorder{err: errors.New("boom")}
	d := newTestDecoder(t, rec)

	buf := Encode(Frame{Type: protocol.MessageNotify, Body: []byte("a")})
	buf = AppendFrame(buf, Frame{Type: protocol.MessageNotify, Body: []byte("b")})

	_, err := d.Decode(buf)
	require.Error(t, err)
	assert.Len(t, rec.bodies, 1)
}

func TestDecode_HandlerPanicRecovered(t *testing.T) {
	d := newTestDecoder(t, HandlerFunc(func([]byte, bool) error {
		panic("index out of range")
	}))

	_, err := d.Decode(Encode(Frame{Type: protocol.MessageNotify, Body: []byte("a")}))
	assert.ErrorContains(t, err, "index out of range")
}

func TestDecode_FrameDown(t *testing.T) {
	inner := Encode(Frame{Type: protocol.MessageNotify, Body: []byte("inner")})

	t.Run("plain", func(t *testing.T) {
		rec := &notifyRecorder{}
		d := newTestDecoder(t, rec)

		n, err := d.Decode(Encode(frameDown(7, inner, false)))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, rec.bodies, 1)
		assert.Equal(t, []byte("inner"), rec.bodies[0])
	})

	t.Run("compressed", func(t *testing.T) {
		z, err := codec.NewZstd(0)
		require.NoError(t, err)
		defer z.Close()

		rec := &notifyRecorder{}
		d := newTestDecoder(t, rec)

		_, err = d.Decode(Encode(frameDown(7, z.Compress(inner), true)))
		require.NoError(t, err)
		require.Len(t, rec.bodies, 1)
		assert.Equal(t, []byte("inner"), rec.bodies[0])
	})

	t.Run("empty after sequence", func(t *testing.T) {
		rec := &notifyRecorder{}
		d := newTestDecoder(t, rec)

		buf := Encode(frameDown(7, nil, false))
		buf = AppendFrame(buf, Frame{Type: protocol.MessageNotify, Body: []byte("after")})

		n, err := d.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, [][]byte{[]byte("after")}, rec.bodies)
	})

	t.Run("bad compressed stream continues outer buffer", func(t *testing.T) {
		rec := &notifyRecorder{}
		d := newTestDecoder(t, rec)

		buf := Encode(frameDown(7, []byte("not zstd"), true))
		buf = AppendFrame(buf, Frame{Type: protocol.MessageNotify, Body: []byte("after")})

		_, err := d.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("after")}, rec.bodies)
	})

	t.Run("nested error does not abort outer buffer", func(t *testing.T) {
		calls := 0
		d := newTestDecoder(t, HandlerFunc(func(body []byte, _ bool) error {
			calls++
			if string(body) == "inner" {
				return errors.New("bad payload")
			}
			return nil
		}))

		buf := Encode(frameDown(1, inner, false))
		buf = AppendFrame(buf, Frame{Type: protocol.MessageNotify, Body: []byte("after")})

		_, err := d.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestDecode_DepthGuard(t *testing.T) {
	nested := Encode(Frame{Type: protocol.MessageNotify, Body: []byte("deep")})
	for i := 0; i < 3; i++ {
		nested = Encode(frameDown(uint32(i), nested, false))
	}

	rec := &notifyRecorder{}
	_, err := newTestDecoder(t, rec, WithMaxDepth(3)).Decode(nested)
	require.NoError(t, err)
	assert.Len(t, rec.bodies, 1)

	rec = &notifyRecorder{}
	_, err = newTestDecoder(t, rec, WithMaxDepth(2)).Decode(nested)
	require.NoError(t, err)
	assert.Empty(t, rec.bodies)
}
