package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/resonance-tools/combatmeter/internal/codec"
	"github.com/resonance-tools/combatmeter/internal/protocol"
	"github.com/resonance-tools/combatmeter/internal/wire"
)

const instrumentationName = "github.com/resonance-tools/combatmeter/internal/frame"

// DefaultMaxDepth bounds FrameDown nesting.
const DefaultMaxDepth = 8

// FrameDown body: [4-byte sequence number][nested stream].
const sequenceSize = 4

// ErrTooDeep is reported when FrameDown nesting exceeds the decoder's limit.
var ErrTooDeep = errors.New("frame nesting too deep")

// Handler receives the body of every Notify frame, header stripped.
type Handler interface {
	HandleNotify(body []byte, compressed bool) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(body []byte, compressed bool) error

func (f HandlerFunc) HandleNotify(body []byte, compressed bool) error {
	return f(body, compressed)
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxDepth = n
		}
	}
}

// Decoder walks buffers of frames and hands Notify bodies to a Handler.
// A Decoder keeps no state between buffers.
type Decoder struct {
	handler  Handler
	zstd     codec.Decompressor
	logger   *slog.Logger
	maxDepth int

	frames       metric.Int64Counter
	corrupt      metric.Int64Counter
	decompErrors metric.Int64Counter
}

// NewDecoder creates a Decoder. zstd may be nil, in which case compressed
// nested streams decode as empty.
func NewDecoder(h Handler, zstd codec.Decompressor, logger *slog.Logger, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		handler:  h,
		zstd:     zstd,
		logger:   logger,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}

	m := otel.Meter(instrumentationName)

	var err error
	d.frames, err = m.Int64Counter(
		"frame.decoded",
		metric.WithDescription("Frames decoded, by message type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	d.corrupt, err = m.Int64Counter(
		"frame.corrupt",
		metric.WithDescription("Buffers abandoned on a corrupt length prefix"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating corrupt counter: %w", err)
	}

	d.decompErrors, err = m.Int64Counter(
		"frame.decompress.errors",
		metric.WithDescription("Nested streams that failed to decompress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decompress error counter: %w", err)
	}

	return d, nil
}

// Decode processes every frame in buf and returns how many frames were
// decoded, nested ones included. A corrupt length prefix ends the buffer
// without an error. An error from the handler or a panic while reading
// aborts buf and is returned. Failures inside a nested stream abort only
// that nested stream; they are logged and the enclosing buffer continues.
func (d *Decoder) Decode(buf []byte) (int, error) {
	return d.decode(buf, 0)
}

func (d *Decoder) decode(buf []byte, depth int) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding frame buffer at depth %d: %v", depth, r)
		}
	}()

	r := wire.NewReader(buf)
	for r.Remaining() > 0 {
		f, err := Next(r)
		if errors.Is(err, ErrCorruptFrame) {
			d.corrupt.Add(context.Background(), 1)
			d.logger.Debug("corrupt frame, dropping rest of buffer",
				"depth", depth, "offset", r.Offset(), "error", err)
			return n, nil
		}

		n++
		d.frames.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("type", f.Type.String())))

		switch f.Type {
		case protocol.MessageNotify:
			if err := d.handler.HandleNotify(f.Body, f.Compressed); err != nil {
				return n, err
			}

		case protocol.MessageReturn:
			d.logger.Debug("return frame", "size", len(f.Body))

		case protocol.MessageFrameDown:
			n += d.frameDown(f, depth)
		}
	}
	return n, nil
}

// frameDown decodes the stream nested in a FrameDown body.
func (d *Decoder) frameDown(f Frame, depth int) int {
	if len(f.Body) < sequenceSize {
		d.logger.Debug("short FrameDown body", "size", len(f.Body))
		return 0
	}

	nested := f.Body[sequenceSize:]
	if len(nested) == 0 {
		return 0
	}

	if f.Compressed {
		out, err := codec.Inflate(d.zstd, nested)
		if err != nil {
			d.decompErrors.Add(context.Background(), 1)
			d.logger.Warn("failed to decompress nested stream", "size", len(nested), "error", err)
		}
		nested = out
	}

	if depth+1 > d.maxDepth {
		d.logger.Debug("skipping nested stream", "error", fmt.Errorf("%w: limit %d", ErrTooDeep, d.maxDepth))
		return 0
	}

	n, err := d.decode(nested, depth+1)
	if err != nil {
		d.logger.Debug("nested stream aborted", "depth", depth+1, "error", err)
	}
	return n
}
