// Package codec wraps the zstd codec used for compressed frames and call
// bodies.
package codec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxDecodedSize bounds a single decompressed payload.
const DefaultMaxDecodedSize = 64 << 20

var (
	// ErrDecompress wraps any failure of the underlying zstd decoder.
	ErrDecompress = errors.New("zstd decompress failed")

	// ErrUnavailable is returned by Inflate when no decompressor is configured.
	ErrUnavailable = errors.New("zstd decompressor unavailable")
)

// Decompressor turns a compressed payload back into its original bytes.
type Decompressor interface {
	Decompress(src []byte) ([]byte, error)
}

// Zstd is a reusable zstd encoder/decoder pair. DecodeAll and EncodeAll are
// safe for concurrent use, so one Zstd can serve the whole process.
type Zstd struct {
	dec *zstd.Decoder
	enc *zstd.Encoder
}

// NewZstd creates a codec whose decoder refuses outputs larger than
// maxDecodedSize bytes. Zero selects DefaultMaxDecodedSize.
func NewZstd(maxDecodedSize uint64) (*Zstd, error) {
	if maxDecodedSize == 0 {
		maxDecodedSize = DefaultMaxDecodedSize
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	return &Zstd{dec: dec, enc: enc}, nil
}

// Decompress decodes a complete zstd stream.
func (z *Zstd) Decompress(src []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return out, nil
}

// Compress encodes src as a single zstd frame.
func (z *Zstd) Compress(src []byte) []byte {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)))
}

// Close releases decoder resources.
func (z *Zstd) Close() {
	z.dec.Close()
	_ = z.enc.Close()
}

// Inflate decompresses src with d. A nil d yields ErrUnavailable. On any
// failure the returned payload is nil, so callers can log the error and
// carry on with an empty payload.
func Inflate(d Decompressor, src []byte) ([]byte, error) {
	if d == nil {
		return nil, ErrUnavailable
	}
	out, err := d.Decompress(src)
	if err != nil {
		return nil, err
	}
	return out, nil
}
