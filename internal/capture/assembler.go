// Package capture turns observed TCP traffic into the per-frame buffers the
// engine consumes.
package capture

import (
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/resonance-tools/combatmeter/internal/protocol"
)

const (
	// DefaultMaxFrameSize is the largest plausible frame length.
	DefaultMaxFrameSize = 999999

	// maxCachedSegments bounds out-of-order segments held for one stream.
	maxCachedSegments = 200

	// streamTimeout drops a stream that made no progress for this long.
	streamTimeout = 30 * time.Second
)

// Assembler reorders one direction of a TCP stream by sequence number and
// cuts the contiguous bytes into complete frames. It is not safe for
// concurrent use.
type Assembler struct {
	maxFrameSize uint32
	logger       *slog.Logger

	synced   bool
	nextSeq  uint32
	segments map[uint32][]byte
	pending  []byte
	lastSeen time.Time

	resyncs int
}

// NewAssembler creates an Assembler. maxFrameSize <= 0 selects
// DefaultMaxFrameSize.
func NewAssembler(maxFrameSize int, logger *slog.Logger) *Assembler {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{
		maxFrameSize: uint32(maxFrameSize),
		logger:       logger,
		segments:     make(map[uint32][]byte),
	}
}

// Reset forgets all buffered data and the expected sequence number.
func (a *Assembler) Reset() {
	a.synced = false
	a.nextSeq = 0
	clear(a.segments)
	a.pending = nil
}

// Resyncs reports how many times the stream was dropped and restarted.
func (a *Assembler) Resyncs() int {
	return a.resyncs
}

func (a *Assembler) resync(reason string, attrs ...any) {
	a.resyncs++
	a.logger.Warn("dropping TCP stream state", append([]any{"reason", reason}, attrs...)...)
	a.Reset()
}

// Feed adds one segment and returns every frame it completed, in stream
// order. Each returned buffer holds exactly one frame and is owned by the
// caller.
func (a *Assembler) Feed(seq uint32, payload []byte, at time.Time) [][]byte {
	if len(payload) == 0 {
		return nil
	}

	if a.synced && !a.lastSeen.IsZero() && at.Sub(a.lastSeen) > streamTimeout {
		a.resync("timeout", "idle", at.Sub(a.lastSeen))
	}

	if !a.synced {
		// only a segment that starts with a plausible length can anchor the stream
		if len(payload) <= protocol.LengthPrefixSize || binary.BigEndian.Uint32(payload) >= a.maxFrameSize {
			return nil
		}
		a.synced = true
		a.nextSeq = seq
		a.lastSeen = at
	}

	a.segments[seq] = payload

	advanced := false
	for {
		seg, ok := a.segments[a.nextSeq]
		if !ok {
			break
		}
		delete(a.segments, a.nextSeq)
		a.pending = append(a.pending, seg...)
		a.nextSeq += uint32(len(seg))
		a.lastSeen = at
		advanced = true
	}

	var frames [][]byte
	if advanced {
		frames = a.cut()
	}

	if len(a.segments) > maxCachedSegments {
		a.resync("too many out-of-order segments", "cached", len(a.segments))
	}
	return frames
}

// cut removes every complete frame from the head of pending.
func (a *Assembler) cut() [][]byte {
	var frames [][]byte
	for len(a.pending) > protocol.LengthPrefixSize {
		size := binary.BigEndian.Uint32(a.pending)
		if size < protocol.MinFrameSize || size > a.maxFrameSize {
			a.resync("invalid frame length", "length", size)
			return frames
		}
		if uint32(len(a.pending)) < size {
			break
		}
		frames = append(frames, append([]byte(nil), a.pending[:size]...))
		a.pending = a.pending[size:]
	}
	if len(a.pending) == 0 {
		a.pending = nil
	}
	return frames
}
