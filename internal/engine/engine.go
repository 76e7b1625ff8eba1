// Package engine is the per-buffer entry point: it wires the frame decoder,
// the notify dispatcher and the worker, and guarantees a malformed buffer
// never takes the process down.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/resonance-tools/combatmeter/internal/codec"
	"github.com/resonance-tools/combatmeter/internal/dispatcher"
	"github.com/resonance-tools/combatmeter/internal/frame"
	"github.com/resonance-tools/combatmeter/internal/queue"
	"github.com/resonance-tools/combatmeter/internal/session"
	"github.com/resonance-tools/combatmeter/internal/storage"
	"github.com/resonance-tools/combatmeter/internal/worker"
)

// Dependencies holds everything the engine needs. Only Backend is required.
type Dependencies struct {
	Backend storage.Backend
	Session *session.Context
	Logger  *slog.Logger

	// DispatcherLogger receives the dispatcher's per-event logging. It
	// defaults to Logger.
	DispatcherLogger dispatcher.Logger

	// Zstd decompresses flagged payloads. Nil disables decompression.
	Zstd     codec.Decompressor
	MaxDepth int
}

// Stats counts what the engine has seen since it was created.
type Stats struct {
	Buffers uint64
	Frames  uint64
	Failed  uint64
}

// Engine decodes independently delivered buffers, one at a time.
type Engine struct {
	decoder    *frame.Decoder
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	session    *session.Context
	logger     *slog.Logger

	buffers atomic.Uint64
	frames  atomic.Uint64
	failed  atomic.Uint64
}

// New builds an engine around deps.Backend.
func New(deps Dependencies) (*Engine, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("engine: backend is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.DispatcherLogger == nil {
		deps.DispatcherLogger = deps.Logger
	}

	d, err := dispatcher.New(deps.DispatcherLogger, deps.Zstd)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	w := worker.NewManager(worker.Dependencies{
		Session: deps.Session,
		Logger:  deps.Logger,
	}, deps.Backend)
	w.RegisterHandlers(d)

	dec, err := frame.NewDecoder(d, deps.Zstd, deps.Logger, frame.WithMaxDepth(deps.MaxDepth))
	if err != nil {
		return nil, fmt.Errorf("creating frame decoder: %w", err)
	}

	return &Engine{
		decoder:    dec,
		dispatcher: d,
		worker:     w,
		session:    deps.Session,
		logger:     deps.Logger,
	}, nil
}

// Session returns the engine's session state.
func (e *Engine) Session() *session.Context {
	return e.session
}

// Process decodes one buffer. Any failure abandons the rest of buf, is
// logged, and is reported as false; it never propagates.
func (e *Engine) Process(buf []byte) (ok bool) {
	e.buffers.Add(1)

	defer func() {
		if r := recover(); r != nil {
			e.failed.Add(1)
			e.logger.Debug("buffer aborted", "size", len(buf), "error", fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()

	n, err := e.decoder.Decode(buf)
	e.frames.Add(uint64(n))
	if err != nil {
		e.failed.Add(1)
		e.logger.Debug("buffer aborted", "size", len(buf), "frames", n, "error", err)
		return false
	}
	return true
}

// Run processes buffers from q until q is closed and drained or ctx ends.
func (e *Engine) Run(ctx context.Context, q *queue.Queue[[]byte]) error {
	for {
		buf, ok := q.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		e.Process(buf)
	}
}

// Drain processes whatever is queued right now without blocking.
func (e *Engine) Drain(q *queue.Queue[[]byte]) int {
	items := q.GetAndEmpty()
	for _, buf := range items {
		e.Process(buf)
	}
	return len(items)
}

// Stats returns the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Buffers: e.buffers.Load(),
		Frames:  e.frames.Load(),
		Failed:  e.failed.Load(),
	}
}
