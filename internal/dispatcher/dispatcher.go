package dispatcher

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/resonance-tools/combatmeter/internal/codec"
	"github.com/resonance-tools/combatmeter/internal/protocol"
	"github.com/resonance-tools/combatmeter/internal/wire"
)

const instrumentationName = "github.com/resonance-tools/combatmeter/internal/dispatcher"

// Event is one notify call addressed to a registered method.
type Event struct {
	Method    protocol.NotifyMethod
	Payload   []byte
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Envelope is the header of a notify body.
type Envelope struct {
	ServiceID uint64
	StubID    uint32
	Method    protocol.NotifyMethod
	Payload   []byte
}

// ParseEnvelope splits a notify body into its header and call payload.
// Payload is a view into body.
func ParseEnvelope(body []byte) (Envelope, error) {
	r := wire.NewReader(body)
	if err := r.Need(protocol.NotifyEnvelopeSize, "notify envelope"); err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ServiceID: r.ReadUint64(),
		StubID:    r.ReadUint32(),
		Method:    protocol.NotifyMethod(r.ReadUint32()),
		Payload:   r.ReadRemaining(),
	}, nil
}

// AppendEnvelope appends the wire form of a notify body to dst.
func AppendEnvelope(dst []byte, e Envelope) []byte {
	dst = binary.BigEndian.AppendUint64(dst, e.ServiceID)
	dst = binary.BigEndian.AppendUint32(dst, e.StubID)
	dst = binary.BigEndian.AppendUint32(dst, uint32(e.Method))
	return append(dst, e.Payload...)
}

// Dispatcher routes notify calls to registered handlers.
type Dispatcher struct {
	handlers map[protocol.NotifyMethod]HandlerFunc
	logger   Logger
	zstd     codec.Decompressor
	now      func() time.Time

	processed    metric.Int64Counter
	skipped      metric.Int64Counter
	decompErrors metric.Int64Counter
}

// New creates a new Dispatcher with the given logger. zstd decompresses
// flagged payloads and may be nil.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, zstd codec.Decompressor) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[protocol.NotifyMethod]HandlerFunc),
		logger:   logger,
		zstd:     zstd,
		now:      time.Now,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total notify calls handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.skipped, err = m.Int64Counter(
		"dispatcher.events.skipped",
		metric.WithDescription("Notify calls for foreign services or unknown methods"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	d.decompErrors, err = m.Int64Counter(
		"dispatcher.decompress.errors",
		metric.WithDescription("Call payloads that failed to decompress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decompress error counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given method with optional configuration.
func (d *Dispatcher) Register(method protocol.NotifyMethod, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(method, handler)
	}

	d.handlers[method] = handler
}

// Dispatch routes an event to its registered handler. Unknown methods are
// skipped: ok is false and err is nil.
func (d *Dispatcher) Dispatch(e Event) (ok bool, err error) {
	h, found := d.handlers[e.Method]
	if !found {
		d.skipped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "method")))
		d.logger.Debug("skipping unknown method", "method", e.Method.String())
		return false, nil
	}

	err = h(e)
	d.processed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("method", e.Method.String())))
	return true, err
}

// HasHandler returns true if a handler is registered for the method.
func (d *Dispatcher) HasHandler(method protocol.NotifyMethod) bool {
	_, ok := d.handlers[method]
	return ok
}

// HandleNotify parses a notify body and dispatches its call. Foreign
// services are skipped. A flagged payload that fails to decompress is
// dispatched as empty.
func (d *Dispatcher) HandleNotify(body []byte, compressed bool) error {
	env, err := ParseEnvelope(body)
	if err != nil {
		return fmt.Errorf("parsing notify envelope: %w", err)
	}

	if env.ServiceID != protocol.ServiceID {
		d.skipped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "service")))
		d.logger.Debug("skipping foreign service", "service", fmt.Sprintf("0x%x", env.ServiceID))
		return nil
	}

	payload := env.Payload
	if compressed {
		payload, err = codec.Inflate(d.zstd, payload)
		if err != nil {
			d.decompErrors.Add(context.Background(), 1)
			d.logger.Warn("failed to decompress call payload", "method", env.Method.String(), "error", err)
		}
	}

	_, err = d.Dispatch(Event{Method: env.Method, Payload: payload, Timestamp: d.now()})
	return err
}

func (d *Dispatcher) withLogging(method protocol.NotifyMethod, h HandlerFunc) HandlerFunc {
	name := method.String()
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "method", name, "size", len(e.Payload))

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "method", name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "method", name, "duration", time.Since(start))
		}

		return err
	}
}
