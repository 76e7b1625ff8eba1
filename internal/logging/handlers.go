package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes to stamp on every record at the time it
// is logged, e.g. the local player once known.
type ContextProvider func() []slog.Attr

// MultiHandler writes each record to every sink whose level admits it.
type MultiHandler struct {
	sinks   []slog.Handler
	context ContextProvider
}

// NewMultiHandler fans out to the non-nil handlers given.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	m := &MultiHandler{}
	for _, h := range handlers {
		if h != nil {
			m.sinks = append(m.sinks, h)
		}
	}
	return m
}

// WithContext returns a copy that evaluates provider once per record, before
// the record reaches any sink.
func (m *MultiHandler) WithContext(provider ContextProvider) *MultiHandler {
	return &MultiHandler{sinks: m.sinks, context: provider}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle never lets one failing sink starve the others; errors are joined.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	if m.context != nil {
		r.AddAttrs(m.context()...)
	}

	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		errs = append(errs, h.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = fn(h)
	}
	return &MultiHandler{sinks: sinks, context: m.context}
}
