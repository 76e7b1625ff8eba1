package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_FileOnly(t *testing.T) {
	var fileBuf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &fileBuf, Level: "info"}))
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file")
	assert.Contains(t, fileBuf.String(), "Logging initialized")
}

func TestSetup_ConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{Console: &console, File: &file, Level: "info"}))
	m.Logger().Info("both")

	assert.Contains(t, console.String(), "both")
	assert.Contains(t, file.String(), "both")
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level    string
		debugged bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			require.NoError(t, m.Setup(Options{File: &buf, Level: tt.level}))

			m.Logger().Debug("debug msg")
			m.Logger().Info("info msg")

			assert.Equal(t, tt.debugged, bytes.Contains(buf.Bytes(), []byte("debug msg")))
			assert.Contains(t, buf.String(), "info msg")
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewSlogManager()

	require.NoError(t, m.Setup(Options{File: &buf1}))
	m.Logger().Info("first")

	require.NoError(t, m.Setup(Options{File: &buf2}))
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second", "old file should not receive new logs")
	assert.Contains(t, buf2.String(), "second")
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	player := uint64(0)

	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{
		File: &buf,
		Context: func() []slog.Attr {
			if player == 0 {
				return nil
			}
			return []slog.Attr{slog.Uint64("player", player)}
		},
	}))

	m.Logger().Info("before")
	player = 1001
	m.Logger().Info("after")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.NotContains(t, string(lines[1]), "player=")
	assert.Contains(t, string(lines[2]), "player=1001")
}

func TestSetup_Graylog(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)

	var file bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &file, GraylogAddress: r.Addr()}))
	defer m.Close()

	got := make(chan string, 1)
	go func() {
		for {
			msg, err := r.ReadMessage()
			if err != nil {
				return
			}
			if bytes.Contains([]byte(msg.Short), []byte("to graylog")) {
				got <- msg.Short
				return
			}
		}
	}()

	m.Logger().Warn("to graylog", "uid", 7)

	select {
	case short := <-got:
		assert.Contains(t, short, `"level":"WARN"`)
		assert.Contains(t, short, `"uid":7`)
	case <-time.After(2 * time.Second):
		t.Fatal("no GELF message received")
	}
}

func TestSetup_GraylogBadAddress(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	err := m.Setup(Options{File: &file, GraylogAddress: "no-port"})
	require.Error(t, err)

	m.Logger().Info("still logging")
	assert.Contains(t, file.String(), "Graylog disabled")
	assert.Contains(t, file.String(), "still logging")
	assert.NoError(t, m.Close())
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	slog.New(NewMultiHandler(h1, h2)).Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_FiltersNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(nil, slog.NewTextHandler(&buf, nil), nil)
	require.Len(t, multi.sinks, 1)

	slog.New(multi).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestMultiHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	infoOnly := NewMultiHandler(infoHandler)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewMultiHandler(infoHandler, debugHandler)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))

	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "test")})).Info("with attrs")
	slog.New(multi.WithGroup("grp")).Info("grouped", "key", "val")

	assert.Contains(t, buf.String(), "component=test")
	assert.Contains(t, buf.String(), "grp.key=val")
	assert.Equal(t, multi, multi.WithGroup(""))
}

// errorHandler is a slog.Handler that always returns an error from Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(context.Context, slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	multi := NewMultiHandler(&errorHandler{}, spy)
	var r slog.Record
	r.Level = slog.LevelInfo
	r.Message = "should reach spy"

	err := multi.Handle(context.Background(), r)
	assert.EqualError(t, err, "handler error")
	assert.Contains(t, buf.String(), "should reach spy")
}

func TestMultiHandler_WithContext(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	calls := 0
	multi := NewMultiHandler(
		slog.NewTextHandler(&buf1, nil),
		slog.NewTextHandler(&buf2, nil),
	).WithContext(func() []slog.Attr {
		calls++
		return []slog.Attr{slog.Uint64("player", 1001)}
	})

	logger := slog.New(multi).With("component", "engine")
	logger.Info("stamped")

	assert.Equal(t, 1, calls, "provider runs once per record")
	assert.Contains(t, buf1.String(), "component=engine player=1001")
	assert.Contains(t, buf2.String(), "player=1001")
}
