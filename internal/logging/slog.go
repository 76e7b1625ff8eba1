package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// Options selects the sinks built by Setup.
type Options struct {
	Level string

	// Console defaults to os.Stdout when neither Console nor File is set.
	Console io.Writer
	File    io.Writer

	// GraylogAddress enables the GELF sink, e.g. "localhost:12201".
	GraylogAddress string

	// Context is evaluated for every record.
	Context ContextProvider
}

// LogFilePath names the session log file, e.g.
// logs/combatmeter.20260301_200000.log.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	name := appName + "." + sessionStart.Format("20060102_150405") + ".log"
	return filepath.Join(logsDir, name)
}

// SlogManager manages slog-based logging with optional Graylog output.
type SlogManager struct {
	logger *slog.Logger
	gelf   *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger. A Graylog address that cannot be resolved is
// reported but does not prevent the other sinks from working.
func (m *SlogManager) Setup(opts Options) error {
	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	console := opts.Console
	if console == nil && opts.File == nil {
		console = os.Stdout
	}

	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, handlerOpts))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	}

	var gelfErr error
	if opts.GraylogAddress != "" {
		w, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			gelfErr = fmt.Errorf("graylog writer %s: %w", opts.GraylogAddress, err)
		} else {
			m.gelf = w
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		}
	}

	m.logger = slog.New(NewMultiHandler(handlers...).WithContext(opts.Context))
	m.logger.Info("Logging initialized", "level", opts.Level)
	if gelfErr != nil {
		m.logger.Warn("Graylog disabled", "error", gelfErr)
	}
	return gelfErr
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Close releases the Graylog connection, if any.
func (m *SlogManager) Close() error {
	if m.gelf == nil {
		return nil
	}
	err := m.gelf.Close()
	m.gelf = nil
	if err != nil {
		return errors.Join(errors.New("closing graylog writer"), err)
	}
	return nil
}
