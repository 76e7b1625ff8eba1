package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/resonance-tools/combatmeter/internal/config"
	"github.com/resonance-tools/combatmeter/internal/logging"
	"github.com/resonance-tools/combatmeter/internal/session"
)

// app holds the process-wide services every command needs.
type app struct {
	SessionStartTime time.Time

	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	ZLogger     zerolog.Logger

	Session *session.Context

	logFile     *os.File
	LogFilePath string
}

func newApp(flags *rootFlags, console io.Writer) (*app, error) {
	a := &app{
		SessionStartTime: time.Now(),
		Session:          session.NewContext(),
	}

	if err := config.Load(flags.configDir); err != nil {
		return nil, err
	}

	level := config.GetString("logLevel")
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logsDir := config.GetString("logsDir")
	if flags.logsDir != "" {
		logsDir = flags.logsDir
	}

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		a.LogFilePath = logging.LogFilePath(logsDir, AppName, a.SessionStartTime)
		f, err := os.OpenFile(a.LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		a.logFile = f
	}

	opts := logging.Options{
		Level:   level,
		Console: console,
		Context: a.Session.LogAttrs,
	}
	if a.logFile != nil {
		opts.File = a.logFile
	}
	if config.GetBool("graylog.enabled") {
		opts.GraylogAddress = config.GetString("graylog.address")
	}

	a.SlogManager = logging.NewSlogManager()
	// a Graylog failure is already logged and leaves the local sinks working
	_ = a.SlogManager.Setup(opts)
	a.Logger = a.SlogManager.Logger()

	a.ZLogger = a.newZerolog(level, console)

	if a.LogFilePath != "" {
		a.Logger.Info("Logging to file", "path", a.LogFilePath)
	}
	return a, nil
}

// newZerolog builds the zerolog logger used by the dispatcher and the
// database layers, writing to the same sinks as slog.
func (a *app) newZerolog(level string, console io.Writer) zerolog.Logger {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}
	if a.logFile != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: a.logFile, TimeFormat: time.RFC3339, NoColor: true})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			if id, ok := a.Session.CurrentPlayer(); ok {
				e.Uint64("player", id.UID())
			}
		}))
}

func (a *app) Close() error {
	err := a.SlogManager.Close()
	if a.logFile != nil {
		if cerr := a.logFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
