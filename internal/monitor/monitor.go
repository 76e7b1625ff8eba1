// Package monitor periodically reports decoder progress.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/resonance-tools/combatmeter/internal/engine"
	"github.com/resonance-tools/combatmeter/internal/storage"
)

const defaultInterval = time.Second

// StatsSource reports decoder counters.
type StatsSource interface {
	Stats() engine.Stats
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Engine     StatsSource
	QueueLen   func() int
	Snapshots  storage.Snapshotter
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
}

// Status is one progress report.
type Status struct {
	Time        time.Time    `json:"time"`
	Decoder     engine.Stats `json:"decoder"`
	QueueLength int          `json:"queueLength"`
	Players     int          `json:"players"`
	TopDamage   string       `json:"topDamage,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the current status.
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now()}
	if s.deps.Engine != nil {
		st.Decoder = s.deps.Engine.Stats()
	}
	if s.deps.QueueLen != nil {
		st.QueueLength = s.deps.QueueLen()
	}
	if s.deps.Snapshots != nil {
		users := s.deps.Snapshots.Snapshot()
		st.Players = len(users)
		if len(users) > 0 && users[0].Damage.Total > 0 {
			top := users[0]
			name := top.Name
			if name == "" {
				name = fmt.Sprint(top.UID)
			}
			st.TopDamage = fmt.Sprintf("%s (%d)", name, top.Damage.Total)
		}
	}
	return st
}

// writeStatus replaces the status file's content with st.
func (s *Service) writeStatus(f *os.File, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Start starts the status monitor goroutine. It stops on Stop or when ctx
// ends.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := s.GetStatus()
				logger.Debug("Status",
					"buffers", st.Decoder.Buffers, "frames", st.Decoder.Frames,
					"failed", st.Decoder.Failed, "queue", st.QueueLength, "players", st.Players)

				if statusFile != nil {
					if err := s.writeStatus(statusFile, st); err != nil {
						logger.Error("Error writing status file", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
