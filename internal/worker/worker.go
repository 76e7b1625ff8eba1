// Package worker routes decoded notifications into the statistics store.
package worker

import (
	"log/slog"

	"github.com/resonance-tools/combatmeter/internal/parser"
	"github.com/resonance-tools/combatmeter/internal/session"
	"github.com/resonance-tools/combatmeter/internal/storage"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Parser  *parser.Parser
	Session *session.Context
	Logger  *slog.Logger
}

// Manager turns parsed notifications into store calls.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// storeErr logs a failed store write. Store failures never abort the
// remaining records of a notification.
func (m *Manager) storeErr(op string, uid uint64, err error) {
	if err != nil {
		m.deps.Logger.Warn("statistics store write failed", "op", op, "uid", uid, "error", err)
	}
}
