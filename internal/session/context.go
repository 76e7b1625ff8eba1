// Package session holds state that outlives a single buffer.
package session

import (
	"log/slog"
	"sync"

	"github.com/resonance-tools/combatmeter/internal/protocol"
)

// Context holds the identity of the locally observed player.
type Context struct {
	mu            sync.RWMutex
	currentPlayer protocol.EntityID
}

// NewContext creates a Context with no known player.
func NewContext() *Context {
	return &Context{}
}

// CurrentPlayer returns the local player's identity; ok is false until one
// has been observed.
func (c *Context) CurrentPlayer() (id protocol.EntityID, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentPlayer, c.currentPlayer != 0
}

// SetCurrentPlayer records id and reports whether it differs from the
// previous value. Zero is ignored.
func (c *Context) SetCurrentPlayer(id protocol.EntityID) bool {
	if id == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentPlayer == id {
		return false
	}
	c.currentPlayer = id
	return true
}

// LogAttrs reports the local player's uid for log records once known.
func (c *Context) LogAttrs() []slog.Attr {
	id, ok := c.CurrentPlayer()
	if !ok {
		return nil
	}
	return []slog.Attr{slog.Uint64("player", id.UID())}
}
