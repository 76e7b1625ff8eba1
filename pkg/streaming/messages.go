// Package streaming defines the JSON messages sent to a remote statistics
// collector.
package streaming

import (
	"encoding/json"
	"time"

	"github.com/resonance-tools/combatmeter/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeDamage       = "damage"
	TypeHealing      = "healing"
	TypeTakenDamage  = "taken_damage"
	TypePlayerInfo   = "player_info"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload opens a recording session on the collector.
type StartSessionPayload struct {
	StartedAt time.Time `json:"startedAt"`
	Version   string    `json:"version,omitempty"`
}

// TypeFor returns the message type carrying a record of the given kind.
func TypeFor(kind core.EventKind) string {
	switch kind {
	case core.KindHealing:
		return TypeHealing
	case core.KindTakenDamage:
		return TypeTakenDamage
	default:
		return TypeDamage
	}
}
