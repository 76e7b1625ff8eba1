package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/resonance-tools/combatmeter/pkg/core"
	"github.com/resonance-tools/combatmeter/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL     string
	Secret  string
	Version string
}

// Backend streams every statistics write to a remote collector. It keeps no
// state of its own, so GetUser never finds anyone.
type Backend struct {
	conn *connection
	cfg  Config
	now  func() time.Time
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
		now:  time.Now,
	}
}

// Init connects and opens a session, waiting for the collector's ack.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	hello, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{
		StartedAt: b.now(),
		Version:   b.cfg.Version,
	})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.hello = hello
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(hello, streaming.TypeStartSession, ackTimeout)
}

// Close ends the session and disconnects. The end_session ack also confirms
// every earlier message was written.
func (b *Backend) Close() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)
	}
	if cerr := b.conn.close(); err == nil {
		err = cerr
	}
	return err
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload and queues it (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

func (b *Backend) sendRecord(r core.CombatRecord) error {
	r.Time = b.now()
	return b.sendEnvelope(streaming.TypeFor(r.Kind), r)
}

func (b *Backend) AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	return b.sendRecord(core.CombatRecord{
		Kind: core.KindDamage, UID: uid, SkillID: skillID, Amount: amount,
		Crit: crit, Lucky: lucky, HpLessen: hpLessen,
	})
}

func (b *Backend) AddHealing(uid uint64, amount int64, crit, lucky bool) error {
	return b.sendRecord(core.CombatRecord{Kind: core.KindHealing, UID: uid, Amount: amount, Crit: crit, Lucky: lucky})
}

func (b *Backend) AddTakenDamage(uid uint64, amount int64) error {
	return b.sendRecord(core.CombatRecord{Kind: core.KindTakenDamage, UID: uid, Amount: amount})
}

func (b *Backend) SetName(uid uint64, name string) error {
	return b.sendEnvelope(streaming.TypePlayerInfo, core.PlayerInfo{UID: uid, Name: name})
}

func (b *Backend) SetProfession(uid uint64, profession string) error {
	return b.sendEnvelope(streaming.TypePlayerInfo, core.PlayerInfo{UID: uid, Profession: profession})
}

func (b *Backend) SetFightPoint(uid uint64, fightPoint int32) error {
	return b.sendEnvelope(streaming.TypePlayerInfo, core.PlayerInfo{UID: uid, FightPoint: fightPoint})
}

func (b *Backend) GetUser(uint64) (core.User, bool) {
	return core.User{}, false
}
