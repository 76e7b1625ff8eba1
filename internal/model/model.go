package model

import (
	"github.com/resonance-tools/combatmeter/internal/protocol"
)

// Optional is a protocol field that may be absent. Absent and zero are
// distinct: a present zero is still present.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// OrElse returns the value if present, otherwise def.
func (o Optional[T]) OrElse(def T) T {
	if o.Valid {
		return o.Value
	}
	return def
}

// Or returns o if present, otherwise other.
func (o Optional[T]) Or(other Optional[T]) Optional[T] {
	if o.Valid {
		return o
	}
	return other
}

// CombatEvent is one damage or heal record extracted from an entity delta.
// Identities are kept raw; classification and the durable id are both
// derived from them on demand.
type CombatEvent struct {
	SkillID  int32
	Actor    protocol.EntityID
	Target   protocol.EntityID
	Type     protocol.DamageType
	Amount   int64
	HpLessen int64
	Crit     bool
	Lucky    bool
	Miss     bool
	Dead     bool
}

// IsHeal reports whether the record is a heal.
func (e CombatEvent) IsHeal() bool {
	return e.Type == protocol.DamageHeal
}

// ActorIsPlayer classifies the actor from its unshifted identity.
func (e CombatEvent) ActorIsPlayer() bool {
	return e.Actor.IsPlayer()
}

// TargetIsPlayer classifies the target from its unshifted identity.
func (e CombatEvent) TargetIsPlayer() bool {
	return e.Target.IsPlayer()
}

// ActorUID is the actor's durable id.
func (e CombatEvent) ActorUID() uint64 {
	return e.Actor.UID()
}

// TargetUID is the target's durable id.
func (e CombatEvent) TargetUID() uint64 {
	return e.Target.UID()
}

// Tags renders the flag summary used in combat log lines.
func (e CombatEvent) Tags() string {
	switch {
	case e.Crit && e.Lucky:
		return "Crit|Lucky"
	case e.Crit:
		return "Crit"
	case e.Lucky:
		return "Lucky"
	default:
		return "Normal"
	}
}

// EntitySnapshot holds the decoded attributes of an appearing character.
type EntitySnapshot struct {
	ID           protocol.EntityID
	Name         Optional[string]
	ProfessionID Optional[int32]
	FightPoint   Optional[int32]
}

// UID is the snapshot's durable id.
func (s EntitySnapshot) UID() uint64 {
	return s.ID.UID()
}

// DeltaBatch is the result of decoding one delta notification.
type DeltaBatch struct {
	// CurrentPlayer is set only by self-sync notifications.
	CurrentPlayer Optional[protocol.EntityID]
	Events        []CombatEvent
}
