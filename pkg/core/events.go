package core

import "time"

// EventKind tells damage, healing and damage taken apart.
type EventKind string

const (
	KindDamage      EventKind = "damage"
	KindHealing     EventKind = "healing"
	KindTakenDamage EventKind = "taken_damage"
)

// CombatRecord is one statistics-store write, as persisted or streamed.
// SkillID and HpLessen are only meaningful for KindDamage.
type CombatRecord struct {
	Kind     EventKind `json:"kind"`
	UID      uint64    `json:"uid"`
	SkillID  int32     `json:"skillId,omitempty"`
	Amount   int64     `json:"amount"`
	Crit     bool      `json:"crit"`
	Lucky    bool      `json:"lucky"`
	HpLessen int64     `json:"hpLessen,omitempty"`
	Time     time.Time `json:"time"`
}

// PlayerInfo is an identity update for one player. Empty fields are
// unchanged.
type PlayerInfo struct {
	UID        uint64 `json:"uid"`
	Name       string `json:"name,omitempty"`
	Profession string `json:"profession,omitempty"`
	FightPoint int32  `json:"fightPoint,omitempty"`
}
