package gormstorage

import (
	"time"

	"gorm.io/datatypes"

	"github.com/resonance-tools/combatmeter/pkg/core"
)

// Player holds the identity of one uid. Rows are upserted column by column.
type Player struct {
	UID        uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"size:64"`
	Profession string `gorm:"size:64"`
	FightPoint int32
	UpdatedAt  time.Time
}

// EventFlags are the per-hit modifiers kept alongside each combat row.
type EventFlags struct {
	Crit  bool `json:"crit,omitempty"`
	Lucky bool `json:"lucky,omitempty"`
}

// CombatEvent is one statistics-store write.
type CombatEvent struct {
	ID       uint           `gorm:"primaryKey"`
	Time     time.Time      `gorm:"index"`
	Kind     core.EventKind `gorm:"size:16;index:idx_uid_kind"`
	UID      uint64         `gorm:"index:idx_uid_kind"`
	SkillID  int32
	Amount   int64
	HpLessen int64
	Flags    datatypes.JSONType[EventFlags]
}

// DatabaseModels lists every table the backend migrates.
var DatabaseModels = []any{
	&Player{},
	&CombatEvent{},
}

func (e CombatEvent) record() core.CombatRecord {
	flags := e.Flags.Data()
	return core.CombatRecord{
		Kind:     e.Kind,
		UID:      e.UID,
		SkillID:  e.SkillID,
		Amount:   e.Amount,
		Crit:     flags.Crit,
		Lucky:    flags.Lucky,
		HpLessen: e.HpLessen,
		Time:     e.Time,
	}
}
