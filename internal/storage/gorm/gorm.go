// Package gormstorage implements the storage.Backend interface on a relational
// database through GORM. SQLite and Postgres share the same schema.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resonance-tools/combatmeter/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time

	// OnClose runs after the backend stops, e.g. to dump or close the DB.
	OnClose func() error
}

// Backend implements storage.Backend with one row per combat event.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{deps: deps}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}
	if err := b.deps.DB.AutoMigrate(DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.deps.Logger.Debug("gorm backend ready", "dialect", b.deps.DB.Dialector.Name())
	return nil
}

// Close runs the OnClose hook, if any.
func (b *Backend) Close() error {
	if b.deps.OnClose != nil {
		return b.deps.OnClose()
	}
	return nil
}

func (b *Backend) insert(kind core.EventKind, uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	row := CombatEvent{
		Time:     b.deps.Now(),
		Kind:     kind,
		UID:      uid,
		SkillID:  skillID,
		Amount:   amount,
		HpLessen: hpLessen,
		Flags:    datatypes.NewJSONType(EventFlags{Crit: crit, Lucky: lucky}),
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("insert %s event: %w", kind, err)
	}
	return nil
}

func (b *Backend) AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	return b.insert(core.KindDamage, uid, skillID, amount, crit, lucky, hpLessen)
}

func (b *Backend) AddHealing(uid uint64, amount int64, crit, lucky bool) error {
	return b.insert(core.KindHealing, uid, 0, amount, crit, lucky, 0)
}

func (b *Backend) AddTakenDamage(uid uint64, amount int64) error {
	return b.insert(core.KindTakenDamage, uid, 0, amount, false, false, 0)
}

// upsert writes one identity column, creating the player row if needed.
func (b *Backend) upsert(p Player, column string) error {
	p.UpdatedAt = b.deps.Now()
	err := b.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("upsert player %d %s: %w", p.UID, column, err)
	}
	return nil
}

func (b *Backend) SetName(uid uint64, name string) error {
	return b.upsert(Player{UID: uid, Name: name}, "name")
}

func (b *Backend) SetProfession(uid uint64, profession string) error {
	return b.upsert(Player{UID: uid, Profession: profession}, "profession")
}

func (b *Backend) SetFightPoint(uid uint64, fightPoint int32) error {
	return b.upsert(Player{UID: uid, FightPoint: fightPoint}, "fight_point")
}

// GetUser folds uid's rows back into a core.User.
func (b *Backend) GetUser(uid uint64) (core.User, bool) {
	u := core.User{UID: uid}
	found := false

	var p Player
	err := b.deps.DB.Where("uid = ?", uid).Limit(1).Find(&p).Error
	if err != nil {
		b.deps.Logger.Warn("failed to load player", "uid", uid, "error", err)
		return core.User{}, false
	}
	if p.UID == uid {
		found = true
		u.Name = p.Name
		u.Profession = p.Profession
		u.FightPoint = p.FightPoint
	}

	var rows []CombatEvent
	if err := b.deps.DB.Where("uid = ?", uid).Order("id").Find(&rows).Error; err != nil {
		b.deps.Logger.Warn("failed to load combat events", "uid", uid, "error", err)
		return core.User{}, false
	}
	for _, row := range rows {
		found = true
		apply(&u, row.record())
	}
	if !found {
		return core.User{}, false
	}

	if span := u.LastEventAt.Sub(u.FirstEventAt).Seconds(); span > 0 {
		u.TotalDPS = float64(u.Damage.Total) / span
		u.TotalHPS = float64(u.Healing.Total) / span
	}
	return u, true
}

func apply(u *core.User, r core.CombatRecord) {
	switch r.Kind {
	case core.KindDamage:
		u.Damage.Add(r.Amount, r.Crit, r.Lucky, r.HpLessen)
		if u.Skills == nil {
			u.Skills = make(map[int32]core.StatBlock)
		}
		s := u.Skills[r.SkillID]
		s.Add(r.Amount, r.Crit, r.Lucky, r.HpLessen)
		u.Skills[r.SkillID] = s
	case core.KindHealing:
		u.Healing.Add(r.Amount, r.Crit, r.Lucky, 0)
	case core.KindTakenDamage:
		u.TakenDamage += r.Amount
		return
	}

	if u.FirstEventAt.IsZero() {
		u.FirstEventAt = r.Time
	}
	u.LastEventAt = r.Time
}
