// Package influxstorage writes every statistics-store call as an InfluxDB
// point. It is write-only: GetUser never finds anyone.
package influxstorage

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/resonance-tools/combatmeter/pkg/core"
)

const (
	measurementCombat = "combat"
	measurementPlayer = "player"
)

// PointWriter accepts points; *influx.Manager implements it.
type PointWriter interface {
	WritePoint(point *write.Point) error
	Close() error
}

// Backend implements storage.Backend on top of a PointWriter.
type Backend struct {
	w   PointWriter
	now func() time.Time
}

// New creates a new InfluxDB storage backend.
func New(w PointWriter) *Backend {
	return &Backend{w: w, now: time.Now}
}

func (b *Backend) Init() error {
	return nil
}

// Close flushes and closes the writer.
func (b *Backend) Close() error {
	return b.w.Close()
}

// CombatPoint converts a record into a "combat" point.
func CombatPoint(r core.CombatRecord) *write.Point {
	p := write.NewPointWithMeasurement(measurementCombat).
		AddTag("kind", string(r.Kind)).
		AddTag("uid", strconv.FormatUint(r.UID, 10)).
		AddField("amount", r.Amount).
		SetTime(r.Time)

	if r.Kind != core.KindTakenDamage {
		p.AddField("crit", r.Crit).AddField("lucky", r.Lucky)
	}
	if r.Kind == core.KindDamage {
		p.AddTag("skill", strconv.FormatInt(int64(r.SkillID), 10)).
			AddField("hp_lessen", r.HpLessen)
	}
	return p.SortTags().SortFields()
}

func (b *Backend) record(r core.CombatRecord) error {
	r.Time = b.now()
	return b.w.WritePoint(CombatPoint(r))
}

func (b *Backend) AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	return b.record(core.CombatRecord{
		Kind: core.KindDamage, UID: uid, SkillID: skillID, Amount: amount,
		Crit: crit, Lucky: lucky, HpLessen: hpLessen,
	})
}

func (b *Backend) AddHealing(uid uint64, amount int64, crit, lucky bool) error {
	return b.record(core.CombatRecord{Kind: core.KindHealing, UID: uid, Amount: amount, Crit: crit, Lucky: lucky})
}

func (b *Backend) AddTakenDamage(uid uint64, amount int64) error {
	return b.record(core.CombatRecord{Kind: core.KindTakenDamage, UID: uid, Amount: amount})
}

func (b *Backend) player(uid uint64, field string, value any) error {
	p := write.NewPointWithMeasurement(measurementPlayer).
		AddTag("uid", strconv.FormatUint(uid, 10)).
		AddField(field, value).
		SetTime(b.now())
	return b.w.WritePoint(p)
}

func (b *Backend) SetName(uid uint64, name string) error {
	return b.player(uid, "name", name)
}

func (b *Backend) SetProfession(uid uint64, profession string) error {
	return b.player(uid, "profession", profession)
}

func (b *Backend) SetFightPoint(uid uint64, fightPoint int32) error {
	return b.player(uid, "fight_point", fightPoint)
}

func (b *Backend) GetUser(uint64) (core.User, bool) {
	return core.User{}, false
}
