// internal/storage/memory/memory.go
package memory

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/resonance-tools/combatmeter/internal/config"
	"github.com/resonance-tools/combatmeter/pkg/core"
)

// realtimeWindow is the span summed for realtime DPS.
const realtimeWindow = time.Second

type sample struct {
	at     time.Time
	amount int64
}

// userRecord groups a user with its realtime damage samples
type userRecord struct {
	user   core.User
	window []sample
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// Backend aggregates live per-player statistics in memory and exports a
// report on Close.
type Backend struct {
	cfg       config.MemoryConfig
	now       func() time.Time
	startedAt time.Time

	users map[uint64]*userRecord

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, opts ...Option) *Backend {
	b := &Backend{
		cfg:   cfg,
		now:   time.Now,
		users: make(map[uint64]*userRecord),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.startedAt = b.now()
	return b
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the final statistics when an output directory is set.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" || len(b.users) == 0 {
		return nil
	}
	return b.exportJSON()
}

// GetExportedFilePath returns the path of the last export, if any.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// record returns uid's record, creating it on first use. Callers hold mu.
func (b *Backend) record(uid uint64) *userRecord {
	r, ok := b.users[uid]
	if !ok {
		r = &userRecord{user: core.User{UID: uid}}
		b.users[uid] = r
	}
	return r
}

// touch stamps the combat time span. Callers hold mu.
func (r *userRecord) touch(now time.Time) {
	if r.user.FirstEventAt.IsZero() {
		r.user.FirstEventAt = now
	}
	r.user.LastEventAt = now
}

// AddDamage records damage dealt by uid.
func (b *Backend) AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	r := b.record(uid)
	r.touch(now)
	r.user.Damage.Add(amount, crit, lucky, hpLessen)

	if r.user.Skills == nil {
		r.user.Skills = make(map[int32]core.StatBlock)
	}
	skill := r.user.Skills[skillID]
	skill.Add(amount, crit, lucky, hpLessen)
	r.user.Skills[skillID] = skill

	r.window = append(r.window, sample{at: now, amount: amount})
	r.refreshRealtime(now)
	return nil
}

// AddHealing records healing done by uid.
func (b *Backend) AddHealing(uid uint64, amount int64, crit, lucky bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.record(uid)
	r.touch(b.now())
	r.user.Healing.Add(amount, crit, lucky, 0)
	return nil
}

// AddTakenDamage records damage taken by uid.
func (b *Backend) AddTakenDamage(uid uint64, amount int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record(uid).user.TakenDamage += amount
	return nil
}

func (b *Backend) SetName(uid uint64, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(uid).user.Name = name
	return nil
}

func (b *Backend) SetProfession(uid uint64, profession string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(uid).user.Profession = profession
	return nil
}

func (b *Backend) SetFightPoint(uid uint64, fightPoint int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(uid).user.FightPoint = fightPoint
	return nil
}

// GetUser returns a copy of uid's statistics.
func (b *Backend) GetUser(uid uint64) (core.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.users[uid]
	if !ok {
		return core.User{}, false
	}
	return r.snapshot(b.now()), true
}

// Snapshot returns every user, highest damage first.
func (b *Backend) Snapshot() []core.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Backend) snapshotLocked() []core.User {
	now := b.now()
	out := make([]core.User, 0, len(b.users))
	for _, r := range b.users {
		out = append(out, r.snapshot(now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Damage.Total != out[j].Damage.Total {
			return out[i].Damage.Total > out[j].Damage.Total
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// Reset clears combat statistics but keeps player identities.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for uid, r := range b.users {
		b.users[uid] = &userRecord{user: core.User{
			UID:        uid,
			Name:       r.user.Name,
			Profession: r.user.Profession,
			FightPoint: r.user.FightPoint,
		}}
	}
	b.startedAt = b.now()
}

// refreshRealtime drops samples older than the window and updates the
// realtime figures. Callers hold mu.
func (r *userRecord) refreshRealtime(now time.Time) {
	cutoff := now.Add(-realtimeWindow)
	i := 0
	for i < len(r.window) && !r.window[i].at.After(cutoff) {
		i++
	}
	r.window = r.window[i:]

	var sum int64
	for _, s := range r.window {
		sum += s.amount
	}
	r.user.RealtimeDPS = float64(sum) / realtimeWindow.Seconds()
	if r.user.RealtimeDPS > r.user.RealtimeDPSMax {
		r.user.RealtimeDPSMax = r.user.RealtimeDPS
	}
}

// snapshot returns a detached copy with derived rates filled in. Callers
// hold mu.
func (r *userRecord) snapshot(now time.Time) core.User {
	r.refreshRealtime(now)

	u := r.user
	u.Skills = maps.Clone(r.user.Skills)

	if span := u.LastEventAt.Sub(u.FirstEventAt).Seconds(); span > 0 {
		u.TotalDPS = float64(u.Damage.Total) / span
		u.TotalHPS = float64(u.Healing.Total) / span
	}
	return u
}
