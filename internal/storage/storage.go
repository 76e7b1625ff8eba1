// internal/storage/storage.go
package storage

import "github.com/resonance-tools/combatmeter/pkg/core"

// Backend is the interface all statistics stores must satisfy. Ids are
// durable uids, never raw entity identities.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Combat recording
	AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error
	AddHealing(uid uint64, amount int64, crit, lucky bool) error
	AddTakenDamage(uid uint64, amount int64) error

	// Player identity
	SetName(uid uint64, name string) error
	SetProfession(uid uint64, profession string) error
	SetFightPoint(uid uint64, fightPoint int32) error

	// GetUser returns what the store knows about uid.
	GetUser(uid uint64) (core.User, bool)
}

// Snapshotter is an optional interface for stores that can list every user
// and clear their combat statistics.
type Snapshotter interface {
	Snapshot() []core.User
	Reset()
}

// Exporter is an optional interface for stores that write a report file
// on Close.
type Exporter interface {
	GetExportedFilePath() string
}
