package storage

import (
	"errors"

	"github.com/resonance-tools/combatmeter/pkg/core"
)

// Multi fans every call out to several backends. Every backend sees every
// call even when an earlier one fails; the errors are joined.
type Multi struct {
	backends []Backend
}

// NewMulti returns a Multi over the non-nil backends.
func NewMulti(backends ...Backend) *Multi {
	valid := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			valid = append(valid, b)
		}
	}
	return &Multi{backends: valid}
}

// Backends returns the wrapped backends.
func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Init() error {
	return m.each(Backend.Init)
}

func (m *Multi) Close() error {
	return m.each(Backend.Close)
}

func (m *Multi) AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	return m.each(func(b Backend) error { return b.AddDamage(uid, skillID, amount, crit, lucky, hpLessen) })
}

func (m *Multi) AddHealing(uid uint64, amount int64, crit, lucky bool) error {
	return m.each(func(b Backend) error { return b.AddHealing(uid, amount, crit, lucky) })
}

func (m *Multi) AddTakenDamage(uid uint64, amount int64) error {
	return m.each(func(b Backend) error { return b.AddTakenDamage(uid, amount) })
}

func (m *Multi) SetName(uid uint64, name string) error {
	return m.each(func(b Backend) error { return b.SetName(uid, name) })
}

func (m *Multi) SetProfession(uid uint64, profession string) error {
	return m.each(func(b Backend) error { return b.SetProfession(uid, profession) })
}

func (m *Multi) SetFightPoint(uid uint64, fightPoint int32) error {
	return m.each(func(b Backend) error { return b.SetFightPoint(uid, fightPoint) })
}

// GetUser answers from the first backend that knows uid.
func (m *Multi) GetUser(uid uint64) (core.User, bool) {
	for _, b := range m.backends {
		if u, ok := b.GetUser(uid); ok {
			return u, true
		}
	}
	return core.User{}, false
}

// Snapshot delegates to the first backend that supports it.
func (m *Multi) Snapshot() []core.User {
	for _, b := range m.backends {
		if s, ok := b.(Snapshotter); ok {
			return s.Snapshot()
		}
	}
	return nil
}

// Reset resets every backend that supports it.
func (m *Multi) Reset() {
	for _, b := range m.backends {
		if s, ok := b.(Snapshotter); ok {
			s.Reset()
		}
	}
}
