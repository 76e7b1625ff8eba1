// Package storagetest provides a recording storage.Backend for tests.
package storagetest

import (
	"fmt"
	"sync"

	"github.com/resonance-tools/combatmeter/pkg/core"
)

// Call is one recorded store call.
type Call struct {
	Method string
	Args   []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Method, c.Args)
}

// Recorder records every call and keeps just enough state for GetUser to
// answer name lookups. Err, when set, is returned from every write.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	users map[uint64]core.User

	Err error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{users: make(map[uint64]core.User)}
}

func (r *Recorder) record(method string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
	return r.Err
}

func (r *Recorder) user(uid uint64, fn func(u *core.User)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[uid]
	u.UID = uid
	fn(&u)
	r.users[uid] = u
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls of one method.
func (r *Recorder) CallsTo(method string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Init() error  { return r.record("Init") }
func (r *Recorder) Close() error { return r.record("Close") }

func (r *Recorder) AddDamage(uid uint64, skillID int32, amount int64, crit, lucky bool, hpLessen int64) error {
	return r.record("AddDamage", uid, skillID, amount, crit, lucky, hpLessen)
}

func (r *Recorder) AddHealing(uid uint64, amount int64, crit, lucky bool) error {
	return r.record("AddHealing", uid, amount, crit, lucky)
}

func (r *Recorder) AddTakenDamage(uid uint64, amount int64) error {
	return r.record("AddTakenDamage", uid, amount)
}

func (r *Recorder) SetName(uid uint64, name string) error {
	r.user(uid, func(u *core.User) { u.Name = name })
	return r.record("SetName", uid, name)
}

func (r *Recorder) SetProfession(uid uint64, profession string) error {
	r.user(uid, func(u *core.User) { u.Profession = profession })
	return r.record("SetProfession", uid, profession)
}

func (r *Recorder) SetFightPoint(uid uint64, fightPoint int32) error {
	r.user(uid, func(u *core.User) { u.FightPoint = fightPoint })
	return r.record("SetFightPoint", uid, fightPoint)
}

// GetUser is not recorded; it is a read.
func (r *Recorder) GetUser(uid uint64) (core.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	return u, ok
}
