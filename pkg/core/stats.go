// Package core holds the statistics types shared by every store backend and
// by consumers of the live API and streaming feed.
package core

import "time"

// StatBlock accumulates one kind of output (damage or healing).
type StatBlock struct {
	Total     int64 `json:"total"`
	Normal    int64 `json:"normal"`
	Crit      int64 `json:"crit"`
	Lucky     int64 `json:"lucky"`
	CritLucky int64 `json:"critLucky"`
	HpLessen  int64 `json:"hpLessen"`

	Count      int64 `json:"count"`
	CritCount  int64 `json:"critCount"`
	LuckyCount int64 `json:"luckyCount"`
}

// Add records one hit. A hit that is both crit and lucky counts towards
// CritLucky only.
func (s *StatBlock) Add(amount int64, crit, lucky bool, hpLessen int64) {
	s.Total += amount
	s.HpLessen += hpLessen
	s.Count++

	switch {
	case crit && lucky:
		s.CritLucky += amount
	case crit:
		s.Crit += amount
	case lucky:
		s.Lucky += amount
	default:
		s.Normal += amount
	}
	if crit {
		s.CritCount++
	}
	if lucky {
		s.LuckyCount++
	}
}

// CritRate is the share of hits that were critical.
func (s StatBlock) CritRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.CritCount) / float64(s.Count)
}

// LuckyRate is the share of hits that were lucky.
func (s StatBlock) LuckyRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.LuckyCount) / float64(s.Count)
}

// User is everything known about one player, keyed by durable uid.
type User struct {
	UID         uint64    `json:"uid"`
	Name        string    `json:"name,omitempty"`
	Profession  string    `json:"profession,omitempty"`
	FightPoint  int32     `json:"fightPoint,omitempty"`
	Damage      StatBlock `json:"damage"`
	Healing     StatBlock `json:"healing"`
	TakenDamage int64     `json:"takenDamage"`

	// Skills holds damage per skill id.
	Skills map[int32]StatBlock `json:"skills,omitempty"`

	RealtimeDPS    float64 `json:"realtimeDps"`
	RealtimeDPSMax float64 `json:"realtimeDpsMax"`
	TotalDPS       float64 `json:"totalDps"`
	TotalHPS       float64 `json:"totalHps"`

	FirstEventAt time.Time `json:"firstEventAt"`
	LastEventAt  time.Time `json:"lastEventAt"`
}
