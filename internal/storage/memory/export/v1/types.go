// Package v1 contains the v1 report format for combat statistics.
package v1

// Version is written into every report.
const Version = 1

// Report is the root JSON structure for v1 format
type Report struct {
	Version     int      `json:"version"`
	StartedAt   string   `json:"startedAt"`
	GeneratedAt string   `json:"generatedAt"`
	DurationSec float64  `json:"durationSec"`
	Totals      Totals   `json:"totals"`
	Players     []Player `json:"players"`
}

// Totals sums every player's output
type Totals struct {
	Damage      int64 `json:"damage"`
	Healing     int64 `json:"healing"`
	TakenDamage int64 `json:"takenDamage"`
}

// Player is one row of the report
type Player struct {
	UID         uint64  `json:"uid"`
	Name        string  `json:"name"`
	Profession  string  `json:"profession"`
	FightPoint  int32   `json:"fightPoint"`
	Damage      Stat    `json:"damage"`
	Healing     Stat    `json:"healing"`
	TakenDamage int64   `json:"takenDamage"`
	TotalDPS    float64 `json:"totalDps"`
	TotalHPS    float64 `json:"totalHps"`
	PeakDPS     float64 `json:"peakDps"`
	DamageShare float64 `json:"damageShare"`
	Skills      []Skill `json:"skills"`
}

// Stat is a flattened core.StatBlock with rates
type Stat struct {
	Total     int64   `json:"total"`
	Normal    int64   `json:"normal"`
	Crit      int64   `json:"crit"`
	Lucky     int64   `json:"lucky"`
	CritLucky int64   `json:"critLucky"`
	HpLessen  int64   `json:"hpLessen,omitempty"`
	Hits      int64   `json:"hits"`
	CritRate  float64 `json:"critRate"`
	LuckyRate float64 `json:"luckyRate"`
}

// Skill is one skill's damage for a player
type Skill struct {
	ID     int32  `json:"id"`
	Role   string `json:"role,omitempty"`
	Damage Stat   `json:"damage"`
}
