package v1

import (
	"math"
	"sort"
	"time"

	"github.com/resonance-tools/combatmeter/internal/gamedata"
	"github.com/resonance-tools/combatmeter/pkg/core"
)

const timeLayout = time.RFC3339

// Build creates a Report from a user snapshot. users keeps its order.
func Build(users []core.User, startedAt, generatedAt time.Time) Report {
	report := Report{
		Version:     Version,
		StartedAt:   startedAt.UTC().Format(timeLayout),
		GeneratedAt: generatedAt.UTC().Format(timeLayout),
		DurationSec: roundTo(generatedAt.Sub(startedAt).Seconds(), 3),
		Players:     make([]Player, 0, len(users)),
	}

	for _, u := range users {
		report.Totals.Damage += u.Damage.Total
		report.Totals.Healing += u.Healing.Total
		report.Totals.TakenDamage += u.TakenDamage
	}

	for _, u := range users {
		p := Player{
			UID:         u.UID,
			Name:        u.Name,
			Profession:  u.Profession,
			FightPoint:  u.FightPoint,
			Damage:      stat(u.Damage),
			Healing:     stat(u.Healing),
			TakenDamage: u.TakenDamage,
			TotalDPS:    roundTo(u.TotalDPS, 2),
			TotalHPS:    roundTo(u.TotalHPS, 2),
			PeakDPS:     roundTo(u.RealtimeDPSMax, 2),
			Skills:      skills(u.Skills),
		}
		if report.Totals.Damage > 0 {
			p.DamageShare = roundTo(float64(u.Damage.Total)/float64(report.Totals.Damage), 4)
		}
		report.Players = append(report.Players, p)
	}

	return report
}

func stat(s core.StatBlock) Stat {
	return Stat{
		Total:     s.Total,
		Normal:    s.Normal,
		Crit:      s.Crit,
		Lucky:     s.Lucky,
		CritLucky: s.CritLucky,
		HpLessen:  s.HpLessen,
		Hits:      s.Count,
		CritRate:  roundTo(s.CritRate(), 4),
		LuckyRate: roundTo(s.LuckyRate(), 4),
	}
}

// skills lists per-skill damage, highest first.
func skills(m map[int32]core.StatBlock) []Skill {
	out := make([]Skill, 0, len(m))
	for id, s := range m {
		role, _ := gamedata.RoleFromSkill(id)
		out = append(out, Skill{ID: id, Role: role, Damage: stat(s)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Damage.Total != out[j].Damage.Total {
			return out[i].Damage.Total > out[j].Damage.Total
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
