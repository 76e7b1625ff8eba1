// Package gamedata holds static lookup tables for display labels.
package gamedata

import "fmt"

var professionNames = map[int32]string{
	1:  "Stormblade",
	2:  "Frost Mage",
	3:  "Flame Axe",
	4:  "Wind Knight",
	5:  "Verdant Oracle",
	8:  "Thunder Handcannon",
	9:  "Heavy Guardian",
	10: "Spirit Dancer",
	11: "Marksman",
	12: "Shield Knight",
	13: "Soul Musician",
}

// ProfessionName maps a profession id to its display name. Unknown ids get
// a synthesized label rather than an error.
func ProfessionName(id int32) string {
	if name, ok := professionNames[id]; ok {
		return name
	}
	return fmt.Sprintf("unknown profession (%d)", id)
}

// skillRoles is a best-effort table of skills that identify a
// specialization. It is known to be incomplete.
var skillRoles = map[int32]string{
	1241:    "Beam",
	55302:   "Concerto",
	20301:   "Lifebind",
	1518:    "Smite",
	2306:    "Dissonance",
	120902:  "Icicle",
	1714:    "Iaido",
	44701:   "Moonstrike",
	220112:  "Falconry",
	2203622: "Falconry",
	1700827: "Wildpack",
	1419:    "Skyward",
	1418:    "Vanguard",
	2405:    "Bulwark",
	2406:    "Lightshield",
	199902:  "Earthfort",
}

// RoleFromSkill returns the specialization label inferred from a skill id.
func RoleFromSkill(skillID int32) (string, bool) {
	role, ok := skillRoles[skillID]
	return role, ok
}
