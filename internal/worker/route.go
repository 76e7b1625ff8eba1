package worker

import "github.com/resonance-tools/combatmeter/internal/model"

// Route is the single store action a combat event maps to.
type Route int

const (
	// RouteHealing credits a player's heal on a player to the healer.
	RouteHealing Route = iota
	// RouteTakenDamage charges any non-heal hit on a player to the target.
	RouteTakenDamage
	// RouteIgnoreNonPlayerHeal drops heals on non-players.
	RouteIgnoreNonPlayerHeal
	// RouteDamage credits a player's hit on a non-player to the attacker.
	RouteDamage
	// RouteIgnoreNonPlayerCombat drops fights between non-players.
	RouteIgnoreNonPlayerCombat
	// RouteIgnoreNonPlayerHealer drops heals on players cast by non-players.
	RouteIgnoreNonPlayerHealer
)

func (r Route) String() string {
	switch r {
	case RouteHealing:
		return "healing"
	case RouteTakenDamage:
		return "taken_damage"
	case RouteIgnoreNonPlayerHeal:
		return "ignore_npc_heal"
	case RouteDamage:
		return "damage"
	case RouteIgnoreNonPlayerCombat:
		return "ignore_npc_combat"
	case RouteIgnoreNonPlayerHealer:
		return "ignore_npc_healer"
	default:
		return "unknown"
	}
}

// Classify picks the route for e from the target's class, the heal flag and
// the actor's class, in that order.
func Classify(e model.CombatEvent) Route {
	switch {
	case e.TargetIsPlayer() && e.IsHeal():
		if e.ActorIsPlayer() {
			return RouteHealing
		}
		return RouteIgnoreNonPlayerHealer
	case e.TargetIsPlayer():
		return RouteTakenDamage
	case e.IsHeal():
		return RouteIgnoreNonPlayerHeal
	case e.ActorIsPlayer():
		return RouteDamage
	default:
		return RouteIgnoreNonPlayerCombat
	}
}
