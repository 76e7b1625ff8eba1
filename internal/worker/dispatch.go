package worker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/resonance-tools/combatmeter/internal/dispatcher"
	"github.com/resonance-tools/combatmeter/internal/gamedata"
	"github.com/resonance-tools/combatmeter/internal/model"
	"github.com/resonance-tools/combatmeter/internal/protocol"
)

// RegisterHandlers registers all notify handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(protocol.MethodSyncNearEntities, m.handleNearEntities, dispatcher.Logged())
	d.Register(protocol.MethodSyncNearDeltaInfo, m.handleNearDelta, dispatcher.Logged())
	d.Register(protocol.MethodSyncToMeDeltaInfo, m.handleToMeDelta, dispatcher.Logged())
}

func (m *Manager) handleNearEntities(e dispatcher.Event) error {
	snaps, err := m.deps.Parser.ParseNearEntities(e.Payload)
	// snapshots decoded before a bad attribute are still applied
	for _, s := range snaps {
		m.applySnapshot(s)
	}
	if err != nil {
		return fmt.Errorf("failed to process near entities: %w", err)
	}
	return nil
}

func (m *Manager) applySnapshot(s model.EntitySnapshot) {
	uid := s.UID()

	if name, ok := s.Name.Get(); ok {
		m.storeErr("SetName", uid, m.backend.SetName(uid, name))
		m.deps.Logger.Info("Found player name", "uid", uid, "name", name)
	}
	if id, ok := s.ProfessionID.Get(); ok {
		profession := gamedata.ProfessionName(id)
		m.storeErr("SetProfession", uid, m.backend.SetProfession(uid, profession))
		m.deps.Logger.Info("Found profession", "uid", uid, "profession", profession, "professionId", id)
	}
	if fp, ok := s.FightPoint.Get(); ok {
		m.storeErr("SetFightPoint", uid, m.backend.SetFightPoint(uid, fp))
		m.deps.Logger.Info("Found fight point", "uid", uid, "fightPoint", fp)
	}
}

func (m *Manager) handleNearDelta(e dispatcher.Event) error {
	batch, err := m.deps.Parser.ParseNearDelta(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to process near delta: %w", err)
	}
	m.record(batch.Events)
	return nil
}

func (m *Manager) handleToMeDelta(e dispatcher.Event) error {
	batch, err := m.deps.Parser.ParseToMeDelta(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to process self delta: %w", err)
	}

	if id, ok := batch.CurrentPlayer.Get(); ok && m.deps.Session.SetCurrentPlayer(id) {
		m.deps.Logger.Info("Got player UUID", "uuid", uint64(id), "uid", id.UID())
	}
	m.record(batch.Events)
	return nil
}

func (m *Manager) record(events []model.CombatEvent) {
	for _, e := range events {
		m.apply(e)
	}
}

// apply performs the store call selected by Classify and logs the event.
func (m *Manager) apply(e model.CombatEvent) {
	route := Classify(e)

	switch route {
	case RouteHealing:
		uid := e.ActorUID()
		m.storeErr("AddHealing", uid, m.backend.AddHealing(uid, e.Amount, e.Crit, e.Lucky))
		m.inferRole(uid, e.SkillID)
	case RouteTakenDamage:
		uid := e.TargetUID()
		m.storeErr("AddTakenDamage", uid, m.backend.AddTakenDamage(uid, e.Amount))
	case RouteDamage:
		uid := e.ActorUID()
		m.storeErr("AddDamage", uid, m.backend.AddDamage(uid, e.SkillID, e.Amount, e.Crit, e.Lucky, e.HpLessen))
		m.inferRole(uid, e.SkillID)
	}

	m.deps.Logger.Info(m.describe(e), "route", route.String())
}

// inferRole labels uid with the specialization its skill reveals, if any.
func (m *Manager) inferRole(uid uint64, skillID int32) {
	role, ok := gamedata.RoleFromSkill(skillID)
	if !ok {
		return
	}
	m.storeErr("SetProfession", uid, m.backend.SetProfession(uid, role))
	m.deps.Logger.Debug("Inferred profession from skill", "uid", uid, "profession", role, "skill", skillID)
}

// label names an entity for log output: its known name for players,
// otherwise its uid.
func (m *Manager) label(id protocol.EntityID) string {
	uid := id.UID()
	if !id.IsPlayer() {
		return strconv.FormatUint(uid, 10)
	}
	if u, ok := m.backend.GetUser(uid); ok && u.Name != "" {
		return u.Name
	}
	return strconv.FormatUint(uid, 10) + " (player)"
}

// describe renders the one-line combat summary, e.g.
// "Src: Alice Tgt: 5 Skill/Buff: 1714 Damage: 500 HpLessen: 450 Extra: Crit".
func (m *Manager) describe(e model.CombatEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Src: %s Tgt: %s Skill/Buff: %d ", m.label(e.Actor), m.label(e.Target), e.SkillID)
	if e.IsHeal() {
		fmt.Fprintf(&b, "Healing: %d", e.Amount)
	} else {
		fmt.Fprintf(&b, "Damage: %d HpLessen: %d", e.Amount, e.HpLessen)
	}
	b.WriteString(" Extra: ")
	b.WriteString(e.Tags())
	return b.String()
}
