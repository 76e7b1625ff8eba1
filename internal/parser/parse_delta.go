package parser

import (
	"fmt"

	"github.com/resonance-tools/combatmeter/internal/model"
	"github.com/resonance-tools/combatmeter/internal/pb"
	"github.com/resonance-tools/combatmeter/internal/protocol"
)

// critBit is the only confirmed bit of SyncDamageInfo.TypeFlag.
const critBit = 1

// ParseNearDelta decodes the deltas of nearby entities into combat events.
func (p *Parser) ParseNearDelta(payload []byte) (model.DeltaBatch, error) {
	var msg pb.SyncNearDeltaInfo
	if err := msg.Unmarshal(payload); err != nil {
		return model.DeltaBatch{}, fmt.Errorf("decoding SyncNearDeltaInfo: %w", err)
	}

	var batch model.DeltaBatch
	for i := range msg.DeltaInfos {
		batch.Events = p.appendEvents(batch.Events, &msg.DeltaInfos[i])
	}
	return batch, nil
}

// ParseToMeDelta decodes the local player's delta. The batch carries the
// player's identity when the payload reveals it.
func (p *Parser) ParseToMeDelta(payload []byte) (model.DeltaBatch, error) {
	var msg pb.SyncToMeDeltaInfo
	if err := msg.Unmarshal(payload); err != nil {
		return model.DeltaBatch{}, fmt.Errorf("decoding SyncToMeDeltaInfo: %w", err)
	}

	var batch model.DeltaBatch
	if msg.DeltaInfo == nil {
		return batch, nil
	}

	if uuid := msg.DeltaInfo.UUID.OrElse(0); uuid != 0 {
		batch.CurrentPlayer = model.Some(protocol.EntityID(uuid))
	}
	if msg.DeltaInfo.BaseDelta != nil {
		batch.Events = p.appendEvents(batch.Events, msg.DeltaInfo.BaseDelta)
	}
	return batch, nil
}

// appendEvents extracts every recordable damage/heal record of one delta.
func (p *Parser) appendEvents(dst []model.CombatEvent, delta *pb.AoiSyncDelta) []model.CombatEvent {
	target := protocol.EntityID(delta.UUID.OrElse(0))
	if target == 0 || delta.SkillEffects == nil {
		return dst
	}

	for i := range delta.SkillEffects.Damages {
		if e, ok := p.toEvent(target, &delta.SkillEffects.Damages[i]); ok {
			dst = append(dst, e)
		}
	}
	return dst
}

func (p *Parser) toEvent(target protocol.EntityID, d *pb.SyncDamageInfo) (model.CombatEvent, bool) {
	skill := d.OwnerID.OrElse(0)
	if skill == 0 {
		return model.CombatEvent{}, false
	}

	// summons are credited to whoever summoned them
	actor := protocol.EntityID(d.TopSummonerID.OrElse(0))
	if actor == 0 {
		actor = protocol.EntityID(d.AttackerUUID.OrElse(0))
	}
	if actor == 0 {
		return model.CombatEvent{}, false
	}

	amount := d.Value.Or(d.LuckyValue).OrElse(0)
	if amount == 0 {
		p.logger.Debug("skipping zero-magnitude record", "skill", skill, "target", target.UID())
		return model.CombatEvent{}, false
	}

	return model.CombatEvent{
		SkillID:  skill,
		Actor:    actor,
		Target:   target,
		Type:     protocol.DamageType(d.Type.OrElse(int32(protocol.DamageNormal))),
		Amount:   amount,
		HpLessen: d.HpLessenValue.OrElse(0),
		Crit:     d.TypeFlag.Valid && d.TypeFlag.Value&critBit != 0,
		Lucky:    d.LuckyValue.Valid,
		Miss:     d.IsMiss.OrElse(false),
		Dead:     d.IsDead.OrElse(false),
	}, true
}
