package parser

import (
	"fmt"

	"github.com/resonance-tools/combatmeter/internal/model"
	"github.com/resonance-tools/combatmeter/internal/pb"
	"github.com/resonance-tools/combatmeter/internal/protocol"
)

// ParseNearEntities decodes an entity appearance payload. Only character
// entities produce a snapshot; other entity types, entities without an
// identity and entities without attributes are skipped. Unknown attribute
// tags are ignored.
func (p *Parser) ParseNearEntities(payload []byte) ([]model.EntitySnapshot, error) {
	var msg pb.SyncNearEntities
	if err := msg.Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("decoding SyncNearEntities: %w", err)
	}

	p.logger.Debug("SyncNearEntities", "appear", len(msg.Appear), "disappear", len(msg.Disappear))

	for _, d := range msg.Disappear {
		p.logger.Debug("entity disappeared",
			"uuid", d.UUID.OrElse(0),
			"type", d.Type.OrElse(0))
	}

	var out []model.EntitySnapshot
	for i := range msg.Appear {
		snap, ok, err := p.parseEntity(&msg.Appear[i])
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (p *Parser) parseEntity(e *pb.Entity) (model.EntitySnapshot, bool, error) {
	entType := e.EntType.OrElse(0)
	if protocol.EntityType(entType) != protocol.EntityCharacter {
		p.logger.Debug("skipping non-character entity", "type", entType)
		return model.EntitySnapshot{}, false, nil
	}

	uuid := e.UUID.OrElse(0)
	if uuid == 0 {
		p.logger.Debug("character entity without uuid")
		return model.EntitySnapshot{}, false, nil
	}

	snap := model.EntitySnapshot{ID: protocol.EntityID(uuid)}
	if e.Attrs == nil || len(e.Attrs.Attrs) == 0 {
		p.logger.Debug("character entity without attributes", "uid", snap.UID())
		return model.EntitySnapshot{}, false, nil
	}

	for _, a := range e.Attrs.Attrs {
		if err := p.applyAttr(&snap, a); err != nil {
			return model.EntitySnapshot{}, false, fmt.Errorf("entity %d: %w", snap.UID(), err)
		}
	}
	return snap, true, nil
}

func (p *Parser) applyAttr(snap *model.EntitySnapshot, a pb.Attr) error {
	id := protocol.AttrID(a.ID.OrElse(0))
	if id == 0 || a.RawData == nil {
		p.logger.Debug("skipping incomplete attribute", "uid", snap.UID(), "attr", int32(id))
		return nil
	}

	switch id {
	case protocol.AttrName:
		name, err := pb.DecodeString(a.RawData)
		if err != nil {
			return fmt.Errorf("name attribute: %w", err)
		}
		snap.Name = model.Some(name)

	case protocol.AttrProfessionID:
		v, err := pb.DecodeInt32(a.RawData)
		if err != nil {
			return fmt.Errorf("profession attribute: %w", err)
		}
		snap.ProfessionID = model.Some(v)

	case protocol.AttrFightPoint:
		v, err := pb.DecodeInt32(a.RawData)
		if err != nil {
			return fmt.Errorf("fight point attribute: %w", err)
		}
		snap.FightPoint = model.Some(v)

	default:
		p.logger.Debug("unknown attribute", "uid", snap.UID(), "attr", fmt.Sprintf("0x%x", int32(id)))
	}
	return nil
}
