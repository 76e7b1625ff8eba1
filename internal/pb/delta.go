package pb

import (
	"github.com/resonance-tools/combatmeter/internal/model"
)

// SyncDamageInfo is one damage or heal record.
type SyncDamageInfo struct {
	DamageSource      model.Optional[int32]
	IsMiss            model.Optional[bool]
	IsCrit            model.Optional[bool]
	Type              model.Optional[int32]
	TypeFlag          model.Optional[int32]
	Value             model.Optional[int64]
	ActualValue       model.Optional[int64]
	LuckyValue        model.Optional[int64]
	HpLessenValue     model.Optional[int64]
	ShieldLessenValue model.Optional[int64]
	AttackerUUID      model.Optional[int64]
	OwnerID           model.Optional[int32]
	IsDead            model.Optional[bool]
	TopSummonerID     model.Optional[int64]
}

func (d *SyncDamageInfo) Unmarshal(b []byte) error {
	return walk("SyncDamageInfo", b, func(f field) (err error) {
		switch f.num {
		case 1:
			d.DamageSource, err = f.int32()
		case 2:
			d.IsMiss, err = f.bool()
		case 3:
			d.IsCrit, err = f.bool()
		case 4:
			d.Type, err = f.int32()
		case 5:
			d.TypeFlag, err = f.int32()
		case 6:
			d.Value, err = f.int64()
		case 7:
			d.ActualValue, err = f.int64()
		case 8:
			d.LuckyValue, err = f.int64()
		case 9:
			d.HpLessenValue, err = f.int64()
		case 10:
			d.ShieldLessenValue, err = f.int64()
		case 11:
			d.AttackerUUID, err = f.int64()
		case 12:
			d.OwnerID, err = f.int32()
		case 17:
			d.IsDead, err = f.bool()
		case 21:
			d.TopSummonerID, err = f.int64()
		}
		return err
	})
}

func (d *SyncDamageInfo) Marshal() []byte {
	b := appendInt32(nil, 1, d.DamageSource)
	b = appendBool(b, 2, d.IsMiss)
	b = appendBool(b, 3, d.IsCrit)
	b = appendInt32(b, 4, d.Type)
	b = appendInt32(b, 5, d.TypeFlag)
	b = appendInt64(b, 6, d.Value)
	b = appendInt64(b, 7, d.ActualValue)
	b = appendInt64(b, 8, d.LuckyValue)
	b = appendInt64(b, 9, d.HpLessenValue)
	b = appendInt64(b, 10, d.ShieldLessenValue)
	b = appendInt64(b, 11, d.AttackerUUID)
	b = appendInt32(b, 12, d.OwnerID)
	b = appendBool(b, 17, d.IsDead)
	return appendInt64(b, 21, d.TopSummonerID)
}

// SkillEffect carries the damage records applied to one target.
type SkillEffect struct {
	UUID    model.Optional[int64]
	Damages []SyncDamageInfo
}

func (s *SkillEffect) Unmarshal(b []byte) error {
	return walk("SkillEffect", b, func(f field) (err error) {
		switch f.num {
		case 1:
			s.UUID, err = f.int64()
		case 2:
			var d SyncDamageInfo
			if err = f.message(&d); err == nil {
				s.Damages = append(s.Damages, d)
			}
		}
		return err
	})
}

func (s *SkillEffect) Marshal() []byte {
	b := appendInt64(nil, 1, s.UUID)
	for i := range s.Damages {
		b = appendMessage(b, 2, s.Damages[i].Marshal())
	}
	return b
}

// AoiSyncDelta is the change record of one entity.
type AoiSyncDelta struct {
	UUID         model.Optional[int64]
	Attrs        *AttrCollection
	SkillEffects *SkillEffect
}

func (a *AoiSyncDelta) Unmarshal(b []byte) error {
	return walk("AoiSyncDelta", b, func(f field) (err error) {
		switch f.num {
		case 1:
			a.UUID, err = f.int64()
		case 2:
			a.Attrs = &AttrCollection{}
			err = f.message(a.Attrs)
		case 7:
			a.SkillEffects = &SkillEffect{}
			err = f.message(a.SkillEffects)
		}
		return err
	})
}

func (a *AoiSyncDelta) Marshal() []byte {
	b := appendInt64(nil, 1, a.UUID)
	if a.Attrs != nil {
		b = appendMessage(b, 2, a.Attrs.Marshal())
	}
	if a.SkillEffects != nil {
		b = appendMessage(b, 7, a.SkillEffects.Marshal())
	}
	return b
}

// SyncNearDeltaInfo batches the deltas of nearby entities.
type SyncNearDeltaInfo struct {
	DeltaInfos []AoiSyncDelta
}

func (s *SyncNearDeltaInfo) Unmarshal(b []byte) error {
	return walk("SyncNearDeltaInfo", b, func(f field) (err error) {
		if f.num == 1 {
			var d AoiSyncDelta
			if err = f.message(&d); err == nil {
				s.DeltaInfos = append(s.DeltaInfos, d)
			}
		}
		return err
	})
}

func (s *SyncNearDeltaInfo) Marshal() []byte {
	var b []byte
	for i := range s.DeltaInfos {
		b = appendMessage(b, 1, s.DeltaInfos[i].Marshal())
	}
	return b
}

// AoiSyncToMeDelta wraps the local player's own delta.
type AoiSyncToMeDelta struct {
	BaseDelta *AoiSyncDelta
	UUID      model.Optional[int64]
}

func (a *AoiSyncToMeDelta) Unmarshal(b []byte) error {
	return walk("AoiSyncToMeDelta", b, func(f field) (err error) {
		switch f.num {
		case 1:
			a.BaseDelta = &AoiSyncDelta{}
			err = f.message(a.BaseDelta)
		case 5:
			a.UUID, err = f.int64()
		}
		return err
	})
}

func (a *AoiSyncToMeDelta) Marshal() []byte {
	var b []byte
	if a.BaseDelta != nil {
		b = appendMessage(b, 1, a.BaseDelta.Marshal())
	}
	return appendInt64(b, 5, a.UUID)
}

// SyncToMeDeltaInfo is the payload of the self-sync notification.
type SyncToMeDeltaInfo struct {
	DeltaInfo *AoiSyncToMeDelta
}

func (s *SyncToMeDeltaInfo) Unmarshal(b []byte) error {
	return walk("SyncToMeDeltaInfo", b, func(f field) (err error) {
		if f.num == 1 {
			s.DeltaInfo = &AoiSyncToMeDelta{}
			err = f.message(s.DeltaInfo)
		}
		return err
	})
}

func (s *SyncToMeDeltaInfo) Marshal() []byte {
	if s.DeltaInfo == nil {
		return nil
	}
	return appendMessage(nil, 1, s.DeltaInfo.Marshal())
}
