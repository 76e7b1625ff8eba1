package pb

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/resonance-tools/combatmeter/internal/model"
)

// Attr is one tagged attribute blob. RawData is nil when absent.
type Attr struct {
	ID      model.Optional[int32]
	RawData []byte
}

func (a *Attr) Unmarshal(b []byte) error {
	return walk("Attr", b, func(f field) (err error) {
		switch f.num {
		case 1:
			a.ID, err = f.int32()
		case 2:
			var raw []byte
			if raw, err = f.bytes(); err == nil {
				// present but empty stays distinguishable from absent
				a.RawData = append([]byte{}, raw...)
			}
		}
		return err
	})
}

func (a *Attr) Marshal() []byte {
	b := appendInt32(nil, 1, a.ID)
	if a.RawData != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, a.RawData)
	}
	return b
}

// AttrCollection groups the attribute blobs of one entity.
type AttrCollection struct {
	UUID  model.Optional[int64]
	Attrs []Attr
}

func (c *AttrCollection) Unmarshal(b []byte) error {
	return walk("AttrCollection", b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.UUID, err = f.int64()
		case 2:
			var a Attr
			if err = f.message(&a); err == nil {
				c.Attrs = append(c.Attrs, a)
			}
		}
		return err
	})
}

func (c *AttrCollection) Marshal() []byte {
	b := appendInt64(nil, 1, c.UUID)
	for i := range c.Attrs {
		b = appendMessage(b, 2, c.Attrs[i].Marshal())
	}
	return b
}

// Entity is one appearing entity.
type Entity struct {
	UUID    model.Optional[int64]
	EntType model.Optional[int32]
	Attrs   *AttrCollection
}

func (e *Entity) Unmarshal(b []byte) error {
	return walk("Entity", b, func(f field) (err error) {
		switch f.num {
		case 1:
			e.UUID, err = f.int64()
		case 2:
			e.EntType, err = f.int32()
		case 3:
			e.Attrs = &AttrCollection{}
			err = f.message(e.Attrs)
		}
		return err
	})
}

func (e *Entity) Marshal() []byte {
	b := appendInt64(nil, 1, e.UUID)
	b = appendInt32(b, 2, e.EntType)
	if e.Attrs != nil {
		b = appendMessage(b, 3, e.Attrs.Marshal())
	}
	return b
}

// DisappearEntity reports an entity leaving the area of interest.
type DisappearEntity struct {
	UUID model.Optional[int64]
	Type model.Optional[int32]
}

func (d *DisappearEntity) Unmarshal(b []byte) error {
	return walk("DisappearEntity", b, func(f field) (err error) {
		switch f.num {
		case 1:
			d.UUID, err = f.int64()
		case 2:
			d.Type, err = f.int32()
		}
		return err
	})
}

func (d *DisappearEntity) Marshal() []byte {
	b := appendInt64(nil, 1, d.UUID)
	return appendInt32(b, 2, d.Type)
}

// SyncNearEntities is the payload of the entity appearance notification.
type SyncNearEntities struct {
	Appear    []Entity
	Disappear []DisappearEntity
}

func (s *SyncNearEntities) Unmarshal(b []byte) error {
	return walk("SyncNearEntities", b, func(f field) (err error) {
		switch f.num {
		case 1:
			var e Entity
			if err = f.message(&e); err == nil {
				s.Appear = append(s.Appear, e)
			}
		case 2:
			var d DisappearEntity
			if err = f.message(&d); err == nil {
				s.Disappear = append(s.Disappear, d)
			}
		}
		return err
	})
}

func (s *SyncNearEntities) Marshal() []byte {
	var b []byte
	for i := range s.Appear {
		b = appendMessage(b, 1, s.Appear[i].Marshal())
	}
	for i := range s.Disappear {
		b = appendMessage(b, 2, s.Disappear[i].Marshal())
	}
	return b
}
