package protocol

import "strconv"

// Low 16-bit tags of an EntityID.
const (
	TagPlayer  uint16 = 640
	TagMonster uint16 = 64

	uidShift = 16
)

// EntityID is the raw 64-bit composite identity found in payloads. The low
// 16 bits are a type tag; the high 48 bits are the durable identifier.
type EntityID uint64

// Tag returns the low 16 bits.
func (id EntityID) Tag() uint16 {
	return uint16(id & 0xffff)
}

// IsPlayer reports whether the tag marks a player character.
func (id EntityID) IsPlayer() bool {
	return id.Tag() == TagPlayer
}

// IsMonster reports whether the tag marks a monster.
func (id EntityID) IsMonster() bool {
	return id.Tag() == TagMonster
}

// UID returns the durable identifier used as the aggregation key.
func (id EntityID) UID() uint64 {
	return uint64(id) >> uidShift
}

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MakeEntityID composes an identity from a durable id and a tag.
func MakeEntityID(uid uint64, tag uint16) EntityID {
	return EntityID(uid<<uidShift | uint64(tag))
}
