// Package protocol holds the wire constants of the game's framed RPC
// protocol and the composite entity identity carried in its payloads.
package protocol

import "fmt"

// Frame header layout: [4-byte length][2-byte kind|flags].
const (
	LengthPrefixSize = 4
	KindSize         = 2
	HeaderSize       = LengthPrefixSize + KindSize

	// MinFrameSize is the smallest legal declared frame length.
	MinFrameSize = HeaderSize

	CompressedFlag uint16 = 0x8000
	KindMask       uint16 = 0x7fff
)

// MessageType is the kind carried in bits 0-14 of a frame's kind field.
type MessageType uint16

const (
	MessageNone      MessageType = 0
	MessageCall      MessageType = 1
	MessageNotify    MessageType = 2
	MessageReturn    MessageType = 3
	MessageEcho      MessageType = 4
	MessageFrameUp   MessageType = 5
	MessageFrameDown MessageType = 6
)

func (t MessageType) String() string {
	switch t {
	case MessageNone:
		return "None"
	case MessageCall:
		return "Call"
	case MessageNotify:
		return "Notify"
	case MessageReturn:
		return "Return"
	case MessageEcho:
		return "Echo"
	case MessageFrameUp:
		return "FrameUp"
	case MessageFrameDown:
		return "FrameDown"
	default:
		return fmt.Sprintf("MessageType(%d)", uint16(t))
	}
}

// SplitKind separates a raw kind field into message type and compression flag.
func SplitKind(raw uint16) (MessageType, bool) {
	return MessageType(raw & KindMask), raw&CompressedFlag != 0
}

// JoinKind is the inverse of SplitKind.
func JoinKind(t MessageType, compressed bool) uint16 {
	raw := uint16(t) & KindMask
	if compressed {
		raw |= CompressedFlag
	}
	return raw
}

// Notify envelope: [8-byte service id][4-byte stub id][4-byte method id].
const (
	NotifyEnvelopeSize = 16

	// ServiceID is the only service whose notify methods are understood.
	ServiceID uint64 = 0x0000000063335342
)

// NotifyMethod identifies a notification within ServiceID.
type NotifyMethod uint32

const (
	MethodSyncNearEntities  NotifyMethod = 0x00000006
	MethodSyncNearDeltaInfo NotifyMethod = 0x0000002d
	MethodSyncToMeDeltaInfo NotifyMethod = 0x0000002e
)

func (m NotifyMethod) String() string {
	switch m {
	case MethodSyncNearEntities:
		return "SyncNearEntities"
	case MethodSyncNearDeltaInfo:
		return "SyncNearDeltaInfo"
	case MethodSyncToMeDeltaInfo:
		return "SyncToMeDeltaInfo"
	default:
		return fmt.Sprintf("0x%x", uint32(m))
	}
}

// AttrID tags an attribute blob inside an entity's attribute collection.
type AttrID int32

const (
	AttrName         AttrID = 0x01
	AttrProfessionID AttrID = 0xdc
	AttrFightPoint   AttrID = 0x272e
)

// EntityType classifies an appearing entity.
type EntityType int32

const (
	EntityMonster   EntityType = 1
	EntityCharacter EntityType = 10
)

// DamageType is the kind of a single damage/heal record.
type DamageType int32

const (
	DamageNormal   DamageType = 0
	DamageMiss     DamageType = 1
	DamageHeal     DamageType = 2
	DamageImmune   DamageType = 3
	DamageFall     DamageType = 4
	DamageAbsorbed DamageType = 5
)
