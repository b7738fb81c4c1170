package engine

import "fmt"

// SlotIndex is the position of an object in the pool's slot table.
type SlotIndex uint16

// Salt is the generation counter of a slot. It advances on every destroy
// and wraps at MaxSalt.
type Salt uint16

// MaxSalt is the largest salt; the next increment wraps to zero.
const MaxSalt Salt = 0x7FFF

func (s Salt) next() Salt {
	if s >= MaxSalt {
		return 0
	}
	return s + 1
}

// ObjectID is an opaque object handle: slot index in the high 16 bits,
// salt in the low 16 bits.
type ObjectID uint32

// InvalidObjectID never identifies an object: no slot index reaches 0xFFFF
// and no salt exceeds MaxSalt.
const InvalidObjectID ObjectID = 0xFFFFFFFF

// MakeObjectID packs a slot index and salt.
func MakeObjectID(slot SlotIndex, salt Salt) ObjectID {
	return ObjectID(uint32(slot)<<16 | uint32(salt))
}

// Slot returns the slot index.
func (id ObjectID) Slot() SlotIndex { return SlotIndex(id >> 16) }

// Salt returns the generation salt.
func (id ObjectID) Salt() Salt { return Salt(id & 0xFFFF) }

func (id ObjectID) String() string {
	if id == InvalidObjectID {
		return "invalid"
	}
	return fmt.Sprintf("%d:%d", id.Slot(), id.Salt())
}
