package ref

import (
	"fmt"
	"math"
)

// NaNHead is the high word of every boxed reference.
const NaNHead uint32 = 0x7ff80000

// TypeTag is stored in the low bits of the high word of a boxed reference.
type TypeTag uint32

const (
	TagNone     TypeTag = 0
	TagObject   TypeTag = 1
	TagString   TypeTag = 2
	TagSymbol   TypeTag = 3
	TagFunction TypeTag = 4
)

func (t TypeTag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagObject:
		return "object"
	case TagString:
		return "string"
	case TagSymbol:
		return "symbol"
	case TagFunction:
		return "function"
	}
	return fmt.Sprintf("tag(%d)", uint32(t))
}

// Slot is the decoded form of an 8-byte value word: Number, Undefined or Ref.
type Slot interface {
	slot()
}

// Number is a literal double. It is never zero or NaN when encoded.
type Number float64

// Undefined is the all-zero word.
type Undefined struct{}

// Ref is a boxed table id.
type Ref struct {
	ID  uint32
	Tag TypeTag
}

func (Number) slot()    {}
func (Undefined) slot() {}
func (Ref) slot()       {}

// EncodeSlot returns the wire word for s.
func EncodeSlot(s Slot) uint64 {
	switch x := s.(type) {
	case Number:
		return math.Float64bits(float64(x))
	case Ref:
		return uint64(NaNHead|uint32(x.Tag))<<32 | uint64(x.ID)
	}
	return 0
}

// DecodeSlot interprets a wire word. Positive and negative zero both decode
// to Undefined.
func DecodeSlot(bits uint64) Slot {
	f := math.Float64frombits(bits)
	if f == 0 {
		return Undefined{}
	}
	if !math.IsNaN(f) {
		return Number(f)
	}
	high := uint32(bits >> 32)
	return Ref{ID: uint32(bits), Tag: TypeTag(high & 0x7)}
}
