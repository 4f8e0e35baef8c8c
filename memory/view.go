package memory

import (
	"encoding/binary"
	"math"

	wasmgojs "github.com/wippyai/wasm-gojs"
	"github.com/wippyai/wasm-gojs/errors"
)

// View is a cached window over guest memory with the field encodings used by
// the syscall/js calling convention. It is not safe for concurrent use.
type View struct {
	mem wasmgojs.Memory
	buf []byte
}

// NewView creates a view over mem.
func NewView(mem wasmgojs.Memory) *View {
	v := &View{mem: mem}
	v.Refresh()
	return v
}

// Refresh re-fetches the underlying buffer. Call it after any operation that
// may have grown guest memory.
func (v *View) Refresh() {
	if v.mem == nil {
		v.buf = nil
		return
	}
	buf, err := v.mem.Read(0, v.mem.Size())
	if err != nil {
		v.buf = nil
		return
	}
	v.buf = buf
}

// Memory returns the memory the view was created over.
func (v *View) Memory() wasmgojs.Memory {
	return v.mem
}

// Size returns the size of the cached buffer.
func (v *View) Size() uint32 {
	return uint32(len(v.buf))
}

func (v *View) bytes(addr, n uint32) ([]byte, error) {
	if uint64(addr)+uint64(n) > uint64(len(v.buf)) {
		return nil, errors.OutOfBounds(errors.PhaseMarshal, addr, n, uint32(len(v.buf)))
	}
	return v.buf[addr : addr+n : addr+n], nil
}

// Slice returns n bytes at addr. The result aliases guest memory and is only
// valid until the next Refresh.
func (v *View) Slice(addr, n uint32) ([]byte, error) {
	return v.bytes(addr, n)
}

// ReadUint8 reads a single byte.
func (v *View) ReadUint8(addr uint32) (byte, error) {
	b, err := v.bytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteUint8 writes a single byte.
func (v *View) WriteUint8(addr uint32, x byte) error {
	b, err := v.bytes(addr, 1)
	if err != nil {
		return err
	}
	b[0] = x
	return nil
}

// ReadUint32 reads a little-endian uint32.
func (v *View) ReadUint32(addr uint32) (uint32, error) {
	b, err := v.bytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// WriteUint32 writes a little-endian uint32.
func (v *View) WriteUint32(addr uint32, x uint32) error {
	b, err := v.bytes(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, x)
	return nil
}

// ReadInt32 reads a little-endian int32.
func (v *View) ReadInt32(addr uint32) (int32, error) {
	x, err := v.ReadUint32(addr)
	return int32(x), err
}

// WriteInt32 writes a little-endian int32.
func (v *View) WriteInt32(addr uint32, x int32) error {
	return v.WriteUint32(addr, uint32(x))
}

// ReadUint64 reads a raw little-endian 64-bit word.
func (v *View) ReadUint64(addr uint32) (uint64, error) {
	b, err := v.bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteUint64 writes a raw little-endian 64-bit word.
func (v *View) WriteUint64(addr uint32, x uint64) error {
	b, err := v.bytes(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, x)
	return nil
}

// ReadInt64 reads a 64-bit integer stored as an unsigned low word followed by
// a signed high word.
func (v *View) ReadInt64(addr uint32) (int64, error) {
	b, err := v.bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	low := binary.LittleEndian.Uint32(b[0:4])
	high := int32(binary.LittleEndian.Uint32(b[4:8]))
	return int64(high)<<32 | int64(low), nil
}

// WriteInt64 writes a 64-bit integer as an unsigned low word followed by a
// signed high word.
func (v *View) WriteInt64(addr uint32, x int64) error {
	b, err := v.bytes(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[0:4], uint32(x))
	binary.LittleEndian.PutUint32(b[4:8], uint32(x>>32))
	return nil
}

// ReadFloat64 reads an IEEE-754 double.
func (v *View) ReadFloat64(addr uint32) (float64, error) {
	bits, err := v.ReadUint64(addr)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// WriteFloat64 writes an IEEE-754 double.
func (v *View) WriteFloat64(addr uint32, x float64) error {
	return v.WriteUint64(addr, math.Float64bits(x))
}

// ReadSlice reads the (ptr, len) descriptor at addr and returns the bytes it
// names. The result aliases guest memory and is only valid until the next
// Refresh.
func (v *View) ReadSlice(addr uint32) ([]byte, error) {
	ptr, err := v.ReadInt64(addr)
	if err != nil {
		return nil, err
	}
	n, err := v.ReadInt64(addr + 8)
	if err != nil {
		return nil, err
	}
	if ptr < 0 || n < 0 || ptr > math.MaxUint32 || n > math.MaxUint32 {
		return nil, errors.Protocol(errors.PhaseMarshal, "invalid slice descriptor at %d: ptr=%d len=%d", addr, ptr, n)
	}
	return v.bytes(uint32(ptr), uint32(n))
}

// ReadString reads the UTF-8 string described by the (ptr, len) descriptor at addr.
func (v *View) ReadString(addr uint32) (string, error) {
	b, err := v.ReadSlice(addr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteSlice copies src into the guest slice described at addr and returns the
// number of bytes copied, which is the smaller of both lengths.
func (v *View) WriteSlice(addr uint32, src []byte) (int, error) {
	dst, err := v.ReadSlice(addr)
	if err != nil {
		return 0, err
	}
	return copy(dst, src), nil
}

// WriteString copies s into the guest slice described at addr.
func (v *View) WriteString(addr uint32, s string) (int, error) {
	dst, err := v.ReadSlice(addr)
	if err != nil {
		return 0, err
	}
	return copy(dst, s), nil
}

// Write copies data to addr.
func (v *View) Write(addr uint32, data []byte) error {
	b, err := v.bytes(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// ReadSliceOfRefs reads the (ptr, len) descriptor at addr and decodes len
// 8-byte slots starting at ptr.
func ReadSliceOfRefs[T any](v *View, addr uint32, decode func(addr uint32) (T, error)) ([]T, error) {
	ptr, err := v.ReadInt64(addr)
	if err != nil {
		return nil, err
	}
	n, err := v.ReadInt64(addr + 8)
	if err != nil {
		return nil, err
	}
	if ptr < 0 || n < 0 || n > math.MaxUint32 || ptr+n*8 > int64(len(v.buf)) {
		return nil, errors.Protocol(errors.PhaseMarshal, "invalid ref slice descriptor at %d: ptr=%d len=%d", addr, ptr, n)
	}
	out := make([]T, n)
	for i := range out {
		x, err := decode(uint32(ptr) + uint32(i)*8)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}
