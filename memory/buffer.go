package memory

import (
	"encoding/binary"

	wasmgojs "github.com/wippyai/wasm-gojs"
	"github.com/wippyai/wasm-gojs/errors"
)

var _ wasmgojs.Memory = (*Buffer)(nil)

// PageSize is the size of a WASM memory page.
const PageSize = 65536

// Buffer is a byte slice backed wasmgojs.Memory. It stands in for guest memory
// when driving the bridge without a wazero module.
type Buffer struct {
	data []byte
}

// NewBuffer creates a zeroed buffer of the given number of pages.
func NewBuffer(pages uint32) *Buffer {
	return &Buffer{data: make([]byte, pages*PageSize)}
}

// Grow appends pages to the buffer and returns the previous page count.
// Slices obtained before Grow no longer alias the buffer.
func (b *Buffer) Grow(pages uint32) uint32 {
	prev := uint32(len(b.data) / PageSize)
	grown := make([]byte, len(b.data)+int(pages*PageSize))
	copy(grown, b.data)
	b.data = grown
	return prev
}

// Size returns the buffer length in bytes.
func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

func (b *Buffer) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(b.data)) {
		return errors.OutOfBounds(errors.PhaseMarshal, offset, length, b.Size())
	}
	return nil
}

// Read returns a slice aliasing the buffer.
func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	if err := b.check(offset, length); err != nil {
		return nil, err
	}
	return b.data[offset : offset+length : offset+length], nil
}

// Write copies data into the buffer.
func (b *Buffer) Write(offset uint32, data []byte) error {
	if err := b.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadU8 reads a byte.
func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	if err := b.check(offset, 1); err != nil {
		return 0, err
	}
	return b.data[offset], nil
}

// ReadU32 reads a little-endian uint32.
func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	if err := b.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

// ReadU64 reads a little-endian uint64.
func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	if err := b.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.data[offset:]), nil
}

// WriteU8 writes a byte.
func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	if err := b.check(offset, 1); err != nil {
		return err
	}
	b.data[offset] = value
	return nil
}

// WriteU32 writes a little-endian uint32.
func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	if err := b.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[offset:], value)
	return nil
}

// WriteU64 writes a little-endian uint64.
func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	if err := b.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[offset:], value)
	return nil
}
