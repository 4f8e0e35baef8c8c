// Package memory provides typed access to guest linear memory.
//
// # Memory Wrapper
//
// Wraps wazero api.Memory with structured out-of-bounds errors:
//
//	mem := memory.Wrap(mod.Memory())
//	// mem implements wasmgojs.Memory
//
// Buffer is a plain byte slice implementing the same interface, used where no
// wazero module is available.
//
// # View
//
// View is the marshaler the syscall/js traps use. It caches the memory buffer
// the way a DataView would, so it must be refreshed after anything that may have
// grown the guest memory:
//
//	v := memory.NewView(mem)
//	x, err := v.ReadInt64(sp + 8)
//	...
//	v.Refresh()
//
// Integers are little-endian. 64-bit integers are stored as two 32-bit words,
// the low word unsigned and the high word signed. Slices and strings are
// (ptr int64, len int64) descriptors. Reads through a View never allocate guest
// memory.
package memory
