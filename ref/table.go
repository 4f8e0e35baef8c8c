package ref

import (
	"math"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/memory"
	"github.com/wippyai/wasm-gojs/value"
)

// Reserved ids seeded at construction.
const (
	IDNaN uint32 = iota
	IDZero
	IDNull
	IDTrue
	IDFalse
	IDGlobal
	IDBridge

	reservedIDs
)

// Permanent is the reference count reported for seeded ids.
const Permanent = -1

type entry struct {
	value value.Value
	refs  int
	valid bool
}

// Table maps ids to host values with reference counting.
type Table struct {
	entries []entry
	ids     map[value.Value]uint32
	pool    []uint32
	closed  bool
}

// NewTable creates a table seeded with the reserved values. global and bridge
// become ids 5 and 6.
func NewTable(global, bridge value.Value) *Table {
	if global == nil {
		global = value.NewObject()
	}
	if bridge == nil {
		bridge = value.NewObject()
	}
	t := &Table{
		entries: make([]entry, 0, 64),
		ids:     make(map[value.Value]uint32, 64),
		pool:    make([]uint32, 0, 16),
	}
	seeds := []value.Value{
		value.Number(math.NaN()),
		value.Number(0),
		value.Null{},
		value.Bool(true),
		value.Bool(false),
		global,
		bridge,
	}
	for id, v := range seeds {
		t.entries = append(t.entries, entry{value: v, valid: true})
		if id != int(IDNaN) {
			t.ids[v] = uint32(id)
		}
	}
	return t
}

// Store returns the slot for v, allocating a table entry if needed and
// incrementing its reference count. Non-zero numbers and undefined are not
// stored.
func (t *Table) Store(v value.Value) (Slot, error) {
	if n, ok := v.(value.Number); ok && n != 0 {
		if math.IsNaN(float64(n)) {
			return Ref{ID: IDNaN}, nil
		}
		return Number(n), nil
	}
	if value.IsUndefined(v) {
		return Undefined{}, nil
	}
	if t.closed {
		return nil, errors.New(errors.PhaseTable, errors.KindExited).Detail("value table is closed").Build()
	}
	if n, ok := v.(value.Number); ok && n == 0 {
		v = value.Number(0)
	}
	if !value.Comparable(v) {
		return nil, errors.New(errors.PhaseTable, errors.KindInvalidInput).
			Detail("host value of type %T cannot be referenced by identity", v).
			Value(v).
			Build()
	}

	id, ok := t.ids[v]
	if !ok {
		id = t.alloc(v)
	}
	if id >= reservedIDs {
		t.entries[id].refs++
	}
	return Ref{ID: id, Tag: TagOf(v)}, nil
}

func (t *Table) alloc(v value.Value) uint32 {
	e := entry{value: v, valid: true}
	var id uint32
	if n := len(t.pool); n > 0 {
		id = t.pool[n-1]
		t.pool = t.pool[:n-1]
		t.entries[id] = e
	} else {
		id = uint32(len(t.entries))
		t.entries = append(t.entries, e)
	}
	t.ids[v] = id
	return id
}

// Load resolves a slot to its host value. A reference to an id that is not
// live is a protocol violation.
func (t *Table) Load(s Slot) (value.Value, error) {
	switch x := s.(type) {
	case Number:
		return value.Number(x), nil
	case Undefined:
		return value.Undefined{}, nil
	case Ref:
		v, ok := t.Lookup(x.ID)
		if !ok {
			return nil, errors.UnknownRef(x.ID)
		}
		return v, nil
	}
	return nil, errors.Protocol(errors.PhaseTable, "unknown slot %T", s)
}

// Lookup returns the value stored under id.
func (t *Table) Lookup(id uint32) (value.Value, bool) {
	if int(id) >= len(t.entries) {
		return nil, false
	}
	e := t.entries[id]
	if !e.valid {
		return nil, false
	}
	return e.value, true
}

// IDOf returns the id v is stored under without changing its reference count.
func (t *Table) IDOf(v value.Value) (uint32, bool) {
	if !value.Comparable(v) {
		return 0, false
	}
	id, ok := t.ids[v]
	return id, ok
}

// RefCount returns the reference count of id, or Permanent for seeded ids.
func (t *Table) RefCount(id uint32) (int, bool) {
	if _, ok := t.Lookup(id); !ok {
		return 0, false
	}
	if id < reservedIDs {
		return Permanent, true
	}
	return t.entries[id].refs, true
}

// Release decrements the reference count of id. At zero the entry is cleared
// and the id returned to the pool. Releasing a seeded id is a no-op.
func (t *Table) Release(id uint32) error {
	if t.closed {
		return errors.New(errors.PhaseTable, errors.KindExited).Detail("value table is closed").Build()
	}
	if id < reservedIDs {
		return nil
	}
	if _, ok := t.Lookup(id); !ok {
		return errors.UnknownRef(id)
	}
	e := &t.entries[id]
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(t.ids, e.value)
	e.value = nil
	e.valid = false
	e.refs = 0
	t.pool = append(t.pool, id)
	return nil
}

// Len returns the number of live entries, seeded ids included.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Pooled returns the number of ids waiting for reuse.
func (t *Table) Pooled() int {
	return len(t.pool)
}

// Closed reports whether Close has been called.
func (t *Table) Closed() bool {
	return t.closed
}

// Close discards every entry. Later stores and releases fail.
func (t *Table) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.entries = nil
	t.ids = nil
	t.pool = nil
}

// Encode stores v and writes its slot at addr.
func (t *Table) Encode(v *memory.View, addr uint32, x value.Value) error {
	s, err := t.Store(x)
	if err != nil {
		return err
	}
	return v.WriteUint64(addr, EncodeSlot(s))
}

// Decode reads the slot at addr and resolves it.
func (t *Table) Decode(v *memory.View, addr uint32) (value.Value, error) {
	bits, err := v.ReadUint64(addr)
	if err != nil {
		return nil, err
	}
	return t.Load(DecodeSlot(bits))
}

// DecodeSlice decodes the (ptr, len) slice of slots described at addr.
func (t *Table) DecodeSlice(v *memory.View, addr uint32) ([]value.Value, error) {
	return memory.ReadSliceOfRefs(v, addr, func(a uint32) (value.Value, error) {
		return t.Decode(v, a)
	})
}

// TagOf returns the type tag a value is boxed with.
func TagOf(v value.Value) TypeTag {
	switch v.(type) {
	case value.Null, value.Bool, value.Number, value.Undefined, nil:
		return TagNone
	case value.String:
		return TagString
	case *value.Symbol:
		return TagSymbol
	case value.Callable:
		return TagFunction
	}
	return TagObject
}
