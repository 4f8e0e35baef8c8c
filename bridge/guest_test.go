package bridge_test

import (
	"context"
	"sync/atomic"

	wasmgojs "github.com/wippyai/wasm-gojs"
	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/memory"
	"github.com/wippyai/wasm-gojs/ref"
)

const (
	testSP   = 0x4000
	heapBase = 0x10000
)

var (
	globalRef = ref.Ref{ID: ref.IDGlobal, Tag: ref.TagObject}
	bridgeRef = ref.Ref{ID: ref.IDBridge, Tag: ref.TagObject}
	nullRef   = ref.Ref{ID: ref.IDNull}
)

// fakeGuest stands in for a compiled GOOS=js module. Its run and resume
// exports are scripted; scripts drive the real traps through the session
// found in the call context, the way a wazero host function would.
type fakeGuest struct {
	mem  *memory.Buffer
	view *memory.View
	heap uint32

	argc, argv uint32
	onRun      func(ctx context.Context, g *fakeGuest) error
	onResume   func(ctx context.Context, g *fakeGuest) error
	resumes    atomic.Int32
}

func newFakeGuest() *fakeGuest {
	mem := memory.NewBuffer(2)
	return &fakeGuest{mem: mem, view: memory.NewView(mem), heap: heapBase}
}

func (g *fakeGuest) Memory() wasmgojs.Memory {
	return g.mem
}

func (g *fakeGuest) Run(ctx context.Context, argc, argv uint32) error {
	g.argc, g.argv = argc, argv
	if g.onRun == nil {
		return nil
	}
	return g.onRun(ctx, g)
}

func (g *fakeGuest) Resume(ctx context.Context) error {
	g.resumes.Add(1)
	if g.onResume == nil {
		return nil
	}
	return g.onResume(ctx, g)
}

func (g *fakeGuest) GetSP(context.Context) (uint32, error) {
	return testSP, nil
}

func (g *fakeGuest) call(ctx context.Context, name string) error {
	return bridge.FromContext(ctx).Invoke(ctx, name, testSP)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func (g *fakeGuest) alloc(n int) uint32 {
	p := g.heap
	g.heap += (uint32(n) + 7) &^ 7
	return p
}

func (g *fakeGuest) setSlot(off uint32, s ref.Slot) {
	check(g.view.WriteUint64(testSP+off, ref.EncodeSlot(s)))
}

func (g *fakeGuest) slot(off uint32) ref.Slot {
	bits, err := g.view.ReadUint64(testSP + off)
	check(err)
	return ref.DecodeSlot(bits)
}

func (g *fakeGuest) setInt64(off uint32, x int64) {
	check(g.view.WriteInt64(testSP+off, x))
}

func (g *fakeGuest) i64(off uint32) int64 {
	x, err := g.view.ReadInt64(testSP + off)
	check(err)
	return x
}

func (g *fakeGuest) setInt32(off uint32, x int32) {
	check(g.view.WriteInt32(testSP+off, x))
}

func (g *fakeGuest) i32(off uint32) int32 {
	x, err := g.view.ReadInt32(testSP + off)
	check(err)
	return x
}

func (g *fakeGuest) setUint32(off uint32, x uint32) {
	check(g.view.WriteUint32(testSP+off, x))
}

func (g *fakeGuest) uint8(off uint32) byte {
	x, err := g.view.ReadUint8(testSP + off)
	check(err)
	return x
}

// setBuffer copies data to the heap and writes its slice descriptor at off.
func (g *fakeGuest) setBuffer(off uint32, data []byte) uint32 {
	p := g.alloc(len(data))
	check(g.view.Write(p, data))
	g.setInt64(off, int64(p))
	g.setInt64(off+8, int64(len(data)))
	g.setInt64(off+16, int64(len(data)))
	return p
}

func (g *fakeGuest) setString(off uint32, s string) {
	g.setBuffer(off, []byte(s))
}

func (g *fakeGuest) setSlots(off uint32, slots ...ref.Slot) {
	p := g.alloc(8 * len(slots))
	for i, s := range slots {
		check(g.view.WriteUint64(p+uint32(i)*8, ref.EncodeSlot(s)))
	}
	g.setInt64(off, int64(p))
	g.setInt64(off+8, int64(len(slots)))
	g.setInt64(off+16, int64(len(slots)))
}

func (g *fakeGuest) bytes(p uint32, n int) []byte {
	b, err := g.view.Slice(p, uint32(n))
	check(err)
	return append([]byte(nil), b...)
}

// exit calls wasmExit with code.
func (g *fakeGuest) exit(ctx context.Context, code int32) error {
	g.setInt32(8, code)
	return g.call(ctx, "runtime.wasmExit")
}

// get performs valueGet and returns the result slot.
func (g *fakeGuest) get(ctx context.Context, v ref.Slot, key string) (ref.Slot, error) {
	g.setSlot(8, v)
	g.setString(16, key)
	if err := g.call(ctx, "syscall/js.valueGet"); err != nil {
		return nil, err
	}
	return g.slot(32), nil
}

// set performs valueSet.
func (g *fakeGuest) set(ctx context.Context, v ref.Slot, key string, x ref.Slot) error {
	g.setSlot(8, v)
	g.setString(16, key)
	g.setSlot(32, x)
	return g.call(ctx, "syscall/js.valueSet")
}

// index performs valueIndex and returns the result slot.
func (g *fakeGuest) index(ctx context.Context, v ref.Slot, i int64) (ref.Slot, error) {
	g.setSlot(8, v)
	g.setInt64(16, i)
	if err := g.call(ctx, "syscall/js.valueIndex"); err != nil {
		return nil, err
	}
	return g.slot(24), nil
}

// callMethod performs valueCall and returns the result slot and success flag.
func (g *fakeGuest) callMethod(ctx context.Context, v ref.Slot, name string, args ...ref.Slot) (ref.Slot, bool, error) {
	g.setSlot(8, v)
	g.setString(16, name)
	g.setSlots(32, args...)
	if err := g.call(ctx, "syscall/js.valueCall"); err != nil {
		return nil, false, err
	}
	return g.slot(56), g.uint8(64) == 1, nil
}

// newValue performs valueNew and returns the result slot and success flag.
func (g *fakeGuest) newValue(ctx context.Context, c ref.Slot, args ...ref.Slot) (ref.Slot, bool, error) {
	g.setSlot(8, c)
	g.setSlots(16, args...)
	if err := g.call(ctx, "syscall/js.valueNew"); err != nil {
		return nil, false, err
	}
	return g.slot(40), g.uint8(48) == 1, nil
}

// stringVal performs stringVal and returns the result slot.
func (g *fakeGuest) stringVal(ctx context.Context, s string) (ref.Slot, error) {
	g.setString(8, s)
	if err := g.call(ctx, "syscall/js.stringVal"); err != nil {
		return nil, err
	}
	return g.slot(24), nil
}

// handleEvent mirrors syscall/js: take the pending event, clear it, call fn
// with the arguments and store the result on the event.
func (g *fakeGuest) handleEvent(ctx context.Context, fn func(args []ref.Slot) ref.Slot) error {
	ev, err := g.get(ctx, bridgeRef, "_pendingEvent")
	if err != nil {
		return err
	}
	if ev == (ref.Ref{ID: ref.IDNull}) {
		return nil
	}
	if err := g.set(ctx, bridgeRef, "_pendingEvent", nullRef); err != nil {
		return err
	}
	argsObj, err := g.get(ctx, ev, "args")
	if err != nil {
		return err
	}
	g.setSlot(8, argsObj)
	if err := g.call(ctx, "syscall/js.valueLength"); err != nil {
		return err
	}
	n := g.i64(16)
	args := make([]ref.Slot, n)
	for i := range args {
		if args[i], err = g.index(ctx, argsObj, int64(i)); err != nil {
			return err
		}
	}
	return g.set(ctx, ev, "result", fn(args))
}
