package bridge_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/host"
	"github.com/wippyai/wasm-gojs/ref"
	"github.com/wippyai/wasm-gojs/value"
)

// runScript runs script as the guest's main and exits with code 0 afterwards.
func runScript(t *testing.T, script func(ctx context.Context, g *fakeGuest) error, opts ...bridge.Option) (*bridge.Session, *fakeGuest) {
	t.Helper()
	g := newFakeGuest()
	g.onRun = func(ctx context.Context, g *fakeGuest) error {
		if err := script(ctx, g); err != nil {
			return err
		}
		return g.exit(ctx, 0)
	}
	s := bridge.NewSession(g, opts...)
	require.NoError(t, s.Run(context.Background()))
	return s, g
}

// lookup resolves a slot while the session is still running.
func lookup(ctx context.Context, s ref.Slot) value.Value {
	v, err := bridge.FromContext(ctx).Table().Load(s)
	check(err)
	return v
}

func TestImports(t *testing.T) {
	names := bridge.Imports()
	assert.Len(t, names, 25)
	assert.Contains(t, names, "syscall/js.valueGet")
	assert.Contains(t, names, "runtime.wasmExit")
	assert.Contains(t, names, "debug")
	assert.True(t, bridge.HasImport("syscall/js.copyBytesToJS"))
	assert.False(t, bridge.HasImport("syscall/js.valueClone"))
	assert.IsIncreasing(t, names)
}

func TestTrap_StringLength(t *testing.T) {
	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		str, err := g.stringVal(ctx, "hello")
		if err != nil {
			return err
		}
		assert.Equal(t, ref.TagString, str.(ref.Ref).Tag)

		n, err := g.get(ctx, str, "length")
		if err != nil {
			return err
		}
		assert.Equal(t, ref.Number(5), n)

		g.setSlot(8, str)
		if err := g.call(ctx, "syscall/js.valueLength"); err != nil {
			return err
		}
		assert.Equal(t, int64(5), g.i64(16))
		return nil
	})
}

func TestTrap_CallHostFunction(t *testing.T) {
	add := value.NewFunction("add", func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		return value.Number(value.ToNumber(args[0]) + value.ToNumber(args[1])), nil
	})
	env := host.New(host.WithGlobal("add", add))

	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		result, ok, err := g.callMethod(ctx, globalRef, "add", ref.Number(2), ref.Number(3))
		if err != nil {
			return err
		}
		assert.True(t, ok)
		assert.Equal(t, ref.Number(5), result, "non-zero numbers are written as literal doubles")
		bits, _ := g.view.ReadUint64(testSP + 56)
		assert.Equal(t, math.Float64bits(5), bits)
		return nil
	}, bridge.WithEnv(env))
}

func TestTrap_CallThrowingHostFunction(t *testing.T) {
	boom := value.NewFunction("boom", func(context.Context, value.Value, []value.Value) (value.Value, error) {
		return nil, value.TypeError("boom failed")
	})
	panics := value.NewFunction("panics", func(context.Context, value.Value, []value.Value) (value.Value, error) {
		panic("host bug")
	})
	env := host.New(host.WithGlobal("boom", boom), host.WithGlobal("panics", panics))

	s, _ := runScript(t, func(ctx context.Context, g *fakeGuest) error {
		thrown, ok, err := g.callMethod(ctx, globalRef, "boom")
		if err != nil {
			return err
		}
		assert.False(t, ok)
		exc := lookup(ctx, thrown)
		assert.True(t, value.IsError(exc))
		msg, _ := value.Get(exc, "message")
		assert.Equal(t, value.String("boom failed"), msg)

		thrown, ok, err = g.callMethod(ctx, globalRef, "panics")
		if err != nil {
			return err
		}
		assert.False(t, ok)
		msg, _ = value.Get(lookup(ctx, thrown), "message")
		assert.Equal(t, value.String("host bug"), msg)

		_, ok, err = g.callMethod(ctx, globalRef, "missing")
		if err != nil {
			return err
		}
		assert.False(t, ok, "calling a missing method throws TypeError")
		return nil
	}, bridge.WithEnv(env))
	assert.NoError(t, s.Err())
}

func TestTrap_InvokeAndNew(t *testing.T) {
	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		ctor, err := g.get(ctx, globalRef, "Uint8Array")
		if err != nil {
			return err
		}
		arr, ok, err := g.newValue(ctx, ctor, ref.Number(4))
		if err != nil {
			return err
		}
		require.True(t, ok)
		assert.Equal(t, 4, lookupLen(ctx, arr).Length())

		g.setSlot(8, arr)
		g.setSlot(16, ctor)
		if err := g.call(ctx, "syscall/js.valueInstanceOf"); err != nil {
			return err
		}
		assert.Equal(t, byte(1), g.uint8(24))

		_, ok, err = g.newValue(ctx, globalRef)
		if err != nil {
			return err
		}
		assert.False(t, ok, "the global object is not a constructor")

		fn, err := g.get(ctx, globalRef, "Array")
		if err != nil {
			return err
		}
		g.setSlot(8, fn)
		g.setSlots(16, ref.Number(1), ref.Number(2))
		if err := g.call(ctx, "syscall/js.valueInvoke"); err != nil {
			return err
		}
		assert.Equal(t, byte(1), g.uint8(48))
		assert.Equal(t, 2, lookupLen(ctx, g.slot(40)).Length())
		return nil
	})
}

func lookupLen(ctx context.Context, s ref.Slot) value.Lengther {
	l, ok := lookup(ctx, s).(value.Lengther)
	if !ok {
		panic("value has no length")
	}
	return l
}

func TestTrap_SetDeleteIndex(t *testing.T) {
	s, _ := runScript(t, func(ctx context.Context, g *fakeGuest) error {
		obj, ok, err := g.newValue(ctx, mustGet(ctx, g, "Object"))
		if err != nil {
			return err
		}
		require.True(t, ok)
		if err := g.set(ctx, obj, "answer", ref.Number(42)); err != nil {
			return err
		}
		v, err := g.get(ctx, obj, "answer")
		if err != nil {
			return err
		}
		assert.Equal(t, ref.Number(42), v)

		g.setSlot(8, obj)
		g.setString(16, "answer")
		if err := g.call(ctx, "syscall/js.valueDelete"); err != nil {
			return err
		}
		v, err = g.get(ctx, obj, "answer")
		if err != nil {
			return err
		}
		assert.Equal(t, ref.Undefined{}, v)

		arr, _, err := g.newValue(ctx, mustGet(ctx, g, "Array"), ref.Number(2))
		if err != nil {
			return err
		}
		g.setSlot(8, arr)
		g.setInt64(16, 1)
		g.setSlot(24, ref.Ref{ID: ref.IDTrue})
		if err := g.call(ctx, "syscall/js.valueSetIndex"); err != nil {
			return err
		}
		v, err = g.index(ctx, arr, 1)
		if err != nil {
			return err
		}
		assert.Equal(t, ref.Ref{ID: ref.IDTrue}, v)
		v, err = g.index(ctx, arr, 0)
		if err != nil {
			return err
		}
		assert.Equal(t, ref.Undefined{}, v)
		return g.set(ctx, globalRef, "kept", arr)
	})
	kept, err := s.Global().Get("kept")
	require.NoError(t, err)
	assert.IsType(t, &value.Array{}, kept)
}

func mustGet(ctx context.Context, g *fakeGuest, name string) ref.Slot {
	s, err := g.get(ctx, globalRef, name)
	check(err)
	return s
}

func TestTrap_PrepareAndLoadString(t *testing.T) {
	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		g.setSlot(8, ref.Number(1.5))
		if err := g.call(ctx, "syscall/js.valuePrepareString"); err != nil {
			return err
		}
		prepared := g.slot(16)
		n := g.i64(24)
		assert.Equal(t, int64(3), n)

		g.setSlot(8, prepared)
		p := g.setBuffer(16, make([]byte, n))
		if err := g.call(ctx, "syscall/js.valueLoadString"); err != nil {
			return err
		}
		assert.Equal(t, "1.5", string(g.bytes(p, int(n))))

		str, err := g.stringVal(ctx, "héllo")
		if err != nil {
			return err
		}
		g.setSlot(8, str)
		if err := g.call(ctx, "syscall/js.valuePrepareString"); err != nil {
			return err
		}
		assert.Equal(t, int64(len("héllo")), g.i64(24))
		return nil
	})
}

func TestTrap_CopyBytes(t *testing.T) {
	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		arr, _, err := g.newValue(ctx, mustGet(ctx, g, "Uint8Array"), ref.Number(4))
		if err != nil {
			return err
		}

		g.setSlot(8, arr)
		g.setBuffer(16, []byte{1, 2, 3, 4, 5})
		if err := g.call(ctx, "syscall/js.copyBytesToJS"); err != nil {
			return err
		}
		assert.Equal(t, int64(4), g.i64(40))
		assert.Equal(t, byte(1), g.uint8(48))
		assert.Equal(t, []byte{1, 2, 3, 4}, lookup(ctx, arr).(value.ByteArray).Bytes())

		p := g.setBuffer(8, make([]byte, 2))
		g.setSlot(32, arr)
		if err := g.call(ctx, "syscall/js.copyBytesToGo"); err != nil {
			return err
		}
		assert.Equal(t, int64(2), g.i64(40))
		assert.Equal(t, byte(1), g.uint8(48))
		assert.Equal(t, []byte{1, 2}, g.bytes(p, 2))

		g.setBuffer(8, make([]byte, 2))
		g.setSlot(32, globalRef)
		check(g.view.WriteUint8(testSP+48, 7))
		check(g.view.WriteInt64(testSP+40, 99))
		if err := g.call(ctx, "syscall/js.copyBytesToGo"); err != nil {
			return err
		}
		assert.Equal(t, int64(0), g.i64(40), "non byte arrays copy nothing")
		assert.Equal(t, byte(0), g.uint8(48), "non byte arrays report failure")

		g.setSlot(8, globalRef)
		g.setBuffer(16, []byte{9})
		check(g.view.WriteInt64(testSP+40, 99))
		if err := g.call(ctx, "syscall/js.copyBytesToJS"); err != nil {
			return err
		}
		assert.Equal(t, int64(0), g.i64(40))
		assert.Equal(t, byte(0), g.uint8(48))
		return nil
	})
}

func TestTrap_FinalizeRef(t *testing.T) {
	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		table := bridge.FromContext(ctx).Table()
		base := table.Len()

		a, err := g.stringVal(ctx, "abc")
		if err != nil {
			return err
		}
		b, err := g.stringVal(ctx, "abc")
		if err != nil {
			return err
		}
		assert.Equal(t, a, b, "same value, same id")
		id := a.(ref.Ref).ID
		n, _ := table.RefCount(id)
		assert.Equal(t, 2, n)

		for i := 0; i < 2; i++ {
			g.setUint32(8, id)
			if err := g.call(ctx, "syscall/js.finalizeRef"); err != nil {
				return err
			}
		}
		_, live := table.Lookup(id)
		assert.False(t, live)
		assert.Equal(t, base, table.Len())

		c, err := g.stringVal(ctx, "other")
		if err != nil {
			return err
		}
		assert.Equal(t, id, c.(ref.Ref).ID, "released ids are reused")

		g.setUint32(8, ref.IDGlobal)
		return g.call(ctx, "syscall/js.finalizeRef")
	})
}

func TestTrap_WasmWrite(t *testing.T) {
	var stdout bytes.Buffer
	core, logs := observer.New(zapcore.WarnLevel)
	env := host.New(host.WithStdout(&stdout), host.WithStderr(failingWriter{}))

	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		p := g.alloc(3)
		check(g.view.Write(p, []byte("hi\n")))
		g.setInt64(8, 1)
		g.setInt64(16, int64(p))
		g.setInt32(24, 3)
		if err := g.call(ctx, "runtime.wasmWrite"); err != nil {
			return err
		}
		g.setInt64(8, 3)
		if err := g.call(ctx, "runtime.wasmWrite"); err != nil {
			return err
		}
		g.setInt64(8, 2)
		return g.call(ctx, "runtime.wasmWrite")
	}, bridge.WithEnv(env), bridge.WithLogger(zap.New(core)))

	assert.Equal(t, "hi\nhi\n", stdout.String(), "fds other than 2 reach stdout")
	assert.Equal(t, 1, logs.FilterMessage("guest write failed").Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, stderrors.New("closed")
}

func TestTrap_Clocks(t *testing.T) {
	clock := &host.FixedClock{Mono: 42, Wall: time.Unix(1700000000, 123)}
	env := host.New(host.WithClock(clock))

	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		if err := g.call(ctx, "runtime.nanotime1"); err != nil {
			return err
		}
		assert.Equal(t, int64(42), g.i64(8))

		if err := g.call(ctx, "runtime.walltime"); err != nil {
			return err
		}
		assert.Equal(t, int64(1700000000), g.i64(8))
		assert.Equal(t, int32(123), g.i32(16))
		return nil
	}, bridge.WithEnv(env))
}

func TestTrap_GetRandomData(t *testing.T) {
	env := host.New(host.WithRandom(host.SeededRandom(7)))
	want := make([]byte, 16)
	require.NoError(t, host.FillRandom(host.SeededRandom(7), want))

	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		p := g.setBuffer(8, make([]byte, 16))
		if err := g.call(ctx, "runtime.getRandomData"); err != nil {
			return err
		}
		assert.Equal(t, want, g.bytes(p, 16))
		return nil
	}, bridge.WithEnv(env))
}

func TestTrap_DebugAndResetMemory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	runScript(t, func(ctx context.Context, g *fakeGuest) error {
		if err := g.call(ctx, "debug"); err != nil {
			return err
		}
		g.mem.Grow(1)
		g.view.Refresh()
		if err := g.call(ctx, "runtime.resetMemoryDataView"); err != nil {
			return err
		}
		_, err := g.stringVal(ctx, "after grow")
		return err
	}, bridge.WithLogger(zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("debug").Len())
}

// TestTrap_FSWriteCallback follows what the syscall package does for
// os.Stdout.Write: fs.write with a js.FuncOf callback that the host invokes
// before valueCall returns, re-entering the guest.
func TestTrap_FSWriteCallback(t *testing.T) {
	var stdout bytes.Buffer
	env := host.New(host.WithStdout(&stdout))

	g := newFakeGuest()
	var written ref.Slot
	g.onRun = func(ctx context.Context, g *fakeGuest) error {
		cb, _, err := g.callMethod(ctx, bridgeRef, "_makeFuncWrapper", ref.Number(1))
		if err != nil {
			return err
		}
		fs, err := g.get(ctx, globalRef, "fs")
		if err != nil {
			return err
		}
		buf, _, err := g.newValue(ctx, mustGet(ctx, g, "Uint8Array"), ref.Number(6))
		if err != nil {
			return err
		}
		g.setSlot(8, buf)
		g.setBuffer(16, []byte("hello\n"))
		if err := g.call(ctx, "syscall/js.copyBytesToJS"); err != nil {
			return err
		}

		_, ok, err := g.callMethod(ctx, fs, "write",
			ref.Number(1), buf, ref.Ref{ID: ref.IDZero}, ref.Number(6), nullRef, cb)
		if err != nil {
			return err
		}
		assert.True(t, ok)
		return g.exit(ctx, 0)
	}
	g.onResume = func(ctx context.Context, g *fakeGuest) error {
		return g.handleEvent(ctx, func(args []ref.Slot) ref.Slot {
			if len(args) == 2 {
				written = args[1]
			}
			return ref.Undefined{}
		})
	}
	s := bridge.NewSession(g, bridge.WithEnv(env))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, ref.Number(6), written)
	assert.Equal(t, int32(1), g.resumes.Load())
}

func TestTrap_FSUnsupportedCallsBackENOSYS(t *testing.T) {
	g := newFakeGuest()
	var code string
	g.onRun = func(ctx context.Context, g *fakeGuest) error {
		cb, _, err := g.callMethod(ctx, bridgeRef, "_makeFuncWrapper", ref.Number(1))
		if err != nil {
			return err
		}
		path, err := g.stringVal(ctx, "/etc/passwd")
		if err != nil {
			return err
		}
		fs := mustGet(ctx, g, "fs")
		_, ok, err := g.callMethod(ctx, fs, "open", path, ref.Number(0), ref.Number(0), cb)
		if err != nil {
			return err
		}
		assert.True(t, ok)
		return g.exit(ctx, 0)
	}
	g.onResume = func(ctx context.Context, g *fakeGuest) error {
		return g.handleEvent(ctx, func(args []ref.Slot) ref.Slot {
			c, err := value.Get(lookup(ctx, args[0]), "code")
			check(err)
			code = value.ToString(c)
			return ref.Undefined{}
		})
	}
	s := bridge.NewSession(g)
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "ENOSYS", code)
}
