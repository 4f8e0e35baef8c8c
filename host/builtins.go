package host

import (
	"context"
	"math"

	"github.com/wippyai/wasm-gojs/value"
)

func (e *Env) installBuiltins() {
	e.objectCtor = value.NewClass("Object", nil, func(_ context.Context, args []value.Value) (value.Value, error) {
		return newObjectFrom(args), nil
	}).WithCall(func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		return newObjectFrom(args), nil
	}).WithHasInstance(func(v value.Value) bool {
		switch v.(type) {
		case nil, value.Undefined, value.Null, value.Bool, value.Number, value.String, *value.Symbol:
			return false
		}
		return true
	})
	e.define("Object", e.objectCtor)

	e.arrayCtor = value.NewClass("Array", e.objectCtor, newArrayFrom).
		WithCall(func(ctx context.Context, _ value.Value, args []value.Value) (value.Value, error) {
			return newArrayFrom(ctx, args)
		}).
		WithHasInstance(func(v value.Value) bool {
			_, ok := v.(*value.Array)
			return ok
		})
	_ = e.arrayCtor.Set("isArray", value.NewFunction("isArray", func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		_, ok := args[0].(*value.Array)
		return value.Bool(ok), nil
	}))
	e.define("Array", e.arrayCtor)

	e.uint8Ctor = value.NewClass("Uint8Array", e.objectCtor, func(_ context.Context, args []value.Value) (value.Value, error) {
		return newByteArray(args, false)
	}).WithHasInstance(func(v value.Value) bool {
		u, ok := v.(*value.Uint8Array)
		return ok && !u.Clamped()
	})
	e.define("Uint8Array", e.uint8Ctor)

	e.uint8ClampCtor = value.NewClass("Uint8ClampedArray", e.objectCtor, func(_ context.Context, args []value.Value) (value.Value, error) {
		return newByteArray(args, true)
	}).WithHasInstance(func(v value.Value) bool {
		u, ok := v.(*value.Uint8Array)
		return ok && u.Clamped()
	})
	e.define("Uint8ClampedArray", e.uint8ClampCtor)

	e.errorCtor = value.NewClass("Error", e.objectCtor, func(_ context.Context, args []value.Value) (value.Value, error) {
		return newErrorFrom(args), nil
	})
	e.errorCtor.WithCall(func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		err := newErrorFrom(args)
		err.SetClass(e.errorCtor)
		return err, nil
	})
	e.define("Error", e.errorCtor)

	e.dateCtor = e.newDateClass()
	e.define("Date", e.dateCtor)
}

func newObjectFrom(args []value.Value) value.Value {
	if len(args) > 0 {
		switch args[0].(type) {
		case nil, value.Undefined, value.Null, value.Bool, value.Number, value.String:
		default:
			return args[0]
		}
	}
	return value.NewObject()
}

func newArrayFrom(_ context.Context, args []value.Value) (value.Value, error) {
	if len(args) == 1 {
		if n, ok := args[0].(value.Number); ok {
			length, err := arrayLength(float64(n))
			if err != nil {
				return nil, err
			}
			arr := value.NewArray()
			_ = arr.Set("length", value.Number(length))
			return arr, nil
		}
	}
	return value.NewArray(append([]value.Value(nil), args...)...), nil
}

func arrayLength(n float64) (int, error) {
	if n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
		return 0, value.RangeError("Invalid array length")
	}
	return int(n), nil
}

func newByteArray(args []value.Value, clamped bool) (value.Value, error) {
	mk := value.NewUint8Array
	if clamped {
		mk = value.NewUint8ClampedArray
	}
	if len(args) == 0 || value.IsNullish(args[0]) {
		return mk(0), nil
	}
	switch src := args[0].(type) {
	case value.Number:
		n, err := arrayLength(float64(src))
		if err != nil {
			return nil, value.RangeError("Invalid typed array length: %s", value.FormatNumber(float64(src)))
		}
		return mk(n), nil
	case value.ByteArray:
		b := src.Bytes()
		u := mk(len(b))
		copy(u.Bytes(), b)
		return u, nil
	case value.Lengther:
		n := src.Length()
		u := mk(n)
		for i := 0; i < n; i++ {
			x, err := value.Index(src, int64(i))
			if err != nil {
				return nil, err
			}
			_ = u.SetIndex(int64(i), x)
		}
		return u, nil
	}
	return mk(0), nil
}

func newErrorFrom(args []value.Value) *value.Object {
	msg := ""
	if len(args) > 0 && !value.IsUndefined(args[0]) {
		msg = value.ToString(args[0])
	}
	return value.NewError("Error", msg)
}
