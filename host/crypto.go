package host

import (
	"context"

	"github.com/wippyai/wasm-gojs/value"
)

func (e *Env) newCrypto() *value.Object {
	c := value.NewObject()
	_ = c.Set("getRandomValues", value.NewFunction("getRandomValues", func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		buf, ok := arg(args, 0).(value.ByteArray)
		if !ok {
			return nil, value.TypeError("Failed to execute 'getRandomValues' on 'Crypto': parameter 1 is not of type 'ArrayBufferView'.")
		}
		p := buf.Bytes()
		if len(p) > MaxRandomBytes {
			err := value.NewError("QuotaExceededError", "The ArrayBufferView's byte length exceeds the number of bytes of entropy available via this API (65536).")
			return nil, value.Throw(err)
		}
		if err := FillRandom(e.random, p); err != nil {
			return nil, err
		}
		return args[0], nil
	}))
	return c
}

func (e *Env) newPerformance() *value.Object {
	p := value.NewObject()
	_ = p.Set("now", value.NewFunction("now", func(context.Context, value.Value, []value.Value) (value.Value, error) {
		return value.Number(float64(e.clock.Nanotime()-e.t0) / 1e6), nil
	}))
	return p
}
