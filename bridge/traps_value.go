package bridge

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/value"
)

func (s *Session) valueGet(ctx context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	key, err := s.view.ReadString(sp + 16)
	if err != nil {
		return err
	}
	result, err := value.Get(v, key)
	if err != nil {
		return uncaught(err, "get %q", key)
	}
	sp, err = s.refreshSP(ctx)
	if err != nil || s.exited() {
		return err
	}
	return s.table.Encode(s.view, sp+32, result)
}

func (s *Session) valueSet(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	key, err := s.view.ReadString(sp + 16)
	if err != nil {
		return err
	}
	x, err := s.table.Decode(s.view, sp+32)
	if err != nil {
		return err
	}
	if err := value.Set(v, key, x); err != nil {
		return uncaught(err, "set %q", key)
	}
	return nil
}

func (s *Session) valueDelete(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	key, err := s.view.ReadString(sp + 16)
	if err != nil {
		return err
	}
	if err := value.Delete(v, key); err != nil {
		return uncaught(err, "delete %q", key)
	}
	return nil
}

func (s *Session) valueIndex(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	i, err := s.view.ReadInt64(sp + 16)
	if err != nil {
		return err
	}
	result, err := value.Index(v, i)
	if err != nil {
		return uncaught(err, "index %d", i)
	}
	return s.table.Encode(s.view, sp+24, result)
}

func (s *Session) valueSetIndex(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	i, err := s.view.ReadInt64(sp + 16)
	if err != nil {
		return err
	}
	x, err := s.table.Decode(s.view, sp+24)
	if err != nil {
		return err
	}
	if err := value.SetIndex(v, i, x); err != nil {
		return uncaught(err, "set index %d", i)
	}
	return nil
}

func (s *Session) valueCall(ctx context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	name, err := s.view.ReadString(sp + 16)
	if err != nil {
		return err
	}
	args, err := s.table.DecodeSlice(s.view, sp+32)
	if err != nil {
		return err
	}
	result, callErr := s.callHost(func() (value.Value, error) {
		m, err := value.Get(v, name)
		if err != nil {
			return nil, err
		}
		if _, ok := m.(value.Callable); !ok {
			return nil, value.TypeError("%s.%s is not a function", value.TypeOf(v), name)
		}
		return value.Call(ctx, m, v, args)
	})
	return s.writeResult(ctx, 56, 64, result, callErr)
}

func (s *Session) valueInvoke(ctx context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	args, err := s.table.DecodeSlice(s.view, sp+16)
	if err != nil {
		return err
	}
	result, callErr := s.callHost(func() (value.Value, error) {
		return value.Call(ctx, v, value.Undefined{}, args)
	})
	return s.writeResult(ctx, 40, 48, result, callErr)
}

func (s *Session) valueNew(ctx context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	args, err := s.table.DecodeSlice(s.view, sp+16)
	if err != nil {
		return err
	}
	result, callErr := s.callHost(func() (value.Value, error) {
		return value.Construct(ctx, v, args)
	})
	return s.writeResult(ctx, 40, 48, result, callErr)
}

func (s *Session) valueLength(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	n, err := value.Length(v)
	if err != nil {
		return uncaught(err, "length")
	}
	return s.view.WriteInt64(sp+16, n)
}

func (s *Session) valuePrepareString(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	str := value.WrapBytes([]byte(value.ToString(v)))
	if err := s.table.Encode(s.view, sp+16, str); err != nil {
		return err
	}
	return s.view.WriteInt64(sp+24, int64(str.Length()))
}

func (s *Session) valueLoadString(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	str, ok := v.(value.ByteArray)
	if !ok {
		return errors.Protocol(errors.PhaseDispatch, "load string from %s, not a prepared string", value.TypeOf(v))
	}
	_, err = s.view.WriteSlice(sp+16, str.Bytes())
	return err
}

func (s *Session) valueInstanceOf(_ context.Context, sp uint32) error {
	v, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	c, err := s.table.Decode(s.view, sp+16)
	if err != nil {
		return err
	}
	ok, err := value.InstanceOf(v, c)
	if err != nil {
		return uncaught(err, "instanceof")
	}
	var b byte
	if ok {
		b = 1
	}
	return s.view.WriteUint8(sp+24, b)
}

func (s *Session) copyBytesToGo(_ context.Context, sp uint32) error {
	dst, err := s.view.ReadSlice(sp + 8)
	if err != nil {
		return err
	}
	src, err := s.table.Decode(s.view, sp+32)
	if err != nil {
		return err
	}
	arr, ok := src.(value.ByteArray)
	if !ok {
		if err := s.view.WriteInt64(sp+40, 0); err != nil {
			return err
		}
		return s.view.WriteUint8(sp+48, 0)
	}
	n := copy(dst, arr.Bytes())
	if err := s.view.WriteInt64(sp+40, int64(n)); err != nil {
		return err
	}
	return s.view.WriteUint8(sp+48, 1)
}

func (s *Session) copyBytesToJS(_ context.Context, sp uint32) error {
	dst, err := s.table.Decode(s.view, sp+8)
	if err != nil {
		return err
	}
	src, err := s.view.ReadSlice(sp + 16)
	if err != nil {
		return err
	}
	arr, ok := dst.(value.ByteArray)
	if !ok {
		if err := s.view.WriteInt64(sp+40, 0); err != nil {
			return err
		}
		return s.view.WriteUint8(sp+48, 0)
	}
	n := copy(arr.Bytes(), src)
	if err := s.view.WriteInt64(sp+40, int64(n)); err != nil {
		return err
	}
	return s.view.WriteUint8(sp+48, 1)
}

func (s *Session) finalizeRef(_ context.Context, sp uint32) error {
	id, err := s.view.ReadUint32(sp + 8)
	if err != nil {
		return err
	}
	return s.table.Release(id)
}

func (s *Session) stringVal(_ context.Context, sp uint32) error {
	str, err := s.view.ReadString(sp + 8)
	if err != nil {
		return err
	}
	return s.table.Encode(s.view, sp+24, value.String(str))
}

// callHost runs a host call for valueCall, valueInvoke and valueNew. Panics
// raised by host functions are turned into thrown errors.
func (s *Session) callHost(fn func() (value.Value, error)) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*errors.Error); ok && e.Fatal() {
				err = e
				return
			}
			err = value.Throw(value.NewError("Error", fmt.Sprint(r)))
		}
	}()
	return fn()
}

// writeResult stores the outcome of a host call at sp+resultOff and the
// success flag at sp+okOff. Errors that terminate the session are returned
// instead of being handed to the guest.
func (s *Session) writeResult(ctx context.Context, resultOff, okOff uint32, result value.Value, callErr error) error {
	if fatal := s.Err(); fatal != nil {
		return fatal
	}
	ok := byte(1)
	if callErr != nil {
		var e *errors.Error
		if stderrors.As(callErr, &e) && e.Fatal() {
			return callErr
		}
		result = value.Thrown(callErr)
		ok = 0
	}
	if s.exited() {
		return nil
	}
	sp, err := s.refreshSP(ctx)
	if err != nil {
		return err
	}
	if err := s.table.Encode(s.view, sp+resultOff, result); err != nil {
		return err
	}
	return s.view.WriteUint8(sp+okOff, ok)
}

// refreshSP re-reads the stack pointer after a call that may have re-entered
// the guest; its stack may have moved and its memory grown.
func (s *Session) refreshSP(ctx context.Context) (uint32, error) {
	sp, err := s.guest.GetSP(ctx)
	if err != nil {
		return 0, errors.GuestFault("getsp", err)
	}
	s.view.Refresh()
	return sp, nil
}

func uncaught(err error, op string, args ...any) error {
	return errors.New(errors.PhaseDispatch, errors.KindProtocol).
		Detail("uncaught host exception in "+op, args...).
		Cause(err).
		Build()
}
