package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/host"
)

func (s *Session) wasmExit(_ context.Context, sp uint32) error {
	code, err := s.view.ReadInt32(sp + 8)
	if err != nil {
		return err
	}
	s.exit(code)
	return nil
}

func (s *Session) wasmWrite(_ context.Context, sp uint32) error {
	fd, err := s.view.ReadInt64(sp + 8)
	if err != nil {
		return err
	}
	p, err := s.view.ReadInt64(sp + 16)
	if err != nil {
		return err
	}
	n, err := s.view.ReadInt32(sp + 24)
	if err != nil {
		return err
	}
	if p < 0 || n < 0 || p > int64(^uint32(0)) {
		return errors.Protocol(errors.PhaseDispatch, "invalid write buffer (%d, %d)", p, n)
	}
	buf, err := s.view.Slice(uint32(p), uint32(n))
	if err != nil {
		return err
	}
	if _, err := s.env.WriteSync(fd, buf); err != nil {
		s.logger.Warn("guest write failed", zap.Int64("fd", fd), zap.Error(err))
	}
	return nil
}

func (s *Session) resetMemoryDataView(context.Context, uint32) error {
	s.view.Refresh()
	return nil
}

func (s *Session) nanotime1(_ context.Context, sp uint32) error {
	return s.view.WriteInt64(sp+8, s.env.Clock().Nanotime())
}

func (s *Session) walltime(_ context.Context, sp uint32) error {
	sec, nsec := s.env.Clock().Walltime()
	if err := s.view.WriteInt64(sp+8, sec); err != nil {
		return err
	}
	return s.view.WriteInt32(sp+16, nsec)
}

func (s *Session) scheduleTimeoutEvent(_ context.Context, sp uint32) error {
	delay, err := s.view.ReadInt64(sp + 8)
	if err != nil {
		return err
	}
	id := s.schedule(delay)
	s.logger.Debug("timer scheduled", zap.Int32("timer", id), zap.Int64("delay_ms", delay))
	return s.view.WriteInt32(sp+16, id)
}

func (s *Session) clearTimeoutEvent(_ context.Context, sp uint32) error {
	id, err := s.view.ReadInt32(sp + 8)
	if err != nil {
		return err
	}
	s.clearTimer(id)
	return nil
}

func (s *Session) getRandomData(_ context.Context, sp uint32) error {
	buf, err := s.view.ReadSlice(sp + 8)
	if err != nil {
		return err
	}
	if err := host.FillRandom(s.env.Random(), buf); err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindResourceLimit, err, "read random data")
	}
	return nil
}

func (s *Session) debug(_ context.Context, sp uint32) error {
	s.logger.Debug("debug", zap.Uint32("value", sp))
	return nil
}
