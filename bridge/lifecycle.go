package bridge

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/value"
)

// Run writes argv and the environment into guest memory, calls the guest's
// run export and then drives the event loop on the calling goroutine until
// the guest exits or ctx is done. It returns nil when the guest exited,
// whatever its code, and the terminating error otherwise.
func (s *Session) Run(ctx context.Context) (err error) {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return errors.New(errors.PhaseLifecycle, errors.KindInvalidInput).
			Detail("session is %s", s.State()).
			Build()
	}

	ctx, span := s.tracer.Start(ctx, "gojs.run", trace.WithAttributes(
		attribute.String("session", s.id),
		attribute.Int("argc", len(s.args)),
	))
	defer func() { endSpan(span, err) }()

	s.loopCtx = withSession(ctx, s)

	argc, argv, err := writeArgs(s.view, s.args, s.environ)
	if err != nil {
		s.fail(err)
		return err
	}

	s.logger.Debug("starting guest", zap.Strings("args", s.args))
	s.enter()
	runErr := s.guest.Run(s.loopCtx, argc, argv)
	s.leave()
	if err := s.guestErr("run", runErr); err != nil {
		return err
	}
	return s.loop(s.loopCtx)
}

// Resume re-enters the guest. Called off the loop it is posted to it.
func (s *Session) Resume(ctx context.Context) error {
	return s.Post(ctx, s.resume)
}

// Exit terminates the guest as if it had called wasmExit with code.
func (s *Session) Exit(ctx context.Context, code int32) error {
	err := s.Post(ctx, func(context.Context) error {
		s.exit(code)
		return nil
	})
	var e *errors.Error
	if stderrors.As(err, &e) && e.Kind == errors.KindExited {
		return nil
	}
	return err
}

func (s *Session) resume(ctx context.Context) (err error) {
	if s.exited() {
		if fatal := s.Err(); fatal != nil {
			return fatal
		}
		return errors.Exited(s.ExitCode())
	}

	ctx, span := s.tracer.Start(ctx, "gojs.resume")
	defer func() { endSpan(span, err) }()

	s.enter()
	resumeErr := s.guest.Resume(ctx)
	s.leave()
	return s.guestErr("resume", resumeErr)
}

func (s *Session) enter() {
	s.depth++
	if !s.exited() {
		s.state.Store(int32(StateRunning))
	}
}

func (s *Session) leave() {
	s.depth--
	if s.depth == 0 && !s.exited() {
		s.state.Store(int32(StateSuspended))
	}
}

// guestErr turns an error returned by a guest export into the session's
// terminating error.
func (s *Session) guestErr(export string, err error) error {
	if err == nil {
		if fatal := s.Err(); fatal != nil {
			return fatal
		}
		return nil
	}
	if fatal := s.Err(); fatal != nil {
		return fatal
	}
	s.fail(errors.GuestFault(export, err))
	return s.Err()
}

// exit handles wasmExit: discards the table, timers and pending event and
// releases Wait callers.
func (s *Session) exit(code int32) {
	if s.exited() {
		return
	}
	s.exitCode.Store(code)
	s.state.Store(int32(StateExited))
	_ = s.bridge.Set("exited", value.Bool(true))
	s.shutdown()

	if code != 0 {
		s.logger.Warn("exit code", zap.Int32("code", code))
	} else {
		s.logger.Debug("guest exited")
	}
	if s.onExit != nil {
		s.onExit(code)
	}
}

// fail records err as the terminating error and shuts the session down.
// Only the first error is kept.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.fatal == nil {
		s.fatal = err
	}
	s.mu.Unlock()

	if s.exited() {
		return
	}
	s.state.Store(int32(StateExited))
	if stderrors.Is(err, context.Canceled) {
		s.logger.Debug("session cancelled")
	} else {
		s.logger.Error("session failed", zap.Error(err))
	}
	s.shutdown()
}

func (s *Session) shutdown() {
	s.table.Close()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	_ = s.bridge.Set("_pendingEvent", value.Null{})
	s.env.Flush()

	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.exitOnce.Do(func() { close(s.exitCh) })
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
