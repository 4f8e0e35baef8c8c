package bridge

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/errors"
)

// event is a unit of work for the loop: either a fired timer or a posted
// closure.
type event struct {
	timer int32
	fn    func(ctx context.Context) error
	span  trace.Span
	done  chan error
}

func (s *Session) enqueue(ev event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.queue = append(s.queue, ev)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Session) drain() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	s.queue = nil
	return q
}

func (s *Session) loop(ctx context.Context) error {
	for {
		if s.exited() {
			return s.Err()
		}
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return s.Err()
		case <-s.wake:
		}
		for _, ev := range s.drain() {
			if s.exited() {
				if ev.done != nil {
					ev.done <- s.exitErr()
				}
				continue
			}
			s.dispatch(ctx, ev)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, ev event) {
	if ev.fn == nil {
		s.fire(ctx, ev.timer)
		return
	}
	if ev.span != nil {
		ctx = trace.ContextWithSpan(ctx, ev.span)
	}
	ev.done <- ev.fn(ctx)
}

func (s *Session) exitErr() error {
	if fatal := s.Err(); fatal != nil {
		return fatal
	}
	return errors.Exited(s.ExitCode())
}

// Post runs fn on the loop between guest resumptions and returns its error.
// When ctx already belongs to this session's loop, fn runs immediately.
func (s *Session) Post(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if FromContext(ctx) == s {
		return fn(ctx)
	}
	if s.exited() {
		return s.exitErr()
	}

	ctx, span := s.tracer.Start(ctx, "gojs.post", trace.WithAttributes(attribute.String("session", s.id)))
	defer func() { endSpan(span, err) }()

	done := make(chan error, 1)
	if !s.enqueue(event{fn: fn, span: span, done: done}) {
		return s.exitErr()
	}
	select {
	case err := <-done:
		return err
	case <-s.exitCh:
		select {
		case err := <-done:
			return err
		default:
			return s.exitErr()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule registers a timer firing after delay milliseconds and returns its
// id. Ids start at 1.
func (s *Session) schedule(delay int64) int32 {
	id := s.nextTimer
	s.nextTimer++

	if delay < 0 {
		delay = 0
	}
	if delay > math.MaxInt64/int64(time.Millisecond) {
		delay = math.MaxInt64 / int64(time.Millisecond)
	}
	s.timers[id] = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		s.enqueue(event{timer: id})
	})
	return id
}

func (s *Session) clearTimer(id int32) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// fire resumes the guest for timer id. The guest clears the timer while
// handling the wakeup; a timer still registered afterwards was missed and the
// guest is resumed again, at most maxMissed times.
func (s *Session) fire(ctx context.Context, id int32) {
	if _, ok := s.timers[id]; !ok {
		return
	}
	if err := s.resume(ctx); err != nil {
		return
	}
	for retries := 0; !s.exited(); retries++ {
		if _, ok := s.timers[id]; !ok {
			return
		}
		if retries >= s.maxMissed {
			s.logger.Error("dropping timeout event the guest never cleared",
				zap.Int32("timer", id), zap.Int("retries", retries))
			s.clearTimer(id)
			return
		}
		s.missed.Do(func() {
			s.logger.Warn("scheduleTimeoutEvent: missed timeout event", zap.Int32("timer", id))
		})
		if err := s.resume(ctx); err != nil {
			return
		}
	}
}
