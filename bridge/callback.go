package bridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wippyai/wasm-gojs/value"
)

// newBridge creates the object the guest sees as id 6. syscall/js calls its
// _makeFuncWrapper for every js.FuncOf and reads _pendingEvent when resumed.
func (s *Session) newBridge() *value.Object {
	b := value.NewObject()
	_ = b.Set("_pendingEvent", value.Null{})
	_ = b.Set("exited", value.Bool(false))
	_ = b.Set("_makeFuncWrapper", value.NewFunction("_makeFuncWrapper", func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		var id value.Value = value.Undefined{}
		if len(args) > 0 {
			id = args[0]
		}
		return s.makeFuncWrapper(value.ToNumber(id)), nil
	}))
	return b
}

// makeFuncWrapper returns the host function standing in for guest callback
// id. Calling it publishes a pending event, resumes the guest and returns the
// result the guest stored on the event.
func (s *Session) makeFuncWrapper(id float64) *value.Function {
	return value.NewFunction("", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
		var result value.Value
		err := s.Post(ctx, func(ctx context.Context) error {
			r, err := s.callback(ctx, id, this, args)
			result = r
			return err
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

func (s *Session) callback(ctx context.Context, id float64, this value.Value, args []value.Value) (result value.Value, err error) {
	ctx, span := s.tracer.Start(ctx, "gojs.callback", trace.WithAttributes(attribute.Float64("callback", id)))
	defer func() { endSpan(span, err) }()

	if this == nil {
		this = value.Undefined{}
	}
	ev := value.NewObject()
	_ = ev.Set("id", value.Number(id))
	_ = ev.Set("this", this)
	_ = ev.Set("args", value.NewArray(args...))

	prev, _ := s.bridge.Get("_pendingEvent")
	_ = s.bridge.Set("_pendingEvent", ev)
	if err := s.resume(ctx); err != nil {
		return nil, err
	}
	if !value.IsNullish(prev) && !s.exited() {
		_ = s.bridge.Set("_pendingEvent", prev)
	}

	result, _ = ev.Get("result")
	return result, nil
}
