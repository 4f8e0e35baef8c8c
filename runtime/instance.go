package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/engine"
	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/value"
)

// Instance is an instantiated guest together with its bridge session.
type Instance struct {
	module         *Module
	wazeroInstance *engine.WazeroInstance
	session        *bridge.Session
	runErr         error
	done           chan struct{}
	startOnce      sync.Once
	started        atomic.Bool
}

// Session returns the instance's bridge session.
func (i *Instance) Session() *bridge.Session {
	return i.session
}

// Start runs the guest in the background. The guest's main runs first; once
// it returns the session loop serves timers and calls until the guest exits,
// ctx is done or the instance is closed.
func (i *Instance) Start(ctx context.Context) error {
	started := false
	i.startOnce.Do(func() {
		started = true
		i.started.Store(true)
		go func() {
			defer close(i.done)
			i.runErr = i.session.Run(ctx)
			if i.runErr != nil {
				Logger().Debug("guest terminated", zap.String("session", i.session.ID()), zap.Error(i.runErr))
			}
		}()
	})
	if !started {
		return errors.InvalidInput(errors.PhaseLifecycle, "instance already started")
	}
	return nil
}

// Run starts the guest and waits for it to exit.
func (i *Instance) Run(ctx context.Context) error {
	if err := i.Start(ctx); err != nil {
		return err
	}
	return i.Wait(ctx)
}

// Wait blocks until the guest exits. A non-zero exit code is reported as a
// *sys.ExitError; a session terminated by a fault returns that error.
func (i *Instance) Wait(ctx context.Context) error {
	if !i.started.Load() {
		return errors.NotInitialized(errors.PhaseLifecycle, "instance run")
	}
	select {
	case <-i.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if i.runErr != nil {
		return i.runErr
	}
	if code := i.session.ExitCode(); code != 0 {
		return sys.NewExitError(uint32(code))
	}
	return nil
}

// Done is closed once the guest has stopped running.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// ExitCode returns the guest's exit code, or -1 while it runs.
func (i *Instance) ExitCode() int32 {
	return i.session.ExitCode()
}

// Call calls a function the guest published on the global namespace, such as
// one registered with js.Global().Set("add", js.FuncOf(add)). Arguments are
// converted with value.FromGo and the result with value.ToGo.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	vals := make([]value.Value, len(args))
	for n, a := range args {
		v, err := value.FromGo(a)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseMarshal, errors.KindTypeMismatch, err, fmt.Sprintf("argument %d of %s", n, name))
		}
		vals[n] = v
	}
	res, err := i.call(ctx, name, vals)
	if err != nil {
		return nil, err
	}
	return value.ToGo(res), nil
}

// CallTyped calls name using its declared signature: args are coerced to the
// parameter kinds (strings are parsed) and the result is converted to the
// result kind's Go type.
func (i *Instance) CallTyped(ctx context.Context, name string, args ...any) (any, error) {
	sig, err := i.module.Signature(name)
	if err != nil {
		return nil, err
	}
	return i.CallSignature(ctx, sig, args...)
}

// CallSignature is CallTyped with an explicit signature.
func (i *Instance) CallSignature(ctx context.Context, sig *Signature, args ...any) (any, error) {
	vals, err := sig.Args(args)
	if err != nil {
		return nil, err
	}
	res, err := i.call(ctx, sig.Name, vals)
	if err != nil {
		return nil, err
	}
	return sig.Result(res)
}

func (i *Instance) call(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	if !i.started.Load() {
		return nil, errors.NotInitialized(errors.PhaseLifecycle, "instance run")
	}
	var result value.Value
	err := i.session.Post(ctx, func(ctx context.Context) error {
		fn, err := value.Get(i.session.Global(), name)
		if err != nil {
			return err
		}
		if _, ok := fn.(value.Callable); !ok {
			return errors.NotFound(errors.PhaseLifecycle, "function", name)
		}
		result, err = value.Call(ctx, fn, value.Undefined{}, args)
		return err
	})
	var exc *value.Exception
	if stderrors.As(err, &exc) {
		return nil, errors.New(errors.PhaseHost, errors.KindHostException).
			Path(name).
			Value(value.ToGo(exc.Value)).
			Detail("%s threw %s", name, value.ToString(exc.Value)).
			Build()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Globals returns the sorted names of callable globals other than the host
// environment's builtins: the functions the guest has published.
func (i *Instance) Globals(ctx context.Context) ([]string, error) {
	if !i.started.Load() {
		return nil, errors.NotInitialized(errors.PhaseLifecycle, "instance run")
	}
	var names []string
	err := i.session.Post(ctx, func(context.Context) error {
		global := i.session.Global()
		for _, key := range global.Keys() {
			if i.session.Env().IsBuiltin(key) {
				continue
			}
			v, err := global.Get(key)
			if err != nil {
				return err
			}
			if _, ok := v.(value.Callable); ok {
				names = append(names, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Exit terminates the guest with code.
func (i *Instance) Exit(ctx context.Context, code int32) error {
	if !i.started.Load() {
		return errors.NotInitialized(errors.PhaseLifecycle, "instance run")
	}
	return i.session.Exit(ctx, code)
}

// Close stops a running guest and closes the wasm instance.
func (i *Instance) Close(ctx context.Context) error {
	var err error
	if i.started.Load() {
		select {
		case <-i.done:
		default:
			err = multierr.Append(err, i.session.Exit(ctx, 0))
			select {
			case <-i.done:
			case <-ctx.Done():
				err = multierr.Append(err, ctx.Err())
			}
		}
	}
	return multierr.Append(err, i.wazeroInstance.Close(ctx))
}
