package bridge

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/errors"
)

// ModuleName is the import module GOOS=js guests are linked against.
const ModuleName = "gojs"

type trap func(s *Session, ctx context.Context, sp uint32) error

var traps = map[string]trap{
	"syscall/js.valueGet":           (*Session).valueGet,
	"syscall/js.valueSet":           (*Session).valueSet,
	"syscall/js.valueDelete":        (*Session).valueDelete,
	"syscall/js.valueIndex":         (*Session).valueIndex,
	"syscall/js.valueSetIndex":      (*Session).valueSetIndex,
	"syscall/js.valueCall":          (*Session).valueCall,
	"syscall/js.valueInvoke":        (*Session).valueInvoke,
	"syscall/js.valueNew":           (*Session).valueNew,
	"syscall/js.valueLength":        (*Session).valueLength,
	"syscall/js.valuePrepareString": (*Session).valuePrepareString,
	"syscall/js.valueLoadString":    (*Session).valueLoadString,
	"syscall/js.valueInstanceOf":    (*Session).valueInstanceOf,
	"syscall/js.copyBytesToGo":      (*Session).copyBytesToGo,
	"syscall/js.copyBytesToJS":      (*Session).copyBytesToJS,
	"syscall/js.finalizeRef":        (*Session).finalizeRef,
	"syscall/js.stringVal":          (*Session).stringVal,
	"runtime.wasmExit":              (*Session).wasmExit,
	"runtime.wasmWrite":             (*Session).wasmWrite,
	"runtime.resetMemoryDataView":   (*Session).resetMemoryDataView,
	"runtime.nanotime1":             (*Session).nanotime1,
	"runtime.walltime":              (*Session).walltime,
	"runtime.scheduleTimeoutEvent":  (*Session).scheduleTimeoutEvent,
	"runtime.clearTimeoutEvent":     (*Session).clearTimeoutEvent,
	"runtime.getRandomData":         (*Session).getRandomData,
	"debug":                         (*Session).debug,
}

// Imports returns the sorted names of the functions the module exports.
func Imports() []string {
	names := make([]string, 0, len(traps))
	for name := range traps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasImport reports whether name is provided by the module.
func HasImport(name string) bool {
	_, ok := traps[name]
	return ok
}

// Invoke runs trap name with stack pointer sp. A returned error has
// terminated the session. Traps reaching an exited session are ignored.
func (s *Session) Invoke(ctx context.Context, name string, sp uint32) error {
	t, ok := traps[name]
	if !ok {
		err := errors.NotFound(errors.PhaseDispatch, "trap", name)
		s.fail(err)
		return err
	}
	if s.exited() {
		if fatal := s.Err(); fatal != nil {
			return fatal
		}
		s.logger.Debug("trap after exit", zap.String("trap", name))
		return nil
	}
	if err := t(s, ctx, sp); err != nil {
		e := trapError(name, err)
		s.fail(e)
		return s.Err()
	}
	return nil
}

func trapError(name string, err error) *errors.Error {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return errors.New(errors.PhaseDispatch, errors.KindProtocol).
			Trap(name).
			Detail("trap failed").
			Cause(err).
			Build()
	}
	if e.Trap != "" {
		return e
	}
	c := *e
	c.Trap = name
	return &c
}

func hostFunc(name string) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		s := FromContext(ctx)
		if s == nil {
			panic(errors.NotInitialized(errors.PhaseDispatch, "gojs session for "+name))
		}
		if err := s.Invoke(ctx, name, api.DecodeU32(stack[0])); err != nil {
			panic(err)
		}
	}
}

// NewHostModule returns a builder for the gojs module on r. Callers may add
// functions before instantiating it.
func NewHostModule(r wazero.Runtime) wazero.HostModuleBuilder {
	builder := r.NewHostModuleBuilder(ModuleName)
	for _, name := range Imports() {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(hostFunc(name), []api.ValueType{api.ValueTypeI32}, nil).
			WithParameterNames("sp").
			Export(name)
	}
	return builder
}

// Instantiate instantiates the gojs module into r unless it is already
// present. Sessions are resolved per call from the context, so one module
// serves every guest in the runtime.
func Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if mod := r.Module(ModuleName); mod != nil {
		return mod, nil
	}
	mod, err := NewHostModule(r).Instantiate(ctx)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	Logger().Debug("instantiated host module", zap.String("module", ModuleName), zap.Int("functions", len(traps)))
	return mod, nil
}
