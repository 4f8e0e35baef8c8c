package runtime

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/engine"
	"github.com/wippyai/wasm-gojs/errors"
)

// Runtime loads GOOS=js guests. One runtime shares a single wazero runtime
// and gojs host module between all of its instances.
type Runtime struct {
	engine *engine.WazeroEngine
	opts   options
}

type options struct {
	engine         engine.Config
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
}

// Option configures a Runtime.
type Option func(*options)

// WithMemoryLimitPages caps guest memory in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *options) {
		o.engine.MemoryLimitPages = pages
	}
}

// WithTestImports links the _gotest module for Go toolchain test binaries.
func WithTestImports() Option {
	return func(o *options) {
		o.engine.TestImports = true
	}
}

// WithLogger sets the logger sessions derive theirs from.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracerProvider sets the provider for session spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	eng, err := engine.NewWazeroEngineWithConfig(ctx, &o.engine)
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	return &Runtime{
		engine: eng,
		opts:   o,
	}, nil
}

// Close releases all runtime resources, closing any instance still open.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Engine returns the underlying engine.
func (r *Runtime) Engine() *engine.WazeroEngine {
	return r.engine
}

// Load compiles a GOOS=js guest.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Module, error) {
	return r.LoadWithSignatures(ctx, wasm, "")
}

// LoadWithSignatures compiles a GOOS=js guest and records declarations of
// the functions it publishes, e.g. "add: func(a: s32, b: s32) -> s32", for
// CallTyped. Guests carry no type metadata for such functions.
func (r *Runtime) LoadWithSignatures(ctx context.Context, wasm []byte, sigText string) (*Module, error) {
	wazeroModule, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, err
	}

	Logger().Debug("module loaded", zap.Strings("exports", wazeroModule.ExportNames()))
	return &Module{
		runtime:      r,
		wazeroModule: wazeroModule,
		sigText:      sigText,
	}, nil
}
