package host

import (
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/value"
)

// Env is the host environment a guest runs against: the global object and
// the capabilities behind it. Capabilities are fixed at construction.
type Env struct {
	Global *value.Object

	clock    Clock
	random   io.Reader
	stdout   io.Writer
	stderr   io.Writer
	location *time.Location
	logger   *zap.Logger
	t0       int64

	extra    map[string]value.Value
	builtins map[string]struct{}

	objectCtor     *value.Function
	arrayCtor      *value.Function
	uint8Ctor      *value.Function
	uint8ClampCtor *value.Function
	errorCtor      *value.Function
	dateCtor       *value.Function
}

// Option configures an Env.
type Option func(*Env)

// WithClock sets the clock behind nanotime, walltime, Date and performance.
func WithClock(c Clock) Option {
	return func(e *Env) {
		e.clock = c
	}
}

// WithRandom sets the randomness source behind getRandomData and
// crypto.getRandomValues.
func WithRandom(r io.Reader) Option {
	return func(e *Env) {
		e.random = r
	}
}

// WithStdout sets the writer for fd 1.
func WithStdout(w io.Writer) Option {
	return func(e *Env) {
		e.stdout = w
	}
}

// WithStderr sets the writer for fd 2.
func WithStderr(w io.Writer) Option {
	return func(e *Env) {
		e.stderr = w
	}
}

// WithLocation sets the time zone Date reports.
func WithLocation(loc *time.Location) Option {
	return func(e *Env) {
		e.location = loc
	}
}

// WithLogger sets the logger used for console output and default stdio.
func WithLogger(l *zap.Logger) Option {
	return func(e *Env) {
		e.logger = l
	}
}

// WithGlobal adds a value to the global object.
func WithGlobal(name string, v value.Value) Option {
	return func(e *Env) {
		if e.extra == nil {
			e.extra = make(map[string]value.Value)
		}
		e.extra[name] = v
	}
}

// New creates an environment. Unset capabilities default to the system
// clock, crypto/rand and line writers logging through the logger.
func New(opts ...Option) *Env {
	e := &Env{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = Logger()
	}
	if e.clock == nil {
		e.clock = NewSystemClock()
	}
	if e.random == nil {
		e.random = SecureRandom()
	}
	if e.location == nil {
		e.location = time.Local
	}
	if e.stdout == nil {
		e.stdout = NewLogWriter(e.logger, "stdout")
	}
	if e.stderr == nil {
		e.stderr = NewLogWriter(e.logger, "stderr")
	}
	e.t0 = e.clock.Nanotime()

	e.Global = value.NewObject()
	e.builtins = make(map[string]struct{})
	e.installBuiltins()
	e.define("fs", e.newFS())
	e.define("process", e.newProcess())
	e.define("console", e.newConsole())
	e.define("crypto", e.newCrypto())
	e.define("performance", e.newPerformance())

	names := make([]string, 0, len(e.extra))
	for name := range e.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_ = e.Global.Set(name, e.extra[name])
	}
	return e
}

func (e *Env) define(name string, v value.Value) {
	_ = e.Global.Set(name, v)
	e.builtins[name] = struct{}{}
}

// IsBuiltin reports whether name is one of the globals the environment
// installs itself.
func (e *Env) IsBuiltin(name string) bool {
	_, ok := e.builtins[name]
	return ok
}

// Clock returns the environment's clock.
func (e *Env) Clock() Clock {
	return e.clock
}

// Random returns the environment's randomness source.
func (e *Env) Random() io.Reader {
	return e.random
}

// Logger returns the environment's logger.
func (e *Env) Logger() *zap.Logger {
	return e.logger
}

// ErrorConstructor returns the global Error constructor.
func (e *Env) ErrorConstructor() *value.Function {
	return e.errorCtor
}

// WriteSync writes p to stderr for fd 2 and to stdout for any other fd.
func (e *Env) WriteSync(fd int64, p []byte) (int, error) {
	w := e.stdout
	if fd == 2 {
		w = e.stderr
	}
	if _, err := w.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush emits partial lines still buffered by the default writers.
func (e *Env) Flush() {
	for _, w := range []io.Writer{e.stdout, e.stderr} {
		if f, ok := w.(interface{ Flush() }); ok {
			f.Flush()
		}
	}
}

// Enosys returns the error object reported for unsupported operations.
func (e *Env) Enosys() *value.Object {
	err := value.NewError("Error", "not implemented")
	_ = err.Set("code", value.String(errors.ENOSYS))
	err.SetClass(e.errorCtor)
	return err
}
