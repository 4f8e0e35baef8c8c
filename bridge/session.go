package bridge

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	wasmgojs "github.com/wippyai/wasm-gojs"
	"github.com/wippyai/wasm-gojs/host"
	"github.com/wippyai/wasm-gojs/memory"
	"github.com/wippyai/wasm-gojs/ref"
	"github.com/wippyai/wasm-gojs/value"
)

const tracerName = "github.com/wippyai/wasm-gojs/bridge"

// DefaultMaxMissedWakeups bounds how often a fired timer re-resumes a guest
// that did not clear it.
const DefaultMaxMissedWakeups = 16

// Guest is the guest instance a session drives. engine.Instance implements it
// over a wazero module; tests substitute scripted guests.
type Guest interface {
	Memory() wasmgojs.Memory
	Run(ctx context.Context, argc, argv uint32) error
	Resume(ctx context.Context) error
	GetSP(ctx context.Context) (uint32, error)
}

// State is the lifecycle state of a session.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateSuspended
	StateExited
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateExited:
		return "exited"
	}
	return "unknown"
}

// Session is the bridge state of one guest instance.
//
// Fields below the loop marker are only touched on the goroutine executing
// Run; other goroutines reach the guest through Post.
type Session struct {
	id     string
	guest  Guest
	env    *host.Env
	view   *memory.View
	table  *ref.Table
	bridge *value.Object
	logger *zap.Logger
	tracer trace.Tracer

	args      []string
	environ   map[string]string
	maxMissed int
	onExit    func(code int32)
	tp        trace.TracerProvider

	// loop
	loopCtx   context.Context
	timers    map[int32]*time.Timer
	nextTimer int32
	depth     int
	missed    rate.Sometimes

	state    atomic.Int32
	exitCode atomic.Int32

	mu       sync.Mutex
	queue    []event
	closed   bool
	fatal    error
	wake     chan struct{}
	exitCh   chan struct{}
	exitOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithEnv sets the host environment. Defaults to host.New().
func WithEnv(env *host.Env) Option {
	return func(s *Session) {
		s.env = env
	}
}

// WithArgs sets the guest's argv. Defaults to ["js"].
func WithArgs(args ...string) Option {
	return func(s *Session) {
		s.args = args
	}
}

// WithEnviron sets the guest's environment variables.
func WithEnviron(env map[string]string) Option {
	return func(s *Session) {
		s.environ = env
	}
}

// WithMaxMissedWakeups bounds the resumes a single timer firing may cause
// when the guest keeps the timer registered. Zero disables the retry.
func WithMaxMissedWakeups(n int) Option {
	return func(s *Session) {
		s.maxMissed = n
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithTracerProvider sets the provider lifecycle spans are recorded with.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Session) {
		s.tp = tp
	}
}

// WithExitHandler registers fn to be called on the loop when the guest exits.
func WithExitHandler(fn func(code int32)) Option {
	return func(s *Session) {
		s.onExit = fn
	}
}

// NewSession creates a session for guest. The guest is not started until Run.
func NewSession(guest Guest, opts ...Option) *Session {
	s := &Session{
		id:        newID(),
		guest:     guest,
		maxMissed: DefaultMaxMissedWakeups,
		timers:    make(map[int32]*time.Timer),
		nextTimer: 1,
		missed:    rate.Sometimes{First: 3, Interval: time.Second},
		wake:      make(chan struct{}, 1),
		exitCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.env == nil {
		s.env = host.New()
	}
	if s.logger == nil {
		s.logger = Logger()
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	if s.tp == nil {
		s.tp = otel.GetTracerProvider()
	}
	s.tracer = s.tp.Tracer(tracerName)
	if len(s.args) == 0 {
		s.args = []string{"js"}
	}
	if s.maxMissed < 0 {
		s.maxMissed = 0
	}
	s.exitCode.Store(-1)

	s.view = memory.NewView(guest.Memory())
	s.bridge = s.newBridge()
	s.table = ref.NewTable(s.env.Global, s.bridge)
	return s
}

func newID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Env returns the host environment.
func (s *Session) Env() *host.Env {
	return s.env
}

// Global returns the global object the guest sees as js.Global().
func (s *Session) Global() *value.Object {
	return s.env.Global
}

// Table returns the value table. Only use it on the loop or after exit.
func (s *Session) Table() *ref.Table {
	return s.table
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// ExitCode returns the code the guest passed to wasmExit, or -1.
func (s *Session) ExitCode() int32 {
	return s.exitCode.Load()
}

// Err returns the error that terminated the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Done is closed once the session has exited or failed.
func (s *Session) Done() <-chan struct{} {
	return s.exitCh
}

// Wait blocks until the session exits and returns the exit code and the
// terminating error, if any.
func (s *Session) Wait(ctx context.Context) (int32, error) {
	select {
	case <-s.exitCh:
		return s.ExitCode(), s.Err()
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (s *Session) exited() bool {
	return s.State() == StateExited
}
