package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	wasmgojs "github.com/wippyai/wasm-gojs"
	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/memory"
)

// Guest export names.
const (
	ExportRun    = "run"
	ExportResume = "resume"
	ExportGetSP  = "getsp"
	ExportMemory = "mem"
)

// WazeroEngine compiles and instantiates GOOS=js guests on one wazero runtime.
type WazeroEngine struct {
	runtime      wazero.Runtime
	cfg          Config
	hostInitMu   sync.Mutex
	hostInitDone atomic.Bool
	seq          atomic.Uint64
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// TestImports links the _gotest module Go's own wasm tests import.
	TestImports bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	e := &WazeroEngine{}
	if cfg != nil {
		e.cfg = *cfg
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return e, nil
}

// Runtime returns the underlying wazero runtime.
func (e *WazeroEngine) Runtime() wazero.Runtime {
	return e.runtime
}

// LoadModule compiles wasmBytes and checks it has the shape of a GOOS=js
// guest: every import resolves against the host modules and the run,
// resume, getsp and mem exports are present with the expected types.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	if err := e.validate(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	Logger().Debug("module compiled",
		zap.String("name", compiled.Name()),
		zap.Int("imports", len(compiled.ImportedFunctions())))
	return &WazeroModule{engine: e, compiled: compiled}, nil
}

func (e *WazeroEngine) validate(compiled wazero.CompiledModule) error {
	var missing []string
	usesBridge := false
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		switch {
		case mod == bridge.ModuleName && bridge.HasImport(name):
			usesBridge = true
		case mod == TestModuleName && e.cfg.TestImports && hasTestImport(name):
		default:
			missing = append(missing, mod+"#"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.NewMissingImportsError(missing)
	}
	if !usesBridge {
		return errors.InvalidInput(errors.PhaseLoad, "module does not import "+bridge.ModuleName+"; not a GOOS=js guest")
	}

	exports := compiled.ExportedFunctions()
	for _, want := range []struct {
		name    string
		params  []api.ValueType
		results []api.ValueType
	}{
		{ExportRun, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil},
		{ExportResume, nil, nil},
		{ExportGetSP, nil, []api.ValueType{api.ValueTypeI32}},
	} {
		def, ok := exports[want.name]
		if !ok {
			return errors.MissingExport(want.name)
		}
		if !sameTypes(def.ParamTypes(), want.params) || !sameTypes(def.ResultTypes(), want.results) {
			return errors.TypeMismatch(errors.PhaseLoad, []string{want.name},
				signature(want.params, want.results), signature(def.ParamTypes(), def.ResultTypes()))
		}
	}
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return errors.MissingExport(ExportMemory)
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func signature(params, results []api.ValueType) string {
	name := func(ts []api.ValueType) string {
		s := "("
		for i, t := range ts {
			if i > 0 {
				s += " "
			}
			s += api.ValueTypeName(t)
		}
		return s + ")"
	}
	return name(params) + " -> " + name(results)
}

// Close closes the runtime and every module instantiated on it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// InitHost instantiates the gojs host module, and the _gotest module when
// enabled, once for this engine's runtime. Safe for concurrent calls.
func (e *WazeroEngine) InitHost(ctx context.Context) error {
	if e.hostInitDone.Load() {
		return nil
	}

	e.hostInitMu.Lock()
	defer e.hostInitMu.Unlock()

	if e.hostInitDone.Load() {
		return nil
	}

	if _, err := bridge.Instantiate(ctx, e.runtime); err != nil {
		return err
	}
	if e.cfg.TestImports {
		if err := instantiateTestModule(ctx, e.runtime); err != nil {
			return err
		}
	}
	e.hostInitDone.Store(true)
	return nil
}

// WazeroModule is a compiled guest.
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	// Name of the instance; a unique name is generated when empty.
	Name string
}

// Instantiate creates an instance with a generated name.
func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	return m.InstantiateWithConfig(ctx, nil)
}

// InstantiateWithConfig links the host modules and instantiates the guest.
// Start functions are disabled: the guest's entry point is run, invoked by
// the bridge session after the command line is in place.
func (m *WazeroModule) InstantiateWithConfig(ctx context.Context, cfg *InstanceConfig) (*WazeroInstance, error) {
	if err := m.engine.InitHost(ctx); err != nil {
		return nil, err
	}

	name := ""
	if cfg != nil {
		name = cfg.Name
	}
	if name == "" {
		name = fmt.Sprintf("gojs-guest-%d", m.engine.seq.Add(1))
	}

	modConfig := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()

	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &WazeroInstance{
		module:   m,
		instance: instance,
		run:      instance.ExportedFunction(ExportRun),
		resume:   instance.ExportedFunction(ExportResume),
		getsp:    instance.ExportedFunction(ExportGetSP),
	}
	if mem := instance.ExportedMemory(ExportMemory); mem != nil {
		inst.memory = memory.Wrap(mem)
	}
	Logger().Debug("module instantiated", zap.String("name", name))
	return inst, nil
}

// ExportNames returns the sorted names of the guest's exported functions.
func (m *WazeroModule) ExportNames() []string {
	exports := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImportNames returns the sorted "module#function" names the guest imports.
func (m *WazeroModule) ImportNames() []string {
	imports := m.compiled.ImportedFunctions()
	names := make([]string, 0, len(imports))
	for _, def := range imports {
		mod, name, _ := def.Import()
		names = append(names, mod+"#"+name)
	}
	sort.Strings(names)
	return names
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is an instantiated guest. It implements bridge.Guest.
type WazeroInstance struct {
	module   *WazeroModule
	instance api.Module
	memory   wasmgojs.Memory
	run      api.Function
	resume   api.Function
	getsp    api.Function
}

var _ bridge.Guest = (*WazeroInstance)(nil)

// Name returns the instance's module name.
func (i *WazeroInstance) Name() string {
	return i.instance.Name()
}

// Memory returns the guest's linear memory.
func (i *WazeroInstance) Memory() wasmgojs.Memory {
	return i.memory
}

// Run calls the guest's run export.
func (i *WazeroInstance) Run(ctx context.Context, argc, argv uint32) error {
	_, err := i.run.Call(ctx, api.EncodeU32(argc), api.EncodeU32(argv))
	return err
}

// Resume calls the guest's resume export.
func (i *WazeroInstance) Resume(ctx context.Context) error {
	_, err := i.resume.Call(ctx)
	return err
}

// GetSP returns the guest's current stack pointer.
func (i *WazeroInstance) GetSP(ctx context.Context) (uint32, error) {
	res, err := i.getsp.Call(ctx)
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(res[0]), nil
}

// Close closes the instance.
func (i *WazeroInstance) Close(ctx context.Context) error {
	var err error
	if i.instance != nil {
		err = multierr.Append(err, i.instance.Close(ctx))
		i.instance = nil
	}
	i.memory = nil
	i.run, i.resume, i.getsp = nil, nil, nil
	return err
}
