package engine

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/internal/guesttest"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	if cfg.MemoryLimitPages != 0 {
		t.Errorf("expected default MemoryLimitPages 0, got %d", cfg.MemoryLimitPages)
	}
	if cfg.TestImports {
		t.Error("expected TestImports off by default")
	}
}

func TestNewWazeroEngineWithConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{TestImports: true}, "test imports"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := NewWazeroEngineWithConfig(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("NewWazeroEngineWithConfig failed: %v", err)
			}
			defer engine.Close(ctx)

			if engine.Runtime() == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func newEngine(t *testing.T, cfg *Config) *WazeroEngine {
	t.Helper()
	ctx := context.Background()
	engine, err := NewWazeroEngineWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("NewWazeroEngineWithConfig failed: %v", err)
	}
	t.Cleanup(func() { engine.Close(ctx) })
	return engine
}

func errorKind(t *testing.T, err error) errors.Kind {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	return e.Kind
}

func TestLoadModule_Guest(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	mod, err := engine.LoadModule(ctx, guesttest.Guest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	defer mod.Close(ctx)

	exports := mod.ExportNames()
	want := []string{"getsp", "resume", "run"}
	if len(exports) != len(want) {
		t.Fatalf("expected exports %v, got %v", want, exports)
	}
	for i := range want {
		if exports[i] != want[i] {
			t.Errorf("export %d: expected %q, got %q", i, want[i], exports[i])
		}
	}

	imports := mod.ImportNames()
	if len(imports) != 1 || imports[0] != "gojs#runtime.wasmExit" {
		t.Errorf("unexpected imports %v", imports)
	}
}

func TestLoadModule_UnknownImport(t *testing.T) {
	engine := newEngine(t, nil)

	_, err := engine.LoadModule(context.Background(), guesttest.Guest("syscall/js.valueClone"))
	if err == nil {
		t.Fatal("expected error for unknown import")
	}
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected MissingImportsError, got %T: %v", err, err)
	}
	if len(missing.Imports) != 1 {
		t.Fatalf("expected 1 missing import, got %d", len(missing.Imports))
	}
	if missing.Imports[0].Module != "gojs" || missing.Imports[0].Function != "syscall/js.valueClone" {
		t.Errorf("unexpected missing import %+v", missing.Imports[0])
	}
}

func TestLoadModule_MissingExport(t *testing.T) {
	engine := newEngine(t, nil)

	for _, name := range guesttest.Exports {
		t.Run(name, func(t *testing.T) {
			_, err := engine.LoadModule(context.Background(), guesttest.Without(name))
			if err == nil {
				t.Fatalf("expected error without %q", name)
			}
			if kind := errorKind(t, err); kind != errors.KindMissingExport {
				t.Errorf("expected %s, got %s", errors.KindMissingExport, kind)
			}
		})
	}
}

func TestLoadModule_NotGOOSJS(t *testing.T) {
	engine := newEngine(t, nil)

	_, err := engine.LoadModule(context.Background(), guesttest.Plain())
	if err == nil {
		t.Fatal("expected error for module without gojs imports")
	}
	if kind := errorKind(t, err); kind != errors.KindInvalidInput {
		t.Errorf("expected %s, got %s", errors.KindInvalidInput, kind)
	}
}

func TestLoadModule_InvalidBinary(t *testing.T) {
	engine := newEngine(t, nil)

	_, err := engine.LoadModule(context.Background(), []byte("not wasm"))
	if err == nil {
		t.Fatal("expected compile error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Phase != errors.PhaseLoad || e.Cause == nil {
		t.Errorf("unexpected error %+v", e)
	}
}

func TestLoadModule_TestImportsRequireConfig(t *testing.T) {
	ctx := context.Background()

	plain := newEngine(t, nil)
	_, err := plain.LoadModule(ctx, guesttest.AddGuest())
	if err == nil {
		t.Fatal("expected _gotest import to be rejected without TestImports")
	}
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected MissingImportsError, got %T: %v", err, err)
	}
	if len(missing.Imports) != 1 || missing.Imports[0].Module != TestModuleName || missing.Imports[0].Function != "add" {
		t.Errorf("unexpected missing imports %+v", missing.Imports)
	}

	engine := newEngine(t, &Config{TestImports: true})
	mod, err := engine.LoadModule(ctx, guesttest.AddGuest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	// run exits with _gotest.add(argc, AddOperand).
	s := bridge.NewSession(inst, bridge.WithArgs("prog", "x"))
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code := s.ExitCode(); code != 2+guesttest.AddOperand {
		t.Errorf("expected exit code %d, got %d", 2+guesttest.AddOperand, code)
	}
}

func TestInstantiate_SharesHostModule(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	mod, err := engine.LoadModule(ctx, guesttest.Guest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}

	a, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer a.Close(ctx)
	b, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("second Instantiate failed: %v", err)
	}
	defer b.Close(ctx)

	if a.Name() == b.Name() {
		t.Errorf("instances share name %q", a.Name())
	}
	if engine.Runtime().Module(bridge.ModuleName) == nil {
		t.Error("gojs host module not linked")
	}

	named, err := mod.InstantiateWithConfig(ctx, &InstanceConfig{Name: "named"})
	if err != nil {
		t.Fatalf("InstantiateWithConfig failed: %v", err)
	}
	defer named.Close(ctx)
	if named.Name() != "named" {
		t.Errorf("expected name %q, got %q", "named", named.Name())
	}
}

func TestInstance_MemoryAndSP(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, &Config{MemoryLimitPages: 1})

	mod, err := engine.LoadModule(ctx, guesttest.Guest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	if size := inst.Memory().Size(); size != 65536 {
		t.Errorf("expected 65536 bytes, got %d", size)
	}
	sp, err := inst.GetSP(ctx)
	if err != nil {
		t.Fatalf("GetSP failed: %v", err)
	}
	if sp != guesttest.SP {
		t.Errorf("expected sp %#x, got %#x", guesttest.SP, sp)
	}
}

func TestInstance_RunExitsThroughBridge(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	mod, err := engine.LoadModule(ctx, guesttest.Guest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	s := bridge.NewSession(inst, bridge.WithArgs("prog", "a", "b"))
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code := s.ExitCode(); code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
	if s.State() != bridge.StateExited {
		t.Errorf("expected exited, got %s", s.State())
	}
}

func TestInstance_SuspendAndResume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	engine := newEngine(t, nil)

	mod, err := engine.LoadModule(ctx, guesttest.Guest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	s := bridge.NewSession(inst)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if s.State() != bridge.StateSuspended {
		t.Errorf("expected suspended, got %s", s.State())
	}
	if err := s.Exit(ctx, 0); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := s.Resume(ctx); err == nil {
		t.Error("expected resume after exit to fail")
	}
}

func TestInstance_Close(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	mod, err := engine.LoadModule(ctx, guesttest.Guest())
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if inst.Memory() != nil {
		t.Error("memory should be released")
	}
}
