package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/config"
	"github.com/wippyai/wasm-gojs/engine"
	"github.com/wippyai/wasm-gojs/host"
	"github.com/wippyai/wasm-gojs/runtime"
)

type options struct {
	wasmFile    string
	configFile  string
	argv        string
	env         string
	call        string
	args        string
	sig         string
	list        bool
	trace       bool
	interactive bool
}

func main() {
	var o options
	flag.StringVar(&o.wasmFile, "wasm", "", "Path to a GOOS=js wasm file")
	flag.StringVar(&o.configFile, "config", "", "YAML config file")
	flag.StringVar(&o.argv, "argv", "", "Guest command line (comma-separated, argv[0] first)")
	flag.StringVar(&o.env, "env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
	flag.StringVar(&o.call, "call", "", "Function the guest publishes to call after main returns")
	flag.StringVar(&o.args, "args", "", "Arguments for -call (comma-separated)")
	flag.StringVar(&o.sig, "sig", "", "Signatures of published functions (name: func(a: s32) -> s32; ...)")
	flag.BoolVar(&o.list, "list", false, "List imports and exports and exit")
	flag.BoolVar(&o.trace, "trace", false, "Print lifecycle spans to stdout")
	flag.BoolVar(&o.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if o.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-argv prog,arg] [-env K=V,...] [-config gojs.yaml]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -call add -args 2,3 [-sig 'add: func(a: s32, b: s32) -> s32']")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	code, err := run(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// loadConfig reads the config file, if any, and applies command line
// overrides.
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Defaults()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return nil, err
		}
	}
	if o.argv != "" {
		cfg.Argv = strings.Split(o.argv, ",")
	}
	if o.env != "" {
		for _, kv := range strings.Split(o.env, ",") {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				cfg.Env[parts[0]] = parts[1]
			}
		}
	}
	if o.sig != "" {
		cfg.Signatures = append(cfg.Signatures, strings.Split(o.sig, ";")...)
	}
	if o.trace {
		cfg.Trace = true
	}
	return cfg, config.Validate(cfg)
}

// newLogger builds a console logger for terminals and a JSON logger
// otherwise.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	var zcfg zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run(o options) (int, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return 1, err
	}

	logger, err := newLogger(cfg.Level())
	if err != nil {
		return 1, fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	bridge.SetLogger(logger.Named("bridge"))
	engine.SetLogger(logger.Named("engine"))
	runtime.SetLogger(logger.Named("runtime"))
	host.SetLogger(logger.Named("host"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tp, shutdown, err := setupTracing(cfg.Trace)
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("trace shutdown failed", zap.Error(err))
		}
	}()

	data, err := os.ReadFile(o.wasmFile)
	if err != nil {
		return 1, fmt.Errorf("read file: %w", err)
	}

	opts := append(cfg.RuntimeOptions(), runtime.WithLogger(logger.Named("session")), runtime.WithTracerProvider(tp))
	rt, err := runtime.New(ctx, opts...)
	if err != nil {
		return 1, fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(context.Background())

	mod, err := rt.LoadWithSignatures(ctx, data, cfg.SignatureText())
	if err != nil {
		return 1, fmt.Errorf("load: %w", err)
	}

	if o.list {
		fmt.Printf("Module: %s\n", o.wasmFile)
		fmt.Printf("\nImports:\n")
		for _, name := range mod.Imports() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Printf("\nExports:\n")
		for _, e := range mod.Exports() {
			fmt.Printf("  %s\n", e.Name)
		}
		return 0, nil
	}

	env := host.New(
		host.WithStdout(os.Stdout),
		host.WithStderr(os.Stderr),
		host.WithLogger(logger.Named("host")),
	)
	inst, err := mod.Instantiate(ctx, append(cfg.SessionOptions(), bridge.WithEnv(env))...)
	if err != nil {
		return 1, fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(context.Background())

	if err := inst.Start(ctx); err != nil {
		return 1, err
	}

	if o.interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return 1, fmt.Errorf("interactive mode needs a terminal")
		}
		return 0, runInteractive(ctx, o.wasmFile, mod, inst)
	}

	if o.call != "" {
		result, err := callFunction(ctx, mod, inst, o.call, splitArgs(o.args))
		if err != nil {
			return 1, fmt.Errorf("call %s: %w", o.call, err)
		}
		fmt.Printf("%v\n", result)
		if err := inst.Exit(ctx, 0); err != nil {
			return 1, err
		}
	}

	return exitCode(inst.Wait(ctx))
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// callFunction calls name with typed arguments when a signature is declared
// and with the raw strings otherwise.
func callFunction(ctx context.Context, mod *runtime.Module, inst *runtime.Instance, name string, args []string) (any, error) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}
	if sig, err := mod.Signature(name); err == nil {
		return inst.CallSignature(ctx, sig, vals...)
	}
	return inst.Call(ctx, name, vals...)
}

func exitCode(err error) (int, error) {
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		return int(exit.ExitCode()), nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}
