// Package config loads the YAML configuration of the run command.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/runtime"
)

// Config describes how a guest is run.
type Config struct {
	// Argv is the guest's command line; argv[0] defaults to "js".
	Argv []string `yaml:"argv"`
	// Env is the guest's environment.
	Env map[string]string `yaml:"env" validate:"dive,keys,required,excludesall==,endkeys"`
	// MemoryLimitPages caps guest memory in 64KiB pages; 0 keeps wazero's limit.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" validate:"lte=65536"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" validate:"required,oneof=debug info warn error"`
	// MaxMissedWakeups bounds resumptions of a timer the guest never clears.
	MaxMissedWakeups int `yaml:"max_missed_wakeups" validate:"gte=1,lte=1024"`
	// Signatures declare functions the guest publishes, e.g.
	// "add: func(a: s32, b: s32) -> s32".
	Signatures []string `yaml:"signatures" validate:"dive,required"`
	// Trace exports lifecycle spans to stdout.
	Trace bool `yaml:"trace"`
	// TestImports links the _gotest module for Go toolchain test binaries.
	TestImports bool `yaml:"test_imports"`
}

var validate = validator.New()

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Env:              map[string]string{},
		LogLevel:         "info",
		MaxMissedWakeups: bridge.DefaultMaxMissedWakeups,
	}
}

// Load reads a YAML config file over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config "+path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse config")
	}

	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides lets GOJS_LOG_LEVEL and GOJS_MEMORY_LIMIT_PAGES override
// the file.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOJS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GOJS_MEMORY_LIMIT_PAGES"); v != "" {
		if pages, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.MemoryLimitPages = uint32(pages)
		}
	}
}

// Validate checks field constraints and that every signature parses.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Detail("invalid config: %s", strings.Join(fields, "; ")).
				Cause(err).
				Build()
		}
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "validate config")
	}
	if len(cfg.Signatures) > 0 {
		if _, err := runtime.ParseSignatures(cfg.SignatureText()); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "signatures")
		}
	}
	return nil
}

// SignatureText joins the declared signatures for runtime.LoadWithSignatures.
func (c *Config) SignatureText() string {
	return strings.Join(c.Signatures, "\n")
}

// Level returns the zap level for LogLevel.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// RuntimeOptions returns the runtime options the config implies.
func (c *Config) RuntimeOptions() []runtime.Option {
	var opts []runtime.Option
	if c.MemoryLimitPages > 0 {
		opts = append(opts, runtime.WithMemoryLimitPages(c.MemoryLimitPages))
	}
	if c.TestImports {
		opts = append(opts, runtime.WithTestImports())
	}
	return opts
}

// SessionOptions returns the bridge session options the config implies.
func (c *Config) SessionOptions() []bridge.Option {
	opts := []bridge.Option{
		bridge.WithEnviron(c.Env),
		bridge.WithMaxMissedWakeups(c.MaxMissedWakeups),
	}
	if len(c.Argv) > 0 {
		opts = append(opts, bridge.WithArgs(c.Argv...))
	}
	return opts
}
