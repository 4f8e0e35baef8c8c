package runtime

import (
	"context"
	"sync"

	"github.com/wippyai/wasm-gojs/bridge"
	"github.com/wippyai/wasm-gojs/engine"
	"github.com/wippyai/wasm-gojs/errors"
)

type Module struct {
	sigsErr      error
	runtime      *Runtime
	wazeroModule *engine.WazeroModule
	sigs         map[string]*Signature
	sigText      string
	sigsOnce     sync.Once
}

// Instantiate creates an instance and its bridge session. opts configure the
// session: host environment, argv, environment variables and so on.
func (m *Module) Instantiate(ctx context.Context, opts ...bridge.Option) (*Instance, error) {
	wazeroInstance, err := m.wazeroModule.Instantiate(ctx)
	if err != nil {
		return nil, err
	}

	var defaults []bridge.Option
	if m.runtime.opts.logger != nil {
		defaults = append(defaults, bridge.WithLogger(m.runtime.opts.logger))
	}
	if m.runtime.opts.tracerProvider != nil {
		defaults = append(defaults, bridge.WithTracerProvider(m.runtime.opts.tracerProvider))
	}

	return &Instance{
		module:         m,
		wazeroInstance: wazeroInstance,
		session:        bridge.NewSession(wazeroInstance, append(defaults, opts...)...),
		done:           make(chan struct{}),
	}, nil
}

type Export struct {
	Name string
}

func (m *Module) Exports() []Export {
	names := m.wazeroModule.ExportNames()
	if names == nil {
		return nil
	}
	exports := make([]Export, len(names))
	for i, name := range names {
		exports[i] = Export{Name: name}
	}
	return exports
}

// Imports returns the "module#function" names the guest imports.
func (m *Module) Imports() []string {
	return m.wazeroModule.ImportNames()
}

// Signature returns the declared signature of a guest function.
// Parses the signature text lazily on first call.
func (m *Module) Signature(name string) (*Signature, error) {
	m.sigsOnce.Do(func() {
		if m.sigText == "" {
			return
		}
		m.sigs, m.sigsErr = ParseSignatures(m.sigText)
	})

	if m.sigsErr != nil {
		return nil, m.sigsErr
	}

	sig, ok := m.sigs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLifecycle, "signature", name)
	}
	return sig, nil
}

// Close releases the compiled module. Instances stay usable.
func (m *Module) Close(ctx context.Context) error {
	return m.wazeroModule.Close(ctx)
}
