package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-gojs/errors"
)

// TestModuleName is the import module used by the Go toolchain's wasm tests
// for go:wasmimport.
const TestModuleName = "_gotest"

func hasTestImport(name string) bool {
	return name == "add"
}

func instantiateTestModule(ctx context.Context, r wazero.Runtime) error {
	if r.Module(TestModuleName) != nil {
		return nil
	}
	_, err := r.NewHostModuleBuilder(TestModuleName).
		NewFunctionBuilder().
		WithGoFunction(api.GoFunc(func(_ context.Context, stack []uint64) {
			a, b := api.DecodeI32(stack[0]), api.DecodeI32(stack[1])
			stack[0] = api.EncodeI32(a + b)
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		WithParameterNames("a", "b").
		Export("add").
		Instantiate(ctx)
	if err != nil {
		return errors.Instantiation(err)
	}
	return nil
}
