// Package wasmgojs hosts Go programs compiled with GOOS=js GOARCH=wasm on wazero.
//
// A GOOS=js guest expects a JavaScript environment: it reaches the outside world
// through syscall/js, which calls a fixed set of imports in the "gojs" module. This
// library implements those imports in Go, together with a small host object model
// that stands in for the JavaScript global namespace.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmgojs/           Root package with the core Memory interface
//	├── runtime/        High-level API for loading guests and calling their functions
//	├── engine/         wazero integration: compile, validate, link, instantiate
//	├── bridge/         The gojs import module: traps, scheduler, lifecycle
//	├── host/           Default host environment (fs, process, console, Date, ...)
//	├── ref/            Value table with reference counting and NaN-boxed slots
//	├── memory/         Typed access to guest linear memory
//	├── value/          Host value model and capability interfaces
//	├── config/         YAML configuration for the CLI
//	└── errors/         Structured error types for debugging
//
// # Quick Start
//
// Load a guest and call a function it registered on the global object:
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	if err := inst.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := inst.Call(ctx, "add", 2, 3)
//	fmt.Println(result) // 5
//
// # Execution Model
//
// A guest never runs concurrently with itself. Each instance owns an event loop
// goroutine; timers and calls from other goroutines are queued onto it and the
// guest is resumed only from there. Instance methods are safe for concurrent use
// because of this, but every call is serialized.
//
// # Memory Model
//
// The bridge never allocates guest memory. Strings and byte slices are copied into
// buffers the guest sized beforehand, and values that cross into the guest are
// represented by ids into a reference-counted table that the guest releases
// explicitly.
package wasmgojs
