// Package engine provides the low-level wazero runtime for GOOS=js guests.
//
// # Architecture
//
// The engine package provides three main types:
//
//	WazeroEngine   - Creates and manages a wazero runtime
//	WazeroModule   - A compiled guest, can create instances
//	WazeroInstance - An instantiated guest; implements bridge.Guest
//
// # Instantiation Flow
//
//  1. WazeroEngine.LoadModule() compiles the binary and checks its imports
//     and exports against the GOOS=js calling convention
//  2. WazeroModule.Instantiate() links the shared gojs host module once per
//     engine and instantiates the guest under a unique name
//  3. A bridge.Session drives the instance through run, resume and getsp
//
// # Guest Shape
//
// A GOOS=js guest imports only functions of the form (sp i32) -> () from the
// gojs module and exports:
//
//	run(argc i32, argv i32)
//	resume()
//	getsp() i32
//	mem     (memory)
//
// With Config.TestImports the _gotest module is linked as well, providing
// add(a i32, b i32) i32 for go:wasmimport tests.
//
// # Thread Safety
//
// WazeroEngine and WazeroModule are safe for concurrent use.
// WazeroInstance is NOT thread-safe; its session's event loop is its only caller.
//
// Most users should use the runtime package for a simpler API.
package engine
