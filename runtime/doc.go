// Package runtime provides the high-level API for running GOOS=js guests.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Load a guest built with GOOS=js GOARCH=wasm
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create an instance; options configure its bridge session
//	inst, err := mod.Instantiate(ctx, bridge.WithArgs("app", "-v"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	// Run main in the background, then call what it published
//	if err := inst.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := inst.Call(ctx, "add", 2, 3)
//	fmt.Println(result) // 5
//
// # Calling Guest Functions
//
// A guest publishes functions by assigning js.FuncOf values to the global
// object. Call posts to the instance's event loop, invokes the function and
// converts the result with value.ToGo. Globals lists what is callable.
//
// Guests carry no type information for such functions. Declarations loaded
// with LoadWithSignatures drive CallTyped:
//
//	mod, err := rt.LoadWithSignatures(ctx, wasmBytes, "add: func(a: s32, b: s32) -> s32")
//	...
//	sum, err := inst.CallTyped(ctx, "add", "2", "3") // int32(5)
//
// Supported kinds are s32, u32, s64, u64, f32, f64, bool, string and list<u8>.
//
// # Lifecycle
//
// Start runs the guest's main; Wait blocks until it exits and reports a
// non-zero code as *sys.ExitError. Exit terminates the guest from the host
// and Close exits it if needed before releasing the wasm instance.
package runtime
