// Package bridge implements the "gojs" import module a GOOS=js GOARCH=wasm
// guest is linked against, together with the event loop that drives it.
//
// # Calling Convention
//
// Every import takes a single i32, the guest stack pointer. Arguments sit at
// fixed offsets above it and results are written back at fixed offsets:
//
//	syscall/js.valueGet     8:ref 16:string          -> 32:ref
//	syscall/js.valueCall    8:ref 16:string 32:refs  -> 56:ref 64:ok
//	runtime.walltime                                 -> 8:sec 16:nsec
//
// Values cross the boundary as NaN-boxed slots resolved through the session's
// value table (see package ref).
//
// # Sessions
//
// A Session owns one guest instance: its value table, timers, pending event
// and exit state. Sessions are bound to traps through the context passed to
// the guest's exports, so a single host module serves every guest in a
// wazero runtime:
//
//	mod, _ := bridge.Instantiate(ctx, r)
//	s := bridge.NewSession(guest, bridge.WithArgs("app", "-v"))
//	err := s.Run(ctx)
//
// Run calls the guest's run export and then loops on the calling goroutine,
// resuming the guest when a timer fires and executing closures handed to Post.
// Guest code and trap handlers therefore never run concurrently.
//
// # Errors
//
// Failures inside valueCall, valueInvoke and valueNew are caught and handed to
// the guest as thrown values. Any other trap failure terminates the session;
// the host function panics with the *errors.Error and wazero returns it from
// the guest call.
package bridge
