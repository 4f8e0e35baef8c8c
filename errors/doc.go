// Package errors provides structured error types for the wasm-gojs bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the failing trap name, a field path and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindProtocol).
//		Trap("syscall/js.valueGet").
//		Detail("property read on %s", "undefined").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownRef(42)
//	err := errors.OutOfBounds(errors.PhaseMarshal, 4096, 16, 1024)
//
// The bridge distinguishes four classes of failure. Unsupported operations and
// host exceptions are recoverable and handed to the guest as data. Protocol
// violations, use after exit and resource limits are fatal for the session;
// Error.Fatal reports which class an error belongs to.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
