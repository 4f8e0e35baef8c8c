// Package host provides the default environment a GOOS=js guest expects to
// find on its global object.
//
// The Go runtime and standard library reach for a handful of JavaScript
// globals: Object, Array and Uint8Array from syscall/js, fs and process from
// the syscall package, Date from time, crypto from crypto/rand and console for
// diagnostics. Env builds those objects on top of injectable capabilities:
//
//	env := host.New(
//		host.WithClock(host.NewSystemClock()),
//		host.WithStdout(os.Stdout),
//		host.WithGlobal("greet", value.NewFunction("greet", greet)),
//	)
//
// The filesystem is minimal. Writes to fd 2 reach the stderr writer, writes
// to any other fd reach stdout, and every other operation fails with an error
// whose code is ENOSYS, which the guest's syscall package maps to syscall.ENOSYS.
package host
