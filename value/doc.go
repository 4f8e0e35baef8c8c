// Package value defines the host side object model a GOOS=js guest talks to.
//
// Primitive values are the comparable types Undefined, Null, Bool, Number and
// String. Everything else is a reference value: a pointer whose identity is what
// the bridge tracks in its value table. Object, Array, Function, Uint8Array and
// Symbol cover what the Go runtime and syscall/js need; any other pointer type
// can take part by implementing the capability interfaces (Getter, Setter,
// Callable, ...).
//
// Host failures cross the boundary as data. A host function throws by
// returning an *Exception, which the bridge hands to the guest as the thrown
// value:
//
//	fn := value.NewFunction("parse", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
//		if len(args) == 0 {
//			return nil, value.TypeError("parse requires an argument")
//		}
//		...
//	})
//
// Any other error returned from a host function is converted to an Error
// object carrying the error text as its message.
package value
