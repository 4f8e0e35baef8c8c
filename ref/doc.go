// Package ref implements the value table shared by the host and a GOOS=js guest.
//
// The guest never holds host values directly. It holds 8-byte slots that are
// either a literal double or a NaN-boxed reference to a table entry:
//
//	bits 63..32  0x7ff80000 | type tag  (object=1, string=2, symbol=3, function=4)
//	bits 31..0   table id
//
// The all-zero word is undefined, and id 0 is NaN itself. Ids 0 through 6 are
// seeded at construction (NaN, 0, null, true, false, the global object and the
// bridge object) and are never released.
//
// Every time a value is stored its reference count goes up; the guest calls
// finalizeRef when its js.Value is collected, which maps to Release. Ids freed
// this way are pushed on a pool and reused before the table grows.
//
// A Table is owned by a single bridge session and is not safe for concurrent use.
package ref
