package value

import (
	"reflect"
	"unicode/utf16"
)

// Value is a host value. It is one of Undefined, Null, Bool, Number, String or a
// reference value. A nil Value is treated as Undefined.
type Value any

// Undefined is the absent value.
type Undefined struct{}

// Null is the null value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Number is a double precision number.
type Number float64

// String is an immutable text value.
type String string

// Symbol is a unique value identified by pointer.
type Symbol struct {
	Description string
}

// NewSymbol creates a new symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{Description: description}
}

// IsUndefined reports whether v is undefined. A nil Value counts as undefined.
func IsUndefined(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Undefined)
	return ok
}

// IsNull reports whether v is null.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// IsNullish reports whether v is undefined or null.
func IsNullish(v Value) bool {
	return IsUndefined(v) || IsNull(v)
}

// Comparable reports whether v can be tracked by identity. Reference values
// must be pointers or other comparable types.
func Comparable(v Value) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// TypeOf returns the name of v's type as the typeof operator reports it.
func TypeOf(v Value) string {
	switch v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "object"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case *Symbol:
		return "symbol"
	case Callable:
		return "function"
	}
	return "object"
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func utf16At(s string, i int64) (String, bool) {
	units := utf16.Encode([]rune(s))
	if i < 0 || i >= int64(len(units)) {
		return "", false
	}
	return String(utf16.Decode(units[i : i+1])), true
}
