package value

import (
	"errors"
	"fmt"
)

// Exception is a host value thrown across the boundary.
type Exception struct {
	Value Value
}

func (e *Exception) Error() string {
	return "uncaught exception: " + ToString(e.Value)
}

// Throw wraps v so it can be returned as an error from a host function.
func Throw(v Value) error {
	return &Exception{Value: v}
}

// NewError creates an error object with the given name and message.
func NewError(name, message string) *Object {
	o := &Object{isErr: true}
	o.put("name", String(name))
	o.put("message", String(message))
	return o
}

// IsError reports whether v was created as an error object.
func IsError(v Value) bool {
	o, ok := v.(*Object)
	return ok && o.isErr
}

// MarkError flags o as an error object.
func MarkError(o *Object) {
	o.isErr = true
}

// TypeError returns a thrown TypeError.
func TypeError(format string, args ...any) error {
	return Throw(NewError("TypeError", fmt.Sprintf(format, args...)))
}

// RangeError returns a thrown RangeError.
func RangeError(format string, args ...any) error {
	return Throw(NewError("RangeError", fmt.Sprintf(format, args...)))
}

// Thrown returns the value to hand to the guest for err. An *Exception
// yields its value; any other error becomes an Error object.
func Thrown(err error) Value {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc.Value
	}
	return NewError("Error", err.Error())
}

func errorString(o *Object) string {
	name, _ := o.Get("name")
	msg, _ := o.Get("message")
	n := "Error"
	if !IsUndefined(name) {
		n = ToString(name)
	}
	m := ""
	if !IsUndefined(msg) {
		m = ToString(msg)
	}
	switch {
	case n == "":
		return m
	case m == "":
		return n
	}
	return n + ": " + m
}
