package value

import (
	"context"
	"strconv"
)

// Object is a plain property bag.
type Object struct {
	props map[string]Value
	keys  []string
	class *Function
	isErr bool
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{}
}

// NewObjectOf creates an object populated from props.
func NewObjectOf(props map[string]Value) *Object {
	o := &Object{}
	for k, v := range props {
		o.put(k, v)
	}
	return o
}

// Get returns the named property, or Undefined if it is not set.
func (o *Object) Get(key string) (Value, error) {
	if v, ok := o.props[key]; ok {
		return v, nil
	}
	return Undefined{}, nil
}

// Set assigns the named property.
func (o *Object) Set(key string, v Value) error {
	o.put(key, v)
	return nil
}

// Delete removes the named property.
func (o *Object) Delete(key string) error {
	if _, ok := o.props[key]; !ok {
		return nil
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Has reports whether the property is set.
func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Keys returns property names in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Class returns the constructor that created the object.
func (o *Object) Class() *Function {
	return o.class
}

// SetClass records the constructor that created the object.
func (o *Object) SetClass(c *Function) {
	o.class = c
}

func (o *Object) put(key string, v Value) {
	if v == nil {
		v = Undefined{}
	}
	if o.props == nil {
		o.props = make(map[string]Value)
	}
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
}

// maxDenseIndex bounds how far SetIndex grows Elems; larger indexes are kept
// as named properties.
const maxDenseIndex = 1 << 24

// Array is an ordered list of values.
type Array struct {
	Object
	Elems []Value
}

// NewArray creates an array holding elems.
func NewArray(elems ...Value) *Array {
	return &Array{Elems: elems}
}

// Get handles length and numeric keys before named properties.
func (a *Array) Get(key string) (Value, error) {
	if key == "length" {
		return Number(len(a.Elems)), nil
	}
	if i, err := strconv.ParseInt(key, 10, 64); err == nil {
		return a.Index(i)
	}
	return a.Object.Get(key)
}

// Set handles numeric keys before named properties.
func (a *Array) Set(key string, v Value) error {
	if key == "length" {
		n := ToNumber(v)
		if n < 0 || n >= maxDenseIndex || n != float64(int64(n)) {
			return RangeError("Invalid array length")
		}
		a.resize(int(n))
		return nil
	}
	if i, err := strconv.ParseInt(key, 10, 64); err == nil {
		return a.SetIndex(i, v)
	}
	return a.Object.Set(key, v)
}

// Index returns the element at i, or Undefined when out of range.
func (a *Array) Index(i int64) (Value, error) {
	if i < 0 || i >= int64(len(a.Elems)) {
		return a.Object.Get(strconv.FormatInt(i, 10))
	}
	v := a.Elems[i]
	if v == nil {
		return Undefined{}, nil
	}
	return v, nil
}

// SetIndex assigns the element at i, growing the array as needed.
func (a *Array) SetIndex(i int64, v Value) error {
	if i < 0 || i >= maxDenseIndex {
		return a.Object.Set(strconv.FormatInt(i, 10), v)
	}
	if i >= int64(len(a.Elems)) {
		a.resize(int(i) + 1)
	}
	a.Elems[i] = v
	return nil
}

// Length returns the number of elements.
func (a *Array) Length() int {
	return len(a.Elems)
}

func (a *Array) resize(n int) {
	if n <= len(a.Elems) {
		a.Elems = a.Elems[:n]
		return
	}
	for len(a.Elems) < n {
		a.Elems = append(a.Elems, Undefined{})
	}
}

// Func is the Go implementation of a host function.
type Func func(ctx context.Context, this Value, args []Value) (Value, error)

// ConstructFunc builds a new instance from constructor arguments.
type ConstructFunc func(ctx context.Context, args []Value) (Value, error)

// Function is a callable object. A function with a ConstructFunc can also be
// used with new.
type Function struct {
	Object
	Name        string
	fn          Func
	construct   ConstructFunc
	parent      *Function
	hasInstance func(Value) bool
}

// NewFunction creates a plain host function.
func NewFunction(name string, fn Func) *Function {
	return &Function{Name: name, fn: fn}
}

// NewClass creates a constructor. Instances returned by construct that
// implement SetClass are stamped with the new constructor; parent is used by
// InstanceOf and may be nil.
func NewClass(name string, parent *Function, construct ConstructFunc) *Function {
	return &Function{Name: name, parent: parent, construct: construct}
}

// WithCall makes a constructor callable without new.
func (f *Function) WithCall(fn Func) *Function {
	f.fn = fn
	return f
}

// WithHasInstance overrides how InstanceOf matches values against f.
func (f *Function) WithHasInstance(match func(Value) bool) *Function {
	f.hasInstance = match
	return f
}

// Parent returns the constructor f extends.
func (f *Function) Parent() *Function {
	return f.parent
}

// Get exposes name alongside the function's own properties.
func (f *Function) Get(key string) (Value, error) {
	if key == "name" && !f.Has("name") {
		return String(f.Name), nil
	}
	return f.Object.Get(key)
}

// Call invokes the function.
func (f *Function) Call(ctx context.Context, this Value, args []Value) (Value, error) {
	if f.fn == nil {
		return nil, TypeError("Class constructor %s cannot be invoked without 'new'", f.Name)
	}
	v, err := f.fn(ctx, this, args)
	if v == nil {
		v = Undefined{}
	}
	return v, err
}

// Construct creates a new instance.
func (f *Function) Construct(ctx context.Context, args []Value) (Value, error) {
	if f.construct == nil {
		return nil, TypeError("%s is not a constructor", f.Name)
	}
	v, err := f.construct(ctx, args)
	if err != nil {
		return nil, err
	}
	if inst, ok := v.(interface{ SetClass(*Function) }); ok {
		if c, ok := v.(Instance); !ok || c.Class() == nil {
			inst.SetClass(f)
		}
	}
	return v, nil
}

// Uint8Array is a fixed length byte array. A clamped array saturates
// assigned values to 0..255 instead of wrapping them.
type Uint8Array struct {
	Object
	data    []byte
	clamped bool
}

// NewUint8Array creates a zeroed byte array of length n.
func NewUint8Array(n int) *Uint8Array {
	return &Uint8Array{data: make([]byte, n)}
}

// NewUint8ClampedArray creates a zeroed clamped byte array of length n.
func NewUint8ClampedArray(n int) *Uint8Array {
	return &Uint8Array{data: make([]byte, n), clamped: true}
}

// WrapBytes creates a byte array sharing b.
func WrapBytes(b []byte) *Uint8Array {
	return &Uint8Array{data: b}
}

// Bytes returns the backing bytes.
func (u *Uint8Array) Bytes() []byte {
	return u.data
}

// Clamped reports whether the array is a Uint8ClampedArray.
func (u *Uint8Array) Clamped() bool {
	return u.clamped
}

// Length returns the number of bytes.
func (u *Uint8Array) Length() int {
	return len(u.data)
}

// Get handles length, byteLength and numeric keys before named properties.
func (u *Uint8Array) Get(key string) (Value, error) {
	switch key {
	case "length", "byteLength":
		return Number(len(u.data)), nil
	}
	if i, err := strconv.ParseInt(key, 10, 64); err == nil {
		return u.Index(i)
	}
	return u.Object.Get(key)
}

// Set handles numeric keys before named properties.
func (u *Uint8Array) Set(key string, v Value) error {
	if i, err := strconv.ParseInt(key, 10, 64); err == nil {
		return u.SetIndex(i, v)
	}
	return u.Object.Set(key, v)
}

// Index returns the byte at i as a Number, or Undefined when out of range.
func (u *Uint8Array) Index(i int64) (Value, error) {
	if i < 0 || i >= int64(len(u.data)) {
		return Undefined{}, nil
	}
	return Number(u.data[i]), nil
}

// SetIndex stores v converted to a byte. Out of range writes are ignored.
func (u *Uint8Array) SetIndex(i int64, v Value) error {
	if i < 0 || i >= int64(len(u.data)) {
		return nil
	}
	n := ToNumber(v)
	if u.clamped {
		u.data[i] = clampByte(n)
	} else {
		u.data[i] = wrapByte(n)
	}
	return nil
}
