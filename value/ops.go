package value

import (
	"context"
	"math"
	"strconv"
)

// Get reads a property, as Reflect.get does.
func Get(v Value, key string) (Value, error) {
	switch x := v.(type) {
	case nil, Undefined, Null:
		return nil, TypeError("Cannot read properties of %s (reading '%s')", ToString(v), key)
	case String:
		if key == "length" {
			return Number(UTF16Len(string(x))), nil
		}
		if i, err := strconv.ParseInt(key, 10, 64); err == nil {
			if c, ok := utf16At(string(x), i); ok {
				return c, nil
			}
		}
		return Undefined{}, nil
	case Getter:
		r, err := x.Get(key)
		if r == nil && err == nil {
			r = Undefined{}
		}
		return r, err
	}
	return Undefined{}, nil
}

// Set assigns a property, as Reflect.set does. Assignments to primitives are
// silently ignored.
func Set(v Value, key string, x Value) error {
	switch t := v.(type) {
	case nil, Undefined, Null:
		return TypeError("Cannot set properties of %s (setting '%s')", ToString(v), key)
	case Setter:
		return t.Set(key, x)
	}
	return nil
}

// Delete removes a property, as Reflect.deleteProperty does.
func Delete(v Value, key string) error {
	switch t := v.(type) {
	case Deleter:
		return t.Delete(key)
	case nil, Undefined, Null, Bool, Number, String:
		return TypeError("Reflect.deleteProperty called on non-object")
	}
	return nil
}

// Index reads the element at i.
func Index(v Value, i int64) (Value, error) {
	switch x := v.(type) {
	case nil, Undefined, Null:
		return nil, TypeError("Cannot read properties of %s (reading '%d')", ToString(v), i)
	case String:
		if c, ok := utf16At(string(x), i); ok {
			return c, nil
		}
		return Undefined{}, nil
	case Indexer:
		return x.Index(i)
	}
	return Get(v, strconv.FormatInt(i, 10))
}

// SetIndex assigns the element at i.
func SetIndex(v Value, i int64, x Value) error {
	switch t := v.(type) {
	case nil, Undefined, Null:
		return TypeError("Cannot set properties of %s (setting '%d')", ToString(v), i)
	case Indexer:
		return t.SetIndex(i, x)
	}
	return Set(v, strconv.FormatInt(i, 10), x)
}

// Call invokes fn with the given receiver.
func Call(ctx context.Context, fn Value, this Value, args []Value) (Value, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, TypeError("%s is not a function", describe(fn))
	}
	r, err := c.Call(ctx, this, args)
	if r == nil && err == nil {
		r = Undefined{}
	}
	return r, err
}

// CallMethod reads the named property of v and invokes it with v as receiver.
func CallMethod(ctx context.Context, v Value, name string, args []Value) (Value, error) {
	m, err := Get(v, name)
	if err != nil {
		return nil, err
	}
	if _, ok := m.(Callable); !ok {
		return nil, TypeError("%s.%s is not a function", describe(v), name)
	}
	return Call(ctx, m, v, args)
}

// Construct creates a new instance using c as constructor.
func Construct(ctx context.Context, c Value, args []Value) (Value, error) {
	ctor, ok := c.(Constructor)
	if !ok {
		return nil, TypeError("%s is not a constructor", describe(c))
	}
	r, err := ctor.Construct(ctx, args)
	if r == nil && err == nil {
		r = Undefined{}
	}
	return r, err
}

// Length returns parseInt(v.length), with 0 for a length that is not a
// finite number.
func Length(v Value) (int64, error) {
	if l, ok := v.(Lengther); ok {
		return int64(l.Length()), nil
	}
	x, err := Get(v, "length")
	if err != nil {
		return 0, err
	}
	n := ToNumber(x)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, nil
	}
	return int64(n), nil
}

// InstanceOf reports whether v was created by c or a constructor extending it.
func InstanceOf(v Value, c Value) (bool, error) {
	f, ok := c.(*Function)
	if !ok {
		if _, callable := c.(Callable); callable {
			return false, nil
		}
		return false, TypeError("Right-hand side of 'instanceof' is not callable")
	}
	if f.hasInstance != nil {
		return f.hasInstance(v), nil
	}
	inst, ok := v.(Instance)
	if !ok {
		return false, nil
	}
	for k := inst.Class(); k != nil; k = k.parent {
		if k == f {
			return true, nil
		}
	}
	return false, nil
}

func describe(v Value) string {
	switch x := v.(type) {
	case *Function:
		return x.Name
	case String:
		return strconv.Quote(string(x))
	case *Object, *Array:
		return "object"
	}
	return ToString(v)
}
