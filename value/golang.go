package value

import (
	"fmt"
	"reflect"
)

// FromGo converts a plain Go value to a host value. Values that already are
// host values are returned unchanged.
func FromGo(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case Undefined, Null, Bool, Number, String, *Object, *Array, *Function, *Uint8Array, *Symbol:
		return v, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case int:
		return Number(v), nil
	case int8:
		return Number(v), nil
	case int16:
		return Number(v), nil
	case int32:
		return Number(v), nil
	case int64:
		return Number(v), nil
	case uint:
		return Number(v), nil
	case uint8:
		return Number(v), nil
	case uint16:
		return Number(v), nil
	case uint32:
		return Number(v), nil
	case uint64:
		return Number(v), nil
	case float32:
		return Number(v), nil
	case float64:
		return Number(v), nil
	case []byte:
		return WrapBytes(append([]byte(nil), v...)), nil
	case []any:
		arr := NewArray()
		for i, e := range v {
			ev, err := FromGo(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr.Elems = append(arr.Elems, ev)
		}
		return arr, nil
	case map[string]any:
		obj := NewObject()
		for k, e := range v {
			ev, err := FromGo(e)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			obj.put(k, ev)
		}
		return obj, nil
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Slice {
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return FromGo(elems)
	}
	if _, ok := x.(Callable); ok {
		return x, nil
	}
	if _, ok := x.(Getter); ok {
		return x, nil
	}
	return nil, fmt.Errorf("cannot convert %T to a host value", x)
}

// ToGo converts a host value to a plain Go value: nil, bool, float64, string,
// []byte, []any or map[string]any. Functions and other reference values are
// returned as is.
func ToGo(v Value) any {
	switch x := v.(type) {
	case nil, Undefined, Null:
		return nil
	case Bool:
		return bool(x)
	case Number:
		return float64(x)
	case String:
		return string(x)
	case *Uint8Array:
		return append([]byte(nil), x.data...)
	case *Array:
		out := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = ToGo(e)
		}
		return out
	case *Object:
		if x.isErr {
			return errorString(x)
		}
		out := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			out[k] = ToGo(x.props[k])
		}
		return out
	}
	return v
}
