package value

import "context"

// Getter is implemented by values with named properties.
type Getter interface {
	Get(key string) (Value, error)
}

// Setter is implemented by values whose properties can be assigned.
type Setter interface {
	Set(key string, v Value) error
}

// Deleter is implemented by values whose properties can be removed.
type Deleter interface {
	Delete(key string) error
}

// Indexer is implemented by values with integer-indexed elements.
type Indexer interface {
	Index(i int64) (Value, error)
	SetIndex(i int64, v Value) error
}

// Callable is implemented by function values.
type Callable interface {
	Call(ctx context.Context, this Value, args []Value) (Value, error)
}

// Constructor is implemented by values usable with new.
type Constructor interface {
	Construct(ctx context.Context, args []Value) (Value, error)
}

// Lengther is implemented by values with an intrinsic length.
type Lengther interface {
	Length() int
}

// Instance is implemented by values that remember the constructor that
// created them. InstanceOf walks the constructor's parent chain.
type Instance interface {
	Class() *Function
}

// ByteArray is implemented by typed byte arrays. Only byte arrays can be the
// host side of a byte copy.
type ByteArray interface {
	Bytes() []byte
}
