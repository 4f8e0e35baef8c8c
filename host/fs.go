package host

import (
	"context"

	"github.com/wippyai/wasm-gojs/value"
)

// fsUnsupported lists the fs operations that always fail with ENOSYS.
var fsUnsupported = []string{
	"chmod", "chown", "close", "fchmod", "fchown", "fstat", "ftruncate",
	"lchown", "link", "lstat", "mkdir", "open", "read", "readdir",
	"readlink", "rename", "rmdir", "stat", "symlink", "truncate",
	"unlink", "utimes",
}

// fsConstants are the open flags syscall reads at init. -1 marks every flag
// as unsupported.
var fsConstants = []string{
	"O_WRONLY", "O_RDWR", "O_CREAT", "O_TRUNC", "O_APPEND", "O_EXCL", "O_DIRECTORY",
}

func (e *Env) newFS() *value.Object {
	fs := value.NewObject()

	constants := value.NewObject()
	for _, name := range fsConstants {
		_ = constants.Set(name, value.Number(-1))
	}
	_ = fs.Set("constants", constants)

	_ = fs.Set("writeSync", value.NewFunction("writeSync", func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		fd, buf, err := writeArgs(args)
		if err != nil {
			return nil, err
		}
		n, err := e.WriteSync(fd, buf.Bytes())
		if err != nil {
			return nil, value.Throw(e.Enosys())
		}
		return value.Number(n), nil
	}))

	_ = fs.Set("write", value.NewFunction("write", func(ctx context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		fd, buf, err := writeArgs(args)
		if err != nil {
			return nil, err
		}
		cb := arg(args, 5)
		if !plainWrite(buf, arg(args, 2), arg(args, 3), arg(args, 4)) {
			return callback(ctx, cb, e.Enosys())
		}
		n, err := e.WriteSync(fd, buf.Bytes())
		if err != nil {
			return callback(ctx, cb, e.Enosys())
		}
		return callback(ctx, cb, value.Null{}, value.Number(n))
	}))

	_ = fs.Set("fsync", value.NewFunction("fsync", func(ctx context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		return callback(ctx, arg(args, 1), value.Null{})
	}))

	for _, name := range fsUnsupported {
		_ = fs.Set(name, value.NewFunction(name, func(ctx context.Context, _ value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return nil, value.Throw(e.Enosys())
			}
			return callback(ctx, args[len(args)-1], e.Enosys())
		}))
	}
	return fs
}

func writeArgs(args []value.Value) (int64, value.ByteArray, error) {
	buf, ok := arg(args, 1).(value.ByteArray)
	if !ok {
		return 0, nil, value.TypeError("The \"buffer\" argument must be a Uint8Array")
	}
	return int64(value.ToNumber(arg(args, 0))), buf, nil
}

// plainWrite reports whether a write covers the whole buffer at the current
// position, the only form supported.
func plainWrite(buf value.ByteArray, offset, length, position value.Value) bool {
	if off, ok := offset.(value.Number); !ok || off != 0 {
		return false
	}
	if n, ok := length.(value.Number); !ok || int(n) != len(buf.Bytes()) || float64(n) != float64(int(n)) {
		return false
	}
	return value.IsNull(position)
}

func callback(ctx context.Context, cb value.Value, args ...value.Value) (value.Value, error) {
	if _, ok := cb.(value.Callable); !ok {
		return nil, value.TypeError("The \"cb\" argument must be of type function")
	}
	if _, err := value.Call(ctx, cb, value.Undefined{}, args); err != nil {
		return nil, err
	}
	return value.Undefined{}, nil
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return value.Undefined{}
}
