package host

import (
	"context"

	"github.com/wippyai/wasm-gojs/value"
)

func (e *Env) newProcess() *value.Object {
	p := value.NewObject()

	minusOne := func(name string) *value.Function {
		return value.NewFunction(name, func(context.Context, value.Value, []value.Value) (value.Value, error) {
			return value.Number(-1), nil
		})
	}
	for _, name := range []string{"getuid", "getgid", "geteuid", "getegid"} {
		_ = p.Set(name, minusOne(name))
	}

	for _, name := range []string{"getgroups", "umask", "cwd", "chdir"} {
		_ = p.Set(name, value.NewFunction(name, func(context.Context, value.Value, []value.Value) (value.Value, error) {
			return nil, value.Throw(e.Enosys())
		}))
	}

	_ = p.Set("pid", value.Number(-1))
	_ = p.Set("ppid", value.Number(-1))
	return p
}
