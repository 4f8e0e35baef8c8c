package host

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-gojs/value"
)

// recorder is a callback capturing its arguments.
type recorder struct {
	calls [][]value.Value
}

func (r *recorder) fn() *value.Function {
	return value.NewFunction("cb", func(_ context.Context, _ value.Value, args []value.Value) (value.Value, error) {
		r.calls = append(r.calls, args)
		return value.Undefined{}, nil
	})
}

func TestFS_Constants(t *testing.T) {
	env := New()
	constants := get(t, env.Global, "fs", "constants")
	for _, name := range fsConstants {
		assert.Equal(t, value.Number(-1), get(t, constants, name), name)
	}
}

func TestFS_Write(t *testing.T) {
	ctx := context.Background()
	var stdout, stderr bytes.Buffer
	env := New(WithStdout(&stdout), WithStderr(&stderr))
	fs := get(t, env.Global, "fs")

	rec := &recorder{}
	buf := value.WrapBytes([]byte("hello\n"))
	_, err := value.CallMethod(ctx, fs, "write", []value.Value{
		value.Number(1), buf, value.Number(0), value.Number(6), value.Null{}, rec.fn(),
	})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []value.Value{value.Null{}, value.Number(6)}, rec.calls[0])
	assert.Equal(t, "hello\n", stdout.String())

	_, err = value.CallMethod(ctx, fs, "write", []value.Value{
		value.Number(2), value.WrapBytes([]byte("oops")), value.Number(0), value.Number(4), value.Null{}, rec.fn(),
	})
	require.NoError(t, err)
	assert.Equal(t, "oops", stderr.String())
}

func TestFS_WriteUnsupportedForms(t *testing.T) {
	ctx := context.Background()
	var stdout bytes.Buffer
	env := New(WithStdout(&stdout))
	fs := get(t, env.Global, "fs")
	buf := value.WrapBytes([]byte("abcd"))

	tests := []struct {
		name string
		args []value.Value
	}{
		{"offset", []value.Value{value.Number(1), buf, value.Number(1), value.Number(3), value.Null{}}},
		{"partial", []value.Value{value.Number(1), buf, value.Number(0), value.Number(2), value.Null{}}},
		{"position", []value.Value{value.Number(1), buf, value.Number(0), value.Number(4), value.Number(10)}},
		{"undefined position", []value.Value{value.Number(1), buf, value.Number(0), value.Number(4), value.Undefined{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := value.CallMethod(ctx, fs, "write", append(tt.args, rec.fn()))
			require.NoError(t, err)
			require.Len(t, rec.calls, 1)
			require.Len(t, rec.calls[0], 1)
			assert.Equal(t, value.String("ENOSYS"), get(t, rec.calls[0][0], "code"))
		})
	}
	assert.Empty(t, stdout.String())
}

func TestFS_WriteSync(t *testing.T) {
	ctx := context.Background()
	var stdout bytes.Buffer
	env := New(WithStdout(&stdout))

	n, err := value.CallMethod(ctx, get(t, env.Global, "fs"), "writeSync", []value.Value{value.Number(1), value.WrapBytes([]byte("xyz"))})
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), n)
	assert.Equal(t, "xyz", stdout.String())

	_, err = value.CallMethod(ctx, get(t, env.Global, "fs"), "writeSync", []value.Value{value.Number(1), value.String("xyz")})
	assert.Error(t, err)
}

func TestFS_WriteSyncAnyFD(t *testing.T) {
	ctx := context.Background()
	var stdout, stderr bytes.Buffer
	env := New(WithStdout(&stdout), WithStderr(&stderr))
	fs := get(t, env.Global, "fs")

	n, err := value.CallMethod(ctx, fs, "writeSync", []value.Value{value.Number(7), value.WrapBytes([]byte("ab"))})
	require.NoError(t, err)
	assert.Equal(t, value.Number(2), n)

	rec := &recorder{}
	_, err = value.CallMethod(ctx, fs, "write", []value.Value{value.Number(3), value.WrapBytes([]byte("cd")), value.Number(0), value.Number(2), value.Null{}, rec.fn()})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []value.Value{value.Null{}, value.Number(2)}, rec.calls[0])

	_, err = value.CallMethod(ctx, fs, "writeSync", []value.Value{value.Number(2), value.WrapBytes([]byte("ef"))})
	require.NoError(t, err)

	assert.Equal(t, "abcd", stdout.String())
	assert.Equal(t, "ef", stderr.String())
}

func TestFS_Unsupported(t *testing.T) {
	ctx := context.Background()
	env := New()
	fs := get(t, env.Global, "fs")

	for _, name := range fsUnsupported {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			_, err := value.CallMethod(ctx, fs, name, []value.Value{value.String("/tmp/x"), value.Number(0), rec.fn()})
			require.NoError(t, err)
			require.Len(t, rec.calls, 1)
			e := rec.calls[0][0]
			assert.Equal(t, value.String("ENOSYS"), get(t, e, "code"))
			assert.Equal(t, value.String("not implemented"), get(t, e, "message"))
		})
	}
}

func TestFS_Fsync(t *testing.T) {
	ctx := context.Background()
	env := New()
	rec := &recorder{}

	_, err := value.CallMethod(ctx, get(t, env.Global, "fs"), "fsync", []value.Value{value.Number(1), rec.fn()})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []value.Value{value.Null{}}, rec.calls[0])
}
