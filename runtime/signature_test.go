package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-gojs/value"
)

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature("add: func(a: s32, b: s32) -> s32")
	require.NoError(t, err)
	assert.Equal(t, "add", sig.Name)
	assert.Equal(t, []Param{{"a", KindS32}, {"b", KindS32}}, sig.Params)
	assert.Equal(t, []Kind{KindS32}, sig.Results)
	assert.Equal(t, "add: func(a: s32, b: s32) -> s32", sig.String())
}

func TestParseSignatures(t *testing.T) {
	sigs, err := ParseSignatures(`
		greet: func(name: string) -> string;
		invert: func(pixels: list< u8 >, clamp: bool) -> list<u8>
		tick: func()
		ratio: func(a: f64, b: f32) -> (f64)
		big: func(x: u64, y: s64, z: u32)
	`)
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "greet", "invert", "ratio", "tick"}, SortedNames(sigs))

	assert.Equal(t, []Param{{"pixels", KindBytes}, {"clamp", KindBool}}, sigs["invert"].Params)
	assert.Equal(t, []Kind{KindBytes}, sigs["invert"].Results)
	assert.Empty(t, sigs["tick"].Params)
	assert.Empty(t, sigs["tick"].Results)
	assert.Equal(t, []Kind{KindF64}, sigs["ratio"].Results)
	assert.Equal(t, "big: func(x: u64, y: s64, z: u32)", sigs["big"].String())
}

func TestParseSignatures_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no functions", "record point { x: s32 }"},
		{"unknown param type", "f: func(a: u8)"},
		{"unknown result type", "f: func() -> option<s32>"},
		{"multiple results", "f: func() -> (s32, s32)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSignatures(tc.text)
			assert.Error(t, err)
		})
	}

	_, err := ParseSignature("a: func(); b: func()")
	assert.Error(t, err, "ParseSignature accepts exactly one declaration")
}

func TestParseSignature_UnnamedParams(t *testing.T) {
	sig, err := ParseSignature("f: func(s32, string)")
	require.NoError(t, err)
	assert.Equal(t, []Param{{"arg0", KindS32}, {"arg1", KindString}}, sig.Params)
}

func TestKind_Coerce(t *testing.T) {
	tests := []struct {
		kind Kind
		in   any
		want value.Value
	}{
		{KindS32, "-7", value.Number(-7)},
		{KindS32, "0x10", value.Number(16)},
		{KindS32, int32(math.MaxInt32), value.Number(math.MaxInt32)},
		{KindU32, "4294967295", value.Number(math.MaxUint32)},
		{KindS64, int64(1 << 40), value.Number(1 << 40)},
		{KindU64, uint8(3), value.Number(3)},
		{KindF32, "0.1", value.Number(float32(0.1))},
		{KindF64, 2.5, value.Number(2.5)},
		{KindBool, "true", value.Bool(true)},
		{KindBool, false, value.Bool(false)},
		{KindString, "12", value.String("12")},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			got, err := tc.kind.Coerce(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	got, err := KindBytes.Coerce("abc")
	require.NoError(t, err)
	require.Implements(t, (*value.ByteArray)(nil), got)
	assert.Equal(t, []byte("abc"), got.(value.ByteArray).Bytes())

	src := []byte{1, 2}
	got, err = KindBytes.Coerce(src)
	require.NoError(t, err)
	src[0] = 9
	assert.Equal(t, []byte{1, 2}, got.(value.ByteArray).Bytes(), "byte arguments are copied")
}

func TestKind_CoerceRejects(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		in   any
	}{
		{"s32 overflow", KindS32, int64(math.MaxInt32) + 1},
		{"s32 fraction", KindS32, 1.5},
		{"s32 unparsable", KindS32, "one"},
		{"u32 negative", KindU32, -1},
		{"u32 negative text", KindU32, "-1"},
		{"u64 beyond 2^53", KindU64, uint64(1<<53) + 2},
		{"bool from number", KindBool, 1},
		{"string from number", KindString, 1},
		{"bytes from number", KindBytes, 1},
		{"number from bool", KindF64, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.kind.Coerce(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestKind_Convert(t *testing.T) {
	tests := []struct {
		kind Kind
		in   value.Value
		want any
	}{
		{KindS32, value.Number(-5), int32(-5)},
		{KindU32, value.Number(5), uint32(5)},
		{KindS64, value.Number(1 << 40), int64(1 << 40)},
		{KindU64, value.Number(7), uint64(7)},
		{KindF32, value.Number(0.5), float32(0.5)},
		{KindF64, value.Number(0.1), 0.1},
		{KindBool, value.Bool(true), true},
		{KindString, value.String("hi"), "hi"},
		{KindBytes, value.WrapBytes([]byte{1, 2, 3}), []byte{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			got, err := tc.kind.Convert(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := KindS32.Convert(value.Number(math.MaxInt32 + 1))
	assert.Error(t, err)
	_, err = KindS32.Convert(value.Number(0.5))
	assert.Error(t, err)
	_, err = KindString.Convert(value.Number(1))
	assert.Error(t, err)
	_, err = KindF64.Convert(value.Undefined{})
	assert.Error(t, err)
}

func TestSignature_ArgsAndResult(t *testing.T) {
	sig, err := ParseSignature("f: func(a: s32, b: string) -> bool")
	require.NoError(t, err)

	args, err := sig.Args([]any{"3", "x"})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Number(3), value.String("x")}, args)

	_, err = sig.Args([]any{"3"})
	assert.Error(t, err)

	_, err = sig.Args([]any{"three", "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "f")

	r, err := sig.Result(value.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, true, r)

	none, err := ParseSignature("g: func()")
	require.NoError(t, err)
	r, err = none.Result(value.Number(1))
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("char")
	assert.Error(t, err)
	assert.Equal(t, "kind(99)", Kind(99).String())
}
