package runtime

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/value"
)

// Kind is the declared type of a parameter or result of a guest function.
type Kind int

const (
	KindS32 Kind = iota + 1
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindBool
	KindString
	KindBytes
)

var kindNames = map[Kind]string{
	KindS32:    "s32",
	KindU32:    "u32",
	KindS64:    "s64",
	KindU64:    "u64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindBool:   "bool",
	KindString: "string",
	KindBytes:  "list<u8>",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a type name such as "s32" or "list<u8>".
func ParseKind(s string) (Kind, error) {
	s = strings.Join(strings.Fields(s), "")
	for k, name := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("unsupported type %q", s))
}

// Param is a named, typed parameter.
type Param struct {
	Name string
	Kind Kind
}

// Signature declares the parameter and result types of a function the guest
// publishes on the global namespace.
type Signature struct {
	Name    string
	Params  []Param
	Results []Kind
}

func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(": func(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.Kind.String())
	}
	b.WriteString(")")
	switch len(s.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(s.Results[0].String())
	default:
		b.WriteString(" -> (")
		for i, k := range s.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k.String())
		}
		b.WriteString(")")
	}
	return b.String()
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_$][a-zA-Z0-9_$-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;\n]+))?`)

// ParseSignature parses a single declaration such as
// "add: func(a: s32, b: s32) -> s32".
func ParseSignature(text string) (*Signature, error) {
	sigs, err := ParseSignatures(text)
	if err != nil {
		return nil, err
	}
	if len(sigs) != 1 {
		return nil, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("expected one signature, found %d", len(sigs)))
	}
	for _, sig := range sigs {
		return sig, nil
	}
	return nil, nil
}

// ParseSignatures extracts every "name: func(params) -> result" declaration
// from text. Declarations may be separated by semicolons or newlines.
func ParseSignatures(text string) (map[string]*Signature, error) {
	sigs := make(map[string]*Signature)

	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		sig := &Signature{Name: match[1]}

		for i, p := range splitParams(match[2]) {
			name, typ := fmt.Sprintf("arg%d", i), p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				name, typ = strings.TrimSpace(p[:idx]), p[idx+1:]
			}
			k, err := ParseKind(typ)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse param type of "+sig.Name)
			}
			sig.Params = append(sig.Params, Param{Name: name, Kind: k})
		}

		resultStr := strings.TrimSpace(match[3])
		if resultStr != "" && resultStr != "()" {
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				resultStr = resultStr[1 : len(resultStr)-1]
			}
			for _, part := range splitParams(resultStr) {
				k, err := ParseKind(part)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse result type of "+sig.Name)
				}
				sig.Results = append(sig.Results, k)
			}
		}
		if len(sig.Results) > 1 {
			return nil, errors.InvalidInput(errors.PhaseParse, sig.Name+": host functions return at most one value")
		}

		sigs[sig.Name] = sig
	}

	if len(sigs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in signature text")
	}
	return sigs, nil
}

// splitParams splits a comma separated list, ignoring commas nested in
// parentheses or angle brackets.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if str := strings.TrimSpace(current.String()); str != "" {
			result = append(result, str)
		}
		current.Reset()
	}
	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				flush()
				continue
			}
		}
		current.WriteRune(ch)
	}
	flush()
	return result
}

// Args coerces args to the signature's parameter kinds. Strings are parsed,
// which lets command line input drive typed calls.
func (s *Signature) Args(args []any) ([]value.Value, error) {
	if len(args) != len(s.Params) {
		return nil, errors.InvalidInput(errors.PhaseMarshal,
			fmt.Sprintf("%s expects %d arguments, got %d", s.Name, len(s.Params), len(args)))
	}
	out := make([]value.Value, len(args))
	for i, p := range s.Params {
		v, err := p.Kind.Coerce(args[i])
		if err != nil {
			return nil, withPath(err, s.Name, p.Name)
		}
		out[i] = v
	}
	return out, nil
}

// Result converts a value returned by the function to Go.
func (s *Signature) Result(v value.Value) (any, error) {
	if len(s.Results) == 0 {
		return nil, nil
	}
	r, err := s.Results[0].Convert(v)
	if err != nil {
		return nil, withPath(err, s.Name, "result")
	}
	return r, nil
}

func withPath(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok && len(e.Path) == 0 {
		c := *e
		c.Path = path
		return &c
	}
	return err
}

var intRange = map[Kind][2]float64{
	KindS32: {math.MinInt32, math.MaxInt32},
	KindU32: {0, math.MaxUint32},
	KindS64: {-(1 << 53), 1 << 53},
	KindU64: {0, 1 << 53},
}

// Coerce converts a Go value, or a string to be parsed, to a host value of
// kind k.
func (k Kind) Coerce(x any) (value.Value, error) {
	if s, ok := x.(string); ok && k != KindString && k != KindBytes {
		parsed, err := k.parse(s)
		if err != nil {
			return nil, err
		}
		x = parsed
	}

	switch k {
	case KindS32, KindU32, KindS64, KindU64, KindF32, KindF64:
		v, err := value.FromGo(x)
		if err != nil {
			return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, k.String(), fmt.Sprintf("%T", x))
		}
		n, ok := v.(value.Number)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, k.String(), value.TypeOf(v))
		}
		if r, isInt := intRange[k]; isInt {
			f := float64(n)
			if f != math.Trunc(f) || f < r[0] || f > r[1] {
				return nil, errors.InvalidData(errors.PhaseMarshal, nil, fmt.Sprintf("%v out of range for %s", x, k))
			}
		}
		if k == KindF32 {
			n = value.Number(float32(n))
		}
		return n, nil
	case KindBool:
		if b, ok := x.(bool); ok {
			return value.Bool(b), nil
		}
	case KindString:
		if s, ok := x.(string); ok {
			return value.String(s), nil
		}
	case KindBytes:
		switch b := x.(type) {
		case []byte:
			return value.WrapBytes(append([]byte(nil), b...)), nil
		case string:
			return value.WrapBytes([]byte(b)), nil
		}
	}
	return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, k.String(), fmt.Sprintf("%T", x))
}

func (k Kind) parse(s string) (any, error) {
	s = strings.TrimSpace(s)
	var (
		x   any
		err error
	)
	switch k {
	case KindS32:
		x, err = strconv.ParseInt(s, 0, 32)
	case KindU32:
		x, err = strconv.ParseUint(s, 0, 32)
	case KindS64:
		x, err = strconv.ParseInt(s, 0, 64)
	case KindU64:
		x, err = strconv.ParseUint(s, 0, 64)
	case KindF32:
		x, err = strconv.ParseFloat(s, 32)
	case KindF64:
		x, err = strconv.ParseFloat(s, 64)
	case KindBool:
		x, err = strconv.ParseBool(s)
	default:
		return s, nil
	}
	if err != nil {
		return nil, errors.ParseFailed(k.String()+" argument", err)
	}
	return x, nil
}

// Convert converts a host value to the Go type of kind k: int32, uint32,
// int64, uint64, float32, float64, bool, string or []byte.
func (k Kind) Convert(v value.Value) (any, error) {
	switch k {
	case KindBool:
		if b, ok := v.(value.Bool); ok {
			return bool(b), nil
		}
	case KindString:
		if s, ok := v.(value.String); ok {
			return string(s), nil
		}
	case KindBytes:
		if b, ok := v.(value.ByteArray); ok {
			return append([]byte(nil), b.Bytes()...), nil
		}
	default:
		n, ok := v.(value.Number)
		if !ok {
			break
		}
		f := float64(n)
		if r, isInt := intRange[k]; isInt && (f != math.Trunc(f) || f < r[0] || f > r[1]) {
			return nil, errors.InvalidData(errors.PhaseMarshal, nil, fmt.Sprintf("%v out of range for %s", f, k))
		}
		switch k {
		case KindS32:
			return int32(f), nil
		case KindU32:
			return uint32(f), nil
		case KindS64:
			return int64(f), nil
		case KindU64:
			return uint64(f), nil
		case KindF32:
			return float32(f), nil
		case KindF64:
			return f, nil
		}
	}
	return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, k.String(), value.TypeOf(v))
}

// SortedNames returns the names in sigs in order.
func SortedNames(sigs map[string]*Signature) []string {
	names := make([]string, 0, len(sigs))
	for name := range sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
