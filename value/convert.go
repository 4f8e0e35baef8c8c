package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToNumber converts v to a number the way unary plus does.
func ToNumber(v Value) float64 {
	switch x := v.(type) {
	case nil, Undefined:
		return math.NaN()
	case Null:
		return 0
	case Bool:
		if x {
			return 1
		}
		return 0
	case Number:
		return float64(x)
	case String:
		return parseNumber(string(x))
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil || strings.ContainsRune(s, '_') {
				return math.NaN()
			}
			return float64(n)
		}
	}
	lower := strings.ToLower(s)
	if strings.ContainsAny(lower, "_xp") || strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// FormatNumber formats f the way Number.prototype.toString does.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	digits := strings.TrimLeft(exp[1:], "0")
	return mant + "e" + exp[:1] + digits
}

// ToString converts v to a string the way String(v) does.
func ToString(v Value) string {
	switch x := v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(float64(x))
	case String:
		return string(x)
	case *Symbol:
		return "Symbol(" + x.Description + ")"
	case *Function:
		return "function " + x.Name + "() { [native code] }"
	case *Array:
		parts := make([]string, len(x.Elems))
		for i, e := range x.Elems {
			if !IsNullish(e) {
				parts[i] = ToString(e)
			}
		}
		return strings.Join(parts, ",")
	case *Uint8Array:
		parts := make([]string, len(x.data))
		for i, b := range x.data {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, ",")
	case *Object:
		if x.isErr {
			return errorString(x)
		}
	case fmt.Stringer:
		return x.String()
	}
	return "[object Object]"
}

func clampByte(n float64) byte {
	switch {
	case math.IsNaN(n), n <= 0:
		return 0
	case n >= 255:
		return 255
	}
	return byte(math.RoundToEven(n))
}

func wrapByte(n float64) byte {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(n), 256)
	if m < 0 {
		m += 256
	}
	return byte(m)
}
