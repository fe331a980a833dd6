package glint

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// nativeImpl is the Go side of an @external(native, ...) declaration
type nativeImpl struct {
	arity int
	fn    func(m *Machine, args []Value) (Value, error)
}

var natives = map[string]nativeImpl{}

const maxRepeatBytes = 1 << 30

func registerNative(key string, arity int, fn func(m *Machine, args []Value) (Value, error)) {
	natives[key] = nativeImpl{arity: arity, fn: fn}
}

// HasNative reports whether module.function names a native implementation
func HasNative(module, function string) bool {
	_, ok := natives[module+"."+function]
	return ok
}

// nativeFn builds the runtime value bound to an external declaration
func nativeFn(key string) (*NativeFn, bool) {
	impl, ok := natives[key]
	if !ok {
		return nil, false
	}
	return &NativeFn{Name: key, Arity: impl.arity, Fn: impl.fn}, true
}

func init() {
	registerBridgeNatives()
	registerIntNatives()
	registerFloatNatives()
	registerStringNatives()
	registerIONatives()
	registerCheckNatives()
}

func registerIntNatives() {
	registerNative("int.to_string", 1, func(m *Machine, args []Value) (Value, error) {
		return args[0].(*big.Int).String(), nil
	})
	registerNative("int.parse", 1, func(m *Machine, args []Value) (Value, error) {
		n, ok := new(big.Int).SetString(args[0].(string), 10)
		if !ok {
			return errorValue(Nil), nil
		}
		return okValue(n), nil
	})
	registerNative("int.to_float", 1, func(m *Machine, args []Value) (Value, error) {
		return intToFloat(args[0].(*big.Int)), nil
	})
}

func registerFloatNatives() {
	registerNative("float.to_string", 1, func(m *Machine, args []Value) (Value, error) {
		return FormatFloat(args[0].(float64)), nil
	})
	registerNative("float.parse", 1, func(m *Machine, args []Value) (Value, error) {
		text := args[0].(string)
		if !strings.Contains(text, ".") {
			return errorValue(Nil), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return errorValue(Nil), nil
		}
		return okValue(f), nil
	})
	registerNative("float.round", 1, func(m *Machine, args []Value) (Value, error) {
		return floatToInt(math.Round(args[0].(float64)))
	})
	registerNative("float.floor", 1, func(m *Machine, args []Value) (Value, error) {
		return math.Floor(args[0].(float64)), nil
	})
	registerNative("float.ceiling", 1, func(m *Machine, args []Value) (Value, error) {
		return math.Ceil(args[0].(float64)), nil
	})
	registerNative("float.truncate", 1, func(m *Machine, args []Value) (Value, error) {
		return floatToInt(args[0].(float64))
	})
	registerNative("float.power", 2, func(m *Machine, args []Value) (Value, error) {
		r := math.Pow(args[0].(float64), args[1].(float64))
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return errorValue(Nil), nil
		}
		return okValue(r), nil
	})
	registerNative("float.square_root", 1, func(m *Machine, args []Value) (Value, error) {
		x := args[0].(float64)
		if x < 0 {
			return errorValue(Nil), nil
		}
		return okValue(math.Sqrt(x)), nil
	})
}

func registerStringNatives() {
	registerNative("string.length", 1, func(m *Machine, args []Value) (Value, error) {
		return big.NewInt(int64(utf8.RuneCountInString(args[0].(string)))), nil
	})
	registerNative("string.reverse", 1, func(m *Machine, args []Value) (Value, error) {
		runes := []rune(args[0].(string))
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	})
	registerNative("string.uppercase", 1, func(m *Machine, args []Value) (Value, error) {
		return strings.ToUpper(args[0].(string)), nil
	})
	registerNative("string.lowercase", 1, func(m *Machine, args []Value) (Value, error) {
		return strings.ToLower(args[0].(string)), nil
	})
	registerNative("string.trim", 1, func(m *Machine, args []Value) (Value, error) {
		return strings.TrimSpace(args[0].(string)), nil
	})
	registerNative("string.contains", 2, func(m *Machine, args []Value) (Value, error) {
		return strings.Contains(args[0].(string), args[1].(string)), nil
	})
	registerNative("string.starts_with", 2, func(m *Machine, args []Value) (Value, error) {
		return strings.HasPrefix(args[0].(string), args[1].(string)), nil
	})
	registerNative("string.ends_with", 2, func(m *Machine, args []Value) (Value, error) {
		return strings.HasSuffix(args[0].(string), args[1].(string)), nil
	})
	registerNative("string.split", 2, func(m *Machine, args []Value) (Value, error) {
		parts := strings.Split(args[0].(string), args[1].(string))
		values := make([]Value, len(parts))
		for i, p := range parts {
			values[i] = p
		}
		return ListFromSlice(values), nil
	})
	registerNative("string.join", 2, func(m *Machine, args []Value) (Value, error) {
		var parts []string
		for l := args[0].(*List); l != nil; l = l.Tail {
			if m.interrupted() {
				return nil, ErrInterrupted
			}
			parts = append(parts, l.Head.(string))
		}
		return strings.Join(parts, args[1].(string)), nil
	})
	registerNative("string.repeat", 2, func(m *Machine, args []Value) (Value, error) {
		times := smallInt(args[1].(*big.Int))
		if times <= 0 {
			return "", nil
		}
		text := args[0].(string)
		if len(text)*times > maxRepeatBytes {
			return nil, fmt.Errorf("string.repeat result too large")
		}
		return strings.Repeat(text, times), nil
	})
	registerNative("string.slice", 3, func(m *Machine, args []Value) (Value, error) {
		runes := []rune(args[0].(string))
		at, length := smallInt(args[1].(*big.Int)), smallInt(args[2].(*big.Int))
		if at < 0 {
			at += len(runes)
		}
		if at < 0 || at >= len(runes) || length <= 0 {
			return "", nil
		}
		end := at + length
		if end > len(runes) {
			end = len(runes)
		}
		return string(runes[at:end]), nil
	})
	registerNative("string.to_graphemes", 1, func(m *Machine, args []Value) (Value, error) {
		var values []Value
		for _, r := range args[0].(string) {
			values = append(values, string(r))
		}
		return ListFromSlice(values), nil
	})
	registerNative("string.inspect", 1, func(m *Machine, args []Value) (Value, error) {
		return Inspect(args[0]), nil
	})
}

func registerIONatives() {
	registerNative("io.print", 1, func(m *Machine, args []Value) (Value, error) {
		fmt.Fprint(m.out, args[0].(string))
		return Nil, nil
	})
	registerNative("io.println", 1, func(m *Machine, args []Value) (Value, error) {
		fmt.Fprintln(m.out, args[0].(string))
		return Nil, nil
	})
	registerNative("io.print_error", 1, func(m *Machine, args []Value) (Value, error) {
		fmt.Fprint(m.errOut, args[0].(string))
		return Nil, nil
	})
	registerNative("io.println_error", 1, func(m *Machine, args []Value) (Value, error) {
		fmt.Fprintln(m.errOut, args[0].(string))
		return Nil, nil
	})
	registerNative("io.debug", 1, func(m *Machine, args []Value) (Value, error) {
		fmt.Fprintln(m.errOut, Inspect(args[0]))
		return args[0], nil
	})
}

func registerCheckNatives() {
	registerNative("check.eq", 2, func(m *Machine, args []Value) (Value, error) {
		if Equal(args[0], args[1]) {
			m.checks.pass()
		} else {
			m.checks.fail(fmt.Sprintf("  Actual  : %s\n  Expected: %s", Inspect(args[0]), Inspect(args[1])))
		}
		return Nil, nil
	})
	registerNative("check.approx", 3, func(m *Machine, args []Value) (Value, error) {
		actual, expected, tolerance := args[0].(float64), args[1].(float64), args[2].(float64)
		if math.Abs(actual-expected) <= tolerance {
			m.checks.pass()
		} else {
			m.checks.fail(fmt.Sprintf("  Actual   : %s\n  Expected : %s\n  Tolerance: %s",
				FormatFloat(actual), FormatFloat(expected), FormatFloat(tolerance)))
		}
		return Nil, nil
	})
	registerNative("check.fail", 1, func(m *Machine, args []Value) (Value, error) {
		m.checks.fail("  " + args[0].(string))
		return Nil, nil
	})
}
