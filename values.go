package glint

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Value is a runtime value. The concrete representations are *big.Int,
// float64, string, bool, NilValue, *List, Tuple, *Record and the function
// kinds *Closure, *NativeFn and *CtorFn.
type Value interface{}

// NilValue is the single value of type Nil
type NilValue struct{}

// Nil is the runtime Nil
var Nil = NilValue{}

// List is an immutable cons cell; a nil *List is the empty list
type List struct {
	Head Value
	Tail *List
}

// Tuple is a fixed size heterogeneous sequence
type Tuple []Value

// Record is a value built by a custom type constructor
type Record struct {
	Tag    string
	Labels []string
	Fields []Value
}

// Closure is a glint function with its captured frame
type Closure struct {
	Code *FnCode
	Env  *frame
}

// NativeFn is a function implemented in Go
type NativeFn struct {
	Name  string
	Arity int
	Fn    func(m *Machine, args []Value) (Value, error)
}

// CtorFn is a constructor used as a function value
type CtorFn struct {
	Tag    string
	Labels []string
	Arity  int
}

// ListFromSlice builds a list from Go values
func ListFromSlice(values []Value) *List {
	var l *List
	for i := len(values) - 1; i >= 0; i-- {
		l = &List{Head: values[i], Tail: l}
	}
	return l
}

// Slice copies the list into a Go slice
func (l *List) Slice() []Value {
	var out []Value
	for ; l != nil; l = l.Tail {
		out = append(out, l.Head)
	}
	return out
}

// okValue and errorValue build Result records
func okValue(v Value) Value {
	return &Record{Tag: "Ok", Fields: []Value{v}}
}

func errorValue(v Value) Value {
	return &Record{Tag: "Error", Fields: []Value{v}}
}

// Equal compares two values structurally; functions compare by identity
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case *big.Int:
		bv, ok := b.(*big.Int)
		return ok && av.Cmp(bv) == 0
	case float64, string, bool, NilValue:
		return a == b
	case *List:
		bv, ok := b.(*List)
		if !ok {
			return false
		}
		for av != nil && bv != nil {
			if !Equal(av.Head, bv.Head) {
				return false
			}
			av, bv = av.Tail, bv.Tail
		}
		return av == nil && bv == nil
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		if !ok || av.Tag != bv.Tag || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if !Equal(av.Fields[i], bv.Fields[i]) {
				return false
			}
		}
		return true
	case *CtorFn:
		bv, ok := b.(*CtorFn)
		return ok && av.Tag == bv.Tag
	}
	return a == b
}

// Inspect renders a value the way the REPL prints it
func Inspect(v Value) string {
	var sb strings.Builder
	inspectInto(&sb, v)
	return sb.String()
}

func inspectInto(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case *big.Int:
		sb.WriteString(val.String())
	case float64:
		sb.WriteString(FormatFloat(val))
	case string:
		sb.WriteString(quoteString(val))
	case bool:
		if val {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case NilValue:
		sb.WriteString("Nil")
	case *List:
		sb.WriteByte('[')
		for l := val; l != nil; l = l.Tail {
			if l != val {
				sb.WriteString(", ")
			}
			inspectInto(sb, l.Head)
		}
		sb.WriteByte(']')
	case Tuple:
		sb.WriteString("#(")
		for i, e := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			inspectInto(sb, e)
		}
		sb.WriteByte(')')
	case *Record:
		sb.WriteString(val.Tag)
		if len(val.Fields) == 0 {
			return
		}
		sb.WriteByte('(')
		for i, f := range val.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			if i < len(val.Labels) && val.Labels[i] != "" {
				sb.WriteString(val.Labels[i])
				sb.WriteString(": ")
			}
			inspectInto(sb, f)
		}
		sb.WriteByte(')')
	case *Closure:
		sb.WriteString(inspectFn(val.Code.Arity))
	case *NativeFn:
		sb.WriteString(inspectFn(val.Arity))
	case *CtorFn:
		sb.WriteString(inspectFn(val.Arity))
	default:
		fmt.Fprintf(sb, "//unknown(%v)", val)
	}
}

func inspectFn(arity int) string {
	params := make([]string, arity)
	for i := range params {
		params[i] = letterName(i)
	}
	return "//fn(" + strings.Join(params, ", ") + ") { ... }"
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u{%04X}`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// FormatFloat prints floats with a mandatory fractional part and switches to
// exponent notation for very large or very small magnitudes: 7.0, 3.0e21,
// 1.2e-30
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exponent, _ := strings.Cut(s, "e")
		if !strings.Contains(mantissa, ".") {
			mantissa += ".0"
		}
		sign := ""
		if exponent[0] == '-' {
			sign = "-"
		}
		exponent = strings.TrimLeft(exponent[1:], "0")
		return mantissa + "e" + sign + exponent
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// floatToInt converts the integral part of a finite float to an Int
func floatToInt(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot convert %s to Int", FormatFloat(f))
	}
	n, _ := new(big.Float).SetFloat64(f).Int(nil)
	return n, nil
}

func intToFloat(n *big.Int) float64 {
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// smallInt saturates an Int to the range of an int32, for counts and indexes
func smallInt(n *big.Int) int {
	switch {
	case n.Cmp(big.NewInt(math.MaxInt32)) > 0:
		return math.MaxInt32
	case n.Cmp(big.NewInt(math.MinInt32)) < 0:
		return math.MinInt32
	}
	return int(n.Int64())
}
