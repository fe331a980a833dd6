package glint

import (
	"strings"
	"testing"
)

// compileModule compiles src as module m on top of the standard library
func compileModule(t *testing.T, src string) (*CompiledUnit, []*CompiledUnit, error) {
	t.Helper()
	project, err := NewProject(NewLogger(false))
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}
	if err := project.WriteSource("m", src); err != nil {
		t.Fatalf("WriteSource failed: %v", err)
	}
	units, err := project.Compile()
	if err != nil {
		return nil, nil, err
	}
	for _, u := range units {
		if u.Name == "m" {
			return u, units, nil
		}
	}
	t.Fatalf("module m missing from compiled units")
	return nil, nil, nil
}

func fnTypeString(t *testing.T, unit *CompiledUnit, name string) string {
	t.Helper()
	typ, ok := unit.FnType(name)
	if !ok {
		t.Fatalf("Expected function '%s' in unit %s", name, unit.Name)
	}
	return RenderType(typ)
}

func TestCheckerInference(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{"arithmetic", "pub fn add(a, b) { a + b }", "add", "fn(Int, Int) -> Int"},
		{"identity", "pub fn id(x) { x }", "id", "fn(a) -> a"},
		{"swap", "pub fn swap(x, y) { #(y, x) }", "swap", "fn(a, b) -> #(b, a)"},
		{"annotated", "pub fn greet(name: String) -> String { \"hi \" <> name }", "greet", "fn(String) -> String"},
		{"result", "pub fn wrap(x) { Ok(x) }", "wrap", "fn(a) -> Result(a, b)"},
		{"list", "pub fn single(x) { [x] }", "single", "fn(a) -> List(a)"},
		{"higher order", "pub fn apply(f, x) { f(x) }", "apply", "fn(fn(a) -> b, a) -> b"},
		{"std call", "import std/list\npub fn evens(xs) { list.filter(xs, fn(x) { x % 2 == 0 }) }", "evens", "fn(List(Int)) -> List(Int)"},
		{"custom type", "pub type Shape { Circle(Float) Square(Float) }\npub fn unit() { Circle(1.0) }", "unit", "fn() -> Shape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, _, err := compileModule(t, tt.src)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := fnTypeString(t, unit, tt.fn); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestCheckerErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"type mismatch", `pub fn bad() { 1 + "a" }`, "type mismatch"},
		{"unknown variable", "pub fn bad() { missing }", "unknown variable 'missing'"},
		{"duplicate const", "const x = 1\nconst x = 2", "duplicate definition of 'x'"},
		{"duplicate type", "type T { A }\ntype T { B }", "duplicate definition of type 'T'"},
		{"unknown module", "import nowhere\npub fn f() { 1 }", "unknown module 'nowhere'"},
		{"arity", "fn two(a, b) { a }\npub fn f() { two(1) }", "expected 2 arguments, got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compileModule(t, tt.src)
			ce, ok := err.(*CompileError)
			if !ok {
				t.Fatalf("Expected *CompileError, got %T (%v)", err, err)
			}
			if !strings.Contains(ce.Message, tt.message) {
				t.Errorf("Expected message containing '%s', got '%s'", tt.message, ce.Message)
			}
			if ce.Unit != "m" {
				t.Errorf("Expected unit 'm', got '%s'", ce.Unit)
			}
		})
	}
}

func TestCompiledUnitSurface(t *testing.T) {
	src := `pub type Color { Red Green }
type Hidden { Hidden }
pub const answer = 42
pub fn shade() { Red }
fn private() { 1 }
`
	unit, _, err := compileModule(t, src)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	types := unit.PublicTypes()
	if len(types) != 1 || types[0] != "Color" {
		t.Errorf("Expected [Color], got %v", types)
	}
	values := strings.Join(unit.PublicValues(), ",")
	if values != "Green,Red,answer,shade" {
		t.Errorf("Expected 'Green,Red,answer,shade', got '%s'", values)
	}

	span, ok := unit.DefinitionSpan("shade")
	if !ok {
		t.Fatalf("Expected a span for shade")
	}
	if got := src[span.Start:span.End]; got != "pub fn shade() { Red }" {
		t.Errorf("Expected the definition text, got '%s'", got)
	}
}

func TestRenderType(t *testing.T) {
	a := &TypeVar{ID: 1}
	b := &TypeVar{ID: 2}
	tests := []struct {
		name string
		typ  Type
		want string
	}{
		{"named", intType, "Int"},
		{"applied", resultType(intType, a), "Result(Int, a)"},
		{"function", &FnType{Params: []Type{b, a}, Return: b}, "fn(a, b) -> a"},
		{"tuple", &TupleType{Elems: []Type{stringType, listType(a)}}, "#(String, List(a))"},
		{"linked", &TypeVar{Link: floatType}, "Float"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderType(tt.typ); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestLetterName(t *testing.T) {
	tests := map[int]string{0: "a", 1: "b", 25: "z", 26: "aa", 27: "ab", 51: "az", 52: "ba"}
	for i, want := range tests {
		if got := letterName(i); got != want {
			t.Errorf("letterName(%d): expected '%s', got '%s'", i, want, got)
		}
	}
}
