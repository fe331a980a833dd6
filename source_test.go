package glint

import (
	"strings"
	"testing"
)

func classifyOne(t *testing.T, input string) (*Line, *TurnItem) {
	t.Helper()
	line, err := Classify(input, "repl_1_0")
	if err != nil {
		t.Fatalf("Classify(%q) failed: %v", input, err)
	}
	return line, line.Items[0]
}

func sessionWithVars() *Session {
	s := NewSession("")
	s.SetVar("a", 0, "Int")
	s.SetVar("x", 1, "Result(Int, a)")
	s.NextSlot = 2
	return s
}

func TestShimLine(t *testing.T) {
	got := ShimLine("x", VarBinding{Slot: 3, Type: "List(a)"})
	if got != "  let x: List(a) = repl_load(3)\n" {
		t.Errorf("Unexpected shim %q", got)
	}
	if SaveCall("x", 4) != "repl_save(x, 4)" {
		t.Errorf("Unexpected save call %q", SaveCall("x", 4))
	}
}

func TestBuildWrapper(t *testing.T) {
	t.Run("Let", func(t *testing.T) {
		_, item := classifyOne(t, "let b = a + 1")
		src := BuildWrapper(sessionWithVars(), item)
		want := "fn repl_main() {\n" +
			"  let a: Int = repl_load(0)\n" +
			"  let x: Result(Int, a) = repl_load(1)\n" +
			"  let b = a + 1\n" +
			"  repl_save(b, 2)\n" +
			"}\n"
		if !strings.HasSuffix(src.Text, want) {
			t.Errorf("Expected wrapper\n%s\ngot\n%s", want, src.Text)
		}
		if !strings.HasPrefix(src.Text, bridgeHeader) {
			t.Error("Expected the bridge header first")
		}
	})

	t.Run("Discard", func(t *testing.T) {
		_, item := classifyOne(t, "let _ = 5")
		src := BuildWrapper(NewSession(""), item)
		want := "fn repl_main() {\n  let repl_value = 5\n  repl_value\n}\n"
		if !strings.HasSuffix(src.Text, want) {
			t.Errorf("Expected wrapper\n%s\ngot\n%s", want, src.Text)
		}
	})

	t.Run("Expression", func(t *testing.T) {
		_, item := classifyOne(t, "a * 2")
		src := BuildWrapper(sessionWithVars(), item)
		if !strings.Contains(src.Text, "  a * 2\n}\n") {
			t.Errorf("Expected the expression as the body tail, got\n%s", src.Text)
		}
		if strings.Count(src.Text, "repl_save(") != 1 {
			t.Error("Expected no save call for a bare expression")
		}
	})

	t.Run("Imports and definitions", func(t *testing.T) {
		s := NewSession("import mine.{thing}")
		s.AddConst("const limit = 3")
		s.AddType("type Color { Red }")
		s.SetFn("double", "fn double(n) { n * 2 }")
		_, item := classifyOne(t, "double(limit)")
		text := BuildWrapper(s, item).Text
		order := []string{bridgeHeader, "import mine.{thing}\n", "import std/int\n", "const limit = 3\n", "type Color { Red }\n", "fn double(n) { n * 2 }\n", "fn repl_main() {\n"}
		last := -1
		for _, part := range order {
			i := strings.Index(text, part)
			if i <= last {
				t.Fatalf("Expected %q after the previous section in\n%s", part, text)
			}
			last = i
		}
	})
}

func TestSourceMap(t *testing.T) {
	input := "let b = a + 1"
	_, item := classifyOne(t, input)
	src := BuildWrapper(sessionWithVars(), item)

	at := strings.Index(src.Text, "a + 1")
	span, ok := src.Map.ToOriginal(Span{Start: at, End: at + 5})
	if !ok {
		t.Fatal("Expected the span to map into the input")
	}
	if got := input[span.Start:span.End]; got != "a + 1" {
		t.Errorf("Expected 'a + 1', got '%s'", got)
	}

	shim := strings.Index(src.Text, "repl_load(0)")
	if _, ok := src.Map.ToOriginal(Span{Start: shim, End: shim + 4}); ok {
		t.Error("Expected generated text not to map")
	}
}

func TestBuildDefinition(t *testing.T) {
	t.Run("Function gets shims after its opening brace", func(t *testing.T) {
		s := sessionWithVars()
		_, item := classifyOne(t, "fn f(a) { a + 1 }")
		src := BuildDefinition(s, item)
		want := "fn f(a) {\n  let x: Result(Int, a) = repl_load(1)\na + 1 }"
		if src.FnText != want {
			t.Errorf("Expected %q, got %q", want, src.FnText)
		}
		if !strings.Contains(src.Text, want+"\n") {
			t.Errorf("Expected the function in the unit, got\n%s", src.Text)
		}
	})

	t.Run("Own name is not shimmed", func(t *testing.T) {
		s := NewSession("")
		s.SetVar("g", 0, "Int")
		_, item := classifyOne(t, "fn g() { 1 }")
		src := BuildDefinition(s, item)
		if strings.Contains(src.FnText, "repl_load") {
			t.Errorf("Expected no shim for the function's own name, got %q", src.FnText)
		}
	})

	t.Run("Replaced function is left out", func(t *testing.T) {
		s := NewSession("")
		s.SetFn("f", "fn f() { 1 }")
		_, item := classifyOne(t, "fn f() { 2 }")
		src := BuildDefinition(s, item)
		if strings.Contains(src.Text, "fn f() { 1 }") {
			t.Errorf("Expected the old body to be dropped, got\n%s", src.Text)
		}
	})

	t.Run("Constant goes last in its section", func(t *testing.T) {
		s := NewSession("")
		s.AddConst("const a = 1")
		s.AddType("type T { T }")
		_, item := classifyOne(t, "const b = a")
		text := BuildDefinition(s, item).Text
		ia, ib, it := strings.Index(text, "const a = 1"), strings.Index(text, "const b = a"), strings.Index(text, "type T")
		if !(ia < ib && ib < it) {
			t.Errorf("Expected const a, const b then type T, got\n%s", text)
		}
	})
}

func TestBuildBase(t *testing.T) {
	s := sessionWithVars()
	s.SetFn("f", "fn f() { 1 }")
	if BuildBase(s) != BuildBase(s.Clone()) {
		t.Error("Expected a clone to render the same base source")
	}
}
