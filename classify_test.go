package glint

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []ItemKind
		names []string
	}{
		{"let", "let a = Ok(10)", []ItemKind{ItemLet}, []string{"a"}},
		{"let assert", "let assert x = 1", []ItemKind{ItemLet}, []string{"x"}},
		{"discard", "let _ = 1", []ItemKind{ItemDiscard}, []string{""}},
		{"named discard", "let _unused = 1", []ItemKind{ItemDiscard}, []string{""}},
		{"expression", "1 + 1", []ItemKind{ItemExpr}, []string{""}},
		{"anonymous fn", "fn(x) { x }", []ItemKind{ItemExpr}, []string{""}},
		{"named fn", "fn keep(_) { True }", []ItemKind{ItemFn}, []string{"keep"}},
		{"const", "const limit = 10", []ItemKind{ItemConst}, []string{"limit"}},
		{"type", "type Color { Red Blue }", []ItemKind{ItemType}, []string{"Color"}},
		{"import", "import something", []ItemKind{ItemImport}, []string{""}},
		{"use", "use x <- f()", []ItemKind{ItemUse}, []string{""}},
		{"several", "const n = 1 let m = n m", []ItemKind{ItemConst, ItemLet, ItemExpr}, []string{"n", "m", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Classify(tt.input, "repl_1_0")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(line.Items) != len(tt.kinds) {
				t.Fatalf("Expected %d items, got %d", len(tt.kinds), len(line.Items))
			}
			for i, it := range line.Items {
				if it.Kind != tt.kinds[i] {
					t.Errorf("Item %d: expected %s, got %s", i, tt.kinds[i], it.Kind)
				}
				if it.Name != tt.names[i] {
					t.Errorf("Item %d: expected name '%s', got '%s'", i, tt.names[i], it.Name)
				}
			}
		})
	}
}

func TestClassifyItemText(t *testing.T) {
	input := "fn f(x) {\n  // keep me\n  x\n}  f(1)"
	line, err := Classify(input, "repl_1_0")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "fn f(x) {\n  // keep me\n  x\n}"
	if line.Items[0].Text != want {
		t.Errorf("Expected %q, got %q", want, line.Items[0].Text)
	}
	if line.Items[1].Text != "f(1)" {
		t.Errorf("Expected 'f(1)', got %q", line.Items[1].Text)
	}
	if got := input[line.Items[1].Span.Start:line.Items[1].Span.End]; got != "f(1)" {
		t.Errorf("Expected span over 'f(1)', got %q", got)
	}
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"import something", "imports are not supported."},
		{"let 10 = 10", "patterns are not supported in let statements."},
		{"let #(a, b) = #(1, 2)", "patterns are not supported in let statements."},
		{"use x <- f()", "use statements are not supported outside of a block."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			line, err := Classify(tt.input, "repl_1_0")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			uerr := line.Items[0].Unsupported()
			if uerr == nil {
				t.Fatal("Expected the item to be refused")
			}
			if uerr.Error() != tt.message {
				t.Errorf("Expected '%s', got '%s'", tt.message, uerr.Error())
			}
		})
	}

	line, err := Classify("let x = 1", "repl_1_0")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if line.Items[0].Unsupported() != nil {
		t.Error("Expected a simple let to be supported")
	}
}

func TestClassifyTypeQuery(t *testing.T) {
	t.Run("Expression", func(t *testing.T) {
		line, err := Classify(":type int.add", "repl_1_0")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !line.TypeQuery {
			t.Error("Expected a type query")
		}
		if line.Input != " int.add" {
			t.Errorf("Expected the prefix to be stripped, got %q", line.Input)
		}
		if line.Items[0].Text != "int.add" {
			t.Errorf("Expected 'int.add', got %q", line.Items[0].Text)
		}
	})

	t.Run("Let", func(t *testing.T) {
		line, err := Classify(":type let x = 1", "repl_1_0")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !line.TypeQuery || line.Items[0].Kind != ItemLet {
			t.Errorf("Expected a let type query, got %+v", line)
		}
	})

	rejected := []string{":type", ":type fn f() { 1 }", ":type 1 2", ":type const x = 1"}
	for _, input := range rejected {
		t.Run(input, func(t *testing.T) {
			_, err := Classify(input, "repl_1_0")
			ue, ok := err.(*UnsupportedError)
			if !ok {
				t.Fatalf("Expected *UnsupportedError, got %T (%v)", err, err)
			}
			if ue.Message != ":type expects exactly one expression." {
				t.Errorf("Unexpected message '%s'", ue.Message)
			}
		})
	}

	t.Run("Prefix must be a separate word", func(t *testing.T) {
		_, err := Classify(":typed 1", "repl_4_0")
		pe, ok := err.(*ParseError)
		if !ok {
			t.Fatalf("Expected *ParseError, got %T (%v)", err, err)
		}
		if pe.Unit != "repl_4_0" {
			t.Errorf("Expected the unit to be set, got '%s'", pe.Unit)
		}
	})
}

func TestClassifyReservedNames(t *testing.T) {
	_, err := Classify("let x = 1\nrepl_load(0)", "repl_4_0")
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("Expected *CompileError, got %T (%v)", err, err)
	}
	if ce.Unit != "repl_4_0" || ce.Span != (Span{10, 19}) {
		t.Errorf("Unexpected error %+v", ce)
	}
	if _, err := Classify("\"repl_load\" <> my_repl_x", "repl_4_0"); err != nil {
		t.Errorf("Expected strings and other names to pass, got %v", err)
	}
}
