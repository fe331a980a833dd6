package glint

import (
	"testing"
)

func TestParseSeries(t *testing.T) {
	t.Run("Definitions and statements", func(t *testing.T) {
		src := "const x = 1 type T { A B } fn f() { x } let y = f() y"
		items, err := ParseSeries(src)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(items) != 5 {
			t.Fatalf("Expected 5 items, got %d", len(items))
		}
		if _, ok := items[0].Def.(*ConstDef); !ok {
			t.Errorf("Expected *ConstDef, got %T", items[0].Def)
		}
		if _, ok := items[1].Def.(*TypeDef); !ok {
			t.Errorf("Expected *TypeDef, got %T", items[1].Def)
		}
		if _, ok := items[2].Def.(*FnDef); !ok {
			t.Errorf("Expected *FnDef, got %T", items[2].Def)
		}
		if _, ok := items[3].Stmt.(*LetStmt); !ok {
			t.Errorf("Expected *LetStmt, got %T", items[3].Stmt)
		}
		if _, ok := items[4].Stmt.(*ExprStmt); !ok {
			t.Errorf("Expected *ExprStmt, got %T", items[4].Stmt)
		}
	})

	t.Run("Item spans slice the source", func(t *testing.T) {
		src := "let a = 1  fn g(n) { n + a }"
		items, err := ParseSeries(src)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := []string{"let a = 1", "fn g(n) { n + a }"}
		for i, it := range items {
			span := it.Span()
			if got := src[span.Start:span.End]; got != want[i] {
				t.Errorf("Expected '%s', got '%s'", want[i], got)
			}
		}
	})

	t.Run("Anonymous fn is a statement", func(t *testing.T) {
		items, err := ParseSeries("fn(x) { x }")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(items) != 1 || items[0].Stmt == nil {
			t.Fatalf("Expected a single statement, got %+v", items)
		}
		stmt := items[0].Stmt.(*ExprStmt)
		if _, ok := stmt.Expr.(*FnExpr); !ok {
			t.Errorf("Expected *FnExpr, got %T", stmt.Expr)
		}
	})

	t.Run("Function body opening brace", func(t *testing.T) {
		src := "fn keep(_) { True }"
		items, err := ParseSeries(src)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		fd := items[0].Def.(*FnDef)
		if src[fd.BodyOpen.Start:fd.BodyOpen.End] != "{" {
			t.Errorf("Expected BodyOpen at '{', got %v", fd.BodyOpen)
		}
		if len(fd.Params) != 1 || fd.Params[0].Name != "_" {
			t.Errorf("Expected one discard parameter, got %+v", fd.Params)
		}
	})
}

func TestParseExpressions(t *testing.T) {
	t.Run("Precedence", func(t *testing.T) {
		items, err := ParseSeries("1 + 2 * 3")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		bin, ok := items[0].Stmt.(*ExprStmt).Expr.(*BinaryExpr)
		if !ok {
			t.Fatalf("Expected *BinaryExpr, got %T", items[0].Stmt.(*ExprStmt).Expr)
		}
		if bin.Op != TokPlus {
			t.Errorf("Expected '+' at the root, got %v", bin.Op)
		}
		if right, ok := bin.Right.(*BinaryExpr); !ok || right.Op != TokStar {
			t.Errorf("Expected '*' on the right, got %T", bin.Right)
		}
	})

	t.Run("Case with alternatives", func(t *testing.T) {
		items, err := ParseSeries("case x { 1 | 2 -> True _ -> False }")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		ce, ok := items[0].Stmt.(*ExprStmt).Expr.(*CaseExpr)
		if !ok {
			t.Fatalf("Expected *CaseExpr, got %T", items[0].Stmt.(*ExprStmt).Expr)
		}
		if len(ce.Clauses) != 2 {
			t.Fatalf("Expected 2 clauses, got %d", len(ce.Clauses))
		}
		if len(ce.Clauses[0].Alternatives) != 2 {
			t.Errorf("Expected 2 alternatives, got %d", len(ce.Clauses[0].Alternatives))
		}
	})

	t.Run("Let with complex pattern", func(t *testing.T) {
		items, err := ParseSeries("let #(a, b) = #(1, 2)")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		let := items[0].Stmt.(*LetStmt)
		if _, ok := let.Pattern.(*TuplePattern); !ok {
			t.Errorf("Expected *TuplePattern, got %T", let.Pattern)
		}
	})
}

func TestParseModule(t *testing.T) {
	src := `import std/int.{type Foo, add as plus} as i

@external(native, "int", "to_string")
pub fn to_string(n: Int) -> String

pub fn double(n: Int) -> Int {
  n * 2
}
`
	mod, err := ParseModule("m", src)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(mod.Imports) != 1 {
		t.Fatalf("Expected 1 import, got %d", len(mod.Imports))
	}
	imp := mod.Imports[0]
	if imp.Path != "std/int" || imp.Alias != "i" {
		t.Errorf("Expected std/int as i, got %s as %s", imp.Path, imp.Alias)
	}
	if len(imp.Types) != 1 || imp.Types[0].Name != "Foo" {
		t.Errorf("Expected type Foo imported, got %+v", imp.Types)
	}
	if len(imp.Values) != 1 || imp.Values[0].Alias != "plus" {
		t.Errorf("Expected add as plus, got %+v", imp.Values)
	}
	if len(mod.Defs) != 2 {
		t.Fatalf("Expected 2 definitions, got %d", len(mod.Defs))
	}
	ext := mod.Defs[0].(*FnDef)
	if ext.External == nil || ext.External.Module != "int" || ext.Body != nil {
		t.Errorf("Expected an external without body, got %+v", ext)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing value", "let x ="},
		{"unclosed body", "fn f() { 1"},
		{"unknown attribute", "@inline fn f() { 1 }"},
		{"const without value", "const x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeries(tt.src)
			if _, ok := err.(*ParseError); !ok {
				t.Errorf("Expected *ParseError, got %T (%v)", err, err)
			}
		})
	}
}
