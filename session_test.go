package glint

import (
	"strings"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := NewSession("import mine")
	if s.UserImport != "import mine" {
		t.Errorf("Expected the user import, got '%s'", s.UserImport)
	}
	if len(s.Imports) != len(StdModules) {
		t.Fatalf("Expected %d imports, got %d", len(StdModules), len(s.Imports))
	}
	if s.Imports[0] != "import std/bool" {
		t.Errorf("Expected 'import std/bool' first, got '%s'", s.Imports[0])
	}
}

func TestSessionRestore(t *testing.T) {
	s := NewSession("")
	s.AddConst("const a = 1")
	s.SetFn("f", "fn f() { 1 }")
	s.SetVar("x", s.allocSlot(), "Int")
	s.Turn = 1
	before := BuildBase(s)

	snapshot := s.Clone()
	s.Turn = 2
	s.AddConst("const b = 2")
	s.AddType("type T { T }")
	s.SetFn("f", "fn f() { 2 }")
	s.SetFn("g", "fn g() { 3 }")
	s.SetVar("y", s.allocSlot(), "String")
	s.restore(snapshot)

	if got := BuildBase(s); got != before {
		t.Errorf("Expected the restored session to render as before\nwant:\n%s\ngot:\n%s", before, got)
	}
	if _, ok := s.Vars["y"]; ok {
		t.Error("Expected y to be gone after restore")
	}
	if len(s.FnOrder) != 1 {
		t.Errorf("Expected one function after restore, got %v", s.FnOrder)
	}
	if s.Turn != 2 {
		t.Errorf("Expected the turn counter to stay at 2, got %d", s.Turn)
	}
	if s.NextSlot != 2 {
		t.Errorf("Expected the next slot to stay at 2, got %d", s.NextSlot)
	}
}

func TestSessionClone(t *testing.T) {
	s := NewSession("")
	s.SetFn("f", "fn f() { 1 }")
	c := s.Clone()
	c.SetFn("f", "fn f() { 2 }")
	c.AddConst("const z = 0")
	if s.Fns["f"] != "fn f() { 1 }" {
		t.Errorf("Expected the original to keep its body, got '%s'", s.Fns["f"])
	}
	if len(s.Consts) != 0 {
		t.Errorf("Expected the original to have no constants, got %v", s.Consts)
	}
}

func TestSessionSetFn(t *testing.T) {
	s := NewSession("")
	s.SetVar("keep", s.allocSlot(), "fn(Int) -> Bool")
	s.SetFn("keep", "fn keep(_) { True }")
	s.SetFn("other", "fn other() { 1 }")
	s.SetFn("keep", "fn keep(_) { False }")

	if _, ok := s.Vars["keep"]; ok {
		t.Error("Expected the variable to be replaced by the function")
	}
	if strings.Join(s.FnOrder, ",") != "keep,other" {
		t.Errorf("Expected first definition order, got %v", s.FnOrder)
	}
	if s.Fns["keep"] != "fn keep(_) { False }" {
		t.Errorf("Expected the second body, got '%s'", s.Fns["keep"])
	}
}

func TestSessionVarNames(t *testing.T) {
	s := NewSession("")
	s.SetVar("z", 0, "Int")
	s.SetVar("a", 2, "Int")
	s.SetVar("m", 1, "Int")
	if got := strings.Join(s.VarNames(), ","); got != "z,m,a" {
		t.Errorf("Expected slot order z,m,a, got %s", got)
	}
}
