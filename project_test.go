package glint

import (
	"context"
	"strings"
	"testing"
)

func TestProjectFiles(t *testing.T) {
	p, err := NewProject(NewLogger(false))
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}
	names, err := p.Modules()
	if err != nil {
		t.Fatalf("Modules failed: %v", err)
	}
	for _, std := range append(StdModules, "std/check") {
		found := false
		for _, n := range names {
			found = found || n == std
		}
		if !found {
			t.Errorf("Expected %s in %v", std, names)
		}
	}

	if err := p.WriteSource("app/util", "pub fn one() { 1 }"); err != nil {
		t.Fatalf("WriteSource failed: %v", err)
	}
	if !p.Exists("app/util") {
		t.Error("Expected app/util to exist")
	}
	src, err := p.ReadSource("app/util")
	if err != nil || src != "pub fn one() { 1 }" {
		t.Errorf("Unexpected source %q (%v)", src, err)
	}
	if err := p.Delete("app/util"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if p.Exists("app/util") {
		t.Error("Expected app/util to be gone")
	}
	if err := p.Delete("app/util"); err == nil {
		t.Error("Expected deleting a missing module to fail")
	}
}

func TestProjectCompile(t *testing.T) {
	p, err := NewProject(NewLogger(false))
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}

	t.Run("Dependency order", func(t *testing.T) {
		if err := p.WriteSource("b", "import a\npub fn two() { a.one() + 1 }"); err != nil {
			t.Fatal(err)
		}
		if err := p.WriteSource("a", "pub fn one() { 1 }"); err != nil {
			t.Fatal(err)
		}
		units, err := p.Compile()
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		index := map[string]int{}
		for i, u := range units {
			index[u.Name] = i
		}
		if index["a"] > index["b"] {
			t.Errorf("Expected a before b, got %v", index)
		}
	})

	t.Run("Unchanged units are reused", func(t *testing.T) {
		first, err := p.Compile()
		if err != nil {
			t.Fatal(err)
		}
		if err := p.WriteSource("b", "import a\npub fn two() { a.one() + 2 }"); err != nil {
			t.Fatal(err)
		}
		second, err := p.Compile()
		if err != nil {
			t.Fatal(err)
		}
		byName := func(units []*CompiledUnit, name string) *CompiledUnit {
			for _, u := range units {
				if u.Name == name {
					return u
				}
			}
			return nil
		}
		if byName(first, "a") != byName(second, "a") {
			t.Error("Expected module a to come from the cache")
		}
		if byName(first, "b") == byName(second, "b") {
			t.Error("Expected module b to be rechecked")
		}
	})

	t.Run("Syntax errors become compile errors", func(t *testing.T) {
		if err := p.WriteSource("broken", "pub fn f( {"); err != nil {
			t.Fatal(err)
		}
		defer p.Delete("broken")
		_, err := p.Compile()
		ce, ok := err.(*CompileError)
		if !ok {
			t.Fatalf("Expected *CompileError, got %T (%v)", err, err)
		}
		if ce.Unit != "broken" || !strings.HasPrefix(ce.Message, "syntax error: ") {
			t.Errorf("Unexpected error %+v", ce)
		}
	})

	t.Run("Import cycle", func(t *testing.T) {
		if err := p.WriteSource("c1", "import c2\npub fn f() { 1 }"); err != nil {
			t.Fatal(err)
		}
		if err := p.WriteSource("c2", "import c1\npub fn g() { 1 }"); err != nil {
			t.Fatal(err)
		}
		defer p.Delete("c1")
		defer p.Delete("c2")
		_, err := p.Compile()
		if err == nil || !strings.Contains(err.Error(), "import cycle") {
			t.Errorf("Expected an import cycle error, got %v", err)
		}
	})
}

func TestRunMain(t *testing.T) {
	p, err := NewProject(NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	units, err := CompileFiles(p, map[string]string{"app": "import std/io\npub fn main() { io.println(\"hello\") }"})
	if err != nil {
		t.Fatalf("CompileFiles failed: %v", err)
	}
	var out, errOut strings.Builder
	m := NewMachine(&out, &errOut, NewLogger(false))
	if err := RunMain(context.Background(), m, units, "app", strings.NewReader(""), &out); err != nil {
		t.Fatalf("RunMain failed: %v", err)
	}
	if out.String() != "hello\n" {
		t.Errorf("Expected only the printed line, got %q", out.String())
	}

	if _, err := CompileFiles(p, map[string]string{"std/x": "pub fn f() { 1 }"}); err == nil {
		t.Error("Expected a reserved module name to be refused")
	}
	if ModuleNameForFile("/tmp/demo/app.glint") != "app" {
		t.Errorf("Unexpected module name '%s'", ModuleNameForFile("/tmp/demo/app.glint"))
	}
}
