package glint

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoadSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/work/app.glint":           "import helper\nimport std/io\npub fn main() { io.println(helper.name()) }",
		"/work/helper.glint":        "import shapes/circle\npub fn name() { circle.label() }",
		"/work/shapes/circle.glint": "pub fn label() { \"circle\" }",
		"/work/unused.glint":        "pub fn x() { 1 }",
	}
	for path, src := range files {
		if err := afero.WriteFile(fs, path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sources, names, err := LoadSources(fs, []string{"/work/app.glint"})
	if err != nil {
		t.Fatalf("LoadSources failed: %v", err)
	}
	if len(names) != 1 || names[0] != "app" {
		t.Errorf("Expected names [app], got %v", names)
	}
	for _, want := range []string{"app", "helper", "shapes/circle"} {
		if _, ok := sources[want]; !ok {
			t.Errorf("Expected module %s to be read, got %d modules", want, len(sources))
		}
	}
	if _, ok := sources["unused"]; ok {
		t.Error("Expected modules nobody imports to be left alone")
	}

	p, err := NewProject(NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	units, err := CompileFiles(p, sources)
	if err != nil {
		t.Fatalf("CompileFiles failed: %v", err)
	}
	var out bytes.Buffer
	m := NewMachine(&out, &bytes.Buffer{}, NewLogger(false))
	if err := RunMain(context.Background(), m, units, "app", strings.NewReader(""), &out); err != nil {
		t.Fatalf("RunMain failed: %v", err)
	}
	if out.String() != "circle\n" {
		t.Errorf("Expected %q, got %q", "circle\n", out.String())
	}
}

func TestLoadSourcesMissingImport(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/work/app.glint", []byte("import nowhere\npub fn main() { 1 }"), 0o644); err != nil {
		t.Fatal(err)
	}
	sources, _, err := LoadSources(fs, []string{"/work/app.glint"})
	if err != nil {
		t.Fatalf("Expected a missing import to be left to the compiler, got %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("Expected only app, got %d modules", len(sources))
	}
	if _, _, err := LoadSources(fs, []string{"/work/absent.glint"}); err == nil {
		t.Error("Expected a missing file to fail")
	}
}

func TestRunMainEntryPoints(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		stdin string
		want  string
	}{
		{"main result is not echoed when Nil", "import std/io\npub fn main() { io.println(\"hi\") }", "", "hi\n"},
		{"main result is inspected", "pub fn main() { [1, 2] }", "", "[1, 2]\n"},
		{"smain with the whole input", "import std/string\npub fn smain(text: String) -> String { string.uppercase(text) }", "ab\ncd\n", "AB\nCD\n"},
		{"smain with lines", "import std/list\npub fn smain(lines: List(String)) -> Int { list.length(lines) }", "a\nb\nc", "3\n"},
		{"smain without input", "pub fn smain() { \"plain\" }", "ignored", "plain\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, units, err := compileModule(t, tt.src)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			var out bytes.Buffer
			m := NewMachine(&out, &bytes.Buffer{}, NewLogger(false))
			if err := RunMain(context.Background(), m, units, "m", strings.NewReader(tt.stdin), &out); err != nil {
				t.Fatalf("RunMain failed: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, out.String())
			}
		})
	}
}

func TestFindMainErrors(t *testing.T) {
	tests := []struct {
		src     string
		message string
	}{
		{"pub fn smain(n: Int) { n }", "smain in module m must take String or List(String), found fn(Int) -> Int"},
		{"pub fn main(n: Int) { n }", "main in module m must take no arguments"},
		{"pub fn other() { 1 }", "module m has no main function"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			unit, _, err := compileModule(t, tt.src)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if _, err := FindMain(unit); err == nil || err.Error() != tt.message {
				t.Errorf("Expected '%s', got %v", tt.message, err)
			}
		})
	}
}
