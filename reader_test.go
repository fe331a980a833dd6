package glint

import (
	"io"
	"strings"
	"testing"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		input string
		want  InputState
	}{
		{"1 + 1", InputValid},
		{"fn f() {", InputIncomplete},
		{"[1, 2", InputIncomplete},
		{`"open`, InputIncomplete},
		{`"a \" b"`, InputValid},
		{`"{"`, InputValid},
		{"f() // {", InputValid},
		{"f(]", InputInvalid},
		{")", InputInvalid},
		{"fn f() {\n  1\n}", InputValid},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidateInput(tt.input); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestStreamReader(t *testing.T) {
	input := "let a = 1\nfn f(x) {\n  x + a\n}\n\n:quit\n"
	r := NewStreamReader(strings.NewReader(input))
	want := []string{"let a = 1", "fn f(x) {\n  x + a\n}", "", ":quit"}
	for i, w := range want {
		got, err := r.ReadLine()
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if got != w {
			t.Errorf("Read %d: expected %q, got %q", i, w, got)
		}
	}
	if _, err := r.ReadLine(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestStreamReaderIncompleteAtEOF(t *testing.T) {
	r := NewStreamReader(strings.NewReader("fn f() {\n  1"))
	got, err := r.ReadLine()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "fn f() {\n  1" {
		t.Errorf("Expected the partial input, got %q", got)
	}
	if _, err := r.ReadLine(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}
