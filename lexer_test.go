package glint

import (
	"testing"
)

func tokenKinds(t *testing.T, src string) []TokenKind {
	t.Helper()
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func sameKinds(a, b []TokenKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []TokenKind
	}{
		{"let binding", "let x = 1", []TokenKind{TokLet, TokName, TokEqual, TokInt, TokEOF}},
		{"float operators", "1.5 +. 2.0", []TokenKind{TokFloat, TokPlusDot, TokFloat, TokEOF}},
		{"comparison dot", "a <=. b", []TokenKind{TokName, TokLessEqDot, TokName, TokEOF}},
		{"pipe and concat", `x |> f <> "s"`, []TokenKind{TokName, TokPipe, TokName, TokConcat, TokString, TokEOF}},
		{"tuple index", "t.0.1", []TokenKind{TokName, TokDot, TokInt, TokDot, TokInt, TokEOF}},
		{"list spread", "[x, ..rest]", []TokenKind{TokLBracket, TokName, TokComma, TokDotDot, TokName, TokRBracket, TokEOF}},
		{"discard name", "_ignored", []TokenKind{TokDiscardName, TokEOF}},
		{"constructor", "Ok(1)", []TokenKind{TokUpName, TokLParen, TokInt, TokRParen, TokEOF}},
		{"comment skipped", "1 // one\n2", []TokenKind{TokInt, TokInt, TokEOF}},
		{"arrows", "fn(a) -> b <- c", []TokenKind{TokFn, TokLParen, TokName, TokRParen, TokRArrow, TokName, TokLArrow, TokName, TokEOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenKinds(t, tt.src)
			if !sameKinds(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTokenizeLiterals(t *testing.T) {
	t.Run("Underscores in numbers", func(t *testing.T) {
		tokens, err := Tokenize("1_000_000")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if tokens[0].Text != "1000000" {
			t.Errorf("Expected '1000000', got '%s'", tokens[0].Text)
		}
	})

	t.Run("Float exponent", func(t *testing.T) {
		tokens, err := Tokenize("2.5e-3")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if tokens[0].Kind != TokFloat || tokens[0].Text != "2.5e-3" {
			t.Errorf("Expected float '2.5e-3', got %v '%s'", tokens[0].Kind, tokens[0].Text)
		}
	})

	t.Run("String escapes", func(t *testing.T) {
		tokens, err := Tokenize(`"a\n\"b\"\u{1F600}"`)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := "a\n\"b\"\U0001F600"
		if tokens[0].Text != want {
			t.Errorf("Expected %q, got %q", want, tokens[0].Text)
		}
	})

	t.Run("Spans cover the source", func(t *testing.T) {
		src := "let name = 42"
		tokens, err := Tokenize(src)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := src[tokens[1].Span.Start:tokens[1].Span.End]; got != "name" {
			t.Errorf("Expected 'name', got '%s'", got)
		}
		if got := src[tokens[3].Span.Start:tokens[3].Span.End]; got != "42" {
			t.Errorf("Expected '42', got '%s'", got)
		}
	})
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unterminated string", `"abc`, "unterminated string"},
		{"bad escape", `"\q"`, "unknown escape sequence"},
		{"bad number", "12abc", "invalid number literal"},
		{"stray character", "let x = $", "unexpected character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("Expected *ParseError, got %T (%v)", err, err)
			}
			if pe.Message != tt.message {
				t.Errorf("Expected '%s', got '%s'", tt.message, pe.Message)
			}
		})
	}
}
