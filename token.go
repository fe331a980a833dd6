package glint

import "fmt"

// Span is a half-open byte range [Start, End) into a source text
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Join returns the smallest span covering both s and other
func (s Span) Join(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// Contains reports whether offset falls inside the span
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// TokenKind identifies the lexical class of a token
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokName
	TokUpName
	TokDiscardName
	TokInt
	TokFloat
	TokString

	// Keywords
	TokAs
	TokAssert
	TokCase
	TokConst
	TokFn
	TokIf
	TokImport
	TokLet
	TokPanic
	TokPub
	TokTodo
	TokType
	TokUse

	// Punctuation
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokComma
	TokColon
	TokDot
	TokDotDot
	TokEqual
	TokRArrow
	TokLArrow
	TokBar
	TokHash
	TokAt

	// Operators
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokPlusDot
	TokMinusDot
	TokStarDot
	TokSlashDot
	TokLess
	TokGreater
	TokLessEq
	TokGreaterEq
	TokLessDot
	TokGreaterDot
	TokLessEqDot
	TokGreaterEqDot
	TokEqEq
	TokNotEq
	TokAndAnd
	TokOrOr
	TokConcat
	TokPipe
	TokBang
)

var keywords = map[string]TokenKind{
	"as":     TokAs,
	"assert": TokAssert,
	"case":   TokCase,
	"const":  TokConst,
	"fn":     TokFn,
	"if":     TokIf,
	"import": TokImport,
	"let":    TokLet,
	"panic":  TokPanic,
	"pub":    TokPub,
	"todo":   TokTodo,
	"type":   TokType,
	"use":    TokUse,
}

var tokenNames = map[TokenKind]string{
	TokEOF:          "end of input",
	TokName:         "name",
	TokUpName:       "upper case name",
	TokDiscardName:  "discard name",
	TokInt:          "int",
	TokFloat:        "float",
	TokString:       "string",
	TokLParen:       "(",
	TokRParen:       ")",
	TokLBracket:     "[",
	TokRBracket:     "]",
	TokLBrace:       "{",
	TokRBrace:       "}",
	TokComma:        ",",
	TokColon:        ":",
	TokDot:          ".",
	TokDotDot:       "..",
	TokEqual:        "=",
	TokRArrow:       "->",
	TokLArrow:       "<-",
	TokBar:          "|",
	TokHash:         "#",
	TokAt:           "@",
	TokPlus:         "+",
	TokMinus:        "-",
	TokStar:         "*",
	TokSlash:        "/",
	TokPercent:      "%",
	TokPlusDot:      "+.",
	TokMinusDot:     "-.",
	TokStarDot:      "*.",
	TokSlashDot:     "/.",
	TokLess:         "<",
	TokGreater:      ">",
	TokLessEq:       "<=",
	TokGreaterEq:    ">=",
	TokLessDot:      "<.",
	TokGreaterDot:   ">.",
	TokLessEqDot:    "<=.",
	TokGreaterEqDot: ">=.",
	TokEqEq:         "==",
	TokNotEq:        "!=",
	TokAndAnd:       "&&",
	TokOrOr:         "||",
	TokConcat:       "<>",
	TokPipe:         "|>",
	TokBang:         "!",
}

// String returns a human readable name for the token kind
func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	for word, kind := range keywords {
		if kind == k {
			return word
		}
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a single lexical token
type Token struct {
	Kind TokenKind
	Text string
	Span Span
}

// describe renders the token for error messages
func (t Token) describe() string {
	switch t.Kind {
	case TokEOF:
		return "end of input"
	case TokName, TokUpName, TokDiscardName, TokInt, TokFloat:
		return fmt.Sprintf("'%s'", t.Text)
	case TokString:
		return "a string"
	}
	return fmt.Sprintf("'%s'", t.Kind)
}
