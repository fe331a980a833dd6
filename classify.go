package glint

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ItemKind tags a top-level construct of a REPL line
type ItemKind int

const (
	ItemImport ItemKind = iota
	ItemConst
	ItemType
	ItemFn
	ItemLet
	ItemDiscard
	ItemUse
	ItemExpr
)

var itemKindNames = map[ItemKind]string{
	ItemImport:  "import",
	ItemConst:   "const",
	ItemType:    "type",
	ItemFn:      "fn",
	ItemLet:     "let",
	ItemDiscard: "discard",
	ItemUse:     "use",
	ItemExpr:    "expression",
}

func (k ItemKind) String() string {
	return itemKindNames[k]
}

// User facing messages for rejected input
const (
	msgImports       = "imports are not supported."
	msgLetPatterns   = "patterns are not supported in let statements."
	msgUse           = "use statements are not supported outside of a block."
	msgTypeQueryForm = ":type expects exactly one expression."
)

// TypeQueryPrefix switches a line into type display mode
const TypeQueryPrefix = ":type"

// QuitCommand ends the session
const QuitCommand = ":quit"

// TurnItem is one definition or statement of a line. Text is the exact
// source of the item, Span its position in the line.
type TurnItem struct {
	Kind ItemKind
	Name string
	Text string
	Span Span

	Def  Definition
	Stmt Stmt
	// complex marks a let whose pattern is neither a name nor a discard
	complex bool
}

// Unsupported returns the refusal for items the REPL never compiles
func (it *TurnItem) Unsupported() error {
	switch {
	case it.Kind == ItemImport:
		return &UnsupportedError{Message: msgImports}
	case it.Kind == ItemUse:
		return &UnsupportedError{Message: msgUse}
	case it.Kind == ItemLet && it.complex:
		return &UnsupportedError{Message: msgLetPatterns}
	}
	return nil
}

// Line is a classified REPL input
type Line struct {
	Input     string
	TypeQuery bool
	Items     []*TurnItem
}

// Classify parses one REPL input into its items; unit names the input in
// parse diagnostics
func Classify(input, unit string) (*Line, error) {
	line := &Line{Input: input}
	if rest, ok := strings.CutPrefix(strings.TrimLeft(input, " \t"), TypeQueryPrefix); ok &&
		(rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n') {
		line.TypeQuery = true
		line.Input = rest
	}

	parsed, err := ParseSeries(line.Input)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Unit = unit
		}
		return nil, err
	}
	if err := checkReservedNames(line.Input, unit); err != nil {
		return nil, err
	}
	for _, si := range parsed {
		line.Items = append(line.Items, classifyItem(line.Input, si))
	}

	if line.TypeQuery {
		if len(line.Items) != 1 || (line.Items[0].Kind != ItemExpr && line.Items[0].Kind != ItemLet) {
			return nil, &UnsupportedError{Message: msgTypeQueryForm}
		}
	}
	return line, nil
}

func classifyItem(src string, si SeriesItem) *TurnItem {
	span := si.Span()
	it := &TurnItem{Text: src[span.Start:span.End], Span: span, Def: si.Def, Stmt: si.Stmt}
	switch d := si.Def.(type) {
	case *ImportDef:
		it.Kind = ItemImport
		return it
	case *ConstDef:
		it.Kind, it.Name = ItemConst, d.Name
		return it
	case *TypeDef:
		it.Kind, it.Name = ItemType, d.Name
		return it
	case *FnDef:
		it.Kind, it.Name = ItemFn, d.Name
		return it
	}

	switch s := si.Stmt.(type) {
	case *LetStmt:
		switch p := s.Pattern.(type) {
		case *VarPattern:
			it.Kind, it.Name = ItemLet, p.Name
		case *DiscardPattern:
			it.Kind = ItemDiscard
		default:
			it.Kind = ItemLet
			it.complex = true
		}
	case *UseStmt:
		it.Kind = ItemUse
	default:
		it.Kind = ItemExpr
	}
	return it
}

// checkReservedNames refuses input that names the generated repl_ functions
func checkReservedNames(input, unit string) error {
	tokens, err := Tokenize(input)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if tok.Kind == TokName && strings.HasPrefix(tok.Text, reservedPrefix) {
			return &CompileError{
				Unit:    unit,
				Source:  input,
				Span:    tok.Span,
				Message: fmt.Sprintf("names starting with %s are reserved", reservedPrefix),
			}
		}
	}
	return nil
}
