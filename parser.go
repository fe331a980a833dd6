package glint

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Parser builds an AST from a token stream, tracking byte spans
type Parser struct {
	src    string
	tokens []Token
	pos    int
}

// NewParser tokenizes src and returns a parser positioned at its first token
func NewParser(src string) (*Parser, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return &Parser{src: src, tokens: tokens}, nil
}

// SeriesItem is one top-level construct of an interactive line: exactly one
// of Def or Stmt is set
type SeriesItem struct {
	Def  Definition
	Stmt Stmt
}

// Span returns the source range of the item
func (it SeriesItem) Span() Span {
	if it.Def != nil {
		return it.Def.DefSpan()
	}
	return it.Stmt.StmtSpan()
}

// ParseModule parses a complete source file
func ParseModule(name, src string) (*Module, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	mod := &Module{Name: name}
	for !p.at(TokEOF) {
		def, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		if imp, ok := def.(*ImportDef); ok {
			mod.Imports = append(mod.Imports, imp)
			continue
		}
		mod.Defs = append(mod.Defs, def)
	}
	return mod, nil
}

// ParseSeries parses a sequence of definitions and statements, as typed at
// the interactive prompt
func ParseSeries(src string) ([]SeriesItem, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	var items []SeriesItem
	for !p.at(TokEOF) {
		if p.atDefinition() {
			def, err := p.parseDefinition()
			if err != nil {
				return nil, err
			}
			items = append(items, SeriesItem{Def: def})
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		items = append(items, SeriesItem{Stmt: stmt})
	}
	return items, nil
}

// atDefinition decides whether the upcoming tokens start a definition.
// `fn` followed by '(' is an anonymous function, so it starts a statement.
func (p *Parser) atDefinition() bool {
	switch p.peek().Kind {
	case TokImport, TokPub, TokConst, TokType, TokAt:
		return true
	case TokFn:
		return p.peekAt(1).Kind == TokName
	case TokName:
		return p.peek().Text == "opaque" && p.peekAt(1).Kind == TokType
	}
	return false
}

// Token helpers

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) at(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

// lastEnd returns the end offset of the most recently consumed token
func (p *Parser) lastEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].Span.End
}

func (p *Parser) accept(kind TokenKind) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	if !p.at(kind) {
		return Token{}, p.unexpected(fmt.Sprintf("'%s'", kind))
	}
	return p.advance(), nil
}

func (p *Parser) unexpected(expected string) error {
	tok := p.peek()
	return p.errorf(tok.Span, "expected %s, got %s", expected, tok.describe())
}

func (p *Parser) errorf(span Span, format string, args ...interface{}) error {
	if span.End == span.Start {
		span.End = span.Start + 1
	}
	return &ParseError{Source: p.src, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Definitions

func (p *Parser) parseDefinition() (Definition, error) {
	start := p.peek().Span.Start
	if p.at(TokImport) {
		return p.parseImport()
	}

	var external *ExternalAttr
	for p.at(TokAt) {
		attr, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		if attr != nil {
			external = attr
		}
	}

	public := p.accept(TokPub)
	opaque := false
	if p.at(TokName) && p.peek().Text == "opaque" {
		p.advance()
		opaque = true
		if !p.at(TokType) {
			return nil, p.unexpected("'type'")
		}
	}

	switch p.peek().Kind {
	case TokFn:
		return p.parseFn(start, public, external)
	case TokConst:
		if external != nil {
			return nil, p.errorf(p.peek().Span, "@external can only be used on functions")
		}
		return p.parseConst(start, public)
	case TokType:
		if external != nil {
			return nil, p.errorf(p.peek().Span, "@external can only be used on functions")
		}
		return p.parseTypeDef(start, public, opaque)
	}
	return nil, p.unexpected("a definition")
}

// parseAttribute reads @external(target, "module", "function"); other
// attributes are rejected
func (p *Parser) parseAttribute() (*ExternalAttr, error) {
	p.advance()
	name, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	if name.Text != "external" {
		return nil, p.errorf(name.Span, "unknown attribute '%s'", name.Text)
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	target, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	module, err := p.expect(TokString)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	function, err := p.expect(TokString)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return &ExternalAttr{Target: target.Text, Module: module.Text, Function: function.Text}, nil
}

func (p *Parser) parseImport() (*ImportDef, error) {
	start := p.advance().Span.Start
	first, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	segments := []string{first.Text}
	for p.at(TokSlash) {
		p.advance()
		seg, err := p.expect(TokName)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg.Text)
	}
	imp := &ImportDef{
		Path:    strings.Join(segments, "/"),
		Alias:   segments[len(segments)-1],
		PathEnd: p.lastEnd(),
	}

	if p.at(TokDot) && p.peekAt(1).Kind == TokLBrace {
		p.advance()
		p.advance()
		for !p.at(TokRBrace) {
			isType := p.accept(TokType)
			tok := p.advance()
			if tok.Kind != TokName && tok.Kind != TokUpName {
				return nil, p.errorf(tok.Span, "expected a name to import, got %s", tok.describe())
			}
			name := &ImportName{Name: tok.Text, Span: tok.Span}
			if p.accept(TokAs) {
				alias := p.advance()
				if alias.Kind != TokName && alias.Kind != TokUpName {
					return nil, p.errorf(alias.Span, "expected an alias, got %s", alias.describe())
				}
				name.Alias = alias.Text
				name.Span = name.Span.Join(alias.Span)
			}
			if isType {
				if tok.Kind != TokUpName {
					return nil, p.errorf(tok.Span, "type names must start with an upper case letter")
				}
				imp.Types = append(imp.Types, name)
			} else {
				imp.Values = append(imp.Values, name)
			}
			if !p.accept(TokComma) {
				break
			}
		}
		if _, err := p.expect(TokRBrace); err != nil {
			return nil, err
		}
	}

	if p.accept(TokAs) {
		alias, err := p.expect(TokName)
		if err != nil {
			return nil, err
		}
		imp.Alias = alias.Text
	}
	imp.Span = Span{start, p.lastEnd()}
	return imp, nil
}

func (p *Parser) parseConst(start int, public bool) (*ConstDef, error) {
	p.advance()
	name, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	def := &ConstDef{Public: public, Name: name.Text}
	if p.accept(TokColon) {
		if def.Annotation, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokEqual); err != nil {
		return nil, err
	}
	if def.Value, err = p.parseExpr(); err != nil {
		return nil, err
	}
	def.Span = Span{start, p.lastEnd()}
	return def, nil
}

func (p *Parser) parseTypeDef(start int, public, opaque bool) (*TypeDef, error) {
	p.advance()
	name, err := p.expect(TokUpName)
	if err != nil {
		return nil, err
	}
	def := &TypeDef{Public: public, Opaque: opaque, Name: name.Text}
	if p.accept(TokLParen) {
		for !p.at(TokRParen) {
			param, err := p.expect(TokName)
			if err != nil {
				return nil, err
			}
			def.Params = append(def.Params, param.Text)
			if !p.accept(TokComma) {
				break
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}

	if p.accept(TokEqual) {
		if def.Alias, err = p.parseType(); err != nil {
			return nil, err
		}
		def.Span = Span{start, p.lastEnd()}
		return def, nil
	}

	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	for !p.at(TokRBrace) {
		ctor, err := p.parseCtorDef()
		if err != nil {
			return nil, err
		}
		def.Ctors = append(def.Ctors, ctor)
	}
	p.advance()
	def.Span = Span{start, p.lastEnd()}
	return def, nil
}

func (p *Parser) parseCtorDef() (*CtorDef, error) {
	name, err := p.expect(TokUpName)
	if err != nil {
		return nil, err
	}
	ctor := &CtorDef{Name: name.Text}
	if p.accept(TokLParen) {
		for !p.at(TokRParen) {
			field := &CtorField{}
			if p.at(TokName) && p.peekAt(1).Kind == TokColon {
				field.Label = p.advance().Text
				p.advance()
			}
			if field.Type, err = p.parseType(); err != nil {
				return nil, err
			}
			ctor.Fields = append(ctor.Fields, field)
			if !p.accept(TokComma) {
				break
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}
	ctor.Span = Span{name.Span.Start, p.lastEnd()}
	return ctor, nil
}

func (p *Parser) parseFn(start int, public bool, external *ExternalAttr) (*FnDef, error) {
	p.advance()
	name, err := p.expect(TokName)
	if err != nil {
		return nil, err
	}
	def := &FnDef{Public: public, Name: name.Text, NameSpan: name.Span, External: external}
	if def.Params, err = p.parseParams(); err != nil {
		return nil, err
	}
	if p.accept(TokRArrow) {
		if def.Return, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if external != nil && !p.at(TokLBrace) {
		def.Span = Span{start, p.lastEnd()}
		return def, nil
	}
	open, err := p.expect(TokLBrace)
	if err != nil {
		return nil, err
	}
	def.BodyOpen = open.Span
	if def.Body, err = p.parseStatements(); err != nil {
		return nil, err
	}
	def.Span = Span{start, p.lastEnd()}
	return def, nil
}

func (p *Parser) parseParams() ([]*Param, error) {
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	var params []*Param
	for !p.at(TokRParen) {
		tok := p.advance()
		if tok.Kind != TokName && tok.Kind != TokDiscardName {
			return nil, p.errorf(tok.Span, "expected a parameter name, got %s", tok.describe())
		}
		param := &Param{Name: tok.Text, Span: tok.Span}
		if p.accept(TokColon) {
			ann, err := p.parseType()
			if err != nil {
				return nil, err
			}
			param.Annotation = ann
			param.Span = param.Span.Join(ann.TypeSpan())
		}
		params = append(params, param)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return params, nil
}

// parseStatements reads statements up to and including the closing '}'
func (p *Parser) parseStatements() ([]Stmt, error) {
	var stmts []Stmt
	for !p.at(TokRBrace) {
		if p.at(TokEOF) {
			return nil, p.unexpected("'}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.advance()
	return stmts, nil
}

// Types

func (p *Parser) parseType() (TypeExpr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokName:
		p.advance()
		if p.at(TokDot) && p.peekAt(1).Kind == TokUpName {
			p.advance()
			return p.parseNamedType(tok.Text, tok.Span.Start)
		}
		return &VarTypeExpr{Name: tok.Text, Span: tok.Span}, nil
	case TokDiscardName:
		p.advance()
		return &HoleTypeExpr{Span: tok.Span}, nil
	case TokUpName:
		return p.parseNamedType("", tok.Span.Start)
	case TokFn:
		p.advance()
		params, err := p.parseTypeList(TokLParen)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRArrow); err != nil {
			return nil, err
		}
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &FnTypeExpr{Params: params, Return: ret, Span: Span{tok.Span.Start, p.lastEnd()}}, nil
	case TokHash:
		p.advance()
		elems, err := p.parseTypeList(TokLParen)
		if err != nil {
			return nil, err
		}
		return &TupleTypeExpr{Elems: elems, Span: Span{tok.Span.Start, p.lastEnd()}}, nil
	}
	return nil, p.unexpected("a type")
}

func (p *Parser) parseNamedType(module string, start int) (TypeExpr, error) {
	name, err := p.expect(TokUpName)
	if err != nil {
		return nil, err
	}
	named := &NamedTypeExpr{Module: module, Name: name.Text}
	if p.at(TokLParen) {
		if named.Args, err = p.parseTypeList(TokLParen); err != nil {
			return nil, err
		}
	}
	named.Span = Span{start, p.lastEnd()}
	return named, nil
}

func (p *Parser) parseTypeList(open TokenKind) ([]TypeExpr, error) {
	if _, err := p.expect(open); err != nil {
		return nil, err
	}
	var types []TypeExpr
	for !p.at(TokRParen) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return types, nil
}

// Statements

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.peek().Kind {
	case TokLet:
		return p.parseLet()
	case TokUse:
		return p.parseUse()
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

func (p *Parser) parseLet() (*LetStmt, error) {
	start := p.advance().Span.Start
	let := &LetStmt{Assert: p.accept(TokAssert)}
	var err error
	if let.Pattern, err = p.parsePattern(); err != nil {
		return nil, err
	}
	if p.accept(TokColon) {
		if let.Annotation, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokEqual); err != nil {
		return nil, err
	}
	if let.Value, err = p.parseExpr(); err != nil {
		return nil, err
	}
	let.Span = Span{start, p.lastEnd()}
	return let, nil
}

func (p *Parser) parseUse() (*UseStmt, error) {
	start := p.advance().Span.Start
	use := &UseStmt{}
	for !p.at(TokLArrow) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		use.Patterns = append(use.Patterns, pat)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokLArrow); err != nil {
		return nil, err
	}
	call, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	use.Call = call
	use.Span = Span{start, p.lastEnd()}
	return use, nil
}

// Expressions

func binaryPrecedence(kind TokenKind) int {
	switch kind {
	case TokOrOr:
		return 1
	case TokAndAnd:
		return 2
	case TokEqEq, TokNotEq:
		return 3
	case TokLess, TokGreater, TokLessEq, TokGreaterEq,
		TokLessDot, TokGreaterDot, TokLessEqDot, TokGreaterEqDot:
		return 4
	case TokConcat:
		return 5
	case TokPipe:
		return 6
	case TokPlus, TokMinus, TokPlusDot, TokMinusDot:
		return 7
	case TokStar, TokSlash, TokPercent, TokStarDot, TokSlashDot:
		return 8
	}
	return 0
}

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		prec := binaryPrecedence(op.Kind)
		if prec == 0 || prec <= minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Kind, Left: left, Right: right, Span: left.ExprSpan().Join(right.ExprSpan())}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokMinus:
		next := p.peekAt(1)
		if next.Span.Start == tok.Span.End && (next.Kind == TokInt || next.Kind == TokFloat) {
			p.advance()
			lit, err := p.parseNumber(p.advance(), true)
			if err != nil {
				return nil, err
			}
			return p.parsePostfix(lit)
		}
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: TokMinus, Operand: operand, Span: tok.Span.Join(operand.ExprSpan())}, nil
	case TokBang:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: TokBang, Operand: operand, Span: tok.Span.Join(operand.ExprSpan())}, nil
	}
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(primary)
}

// parseNumber converts an Int or Float token, folding a leading minus
func (p *Parser) parseNumber(tok Token, negative bool) (Expr, error) {
	span := tok.Span
	text := tok.Text
	if negative {
		span.Start--
		text = "-" + text
	}
	if tok.Kind == TokInt {
		v, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, p.errorf(span, "invalid int literal")
		}
		return &IntLit{Value: v, Span: span}, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf(span, "float literal out of range")
	}
	return &FloatLit{Value: v, Span: span}, nil
}

func (p *Parser) parsePostfix(expr Expr) (Expr, error) {
	for {
		switch p.peek().Kind {
		case TokLParen:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{Fn: expr, Args: args, Span: Span{expr.ExprSpan().Start, p.lastEnd()}}
		case TokDot:
			p.advance()
			label := p.advance()
			switch label.Kind {
			case TokName, TokUpName:
				expr = &FieldExpr{Target: expr, Label: label.Text, LabelSpan: label.Span, Span: Span{expr.ExprSpan().Start, label.Span.End}}
			case TokInt:
				idx, err := strconv.Atoi(label.Text)
				if err != nil {
					return nil, p.errorf(label.Span, "invalid tuple index")
				}
				expr = &TupleIndexExpr{Target: expr, Index: idx, Span: Span{expr.ExprSpan().Start, label.Span.End}}
			default:
				return nil, p.errorf(label.Span, "expected a field name, got %s", label.describe())
			}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]*Arg, error) {
	p.advance()
	var args []*Arg
	for !p.at(TokRParen) {
		arg := &Arg{}
		if p.at(TokName) && p.peekAt(1).Kind == TokColon {
			arg.Label = p.advance().Text
			p.advance()
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arg.Value = value
		args = append(args, arg)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokInt, TokFloat:
		p.advance()
		return p.parseNumber(tok, false)
	case TokString:
		p.advance()
		return &StringLit{Value: tok.Text, Span: tok.Span}, nil
	case TokName:
		p.advance()
		return &VarExpr{Name: tok.Text, Span: tok.Span}, nil
	case TokUpName:
		p.advance()
		return &CtorExpr{Name: tok.Text, Span: tok.Span}, nil
	case TokDiscardName:
		p.advance()
		return &HoleExpr{Span: tok.Span}, nil
	case TokLBracket:
		return p.parseList()
	case TokHash:
		p.advance()
		if !p.at(TokLParen) {
			return nil, p.unexpected("'('")
		}
		p.advance()
		var elems []Expr
		for !p.at(TokRParen) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.accept(TokComma) {
				break
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return &TupleExpr{Elems: elems, Span: Span{tok.Span.Start, p.lastEnd()}}, nil
	case TokFn:
		p.advance()
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		fn := &FnExpr{Params: params}
		if p.accept(TokRArrow) {
			if fn.Return, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(TokLBrace); err != nil {
			return nil, err
		}
		if fn.Body, err = p.parseStatements(); err != nil {
			return nil, err
		}
		fn.Span = Span{tok.Span.Start, p.lastEnd()}
		return fn, nil
	case TokLBrace:
		p.advance()
		body, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, p.errorf(Span{tok.Span.Start, p.lastEnd()}, "empty block")
		}
		return &BlockExpr{Body: body, Span: Span{tok.Span.Start, p.lastEnd()}}, nil
	case TokCase:
		return p.parseCase()
	case TokPanic, TokTodo:
		p.advance()
		pe := &PanicExpr{Todo: tok.Kind == TokTodo}
		if p.accept(TokAs) {
			msg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			pe.Message = msg
		}
		pe.Span = Span{tok.Span.Start, p.lastEnd()}
		return pe, nil
	}
	return nil, p.unexpected("an expression")
}

func (p *Parser) parseList() (Expr, error) {
	start := p.advance().Span.Start
	list := &ListExpr{}
	for !p.at(TokRBracket) {
		if p.accept(TokDotDot) {
			if len(list.Elems) == 0 {
				return nil, p.errorf(p.peek().Span, "a list spread needs at least one element before it")
			}
			tail, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.Tail = tail
			p.accept(TokComma)
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, e)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	list.Span = Span{start, p.lastEnd()}
	return list, nil
}

func (p *Parser) parseCase() (Expr, error) {
	start := p.advance().Span.Start
	ce := &CaseExpr{}
	for {
		subject, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Subjects = append(ce.Subjects, subject)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	for !p.at(TokRBrace) {
		clause, err := p.parseClause(len(ce.Subjects))
		if err != nil {
			return nil, err
		}
		ce.Clauses = append(ce.Clauses, clause)
	}
	p.advance()
	if len(ce.Clauses) == 0 {
		return nil, p.errorf(Span{start, p.lastEnd()}, "case expression has no clauses")
	}
	ce.Span = Span{start, p.lastEnd()}
	return ce, nil
}

func (p *Parser) parseClause(subjects int) (*Clause, error) {
	start := p.peek().Span.Start
	clause := &Clause{}
	for {
		var alt []Pattern
		for {
			pat, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			alt = append(alt, pat)
			if !p.accept(TokComma) {
				break
			}
		}
		if len(alt) != subjects {
			return nil, p.errorf(Span{start, p.lastEnd()}, "expected %d patterns, got %d", subjects, len(alt))
		}
		clause.Alternatives = append(clause.Alternatives, alt)
		if !p.accept(TokBar) {
			break
		}
	}
	var err error
	if p.accept(TokIf) {
		if clause.Guard, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokRArrow); err != nil {
		return nil, err
	}
	if clause.Body, err = p.parseExpr(); err != nil {
		return nil, err
	}
	clause.Span = Span{start, p.lastEnd()}
	return clause, nil
}

// Patterns

func (p *Parser) parsePattern() (Pattern, error) {
	pat, err := p.parsePatternBase()
	if err != nil {
		return nil, err
	}
	for p.accept(TokAs) {
		name, err := p.expect(TokName)
		if err != nil {
			return nil, err
		}
		pat = &AsPattern{Pattern: pat, Name: name.Text, Span: pat.PatternSpan().Join(name.Span)}
	}
	return pat, nil
}

func (p *Parser) parsePatternBase() (Pattern, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokDiscardName:
		p.advance()
		return &DiscardPattern{Name: tok.Text, Span: tok.Span}, nil
	case TokName:
		p.advance()
		if p.at(TokDot) && p.peekAt(1).Kind == TokUpName {
			p.advance()
			return p.parseCtorPattern(tok.Text, tok.Span.Start)
		}
		return &VarPattern{Name: tok.Text, Span: tok.Span}, nil
	case TokInt, TokFloat, TokMinus:
		negative := false
		if tok.Kind == TokMinus {
			p.advance()
			negative = true
		}
		num := p.peek()
		if num.Kind != TokInt && num.Kind != TokFloat {
			return nil, p.unexpected("a number")
		}
		p.advance()
		lit, err := p.parseNumber(num, negative)
		if err != nil {
			return nil, err
		}
		if i, ok := lit.(*IntLit); ok {
			return &IntPattern{Value: i.Value, Span: i.Span}, nil
		}
		f := lit.(*FloatLit)
		return &FloatPattern{Value: f.Value, Span: f.Span}, nil
	case TokString:
		p.advance()
		if p.accept(TokConcat) {
			rest, err := p.parsePatternBase()
			if err != nil {
				return nil, err
			}
			switch rest.(type) {
			case *VarPattern, *DiscardPattern:
			default:
				return nil, p.errorf(rest.PatternSpan(), "expected a name after '<>'")
			}
			return &PrefixPattern{Prefix: tok.Text, Rest: rest, Span: tok.Span.Join(rest.PatternSpan())}, nil
		}
		return &StringPattern{Value: tok.Text, Span: tok.Span}, nil
	case TokUpName:
		return p.parseCtorPattern("", tok.Span.Start)
	case TokHash:
		p.advance()
		if _, err := p.expect(TokLParen); err != nil {
			return nil, err
		}
		tp := &TuplePattern{}
		for !p.at(TokRParen) {
			elem, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			tp.Elems = append(tp.Elems, elem)
			if !p.accept(TokComma) {
				break
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		tp.Span = Span{tok.Span.Start, p.lastEnd()}
		return tp, nil
	case TokLBracket:
		return p.parseListPattern()
	}
	return nil, p.unexpected("a pattern")
}

func (p *Parser) parseCtorPattern(module string, start int) (Pattern, error) {
	name, err := p.expect(TokUpName)
	if err != nil {
		return nil, err
	}
	cp := &CtorPattern{Module: module, Name: name.Text}
	if p.accept(TokLParen) {
		for !p.at(TokRParen) {
			if p.accept(TokDotDot) {
				cp.Spread = true
				p.accept(TokComma)
				break
			}
			arg := &PatternArg{}
			if p.at(TokName) && p.peekAt(1).Kind == TokColon {
				arg.Label = p.advance().Text
				p.advance()
			}
			if arg.Pattern, err = p.parsePattern(); err != nil {
				return nil, err
			}
			cp.Args = append(cp.Args, arg)
			if !p.accept(TokComma) {
				break
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}
	cp.Span = Span{start, p.lastEnd()}
	return cp, nil
}

func (p *Parser) parseListPattern() (Pattern, error) {
	start := p.advance().Span.Start
	lp := &ListPattern{}
	for !p.at(TokRBracket) {
		if dots := p.peek(); p.accept(TokDotDot) {
			if p.at(TokName) || p.at(TokDiscardName) {
				tail, err := p.parsePatternBase()
				if err != nil {
					return nil, err
				}
				lp.Tail = tail
			} else {
				lp.Tail = &DiscardPattern{Name: "_", Span: dots.Span}
			}
			p.accept(TokComma)
			break
		}
		elem, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		lp.Elems = append(lp.Elems, elem)
		if !p.accept(TokComma) {
			break
		}
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	lp.Span = Span{start, p.lastEnd()}
	return lp, nil
}
