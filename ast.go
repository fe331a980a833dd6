package glint

import "math/big"

// Module is a parsed glint source file
type Module struct {
	Name    string
	Imports []*ImportDef
	Defs    []Definition
}

// Definition is a top-level declaration
type Definition interface {
	DefSpan() Span
}

// ImportDef is `import a/b.{type T, Ctor, value} as alias`
type ImportDef struct {
	Path    string
	Alias   string
	Types   []*ImportName
	Values  []*ImportName
	PathEnd int
	Span    Span
}

// ImportName is one unqualified name inside an import list
type ImportName struct {
	Name  string
	Alias string
	Span  Span
}

// ConstDef is `[pub] const name[: T] = value`
type ConstDef struct {
	Public     bool
	Name       string
	Annotation TypeExpr
	Value      Expr
	Span       Span
}

// TypeDef is a custom type or a type alias
type TypeDef struct {
	Public bool
	Opaque bool
	Name   string
	Params []string
	Ctors  []*CtorDef
	Alias  TypeExpr
	Span   Span
}

// CtorDef is one variant of a custom type
type CtorDef struct {
	Name   string
	Fields []*CtorField
	Span   Span
}

// CtorField is a positional or labelled constructor argument
type CtorField struct {
	Label string
	Type  TypeExpr
}

// FnDef is a named function, possibly an external without body
type FnDef struct {
	Public   bool
	Name     string
	NameSpan Span
	Params   []*Param
	Return   TypeExpr
	Body     []Stmt
	External *ExternalAttr
	// BodyOpen is the span of the '{' opening the body; zero for externals
	BodyOpen Span
	Span     Span
}

// ExternalAttr is @external(target, "module", "function")
type ExternalAttr struct {
	Target   string
	Module   string
	Function string
}

// Param is a function parameter; Name is "_"-prefixed for discards
type Param struct {
	Name       string
	Annotation TypeExpr
	Span       Span
}

func (d *ImportDef) DefSpan() Span { return d.Span }
func (d *ConstDef) DefSpan() Span  { return d.Span }
func (d *TypeDef) DefSpan() Span   { return d.Span }
func (d *FnDef) DefSpan() Span     { return d.Span }

// Stmt is a statement inside a function body or block
type Stmt interface {
	StmtSpan() Span
}

// LetStmt is `let [assert] pattern[: T] = value`
type LetStmt struct {
	Assert     bool
	Pattern    Pattern
	Annotation TypeExpr
	Value      Expr
	Span       Span
}

// UseStmt is `use a, b <- call`
type UseStmt struct {
	Patterns []Pattern
	Call     Expr
	Span     Span
}

// ExprStmt is a bare expression statement
type ExprStmt struct {
	Expr Expr
}

func (s *LetStmt) StmtSpan() Span  { return s.Span }
func (s *UseStmt) StmtSpan() Span  { return s.Span }
func (s *ExprStmt) StmtSpan() Span { return s.Expr.ExprSpan() }

// Expr is an expression node
type Expr interface {
	ExprSpan() Span
}

type (
	IntLit struct {
		Value *big.Int
		Span  Span
	}
	FloatLit struct {
		Value float64
		Span  Span
	}
	StringLit struct {
		Value string
		Span  Span
	}
	// VarExpr references a lower case name
	VarExpr struct {
		Name string
		Span Span
	}
	// CtorExpr references a constructor, optionally module qualified
	CtorExpr struct {
		Module string
		Name   string
		Span   Span
	}
	// HoleExpr is the `_` placeholder in a function capture
	HoleExpr struct {
		Span Span
	}
	// FieldExpr is `target.label`; the checker decides between module
	// access and record field access
	FieldExpr struct {
		Target    Expr
		Label     string
		LabelSpan Span
		Span      Span
	}
	TupleIndexExpr struct {
		Target Expr
		Index  int
		Span   Span
	}
	ListExpr struct {
		Elems []Expr
		Tail  Expr
		Span  Span
	}
	TupleExpr struct {
		Elems []Expr
		Span  Span
	}
	CallExpr struct {
		Fn   Expr
		Args []*Arg
		Span Span
	}
	FnExpr struct {
		Params []*Param
		Return TypeExpr
		Body   []Stmt
		Span   Span
	}
	BlockExpr struct {
		Body []Stmt
		Span Span
	}
	CaseExpr struct {
		Subjects []Expr
		Clauses  []*Clause
		Span     Span
	}
	BinaryExpr struct {
		Op    TokenKind
		Left  Expr
		Right Expr
		Span  Span
	}
	UnaryExpr struct {
		Op      TokenKind
		Operand Expr
		Span    Span
	}
	// PanicExpr covers both `panic` and `todo`
	PanicExpr struct {
		Todo    bool
		Message Expr
		Span    Span
	}
)

// Arg is a call argument, labelled when Label is set
type Arg struct {
	Label string
	Value Expr
}

// Clause is one arm of a case expression; each alternative lists one
// pattern per subject
type Clause struct {
	Alternatives [][]Pattern
	Guard        Expr
	Body         Expr
	Span         Span
}

func (e *IntLit) ExprSpan() Span         { return e.Span }
func (e *FloatLit) ExprSpan() Span       { return e.Span }
func (e *StringLit) ExprSpan() Span      { return e.Span }
func (e *VarExpr) ExprSpan() Span        { return e.Span }
func (e *CtorExpr) ExprSpan() Span       { return e.Span }
func (e *HoleExpr) ExprSpan() Span       { return e.Span }
func (e *FieldExpr) ExprSpan() Span      { return e.Span }
func (e *TupleIndexExpr) ExprSpan() Span { return e.Span }
func (e *ListExpr) ExprSpan() Span       { return e.Span }
func (e *TupleExpr) ExprSpan() Span      { return e.Span }
func (e *CallExpr) ExprSpan() Span       { return e.Span }
func (e *FnExpr) ExprSpan() Span         { return e.Span }
func (e *BlockExpr) ExprSpan() Span      { return e.Span }
func (e *CaseExpr) ExprSpan() Span       { return e.Span }
func (e *BinaryExpr) ExprSpan() Span     { return e.Span }
func (e *UnaryExpr) ExprSpan() Span      { return e.Span }
func (e *PanicExpr) ExprSpan() Span      { return e.Span }

// Pattern is a pattern in let, case or use
type Pattern interface {
	PatternSpan() Span
}

type (
	// DiscardPattern is `_` or `_name`
	DiscardPattern struct {
		Name string
		Span Span
	}
	VarPattern struct {
		Name string
		Span Span
	}
	IntPattern struct {
		Value *big.Int
		Span  Span
	}
	FloatPattern struct {
		Value float64
		Span  Span
	}
	StringPattern struct {
		Value string
		Span  Span
	}
	// PrefixPattern is `"prefix" <> rest`
	PrefixPattern struct {
		Prefix string
		Rest   Pattern
		Span   Span
	}
	CtorPattern struct {
		Module string
		Name   string
		Args   []*PatternArg
		Spread bool
		Span   Span
	}
	TuplePattern struct {
		Elems []Pattern
		Span  Span
	}
	// ListPattern matches a prefix of elements; Tail is nil when the list
	// must end after Elems
	ListPattern struct {
		Elems []Pattern
		Tail  Pattern
		Span  Span
	}
	AsPattern struct {
		Pattern Pattern
		Name    string
		Span    Span
	}
)

// PatternArg is a constructor pattern argument
type PatternArg struct {
	Label   string
	Pattern Pattern
}

func (p *DiscardPattern) PatternSpan() Span { return p.Span }
func (p *VarPattern) PatternSpan() Span     { return p.Span }
func (p *IntPattern) PatternSpan() Span     { return p.Span }
func (p *FloatPattern) PatternSpan() Span   { return p.Span }
func (p *StringPattern) PatternSpan() Span  { return p.Span }
func (p *PrefixPattern) PatternSpan() Span  { return p.Span }
func (p *CtorPattern) PatternSpan() Span    { return p.Span }
func (p *TuplePattern) PatternSpan() Span   { return p.Span }
func (p *ListPattern) PatternSpan() Span    { return p.Span }
func (p *AsPattern) PatternSpan() Span      { return p.Span }

// TypeExpr is a type annotation
type TypeExpr interface {
	TypeSpan() Span
}

type (
	NamedTypeExpr struct {
		Module string
		Name   string
		Args   []TypeExpr
		Span   Span
	}
	VarTypeExpr struct {
		Name string
		Span Span
	}
	HoleTypeExpr struct {
		Span Span
	}
	FnTypeExpr struct {
		Params []TypeExpr
		Return TypeExpr
		Span   Span
	}
	TupleTypeExpr struct {
		Elems []TypeExpr
		Span  Span
	}
)

func (t *NamedTypeExpr) TypeSpan() Span { return t.Span }
func (t *VarTypeExpr) TypeSpan() Span   { return t.Span }
func (t *HoleTypeExpr) TypeSpan() Span  { return t.Span }
func (t *FnTypeExpr) TypeSpan() Span    { return t.Span }
func (t *TupleTypeExpr) TypeSpan() Span { return t.Span }
