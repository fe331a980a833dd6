package glint

// Node is an executable expression of the untyped intermediate
// representation produced by the checker
type Node interface {
	node()
}

// ModuleCode is the runtime form of one compiled unit
type ModuleCode struct {
	Name      string
	Functions []*FnCode
	Consts    []*ConstCode
	Externals []*ExternalCode
}

// FnCode is a function body; Slots counts the locals of its frame,
// parameters first
type FnCode struct {
	Module string
	Name   string
	Arity  int
	Slots  int
	Body   Node
}

// ConstCode is a module constant, evaluated on first use
type ConstCode struct {
	Name string
	Init *FnCode
}

// ExternalCode binds a module function to a native implementation
type ExternalCode struct {
	Name   string
	Native string
	Arity  int
}

type (
	// Lit is a constant value
	Lit struct {
		Value Value
	}
	// LocalRef reads a slot Depth frames up from the current one
	LocalRef struct {
		Depth int
		Index int
	}
	// GlobalRef reads a module level value by "module.name"
	GlobalRef struct {
		Key string
	}
	// MakeClosure captures the current frame
	MakeClosure struct {
		Fn *FnCode
	}
	Call struct {
		Fn   Node
		Args []Node
	}
	MakeRecord struct {
		Tag    string
		Labels []string
		Args   []Node
	}
	MakeTuple struct {
		Elems []Node
	}
	MakeList struct {
		Elems []Node
		Tail  Node
	}
	// FieldGet reads a positional field of a record or tuple
	FieldGet struct {
		Target Node
		Index  int
	}
	// Seq evaluates statements in order and yields the last value
	Seq struct {
		Stmts []Node
	}
	// Bind matches a value against a pattern and yields the value
	Bind struct {
		Pattern Pat
		Value   Node
	}
	Case struct {
		Subjects []Node
		Clauses  []*CaseClause
	}
	BinOp struct {
		Op    TokenKind
		Left  Node
		Right Node
	}
	Negate struct {
		Operand Node
	}
	Not struct {
		Operand Node
	}
	Panic struct {
		Todo    bool
		Message Node
	}
)

// CaseClause is one arm; any alternative may match
type CaseClause struct {
	Alternatives [][]Pat
	Guard        Node
	Body         Node
}

func (*Lit) node()         {}
func (*LocalRef) node()    {}
func (*GlobalRef) node()   {}
func (*MakeClosure) node() {}
func (*Call) node()        {}
func (*MakeRecord) node()  {}
func (*MakeTuple) node()   {}
func (*MakeList) node()    {}
func (*FieldGet) node()    {}
func (*Seq) node()         {}
func (*Bind) node()        {}
func (*Case) node()        {}
func (*BinOp) node()       {}
func (*Negate) node()      {}
func (*Not) node()         {}
func (*Panic) node()       {}

// Pat is a runtime pattern; bindings write into slots of the current frame
type Pat interface {
	pat()
}

type (
	PatAny  struct{}
	PatBind struct {
		Index int
	}
	PatLit struct {
		Value Value
	}
	PatRecord struct {
		Tag  string
		Args []Pat
	}
	PatTuple struct {
		Elems []Pat
	}
	// PatList matches Elems as a prefix; a nil Tail requires the list to end
	PatList struct {
		Elems []Pat
		Tail  Pat
	}
	PatAlias struct {
		Pattern Pat
		Index   int
	}
	PatPrefix struct {
		Prefix string
		Rest   Pat
	}
)

func (*PatAny) pat()    {}
func (*PatBind) pat()   {}
func (*PatLit) pat()    {}
func (*PatRecord) pat() {}
func (*PatTuple) pat()  {}
func (*PatList) pat()   {}
func (*PatAlias) pat()  {}
func (*PatPrefix) pat() {}
