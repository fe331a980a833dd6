package glint

// fnContext tracks the frame of the function being checked
type fnContext struct {
	parent *fnContext
	slots  int
}

// local is a variable bound in a function frame
type local struct {
	name  string
	typ   Type
	fn    *fnContext
	index int
}

// scope is a lexical block; blocks of the same function share its frame
type scope struct {
	vars   map[string]*local
	parent *scope
	fn     *fnContext
}

func (s *scope) child() *scope {
	return &scope{vars: map[string]*local{}, parent: s, fn: s.fn}
}

func (s *scope) lookup(name string) *local {
	for sc := s; sc != nil; sc = sc.parent {
		if l, ok := sc.vars[name]; ok {
			return l
		}
	}
	return nil
}

// define allocates a new slot in the current frame
func (s *scope) define(name string, t Type) *local {
	l := &local{name: name, typ: t, fn: s.fn, index: s.fn.slots}
	s.fn.slots++
	s.vars[name] = l
	return l
}

func (s *scope) ref(l *local) *LocalRef {
	depth := 0
	for f := s.fn; f != l.fn; f = f.parent {
		depth++
	}
	return &LocalRef{Depth: depth, Index: l.index}
}

// captureName names the parameter of a function capture; it cannot be
// written in source
const captureName = "@capture"

// inferStmts checks a statement list; use statements take the rest of the
// list as their callback body
func (c *checker) inferStmts(stmts []Stmt, sc *scope, span Span) (Type, Node, error) {
	if len(stmts) == 0 {
		return nil, nil, c.errorf(span, "empty function body")
	}
	var nodes []Node
	var last Type
	for i, st := range stmts {
		switch s := st.(type) {
		case *UseStmt:
			call, err := c.desugarUse(s, stmts[i+1:])
			if err != nil {
				return nil, nil, err
			}
			t, n, err := c.infer(call, sc)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
			return t, seqOf(nodes), nil
		case *LetStmt:
			t, n, err := c.inferLet(s, sc)
			if err != nil {
				return nil, nil, err
			}
			last = t
			nodes = append(nodes, n)
		case *ExprStmt:
			t, n, err := c.infer(s.Expr, sc)
			if err != nil {
				return nil, nil, err
			}
			last = t
			nodes = append(nodes, n)
		}
	}
	return last, seqOf(nodes), nil
}

func seqOf(nodes []Node) Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return &Seq{Stmts: nodes}
}

// desugarUse turns `use a <- f(x)` followed by rest into f(x, fn(a) { rest })
func (c *checker) desugarUse(s *UseStmt, rest []Stmt) (Expr, error) {
	if len(rest) == 0 {
		return nil, c.errorf(s.Span, "a use statement must be followed by an expression")
	}
	callback := &FnExpr{Span: s.Span}
	var prelude []Stmt
	for i, pat := range s.Patterns {
		switch p := pat.(type) {
		case *VarPattern:
			callback.Params = append(callback.Params, &Param{Name: p.Name, Span: p.Span})
		case *DiscardPattern:
			callback.Params = append(callback.Params, &Param{Name: p.Name, Span: p.Span})
		default:
			name := "@use" + string(rune('a'+i))
			callback.Params = append(callback.Params, &Param{Name: name, Span: p.PatternSpan()})
			prelude = append(prelude, &LetStmt{Pattern: pat, Value: &VarExpr{Name: name, Span: p.PatternSpan()}, Span: p.PatternSpan()})
		}
	}
	callback.Body = append(prelude, rest...)
	callback.Span = s.Span.Join(rest[len(rest)-1].StmtSpan())

	if call, ok := s.Call.(*CallExpr); ok {
		args := append(append([]*Arg{}, call.Args...), &Arg{Value: callback})
		return &CallExpr{Fn: call.Fn, Args: args, Span: call.Span}, nil
	}
	return &CallExpr{Fn: s.Call, Args: []*Arg{{Value: callback}}, Span: s.Call.ExprSpan()}, nil
}

func (c *checker) inferLet(s *LetStmt, sc *scope) (Type, Node, error) {
	vt, vn, err := c.infer(s.Value, sc)
	if err != nil {
		return nil, nil, err
	}
	if s.Annotation != nil {
		at, err := c.typeFromExpr(s.Annotation, map[string]Type{}, false)
		if err != nil {
			return nil, nil, err
		}
		if err := unify(at, vt); err != nil {
			return nil, nil, c.typeError(s.Value.ExprSpan(), err)
		}
	}
	pat, err := c.checkPattern(s.Pattern, vt, sc, newBindings(nil))
	if err != nil {
		return nil, nil, err
	}
	return vt, &Bind{Pattern: pat, Value: vn}, nil
}

func (c *checker) infer(e Expr, sc *scope) (Type, Node, error) {
	switch x := e.(type) {
	case *IntLit:
		return intType, &Lit{Value: x.Value}, nil
	case *FloatLit:
		return floatType, &Lit{Value: x.Value}, nil
	case *StringLit:
		return stringType, &Lit{Value: x.Value}, nil
	case *VarExpr:
		if l := sc.lookup(x.Name); l != nil {
			return l.typ, sc.ref(l), nil
		}
		if vi, ok := c.values[x.Name]; ok {
			t, n := c.valueRef(vi)
			return t, n, nil
		}
		return nil, nil, c.errorf(x.Span, "unknown variable '%s'", x.Name)
	case *CtorExpr:
		vi, err := c.lookupCtor(x.Module, x.Name, x.Span)
		if err != nil {
			return nil, nil, err
		}
		t, n := c.valueRef(vi)
		return t, n, nil
	case *HoleExpr:
		return nil, nil, c.errorf(x.Span, "the _ placeholder can only be used as a function argument")
	case *FieldExpr:
		return c.inferField(x, sc)
	case *TupleIndexExpr:
		tt, tn, err := c.infer(x.Target, sc)
		if err != nil {
			return nil, nil, err
		}
		tuple, ok := prune(tt).(*TupleType)
		if !ok {
			return nil, nil, c.errorf(x.Span, "cannot index into a value of type %s", RenderType(tt))
		}
		if x.Index >= len(tuple.Elems) {
			return nil, nil, c.errorf(x.Span, "tuple index %d is out of bounds for %s", x.Index, RenderType(tt))
		}
		return tuple.Elems[x.Index], &FieldGet{Target: tn, Index: x.Index}, nil
	case *ListExpr:
		elem := Type(c.tv.fresh())
		node := &MakeList{}
		for _, el := range x.Elems {
			et, en, err := c.infer(el, sc)
			if err != nil {
				return nil, nil, err
			}
			if err := unify(elem, et); err != nil {
				return nil, nil, c.typeError(el.ExprSpan(), err)
			}
			node.Elems = append(node.Elems, en)
		}
		lt := listType(elem)
		if x.Tail != nil {
			tt, tn, err := c.infer(x.Tail, sc)
			if err != nil {
				return nil, nil, err
			}
			if err := unify(lt, tt); err != nil {
				return nil, nil, c.typeError(x.Tail.ExprSpan(), err)
			}
			node.Tail = tn
		}
		return lt, node, nil
	case *TupleExpr:
		tt := &TupleType{}
		node := &MakeTuple{}
		for _, el := range x.Elems {
			et, en, err := c.infer(el, sc)
			if err != nil {
				return nil, nil, err
			}
			tt.Elems = append(tt.Elems, et)
			node.Elems = append(node.Elems, en)
		}
		return tt, node, nil
	case *CallExpr:
		return c.inferCall(x, sc)
	case *FnExpr:
		vars := map[string]Type{}
		sig, err := c.signature(x.Params, x.Return, vars)
		if err != nil {
			return nil, nil, err
		}
		code, err := c.checkFn("", x.Params, x.Body, sig, sc, x.Span)
		if err != nil {
			return nil, nil, err
		}
		return sig, &MakeClosure{Fn: code}, nil
	case *BlockExpr:
		return c.inferStmts(x.Body, sc.child(), x.Span)
	case *CaseExpr:
		return c.inferCase(x, sc)
	case *BinaryExpr:
		return c.inferBinary(x, sc)
	case *UnaryExpr:
		ot, on, err := c.infer(x.Operand, sc)
		if err != nil {
			return nil, nil, err
		}
		if x.Op == TokBang {
			if err := unify(boolType, ot); err != nil {
				return nil, nil, c.typeError(x.Operand.ExprSpan(), err)
			}
			return boolType, &Not{Operand: on}, nil
		}
		if con, ok := prune(ot).(*TypeCon); ok && con.Module == preludeModule && con.Name == "Float" {
			return floatType, &Negate{Operand: on}, nil
		}
		if err := unify(intType, ot); err != nil {
			return nil, nil, c.typeError(x.Operand.ExprSpan(), err)
		}
		return intType, &Negate{Operand: on}, nil
	case *PanicExpr:
		node := &Panic{Todo: x.Todo}
		if x.Message != nil {
			mt, mn, err := c.infer(x.Message, sc)
			if err != nil {
				return nil, nil, err
			}
			if err := unify(stringType, mt); err != nil {
				return nil, nil, c.typeError(x.Message.ExprSpan(), err)
			}
			node.Message = mn
		}
		return c.tv.fresh(), node, nil
	}
	return nil, nil, c.errorf(e.ExprSpan(), "unsupported expression")
}

// valueRef produces the type and node for a module level value
func (c *checker) valueRef(vi *valueInfo) (Type, Node) {
	t := c.tv.instantiate(vi.Type)
	if vi.Kind != valueCtor {
		return t, &GlobalRef{Key: vi.Module + "." + vi.Name}
	}
	ci := vi.Ctor
	if vi.Module == preludeModule {
		switch vi.Name {
		case "True":
			return t, &Lit{Value: true}
		case "False":
			return t, &Lit{Value: false}
		case "Nil":
			return t, &Lit{Value: Nil}
		}
	}
	if ci.arity() == 0 {
		return t, &Lit{Value: &Record{Tag: ci.Name}}
	}
	return t, &Lit{Value: &CtorFn{Tag: ci.Name, Labels: ci.Labels, Arity: ci.arity()}}
}

func (c *checker) lookupCtor(module, name string, span Span) (*valueInfo, error) {
	if module == "" {
		vi, ok := c.values[name]
		if !ok || vi.Kind != valueCtor {
			return nil, c.errorf(span, "unknown constructor '%s'", name)
		}
		return vi, nil
	}
	iface, ok := c.modules[module]
	if !ok {
		return nil, c.errorf(span, "unknown module '%s'", module)
	}
	vi, ok := iface.Values[name]
	if !ok || vi.Kind != valueCtor {
		return nil, c.errorf(span, "module '%s' has no public constructor '%s'", module, name)
	}
	return vi, nil
}

// moduleAccess reports whether target names an imported module rather than
// a variable
func (c *checker) moduleAccess(target Expr, sc *scope) (*ModuleInterface, string, bool) {
	v, ok := target.(*VarExpr)
	if !ok || sc.lookup(v.Name) != nil {
		return nil, "", false
	}
	iface, ok := c.modules[v.Name]
	return iface, v.Name, ok
}

func (c *checker) inferField(x *FieldExpr, sc *scope) (Type, Node, error) {
	if iface, alias, ok := c.moduleAccess(x.Target, sc); ok {
		vi, ok := iface.Values[x.Label]
		if !ok {
			return nil, nil, c.errorf(x.Span, "module '%s' has no public value '%s'", alias, x.Label)
		}
		t, n := c.valueRef(vi)
		return t, n, nil
	}

	tt, tn, err := c.infer(x.Target, sc)
	if err != nil {
		return nil, nil, err
	}
	con, ok := prune(tt).(*TypeCon)
	if !ok {
		if _, unknown := prune(tt).(*TypeVar); unknown {
			return nil, nil, c.errorf(x.Span, "the type of this value must be known to access field '%s'", x.Label)
		}
		return nil, nil, c.errorf(x.Span, "%s has no field '%s'", RenderType(tt), x.Label)
	}
	ti := c.typeInfoFor(con)
	if ti == nil || len(ti.Ctors) == 0 {
		return nil, nil, c.errorf(x.Span, "%s has no field '%s'", RenderType(tt), x.Label)
	}
	index := -1
	var fieldType Type
	for _, ci := range ti.Ctors {
		pos := -1
		for i, label := range ci.Labels {
			if label == x.Label {
				pos = i
				break
			}
		}
		if pos < 0 || (index >= 0 && pos != index) {
			return nil, nil, c.errorf(x.Span, "%s has no field '%s' shared by all its constructors", RenderType(tt), x.Label)
		}
		index = pos
		fieldType = ci.Fields[pos]
	}
	subst := map[*TypeVar]Type{}
	for i, p := range ti.Params {
		subst[p] = con.Args[i]
	}
	return c.tv.instantiateWith(fieldType, subst), &FieldGet{Target: tn, Index: index}, nil
}

func (c *checker) inferCall(x *CallExpr, sc *scope) (Type, Node, error) {
	holes := 0
	for _, a := range x.Args {
		if _, ok := a.Value.(*HoleExpr); ok {
			holes++
		}
	}
	if holes > 1 {
		return nil, nil, c.errorf(x.Span, "a function capture can only have one _ placeholder")
	}
	if holes == 1 {
		return c.infer(captureFn(x), sc)
	}

	// constructors accept labelled arguments
	var ctor *valueInfo
	switch fn := x.Fn.(type) {
	case *CtorExpr:
		vi, err := c.lookupCtor(fn.Module, fn.Name, fn.Span)
		if err != nil {
			return nil, nil, err
		}
		ctor = vi
	case *FieldExpr:
		if iface, _, ok := c.moduleAccess(fn.Target, sc); ok {
			if vi, ok := iface.Values[fn.Label]; ok && vi.Kind == valueCtor {
				ctor = vi
			}
		}
	}
	if ctor != nil {
		return c.inferCtorCall(x, ctor, sc)
	}

	for _, a := range x.Args {
		if a.Label != "" {
			return nil, nil, c.errorf(a.Value.ExprSpan(), "labelled arguments are only supported by constructors")
		}
	}
	ft, fn, err := c.infer(x.Fn, sc)
	if err != nil {
		return nil, nil, err
	}
	args := make([]Node, len(x.Args))
	if fnT, ok := prune(ft).(*FnType); ok {
		if len(fnT.Params) != len(x.Args) {
			return nil, nil, c.errorf(x.Span, "expected %d arguments, got %d", len(fnT.Params), len(x.Args))
		}
		for i, a := range x.Args {
			at, an, err := c.infer(a.Value, sc)
			if err != nil {
				return nil, nil, err
			}
			if err := unify(fnT.Params[i], at); err != nil {
				return nil, nil, c.typeError(a.Value.ExprSpan(), err)
			}
			args[i] = an
		}
		return fnT.Return, &Call{Fn: fn, Args: args}, nil
	}

	expected := &FnType{Return: c.tv.fresh()}
	for i, a := range x.Args {
		at, an, err := c.infer(a.Value, sc)
		if err != nil {
			return nil, nil, err
		}
		expected.Params = append(expected.Params, at)
		args[i] = an
	}
	if err := unify(ft, expected); err != nil {
		return nil, nil, c.typeError(x.Fn.ExprSpan(), err)
	}
	return expected.Return, &Call{Fn: fn, Args: args}, nil
}

// captureFn rewrites f(a, _) into fn(x) { f(a, x) }
func captureFn(x *CallExpr) *FnExpr {
	args := make([]*Arg, len(x.Args))
	for i, a := range x.Args {
		if h, ok := a.Value.(*HoleExpr); ok {
			args[i] = &Arg{Label: a.Label, Value: &VarExpr{Name: captureName, Span: h.Span}}
			continue
		}
		args[i] = a
	}
	call := &CallExpr{Fn: x.Fn, Args: args, Span: x.Span}
	return &FnExpr{
		Params: []*Param{{Name: captureName, Span: x.Span}},
		Body:   []Stmt{&ExprStmt{Expr: call}},
		Span:   x.Span,
	}
}

func (c *checker) inferCtorCall(x *CallExpr, vi *valueInfo, sc *scope) (Type, Node, error) {
	ci := vi.Ctor
	if ci.arity() == 0 {
		return nil, nil, c.errorf(x.Span, "constructor '%s' takes no arguments", ci.Name)
	}
	if len(x.Args) != ci.arity() {
		return nil, nil, c.errorf(x.Span, "expected %d arguments, got %d", ci.arity(), len(x.Args))
	}
	ordered, err := c.orderArgs(x.Args, ci, x.Span)
	if err != nil {
		return nil, nil, err
	}
	fnT := c.tv.instantiate(vi.Type).(*FnType)
	node := &MakeRecord{Tag: ci.Name, Labels: ci.Labels, Args: make([]Node, len(ordered))}
	for i, a := range ordered {
		at, an, err := c.infer(a.Value, sc)
		if err != nil {
			return nil, nil, err
		}
		if err := unify(fnT.Params[i], at); err != nil {
			return nil, nil, c.typeError(a.Value.ExprSpan(), err)
		}
		node.Args[i] = an
	}
	return fnT.Return, node, nil
}

// orderArgs places labelled arguments at their field position; positional
// arguments must come first
func (c *checker) orderArgs(args []*Arg, ci *ctorInfo, span Span) ([]*Arg, error) {
	ordered := make([]*Arg, ci.arity())
	next := 0
	labelled := false
	for _, a := range args {
		if a.Label == "" {
			if labelled {
				return nil, c.errorf(a.Value.ExprSpan(), "positional arguments must come before labelled ones")
			}
			if next >= len(ordered) {
				return nil, c.errorf(span, "too many arguments")
			}
			ordered[next] = a
			next++
			continue
		}
		labelled = true
		pos := -1
		for i, label := range ci.Labels {
			if label == a.Label {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, c.errorf(a.Value.ExprSpan(), "constructor '%s' has no field '%s'", ci.Name, a.Label)
		}
		if ordered[pos] != nil {
			return nil, c.errorf(a.Value.ExprSpan(), "field '%s' is given more than once", a.Label)
		}
		ordered[pos] = a
	}
	return ordered, nil
}

func (c *checker) inferBinary(x *BinaryExpr, sc *scope) (Type, Node, error) {
	if x.Op == TokPipe {
		return c.infer(pipeCall(x), sc)
	}
	lt, ln, err := c.infer(x.Left, sc)
	if err != nil {
		return nil, nil, err
	}
	rt, rn, err := c.infer(x.Right, sc)
	if err != nil {
		return nil, nil, err
	}
	node := &BinOp{Op: x.Op, Left: ln, Right: rn}

	operands := func(t Type) error {
		if err := unify(t, lt); err != nil {
			return c.typeError(x.Left.ExprSpan(), err)
		}
		if err := unify(t, rt); err != nil {
			return c.typeError(x.Right.ExprSpan(), err)
		}
		return nil
	}

	switch x.Op {
	case TokEqEq, TokNotEq:
		if err := unify(lt, rt); err != nil {
			return nil, nil, c.typeError(x.Right.ExprSpan(), err)
		}
		return boolType, node, nil
	case TokAndAnd, TokOrOr:
		return boolType, node, operands(boolType)
	case TokPlus, TokMinus, TokStar, TokSlash, TokPercent:
		return intType, node, operands(intType)
	case TokPlusDot, TokMinusDot, TokStarDot, TokSlashDot:
		return floatType, node, operands(floatType)
	case TokLess, TokGreater, TokLessEq, TokGreaterEq:
		return boolType, node, operands(intType)
	case TokLessDot, TokGreaterDot, TokLessEqDot, TokGreaterEqDot:
		return boolType, node, operands(floatType)
	case TokConcat:
		return stringType, node, operands(stringType)
	}
	return nil, nil, c.errorf(x.Span, "unsupported operator '%s'", x.Op)
}

// pipeCall rewrites a |> f(b) into f(a, b) and a |> f into f(a)
func pipeCall(x *BinaryExpr) Expr {
	if call, ok := x.Right.(*CallExpr); ok {
		for _, a := range call.Args {
			if _, hole := a.Value.(*HoleExpr); hole {
				return &CallExpr{Fn: call, Args: []*Arg{{Value: x.Left}}, Span: x.Span}
			}
		}
		args := append([]*Arg{{Value: x.Left}}, call.Args...)
		return &CallExpr{Fn: call.Fn, Args: args, Span: x.Span}
	}
	return &CallExpr{Fn: x.Right, Args: []*Arg{{Value: x.Left}}, Span: x.Span}
}

func (c *checker) inferCase(x *CaseExpr, sc *scope) (Type, Node, error) {
	node := &Case{}
	var subjects []Type
	for _, s := range x.Subjects {
		st, sn, err := c.infer(s, sc)
		if err != nil {
			return nil, nil, err
		}
		subjects = append(subjects, st)
		node.Subjects = append(node.Subjects, sn)
	}
	result := Type(c.tv.fresh())
	for _, cl := range x.Clauses {
		clauseScope := sc.child()
		clause := &CaseClause{}
		var first *patternBindings
		for _, alt := range cl.Alternatives {
			binds := newBindings(nil)
			if first != nil {
				binds = newBindings(first.names)
			}
			var pats []Pat
			for i, p := range alt {
				pat, err := c.checkPattern(p, subjects[i], clauseScope, binds)
				if err != nil {
					return nil, nil, err
				}
				pats = append(pats, pat)
			}
			if first != nil && len(binds.names) != len(first.names) {
				return nil, nil, c.errorf(cl.Span, "alternative patterns must bind the same variables")
			}
			if first == nil {
				first = binds
			}
			clause.Alternatives = append(clause.Alternatives, pats)
		}
		if cl.Guard != nil {
			gt, gn, err := c.infer(cl.Guard, clauseScope)
			if err != nil {
				return nil, nil, err
			}
			if err := unify(boolType, gt); err != nil {
				return nil, nil, c.typeError(cl.Guard.ExprSpan(), err)
			}
			clause.Guard = gn
		}
		bt, bn, err := c.infer(cl.Body, clauseScope)
		if err != nil {
			return nil, nil, err
		}
		if err := unify(result, bt); err != nil {
			return nil, nil, c.typeError(cl.Body.ExprSpan(), err)
		}
		clause.Body = bn
		node.Clauses = append(node.Clauses, clause)
	}
	return result, node, nil
}
