package glint

// patternBindings collects the names bound by one pattern; reuse holds the
// bindings of the first alternative of a case clause
type patternBindings struct {
	names map[string]*local
	reuse map[string]*local
}

func newBindings(reuse map[string]*local) *patternBindings {
	return &patternBindings{names: map[string]*local{}, reuse: reuse}
}

func (c *checker) bind(name string, t Type, span Span, sc *scope, binds *patternBindings) (*local, error) {
	if _, dup := binds.names[name]; dup {
		return nil, c.errorf(span, "variable '%s' is bound more than once in this pattern", name)
	}
	if binds.reuse != nil {
		l, ok := binds.reuse[name]
		if !ok {
			return nil, c.errorf(span, "alternative patterns must bind the same variables")
		}
		if err := unify(l.typ, t); err != nil {
			return nil, c.typeError(span, err)
		}
		binds.names[name] = l
		return l, nil
	}
	l := sc.define(name, t)
	binds.names[name] = l
	return l, nil
}

func (c *checker) checkPattern(p Pattern, t Type, sc *scope, binds *patternBindings) (Pat, error) {
	expect := func(want Type) error {
		if err := unify(want, t); err != nil {
			return c.typeError(p.PatternSpan(), err)
		}
		return nil
	}
	switch x := p.(type) {
	case *DiscardPattern:
		return &PatAny{}, nil
	case *VarPattern:
		l, err := c.bind(x.Name, t, x.Span, sc, binds)
		if err != nil {
			return nil, err
		}
		return &PatBind{Index: l.index}, nil
	case *IntPattern:
		return &PatLit{Value: x.Value}, expect(intType)
	case *FloatPattern:
		return &PatLit{Value: x.Value}, expect(floatType)
	case *StringPattern:
		return &PatLit{Value: x.Value}, expect(stringType)
	case *PrefixPattern:
		if err := expect(stringType); err != nil {
			return nil, err
		}
		rest, err := c.checkPattern(x.Rest, stringType, sc, binds)
		if err != nil {
			return nil, err
		}
		return &PatPrefix{Prefix: x.Prefix, Rest: rest}, nil
	case *CtorPattern:
		return c.checkCtorPattern(x, t, sc, binds)
	case *TuplePattern:
		tt := &TupleType{}
		for range x.Elems {
			tt.Elems = append(tt.Elems, c.tv.fresh())
		}
		if err := expect(tt); err != nil {
			return nil, err
		}
		pat := &PatTuple{}
		for i, el := range x.Elems {
			ep, err := c.checkPattern(el, tt.Elems[i], sc, binds)
			if err != nil {
				return nil, err
			}
			pat.Elems = append(pat.Elems, ep)
		}
		return pat, nil
	case *ListPattern:
		elem := c.tv.fresh()
		lt := listType(elem)
		if err := expect(lt); err != nil {
			return nil, err
		}
		pat := &PatList{}
		for _, el := range x.Elems {
			ep, err := c.checkPattern(el, elem, sc, binds)
			if err != nil {
				return nil, err
			}
			pat.Elems = append(pat.Elems, ep)
		}
		if x.Tail != nil {
			tp, err := c.checkPattern(x.Tail, lt, sc, binds)
			if err != nil {
				return nil, err
			}
			pat.Tail = tp
		}
		return pat, nil
	case *AsPattern:
		inner, err := c.checkPattern(x.Pattern, t, sc, binds)
		if err != nil {
			return nil, err
		}
		l, err := c.bind(x.Name, t, x.Span, sc, binds)
		if err != nil {
			return nil, err
		}
		return &PatAlias{Pattern: inner, Index: l.index}, nil
	}
	return nil, c.errorf(p.PatternSpan(), "unsupported pattern")
}

func (c *checker) checkCtorPattern(x *CtorPattern, t Type, sc *scope, binds *patternBindings) (Pat, error) {
	vi, err := c.lookupCtor(x.Module, x.Name, x.Span)
	if err != nil {
		return nil, err
	}
	ci := vi.Ctor
	inst := c.tv.instantiate(vi.Type)
	var fields []Type
	result := inst
	if fnT, ok := inst.(*FnType); ok {
		fields = fnT.Params
		result = fnT.Return
	}
	if err := unify(result, t); err != nil {
		return nil, c.typeError(x.Span, err)
	}
	if len(x.Args) > ci.arity() || (!x.Spread && len(x.Args) != ci.arity()) {
		return nil, c.errorf(x.Span, "constructor '%s' has %d fields, got %d patterns", ci.Name, ci.arity(), len(x.Args))
	}

	if vi.Module == preludeModule {
		switch ci.Name {
		case "True":
			return &PatLit{Value: true}, nil
		case "False":
			return &PatLit{Value: false}, nil
		case "Nil":
			return &PatLit{Value: Nil}, nil
		}
	}

	args := make([]*Arg, len(x.Args))
	for i, a := range x.Args {
		args[i] = &Arg{Label: a.Label, Value: &HoleExpr{Span: a.Pattern.PatternSpan()}}
	}
	ordered := make([]Pattern, ci.arity())
	if len(args) > 0 {
		placed, err := c.orderArgs(args, ci, x.Span)
		if err != nil {
			return nil, err
		}
		for i, a := range placed {
			if a == nil {
				continue
			}
			for j, orig := range args {
				if orig == a {
					ordered[i] = x.Args[j].Pattern
				}
			}
		}
	}
	pat := &PatRecord{Tag: ci.Name, Args: make([]Pat, ci.arity())}
	for i := range ordered {
		if ordered[i] == nil {
			pat.Args[i] = &PatAny{}
			continue
		}
		ap, err := c.checkPattern(ordered[i], fields[i], sc, binds)
		if err != nil {
			return nil, err
		}
		pat.Args[i] = ap
	}
	return pat, nil
}
