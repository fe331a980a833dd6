package glint

import (
	"fmt"
	"sort"
)

// ModuleInterface is what other modules can see of a compiled module
type ModuleInterface struct {
	Name   string
	Types  map[string]*typeInfo
	Values map[string]*valueInfo
	// allTypes includes private types, for record field access on values
	// that escape their module
	allTypes map[string]*typeInfo
}

type typeInfo struct {
	Module string
	Name   string
	Params []*TypeVar
	Alias  Type
	Ctors  []*ctorInfo
	Public bool
	Opaque bool

	isAlias  bool
	resolved bool
}

type valueKind int

const (
	valueFn valueKind = iota
	valueConst
	valueCtor
	valueExternal
)

type valueInfo struct {
	Kind   valueKind
	Module string
	Name   string
	Type   Type
	Ctor   *ctorInfo
	Public bool
}

type ctorInfo struct {
	Name   string
	Owner  *typeInfo
	Labels []string
	Fields []Type
}

func (ci *ctorInfo) arity() int {
	return len(ci.Fields)
}

// scheme returns the generic type of the constructor used as a value
func (ci *ctorInfo) scheme() Type {
	args := make([]Type, len(ci.Owner.Params))
	for i, p := range ci.Owner.Params {
		args[i] = p
	}
	result := &TypeCon{Module: ci.Owner.Module, Name: ci.Owner.Name, Args: args}
	if len(ci.Fields) == 0 {
		return result
	}
	return &FnType{Params: ci.Fields, Return: result}
}

var preludeInterface = buildPrelude()

func buildPrelude() *ModuleInterface {
	iface := &ModuleInterface{
		Name:     preludeModule,
		Types:    map[string]*typeInfo{},
		Values:   map[string]*valueInfo{},
		allTypes: map[string]*typeInfo{},
	}
	addType := func(name string, params int) *typeInfo {
		ti := &typeInfo{Module: preludeModule, Name: name, Public: true, resolved: true}
		for i := 0; i < params; i++ {
			ti.Params = append(ti.Params, &TypeVar{ID: -(i + 1), Generic: true})
		}
		iface.Types[name] = ti
		iface.allTypes[name] = ti
		return ti
	}
	addCtor := func(owner *typeInfo, name string, fields ...Type) {
		ci := &ctorInfo{Name: name, Owner: owner, Fields: fields, Labels: make([]string, len(fields))}
		owner.Ctors = append(owner.Ctors, ci)
		iface.Values[name] = &valueInfo{Kind: valueCtor, Module: preludeModule, Name: name, Type: ci.scheme(), Ctor: ci, Public: true}
	}

	addType("Int", 0)
	addType("Float", 0)
	addType("String", 0)
	addType("List", 1)
	boolInfo := addType("Bool", 0)
	addCtor(boolInfo, "True")
	addCtor(boolInfo, "False")
	nilInfo := addType("Nil", 0)
	addCtor(nilInfo, "Nil")
	result := addType("Result", 2)
	addCtor(result, "Ok", result.Params[0])
	addCtor(result, "Error", result.Params[1])
	return iface
}

// checker type checks one module and lowers it to IR
type checker struct {
	unit string
	src  string
	tv   typeVars

	types   map[string]*typeInfo
	values  map[string]*valueInfo
	modules map[string]*ModuleInterface
	known   map[string]*ModuleInterface

	ownTypes  map[string]*typeInfo
	ownValues map[string]*valueInfo
	fnTypes   map[string]Type
	spans     map[string]Span
}

func (c *checker) errorf(span Span, format string, args ...interface{}) error {
	return &CompileError{Unit: c.unit, Source: c.src, Span: span, Message: fmt.Sprintf(format, args...)}
}

// typeError wraps a unification failure with a location
func (c *checker) typeError(span Span, err error) error {
	return &CompileError{Unit: c.unit, Source: c.src, Span: span, Message: err.Error()}
}

// checkModule type checks mod against the interfaces of the modules it
// imports; known holds every module compiled so far, keyed by name
func checkModule(mod *Module, src string, known map[string]*ModuleInterface) (*CompiledUnit, error) {
	c := &checker{
		unit:      mod.Name,
		src:       src,
		types:     map[string]*typeInfo{},
		values:    map[string]*valueInfo{},
		modules:   map[string]*ModuleInterface{},
		known:     known,
		ownTypes:  map[string]*typeInfo{},
		ownValues: map[string]*valueInfo{},
		fnTypes:   map[string]Type{},
		spans:     map[string]Span{},
	}
	for name, ti := range preludeInterface.Types {
		c.types[name] = ti
	}
	for name, vi := range preludeInterface.Values {
		c.values[name] = vi
	}

	if err := c.registerImports(mod.Imports); err != nil {
		return nil, err
	}
	if err := c.registerTypes(mod.Defs); err != nil {
		return nil, err
	}
	code, err := c.checkValues(mod.Defs)
	if err != nil {
		return nil, err
	}

	iface := &ModuleInterface{
		Name:     mod.Name,
		Types:    map[string]*typeInfo{},
		Values:   map[string]*valueInfo{},
		allTypes: c.ownTypes,
	}
	for name, ti := range c.ownTypes {
		if ti.Public {
			iface.Types[name] = ti
		}
	}
	for name, vi := range c.ownValues {
		if vi.Kind == valueCtor {
			if vi.Ctor.Owner.Public && !vi.Ctor.Owner.Opaque {
				iface.Values[name] = vi
			}
			continue
		}
		if vi.Public {
			iface.Values[name] = vi
		}
	}

	deps := make([]string, 0, len(mod.Imports))
	for _, imp := range mod.Imports {
		deps = append(deps, imp.Path)
	}
	return &CompiledUnit{
		Name:      mod.Name,
		Source:    src,
		AST:       mod,
		Interface: iface,
		Code:      code,
		Deps:      deps,
		fnTypes:   c.fnTypes,
		spans:     c.spans,
	}, nil
}

func (c *checker) registerImports(imports []*ImportDef) error {
	for _, imp := range imports {
		iface, ok := c.known[imp.Path]
		if !ok {
			return c.errorf(imp.Span, "unknown module '%s'", imp.Path)
		}
		if _, dup := c.modules[imp.Alias]; dup {
			return c.errorf(imp.Span, "duplicate import of module alias '%s'", imp.Alias)
		}
		c.modules[imp.Alias] = iface
		for _, name := range imp.Types {
			ti, ok := iface.Types[name.Name]
			if !ok {
				return c.errorf(name.Span, "module '%s' has no public type '%s'", imp.Path, name.Name)
			}
			c.types[importedName(name)] = ti
		}
		for _, name := range imp.Values {
			vi, ok := iface.Values[name.Name]
			if !ok {
				return c.errorf(name.Span, "module '%s' has no public value '%s'", imp.Path, name.Name)
			}
			c.values[importedName(name)] = vi
		}
	}
	return nil
}

func importedName(name *ImportName) string {
	if name.Alias != "" {
		return name.Alias
	}
	return name.Name
}

// registerTypes declares every custom type first so definitions may refer
// to each other, then resolves constructors and aliases in source order
func (c *checker) registerTypes(defs []Definition) error {
	var typeDefs []*TypeDef
	for _, def := range defs {
		td, ok := def.(*TypeDef)
		if !ok {
			continue
		}
		if _, dup := c.ownTypes[td.Name]; dup {
			return c.errorf(td.Span, "duplicate definition of type '%s'", td.Name)
		}
		ti := &typeInfo{Module: c.unit, Name: td.Name, Public: td.Public, Opaque: td.Opaque, isAlias: td.Alias != nil}
		seen := map[string]bool{}
		for _, p := range td.Params {
			if seen[p] {
				return c.errorf(td.Span, "duplicate type parameter '%s'", p)
			}
			seen[p] = true
			c.tv.nextID++
			ti.Params = append(ti.Params, &TypeVar{ID: c.tv.nextID, Generic: true})
		}
		c.ownTypes[td.Name] = ti
		c.types[td.Name] = ti
		c.spans[td.Name] = td.Span
		typeDefs = append(typeDefs, td)
	}

	for _, td := range typeDefs {
		ti := c.ownTypes[td.Name]
		params := map[string]Type{}
		for i, p := range td.Params {
			params[p] = ti.Params[i]
		}
		if td.Alias != nil {
			alias, err := c.typeFromExpr(td.Alias, params, true)
			if err != nil {
				return err
			}
			ti.Alias = alias
			ti.resolved = true
			continue
		}
		for _, cd := range td.Ctors {
			ci := &ctorInfo{Name: cd.Name, Owner: ti}
			for _, f := range cd.Fields {
				ft, err := c.typeFromExpr(f.Type, params, true)
				if err != nil {
					return err
				}
				ci.Fields = append(ci.Fields, ft)
				ci.Labels = append(ci.Labels, f.Label)
			}
			if _, dup := c.ownValues[cd.Name]; dup {
				return c.errorf(cd.Span, "duplicate definition of '%s'", cd.Name)
			}
			vi := &valueInfo{Kind: valueCtor, Module: c.unit, Name: cd.Name, Type: ci.scheme(), Ctor: ci, Public: td.Public}
			ti.Ctors = append(ti.Ctors, ci)
			c.ownValues[cd.Name] = vi
			c.values[cd.Name] = vi
		}
		ti.resolved = true
	}
	return nil
}

// checkValues checks constants and functions in dependency order so that
// each group of mutually recursive definitions is generalised on its own
func (c *checker) checkValues(defs []Definition) (*ModuleCode, error) {
	code := &ModuleCode{Name: c.unit}
	var members []Definition
	byName := map[string]Definition{}

	for _, def := range defs {
		var name string
		var span Span
		switch d := def.(type) {
		case *FnDef:
			name, span = d.Name, d.Span
		case *ConstDef:
			name, span = d.Name, d.Span
		default:
			continue
		}
		if _, dup := c.ownValues[name]; dup {
			return nil, c.errorf(span, "duplicate definition of '%s'", name)
		}
		c.spans[name] = span

		if fd, ok := def.(*FnDef); ok && fd.External != nil && fd.Body == nil {
			ext, err := c.checkExternal(fd)
			if err != nil {
				return nil, err
			}
			code.Externals = append(code.Externals, ext)
			continue
		}
		kind := valueFn
		public := false
		switch d := def.(type) {
		case *FnDef:
			public = d.Public
		case *ConstDef:
			kind = valueConst
			public = d.Public
		}
		vi := &valueInfo{Kind: kind, Module: c.unit, Name: name, Public: public}
		c.ownValues[name] = vi
		c.values[name] = vi
		members = append(members, def)
		byName[name] = def
	}

	for _, group := range dependencyGroups(members, byName) {
		fns, consts, err := c.checkGroup(group)
		if err != nil {
			return nil, err
		}
		code.Functions = append(code.Functions, fns...)
		code.Consts = append(code.Consts, consts...)
	}
	return code, nil
}

func (c *checker) checkExternal(fd *FnDef) (*ExternalCode, error) {
	ext := fd.External
	if ext.Target != "native" {
		return nil, c.errorf(fd.Span, "unsupported external target '%s'", ext.Target)
	}
	if !HasNative(ext.Module, ext.Function) {
		return nil, c.errorf(fd.Span, "unknown native function %s.%s", ext.Module, ext.Function)
	}
	if fd.Return == nil {
		return nil, c.errorf(fd.Span, "external function '%s' needs a return type annotation", fd.Name)
	}
	c.tv.enterLevel()
	vars := map[string]Type{}
	fnT := &FnType{}
	for _, p := range fd.Params {
		if p.Annotation == nil {
			c.tv.leaveLevel()
			return nil, c.errorf(p.Span, "external function parameters need type annotations")
		}
		pt, err := c.typeFromExpr(p.Annotation, vars, false)
		if err != nil {
			c.tv.leaveLevel()
			return nil, err
		}
		fnT.Params = append(fnT.Params, pt)
	}
	ret, err := c.typeFromExpr(fd.Return, vars, false)
	c.tv.leaveLevel()
	if err != nil {
		return nil, err
	}
	fnT.Return = ret
	c.tv.generalize(fnT)

	vi := &valueInfo{Kind: valueExternal, Module: c.unit, Name: fd.Name, Type: fnT, Public: fd.Public}
	c.ownValues[fd.Name] = vi
	c.values[fd.Name] = vi
	c.fnTypes[fd.Name] = fnT
	return &ExternalCode{Name: fd.Name, Native: ext.Module + "." + ext.Function, Arity: len(fd.Params)}, nil
}

// checkGroup infers one strongly connected group of definitions
func (c *checker) checkGroup(group []Definition) ([]*FnCode, []*ConstCode, error) {
	c.tv.enterLevel()
	sigVars := map[string]map[string]Type{}
	for _, def := range group {
		switch d := def.(type) {
		case *FnDef:
			vars := map[string]Type{}
			sig, err := c.signature(d.Params, d.Return, vars)
			if err != nil {
				c.tv.leaveLevel()
				return nil, nil, err
			}
			sigVars[d.Name] = vars
			c.ownValues[d.Name].Type = sig
		case *ConstDef:
			var t Type = c.tv.fresh()
			if d.Annotation != nil {
				ann, err := c.typeFromExpr(d.Annotation, map[string]Type{}, false)
				if err != nil {
					c.tv.leaveLevel()
					return nil, nil, err
				}
				t = ann
			}
			c.ownValues[d.Name].Type = t
		}
	}

	var fns []*FnCode
	var consts []*ConstCode
	for _, def := range group {
		switch d := def.(type) {
		case *FnDef:
			sig := c.ownValues[d.Name].Type.(*FnType)
			fn, err := c.checkFn(d.Name, d.Params, d.Body, sig, nil, d.Span)
			if err != nil {
				c.tv.leaveLevel()
				return nil, nil, err
			}
			fns = append(fns, fn)
		case *ConstDef:
			ctx := &fnContext{}
			sc := &scope{fn: ctx, vars: map[string]*local{}}
			t, node, err := c.infer(d.Value, sc)
			if err != nil {
				c.tv.leaveLevel()
				return nil, nil, err
			}
			if err := unify(c.ownValues[d.Name].Type, t); err != nil {
				c.tv.leaveLevel()
				return nil, nil, c.typeError(d.Value.ExprSpan(), err)
			}
			consts = append(consts, &ConstCode{
				Name: d.Name,
				Init: &FnCode{Module: c.unit, Name: d.Name, Slots: ctx.slots, Body: node},
			})
		}
	}
	c.tv.leaveLevel()

	for _, def := range group {
		var name string
		switch d := def.(type) {
		case *FnDef:
			name = d.Name
		case *ConstDef:
			name = d.Name
		}
		vi := c.ownValues[name]
		c.tv.generalize(vi.Type)
		if vi.Kind == valueFn {
			c.fnTypes[name] = vi.Type
		}
	}
	return fns, consts, nil
}

// signature builds a function type from optional annotations
func (c *checker) signature(params []*Param, ret TypeExpr, vars map[string]Type) (*FnType, error) {
	fnT := &FnType{}
	for _, p := range params {
		if p.Annotation == nil {
			fnT.Params = append(fnT.Params, c.tv.fresh())
			continue
		}
		pt, err := c.typeFromExpr(p.Annotation, vars, false)
		if err != nil {
			return nil, err
		}
		fnT.Params = append(fnT.Params, pt)
	}
	if ret == nil {
		fnT.Return = c.tv.fresh()
		return fnT, nil
	}
	rt, err := c.typeFromExpr(ret, vars, false)
	if err != nil {
		return nil, err
	}
	fnT.Return = rt
	return fnT, nil
}

// checkFn infers a function body against its signature; outer is nil for
// top-level functions
func (c *checker) checkFn(name string, params []*Param, body []Stmt, sig *FnType, outer *scope, span Span) (*FnCode, error) {
	ctx := &fnContext{}
	if outer != nil {
		ctx.parent = outer.fn
	}
	sc := &scope{fn: ctx, parent: outer, vars: map[string]*local{}}
	for i, p := range params {
		if isDiscard(p.Name) {
			ctx.slots++
			continue
		}
		if _, dup := sc.vars[p.Name]; dup {
			return nil, c.errorf(p.Span, "duplicate parameter '%s'", p.Name)
		}
		sc.define(p.Name, sig.Params[i])
	}
	bodyT, node, err := c.inferStmts(body, sc, span)
	if err != nil {
		return nil, err
	}
	if err := unify(sig.Return, bodyT); err != nil {
		at := span
		if len(body) > 0 {
			at = body[len(body)-1].StmtSpan()
		}
		return nil, c.typeError(at, err)
	}
	return &FnCode{Module: c.unit, Name: name, Arity: len(params), Slots: ctx.slots, Body: node}, nil
}

func isDiscard(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

// lookupType resolves a possibly module qualified type name
func (c *checker) lookupType(module, name string, span Span) (*typeInfo, error) {
	if module == "" {
		if ti, ok := c.types[name]; ok {
			return ti, nil
		}
		return nil, c.errorf(span, "unknown type '%s'", name)
	}
	iface, ok := c.modules[module]
	if !ok {
		return nil, c.errorf(span, "unknown module '%s'", module)
	}
	ti, ok := iface.Types[name]
	if !ok {
		return nil, c.errorf(span, "module '%s' has no public type '%s'", module, name)
	}
	return ti, nil
}

// typeInfoFor finds the definition behind a type constructor, including
// types private to other modules
func (c *checker) typeInfoFor(con *TypeCon) *typeInfo {
	if con.Module == c.unit {
		return c.ownTypes[con.Name]
	}
	if con.Module == preludeModule {
		return preludeInterface.allTypes[con.Name]
	}
	if iface, ok := c.known[con.Module]; ok {
		return iface.allTypes[con.Name]
	}
	return nil
}

// typeFromExpr converts an annotation; strict forbids type variables that
// are not already in vars
func (c *checker) typeFromExpr(te TypeExpr, vars map[string]Type, strict bool) (Type, error) {
	switch t := te.(type) {
	case *VarTypeExpr:
		if v, ok := vars[t.Name]; ok {
			return v, nil
		}
		if strict {
			return nil, c.errorf(t.Span, "unknown type variable '%s'", t.Name)
		}
		v := c.tv.fresh()
		vars[t.Name] = v
		return v, nil
	case *HoleTypeExpr:
		if strict {
			return nil, c.errorf(t.Span, "type holes are not allowed here")
		}
		return c.tv.fresh(), nil
	case *NamedTypeExpr:
		ti, err := c.lookupType(t.Module, t.Name, t.Span)
		if err != nil {
			return nil, err
		}
		if len(t.Args) != len(ti.Params) {
			return nil, c.errorf(t.Span, "type '%s' expects %d arguments, got %d", t.Name, len(ti.Params), len(t.Args))
		}
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			at, err := c.typeFromExpr(a, vars, strict)
			if err != nil {
				return nil, err
			}
			args[i] = at
		}
		if ti.isAlias {
			if !ti.resolved {
				return nil, c.errorf(t.Span, "type alias '%s' is used before its definition", t.Name)
			}
			subst := map[*TypeVar]Type{}
			for i, p := range ti.Params {
				subst[p] = args[i]
			}
			return c.tv.instantiateWith(ti.Alias, subst), nil
		}
		return &TypeCon{Module: ti.Module, Name: ti.Name, Args: args}, nil
	case *FnTypeExpr:
		fnT := &FnType{}
		for _, p := range t.Params {
			pt, err := c.typeFromExpr(p, vars, strict)
			if err != nil {
				return nil, err
			}
			fnT.Params = append(fnT.Params, pt)
		}
		rt, err := c.typeFromExpr(t.Return, vars, strict)
		if err != nil {
			return nil, err
		}
		fnT.Return = rt
		return fnT, nil
	case *TupleTypeExpr:
		tt := &TupleType{}
		for _, e := range t.Elems {
			et, err := c.typeFromExpr(e, vars, strict)
			if err != nil {
				return nil, err
			}
			tt.Elems = append(tt.Elems, et)
		}
		return tt, nil
	}
	return nil, c.errorf(te.TypeSpan(), "unsupported type annotation")
}

// dependencyGroups orders definitions into strongly connected components,
// dependencies first (Tarjan)
func dependencyGroups(members []Definition, byName map[string]Definition) [][]Definition {
	names := make([]string, 0, len(members))
	edges := map[string][]string{}
	for _, def := range members {
		var name string
		refs := map[string]bool{}
		visit := func(n string) {
			if _, ok := byName[n]; ok {
				refs[n] = true
			}
		}
		switch d := def.(type) {
		case *FnDef:
			name = d.Name
			walkStmts(d.Body, visit)
		case *ConstDef:
			name = d.Name
			walkExpr(d.Value, visit)
		}
		names = append(names, name)
		deps := make([]string, 0, len(refs))
		for r := range refs {
			deps = append(deps, r)
		}
		sort.Strings(deps)
		edges[name] = deps
	}

	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var groups [][]Definition

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range edges[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && indices[w] < lowlink[v] {
				lowlink[v] = indices[w]
			}
		}
		if lowlink[v] == indices[v] {
			var group []Definition
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				group = append(group, byName[w])
				if w == v {
					break
				}
			}
			groups = append(groups, group)
		}
	}
	for _, n := range names {
		if _, seen := indices[n]; !seen {
			strongConnect(n)
		}
	}
	return groups
}

// walkStmts reports every lower case name referenced in stmts
func walkStmts(stmts []Stmt, visit func(string)) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *LetStmt:
			walkExpr(s.Value, visit)
		case *UseStmt:
			walkExpr(s.Call, visit)
		case *ExprStmt:
			walkExpr(s.Expr, visit)
		}
	}
}

func walkExpr(e Expr, visit func(string)) {
	switch x := e.(type) {
	case *VarExpr:
		visit(x.Name)
	case *FieldExpr:
		walkExpr(x.Target, visit)
	case *TupleIndexExpr:
		walkExpr(x.Target, visit)
	case *ListExpr:
		for _, el := range x.Elems {
			walkExpr(el, visit)
		}
		if x.Tail != nil {
			walkExpr(x.Tail, visit)
		}
	case *TupleExpr:
		for _, el := range x.Elems {
			walkExpr(el, visit)
		}
	case *CallExpr:
		walkExpr(x.Fn, visit)
		for _, a := range x.Args {
			walkExpr(a.Value, visit)
		}
	case *FnExpr:
		walkStmts(x.Body, visit)
	case *BlockExpr:
		walkStmts(x.Body, visit)
	case *CaseExpr:
		for _, s := range x.Subjects {
			walkExpr(s, visit)
		}
		for _, cl := range x.Clauses {
			if cl.Guard != nil {
				walkExpr(cl.Guard, visit)
			}
			walkExpr(cl.Body, visit)
		}
	case *BinaryExpr:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case *UnaryExpr:
		walkExpr(x.Operand, visit)
	case *PanicExpr:
		if x.Message != nil {
			walkExpr(x.Message, visit)
		}
	}
}
