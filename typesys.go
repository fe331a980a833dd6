package glint

import (
	"fmt"
)

// Type is a glint type
type Type interface {
	isType()
}

// TypeVar is a unification variable; Link is set once it is solved and
// Generic marks a variable quantified by let-generalisation
type TypeVar struct {
	ID      int
	Level   int
	Link    Type
	Generic bool
}

// TypeCon is a named type applied to arguments, such as Int or List(a)
type TypeCon struct {
	Module string
	Name   string
	Args   []Type
}

// FnType is a function type
type FnType struct {
	Params []Type
	Return Type
}

// TupleType is a tuple type
type TupleType struct {
	Elems []Type
}

func (*TypeVar) isType()   {}
func (*TypeCon) isType()   {}
func (*FnType) isType()    {}
func (*TupleType) isType() {}

// preludeModule owns the built-in types
const preludeModule = "gleam"

var (
	intType    = &TypeCon{Module: preludeModule, Name: "Int"}
	floatType  = &TypeCon{Module: preludeModule, Name: "Float"}
	stringType = &TypeCon{Module: preludeModule, Name: "String"}
	boolType   = &TypeCon{Module: preludeModule, Name: "Bool"}
	nilType    = &TypeCon{Module: preludeModule, Name: "Nil"}
)

func listType(elem Type) Type {
	return &TypeCon{Module: preludeModule, Name: "List", Args: []Type{elem}}
}

func resultType(ok, err Type) Type {
	return &TypeCon{Module: preludeModule, Name: "Result", Args: []Type{ok, err}}
}

// prune follows solved variable links
func prune(t Type) Type {
	for {
		v, ok := t.(*TypeVar)
		if !ok || v.Link == nil {
			return t
		}
		t = v.Link
	}
}

// typeVars hands out fresh variables at the current generalisation level
type typeVars struct {
	nextID int
	level  int
}

func (tv *typeVars) fresh() *TypeVar {
	tv.nextID++
	return &TypeVar{ID: tv.nextID, Level: tv.level}
}

func (tv *typeVars) enterLevel() { tv.level++ }
func (tv *typeVars) leaveLevel() { tv.level-- }

// generalize quantifies every unsolved variable created at a deeper level
func (tv *typeVars) generalize(t Type) {
	switch t := prune(t).(type) {
	case *TypeVar:
		if t.Level > tv.level {
			t.Generic = true
		}
	case *TypeCon:
		for _, a := range t.Args {
			tv.generalize(a)
		}
	case *FnType:
		for _, p := range t.Params {
			tv.generalize(p)
		}
		tv.generalize(t.Return)
	case *TupleType:
		for _, e := range t.Elems {
			tv.generalize(e)
		}
	}
}

// instantiate replaces generic variables with fresh ones
func (tv *typeVars) instantiate(t Type) Type {
	return tv.instantiateWith(t, map[*TypeVar]Type{})
}

func (tv *typeVars) instantiateWith(t Type, subst map[*TypeVar]Type) Type {
	switch t := prune(t).(type) {
	case *TypeVar:
		if !t.Generic {
			return t
		}
		if r, ok := subst[t]; ok {
			return r
		}
		r := tv.fresh()
		subst[t] = r
		return r
	case *TypeCon:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = tv.instantiateWith(a, subst)
		}
		return &TypeCon{Module: t.Module, Name: t.Name, Args: args}
	case *FnType:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = tv.instantiateWith(p, subst)
		}
		return &FnType{Params: params, Return: tv.instantiateWith(t.Return, subst)}
	case *TupleType:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = tv.instantiateWith(e, subst)
		}
		return &TupleType{Elems: elems}
	}
	return t
}

// unifyError describes a failed unification; the checker attaches a span
type unifyError struct {
	expected Type
	got      Type
	occurs   bool
}

func (e *unifyError) Error() string {
	if e.occurs {
		return "recursive type: a type cannot contain itself"
	}
	// Both sides share one printer so that type variables line up
	printer := newTypePrinter()
	return fmt.Sprintf("type mismatch: expected %s, got %s", printer.render(e.expected), printer.render(e.got))
}

// unify makes a and b equal, binding variables as needed
func unify(a, b Type) error {
	return unifyTop(a, b, a, b)
}

func unifyTop(a, b, topA, topB Type) error {
	a, b = prune(a), prune(b)
	if va, ok := a.(*TypeVar); ok {
		return bindVar(va, b, topA, topB)
	}
	if vb, ok := b.(*TypeVar); ok {
		return bindVar(vb, a, topA, topB)
	}
	mismatch := &unifyError{expected: topA, got: topB}
	switch ta := a.(type) {
	case *TypeCon:
		tb, ok := b.(*TypeCon)
		if !ok || ta.Name != tb.Name || ta.Module != tb.Module || len(ta.Args) != len(tb.Args) {
			return mismatch
		}
		for i := range ta.Args {
			if err := unifyTop(ta.Args[i], tb.Args[i], topA, topB); err != nil {
				return err
			}
		}
		return nil
	case *FnType:
		tb, ok := b.(*FnType)
		if !ok || len(ta.Params) != len(tb.Params) {
			return mismatch
		}
		for i := range ta.Params {
			if err := unifyTop(ta.Params[i], tb.Params[i], topA, topB); err != nil {
				return err
			}
		}
		return unifyTop(ta.Return, tb.Return, topA, topB)
	case *TupleType:
		tb, ok := b.(*TupleType)
		if !ok || len(ta.Elems) != len(tb.Elems) {
			return mismatch
		}
		for i := range ta.Elems {
			if err := unifyTop(ta.Elems[i], tb.Elems[i], topA, topB); err != nil {
				return err
			}
		}
		return nil
	}
	return mismatch
}

func bindVar(v *TypeVar, t Type, topA, topB Type) error {
	if other, ok := t.(*TypeVar); ok && other == v {
		return nil
	}
	if occursIn(v, t) {
		return &unifyError{expected: topA, got: topB, occurs: true}
	}
	v.Link = t
	return nil
}

// occursIn checks whether v appears in t, lowering levels on the way so
// that generalisation stays sound
func occursIn(v *TypeVar, t Type) bool {
	switch t := prune(t).(type) {
	case *TypeVar:
		if t == v {
			return true
		}
		if t.Level > v.Level {
			t.Level = v.Level
		}
		return false
	case *TypeCon:
		for _, a := range t.Args {
			if occursIn(v, a) {
				return true
			}
		}
	case *FnType:
		for _, p := range t.Params {
			if occursIn(v, p) {
				return true
			}
		}
		return occursIn(v, t.Return)
	case *TupleType:
		for _, e := range t.Elems {
			if occursIn(v, e) {
				return true
			}
		}
	}
	return false
}
