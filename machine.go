package glint

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

// DefaultMaxCallDepth bounds nested, non-tail calls
const DefaultMaxCallDepth = 10000

const (
	panicMessage = "`panic` expression evaluated."
	todoMessage  = "`todo` expression evaluated. This code has not yet been implemented."
)

// global is one module level value; constants are evaluated on first use
type global struct {
	value Value
	init  *FnCode
	busy  bool
}

// frame holds the locals of one function activation
type frame struct {
	slots  []Value
	parent *frame
}

// tailCall is a call in tail position, returned to the trampoline in call
type tailCall struct {
	fn   Value
	args []Value
}

// Machine is a tree-walking Engine over the checker's IR
type Machine struct {
	out    io.Writer
	errOut io.Writer
	logger *Logger

	globals map[string]*global
	loaded  map[string]*ModuleCode
	store   valueStore
	checks  checkTally

	depth    int
	maxDepth int
	stop     atomic.Bool
}

// NewMachine creates an engine writing program output to out and runtime
// errors to errOut
func NewMachine(out, errOut io.Writer, logger *Logger) *Machine {
	return &Machine{
		out:      out,
		errOut:   errOut,
		logger:   logger,
		globals:  map[string]*global{},
		loaded:   map[string]*ModuleCode{},
		store:    valueStore{savedSlot: -1},
		maxDepth: DefaultMaxCallDepth,
	}
}

// SetMaxCallDepth changes the call depth limit
func (m *Machine) SetMaxCallDepth(depth int) {
	if depth > 0 {
		m.maxDepth = depth
	}
}

// Load implements Engine
func (m *Machine) Load(units []*CompiledUnit) error {
	for _, unit := range units {
		code := unit.Code
		if m.loaded[code.Name] == code {
			continue
		}
		for _, fn := range code.Functions {
			m.globals[code.Name+"."+fn.Name] = &global{value: &Closure{Code: fn}}
		}
		for _, c := range code.Consts {
			m.globals[code.Name+"."+c.Name] = &global{init: c.Init}
		}
		for _, ext := range code.Externals {
			fn, ok := nativeFn(ext.Native)
			if !ok {
				return errors.Errorf("unit %s: unknown native function %s", code.Name, ext.Native)
			}
			m.globals[code.Name+"."+ext.Name] = &global{value: fn}
		}
		m.loaded[code.Name] = code
		m.logger.DebugCat(CatRuntime, "loaded unit %s (%d functions)", code.Name, len(code.Functions))
	}
	return nil
}

// Run implements Engine
func (m *Machine) Run(ctx context.Context, unit, entry string, showOutput bool) error {
	v, err := m.Call(ctx, unit, entry)
	if err != nil {
		return err
	}
	if showOutput {
		fmt.Fprintln(m.out, Inspect(v))
	}
	return nil
}

// Call implements Engine
func (m *Machine) Call(ctx context.Context, unit, entry string, args ...Value) (Value, error) {
	m.stop.Store(false)
	m.store.startRun()
	stopWatch := context.AfterFunc(ctx, m.Interrupt)
	defer stopWatch()

	v, err := m.callEntry(unit, entry, args...)
	if errors.Is(err, ErrInterrupted) {
		fmt.Fprintln(m.errOut, "Interrupted.")
		return nil, ErrInterrupted
	}
	if err != nil {
		fmt.Fprintln(m.errOut, err.Error())
		return nil, err
	}
	return v, nil
}

func (m *Machine) callEntry(unit, entry string, args ...Value) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{Module: unit, Function: entry, Message: fmt.Sprint(r)}
		}
	}()
	g, ok := m.globals[unit+"."+entry]
	if !ok {
		return nil, &RuntimeError{Module: unit, Message: fmt.Sprintf("no function named '%s'", entry)}
	}
	m.depth = 0
	fn, err := m.globalValue(unit+"."+entry, g)
	if err != nil {
		return nil, err
	}
	return m.call(fn, args, nil)
}

// StoreLen implements Engine
func (m *Machine) StoreLen() int {
	return m.store.len()
}

// Release implements Engine
func (m *Machine) Release(unit string) {
	code, ok := m.loaded[unit]
	if !ok {
		return
	}
	if slot := m.store.savedSlot; slot >= 0 && refersTo(m.store.values[slot], unit, map[*frame]bool{}) {
		m.logger.DebugCat(CatRuntime, "keeping unit %s, slot %d refers to it", unit, slot)
		return
	}
	for _, fn := range code.Functions {
		delete(m.globals, unit+"."+fn.Name)
	}
	for _, c := range code.Consts {
		delete(m.globals, unit+"."+c.Name)
	}
	for _, ext := range code.Externals {
		delete(m.globals, unit+"."+ext.Name)
	}
	delete(m.loaded, unit)
	m.logger.DebugCat(CatRuntime, "released unit %s", unit)
}

// refersTo reports whether v holds a closure over code of unit
func refersTo(v Value, unit string, seen map[*frame]bool) bool {
	switch val := v.(type) {
	case *List:
		for l := val; l != nil; l = l.Tail {
			if refersTo(l.Head, unit, seen) {
				return true
			}
		}
	case Tuple:
		for _, e := range val {
			if refersTo(e, unit, seen) {
				return true
			}
		}
	case *Record:
		for _, f := range val.Fields {
			if refersTo(f, unit, seen) {
				return true
			}
		}
	case *Closure:
		if val.Code.Module == unit {
			return true
		}
		for fr := val.Env; fr != nil && !seen[fr]; fr = fr.parent {
			seen[fr] = true
			for _, s := range fr.slots {
				if refersTo(s, unit, seen) {
					return true
				}
			}
		}
	}
	return false
}

// SlotSaved implements Engine
func (m *Machine) SlotSaved(slot int) bool {
	return m.store.savedSlot == slot
}

// Interrupt implements Engine; it is safe to call from another goroutine
func (m *Machine) Interrupt() {
	m.stop.Store(true)
}

func (m *Machine) interrupted() bool {
	return m.stop.Load()
}

// RunTests implements Engine
func (m *Machine) RunTests(ctx context.Context, units []*CompiledUnit) TestSummary {
	var summary TestSummary
units:
	for _, unit := range units {
		if strings.HasPrefix(unit.Name, "std/") {
			continue
		}
		for _, name := range exampleFunctions(unit) {
			m.checks = checkTally{}
			m.stop.Store(false)
			stopWatch := context.AfterFunc(ctx, m.Interrupt)
			_, err := m.callEntry(unit.Name, name)
			stopWatch()
			summary.Successes += m.checks.passed
			summary.Failures += len(m.checks.failures)
			for _, f := range m.checks.failures {
				summary.Messages = append(summary.Messages, fmt.Sprintf("Failure at %s.%s\n%s", unit.Name, name, f))
			}
			if err != nil {
				summary.Errors++
				summary.Messages = append(summary.Messages, fmt.Sprintf("Error at %s.%s\n  %s", unit.Name, name, err))
			}
			if errors.Is(err, ErrInterrupted) {
				break units
			}
		}
	}
	summary.Tests = summary.Successes + summary.Failures + summary.Errors
	return summary
}

func (m *Machine) globalValue(key string, g *global) (Value, error) {
	if g.init == nil {
		return g.value, nil
	}
	if g.busy {
		module, name := splitKey(key)
		return nil, &RuntimeError{Module: module, Function: name, Message: "constant depends on itself"}
	}
	g.busy = true
	v, err := m.call(&Closure{Code: g.init}, nil, nil)
	g.busy = false
	if err != nil {
		return nil, err
	}
	g.value, g.init = v, nil
	return v, nil
}

func splitKey(key string) (string, string) {
	i := strings.LastIndexByte(key, '.')
	return key[:i], key[i+1:]
}

func (m *Machine) fail(code *FnCode, format string, args ...interface{}) error {
	name := code.Name
	if name == "" {
		name = "<anonymous>"
	}
	return &RuntimeError{Module: code.Module, Function: name, Message: fmt.Sprintf(format, args...)}
}

// call applies fn to args, looping over tail calls; caller names the
// function whose code is making the call, for error messages
func (m *Machine) call(fn Value, args []Value, caller *FnCode) (Value, error) {
	for {
		if m.interrupted() {
			return nil, ErrInterrupted
		}
		switch f := fn.(type) {
		case *Closure:
			if len(args) != f.Code.Arity {
				return nil, m.fail(f.Code, "expected %d arguments, got %d", f.Code.Arity, len(args))
			}
			fr := &frame{slots: make([]Value, f.Code.Slots), parent: f.Env}
			copy(fr.slots, args)
			m.depth++
			if m.depth > m.maxDepth {
				m.depth--
				return nil, m.fail(f.Code, "stack overflow")
			}
			v, tc, err := m.evalTail(f.Code.Body, fr, f.Code)
			m.depth--
			if err != nil {
				return nil, err
			}
			if tc == nil {
				return v, nil
			}
			fn, args, caller = tc.fn, tc.args, f.Code
		case *NativeFn:
			if len(args) != f.Arity {
				return nil, m.callerError(caller, "%s expects %d arguments, got %d", f.Name, f.Arity, len(args))
			}
			v, err := f.Fn(m, args)
			if err != nil {
				if errors.Is(err, ErrInterrupted) {
					return nil, err
				}
				var re *RuntimeError
				if errors.As(err, &re) {
					return nil, err
				}
				return nil, m.callerError(caller, "%s", err.Error())
			}
			return v, nil
		case *CtorFn:
			if len(args) != f.Arity {
				return nil, m.callerError(caller, "%s expects %d arguments, got %d", f.Tag, f.Arity, len(args))
			}
			fields := make([]Value, len(args))
			copy(fields, args)
			return &Record{Tag: f.Tag, Labels: f.Labels, Fields: fields}, nil
		default:
			return nil, m.callerError(caller, "%s is not a function", Inspect(fn))
		}
	}
}

func (m *Machine) callerError(caller *FnCode, format string, args ...interface{}) error {
	if caller == nil {
		return &RuntimeError{Module: "glint", Message: fmt.Sprintf(format, args...)}
	}
	return m.fail(caller, format, args...)
}

// evalTail evaluates n in tail position: calls are handed back to the
// trampoline instead of growing the Go stack
func (m *Machine) evalTail(n Node, fr *frame, code *FnCode) (Value, *tailCall, error) {
	switch x := n.(type) {
	case *Call:
		fn, err := m.eval(x.Fn, fr, code)
		if err != nil {
			return nil, nil, err
		}
		args, err := m.evalAll(x.Args, fr, code)
		if err != nil {
			return nil, nil, err
		}
		return nil, &tailCall{fn: fn, args: args}, nil
	case *Seq:
		for _, st := range x.Stmts[:len(x.Stmts)-1] {
			if _, err := m.eval(st, fr, code); err != nil {
				return nil, nil, err
			}
		}
		return m.evalTail(x.Stmts[len(x.Stmts)-1], fr, code)
	case *Case:
		body, err := m.selectClause(x, fr, code)
		if err != nil {
			return nil, nil, err
		}
		return m.evalTail(body, fr, code)
	}
	v, err := m.eval(n, fr, code)
	return v, nil, err
}

func (m *Machine) evalAll(nodes []Node, fr *frame, code *FnCode) ([]Value, error) {
	values := make([]Value, len(nodes))
	for i, n := range nodes {
		v, err := m.eval(n, fr, code)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (m *Machine) eval(n Node, fr *frame, code *FnCode) (Value, error) {
	switch x := n.(type) {
	case *Lit:
		return x.Value, nil
	case *LocalRef:
		f := fr
		for i := 0; i < x.Depth; i++ {
			f = f.parent
		}
		return f.slots[x.Index], nil
	case *GlobalRef:
		g, ok := m.globals[x.Key]
		if !ok {
			return nil, m.fail(code, "undefined global %s", x.Key)
		}
		return m.globalValue(x.Key, g)
	case *MakeClosure:
		return &Closure{Code: x.Fn, Env: fr}, nil
	case *Call:
		fn, err := m.eval(x.Fn, fr, code)
		if err != nil {
			return nil, err
		}
		args, err := m.evalAll(x.Args, fr, code)
		if err != nil {
			return nil, err
		}
		return m.call(fn, args, code)
	case *MakeRecord:
		fields, err := m.evalAll(x.Args, fr, code)
		if err != nil {
			return nil, err
		}
		return &Record{Tag: x.Tag, Labels: x.Labels, Fields: fields}, nil
	case *MakeTuple:
		elems, err := m.evalAll(x.Elems, fr, code)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil
	case *MakeList:
		elems, err := m.evalAll(x.Elems, fr, code)
		if err != nil {
			return nil, err
		}
		var tail *List
		if x.Tail != nil {
			tv, err := m.eval(x.Tail, fr, code)
			if err != nil {
				return nil, err
			}
			tail = tv.(*List)
		}
		for i := len(elems) - 1; i >= 0; i-- {
			tail = &List{Head: elems[i], Tail: tail}
		}
		return tail, nil
	case *FieldGet:
		target, err := m.eval(x.Target, fr, code)
		if err != nil {
			return nil, err
		}
		switch t := target.(type) {
		case *Record:
			return t.Fields[x.Index], nil
		case Tuple:
			return t[x.Index], nil
		}
		return nil, m.fail(code, "cannot access field %d of %s", x.Index, Inspect(target))
	case *Seq:
		var last Value = Nil
		for _, st := range x.Stmts {
			v, err := m.eval(st, fr, code)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	case *Bind:
		v, err := m.eval(x.Value, fr, code)
		if err != nil {
			return nil, err
		}
		if !m.match(x.Pattern, v, fr) {
			return nil, m.fail(code, "pattern match failed for value %s", Inspect(v))
		}
		return v, nil
	case *Case:
		body, err := m.selectClause(x, fr, code)
		if err != nil {
			return nil, err
		}
		return m.eval(body, fr, code)
	case *BinOp:
		return m.binOp(x, fr, code)
	case *Negate:
		v, err := m.eval(x.Operand, fr, code)
		if err != nil {
			return nil, err
		}
		switch o := v.(type) {
		case *big.Int:
			return new(big.Int).Neg(o), nil
		case float64:
			return -o, nil
		}
		return nil, m.fail(code, "cannot negate %s", Inspect(v))
	case *Not:
		v, err := m.eval(x.Operand, fr, code)
		if err != nil {
			return nil, err
		}
		return !v.(bool), nil
	case *Panic:
		message := panicMessage
		if x.Todo {
			message = todoMessage
		}
		if x.Message != nil {
			v, err := m.eval(x.Message, fr, code)
			if err != nil {
				return nil, err
			}
			message = v.(string)
		}
		return nil, m.fail(code, "%s", message)
	}
	return nil, m.fail(code, "unsupported node %T", n)
}

// selectClause evaluates the subjects and returns the body of the first
// clause that matches
func (m *Machine) selectClause(x *Case, fr *frame, code *FnCode) (Node, error) {
	subjects, err := m.evalAll(x.Subjects, fr, code)
	if err != nil {
		return nil, err
	}
	for _, cl := range x.Clauses {
		for _, alt := range cl.Alternatives {
			if !m.matchAll(alt, subjects, fr) {
				continue
			}
			if cl.Guard != nil {
				ok, err := m.eval(cl.Guard, fr, code)
				if err != nil {
					return nil, err
				}
				if !ok.(bool) {
					continue
				}
			}
			return cl.Body, nil
		}
	}
	shown := make([]string, len(subjects))
	for i, s := range subjects {
		shown[i] = Inspect(s)
	}
	return nil, m.fail(code, "no case clause matched %s", strings.Join(shown, ", "))
}

func (m *Machine) matchAll(pats []Pat, values []Value, fr *frame) bool {
	for i, p := range pats {
		if !m.match(p, values[i], fr) {
			return false
		}
	}
	return true
}

func (m *Machine) match(p Pat, v Value, fr *frame) bool {
	switch x := p.(type) {
	case *PatAny:
		return true
	case *PatBind:
		fr.slots[x.Index] = v
		return true
	case *PatLit:
		return Equal(x.Value, v)
	case *PatRecord:
		r, ok := v.(*Record)
		if !ok || r.Tag != x.Tag || len(r.Fields) != len(x.Args) {
			return false
		}
		for i, ap := range x.Args {
			if !m.match(ap, r.Fields[i], fr) {
				return false
			}
		}
		return true
	case *PatTuple:
		t, ok := v.(Tuple)
		if !ok || len(t) != len(x.Elems) {
			return false
		}
		return m.matchAll(x.Elems, t, fr)
	case *PatList:
		l, ok := v.(*List)
		if !ok {
			return false
		}
		for _, ep := range x.Elems {
			if l == nil || !m.match(ep, l.Head, fr) {
				return false
			}
			l = l.Tail
		}
		if x.Tail == nil {
			return l == nil
		}
		return m.match(x.Tail, l, fr)
	case *PatAlias:
		if !m.match(x.Pattern, v, fr) {
			return false
		}
		fr.slots[x.Index] = v
		return true
	case *PatPrefix:
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, x.Prefix) {
			return false
		}
		return m.match(x.Rest, s[len(x.Prefix):], fr)
	}
	return false
}

func (m *Machine) binOp(x *BinOp, fr *frame, code *FnCode) (Value, error) {
	left, err := m.eval(x.Left, fr, code)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case TokAndAnd:
		if !left.(bool) {
			return false, nil
		}
		return m.eval(x.Right, fr, code)
	case TokOrOr:
		if left.(bool) {
			return true, nil
		}
		return m.eval(x.Right, fr, code)
	}
	right, err := m.eval(x.Right, fr, code)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case TokEqEq:
		return Equal(left, right), nil
	case TokNotEq:
		return !Equal(left, right), nil
	case TokConcat:
		return left.(string) + right.(string), nil
	}

	if a, ok := left.(*big.Int); ok {
		b := right.(*big.Int)
		switch x.Op {
		case TokPlus:
			return new(big.Int).Add(a, b), nil
		case TokMinus:
			return new(big.Int).Sub(a, b), nil
		case TokStar:
			return new(big.Int).Mul(a, b), nil
		case TokSlash:
			if b.Sign() == 0 {
				return new(big.Int), nil
			}
			return new(big.Int).Quo(a, b), nil
		case TokPercent:
			if b.Sign() == 0 {
				return new(big.Int), nil
			}
			return new(big.Int).Rem(a, b), nil
		case TokLess:
			return a.Cmp(b) < 0, nil
		case TokGreater:
			return a.Cmp(b) > 0, nil
		case TokLessEq:
			return a.Cmp(b) <= 0, nil
		case TokGreaterEq:
			return a.Cmp(b) >= 0, nil
		}
	}
	if a, ok := left.(float64); ok {
		b := right.(float64)
		switch x.Op {
		case TokPlusDot:
			return a + b, nil
		case TokMinusDot:
			return a - b, nil
		case TokStarDot:
			return a * b, nil
		case TokSlashDot:
			if b == 0 {
				return 0.0, nil
			}
			return a / b, nil
		case TokLessDot:
			return a < b, nil
		case TokGreaterDot:
			return a > b, nil
		case TokLessEqDot:
			return a <= b, nil
		case TokGreaterEqDot:
			return a >= b, nil
		}
	}
	return nil, m.fail(code, "unsupported operands for %s: %s, %s", x.Op, Inspect(left), Inspect(right))
}
