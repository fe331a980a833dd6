package glint

import (
	"sort"
)

// VarBinding locates a REPL variable in the value store together with the
// rendered type it was saved with
type VarBinding struct {
	Slot int
	Type string
}

// Session is the state accumulated across REPL turns
type Session struct {
	UserImport string
	Imports    []string
	Consts     []string
	Types      []string
	// FnOrder keeps the first definition order of Fns
	FnOrder []string
	Fns     map[string]string
	Vars    map[string]VarBinding

	Turn     int
	NextSlot int
}

// NewSession creates the state of a fresh REPL, importing the standard
// modules and optionally a user module
func NewSession(userImport string) *Session {
	s := &Session{
		UserImport: userImport,
		Fns:        map[string]string{},
		Vars:       map[string]VarBinding{},
	}
	for _, name := range StdModules {
		s.Imports = append(s.Imports, "import "+name)
	}
	return s
}

// Clone returns a deep copy, used as the rollback snapshot of a turn
func (s *Session) Clone() *Session {
	c := &Session{
		UserImport: s.UserImport,
		Imports:    append([]string(nil), s.Imports...),
		Consts:     append([]string(nil), s.Consts...),
		Types:      append([]string(nil), s.Types...),
		FnOrder:    append([]string(nil), s.FnOrder...),
		Fns:        make(map[string]string, len(s.Fns)),
		Vars:       make(map[string]VarBinding, len(s.Vars)),
		Turn:       s.Turn,
		NextSlot:   s.NextSlot,
	}
	for k, v := range s.Fns {
		c.Fns[k] = v
	}
	for k, v := range s.Vars {
		c.Vars[k] = v
	}
	return c
}

// restore puts the snapshot back. The counters only move forward, so unit
// names and slots handed out by the failed turn are never reused.
func (s *Session) restore(snapshot *Session) {
	turn, next := s.Turn, s.NextSlot
	*s = *snapshot
	s.Turn, s.NextSlot = turn, next
}

// AddConst appends a constant declaration
func (s *Session) AddConst(text string) {
	s.Consts = append(s.Consts, text)
}

// AddType appends a type declaration
func (s *Session) AddType(text string) {
	s.Types = append(s.Types, text)
}

// SetFn stores or replaces a function; a variable of the same name is
// dropped so the function is not hidden behind its shim
func (s *Session) SetFn(name, text string) {
	if _, ok := s.Fns[name]; !ok {
		s.FnOrder = append(s.FnOrder, name)
	}
	s.Fns[name] = text
	delete(s.Vars, name)
}

// SetVar records a saved binding
func (s *Session) SetVar(name string, slot int, typ string) {
	s.Vars[name] = VarBinding{Slot: slot, Type: typ}
}

// allocSlot hands out the next store slot
func (s *Session) allocSlot() int {
	slot := s.NextSlot
	s.NextSlot++
	return slot
}

// VarNames lists the bound variables ordered by slot
func (s *Session) VarNames() []string {
	names := make([]string, 0, len(s.Vars))
	for name := range s.Vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return s.Vars[names[i]].Slot < s.Vars[names[j]].Slot
	})
	return names
}
