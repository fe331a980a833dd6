package glint

import (
	"strings"

	"github.com/pkg/errors"
)

// typePrinter names unbound type variables a, b, c... in the order it first
// meets them
type typePrinter struct {
	names map[*TypeVar]string
}

func newTypePrinter() *typePrinter {
	return &typePrinter{names: map[*TypeVar]string{}}
}

// RenderType renders t with a fresh variable numbering
func RenderType(t Type) string {
	return newTypePrinter().render(t)
}

func (p *typePrinter) render(t Type) string {
	var sb strings.Builder
	p.write(&sb, t)
	return sb.String()
}

func (p *typePrinter) write(sb *strings.Builder, t Type) {
	switch t := prune(t).(type) {
	case *TypeVar:
		name, ok := p.names[t]
		if !ok {
			name = letterName(len(p.names))
			p.names[t] = name
		}
		sb.WriteString(name)
	case *TypeCon:
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			p.list(sb, t.Args)
		}
	case *FnType:
		sb.WriteString("fn")
		p.list(sb, t.Params)
		sb.WriteString(" -> ")
		p.write(sb, t.Return)
	case *TupleType:
		sb.WriteByte('#')
		p.list(sb, t.Elems)
	}
}

func (p *typePrinter) list(sb *strings.Builder, types []Type) {
	sb.WriteByte('(')
	for i, t := range types {
		if i > 0 {
			sb.WriteString(", ")
		}
		p.write(sb, t)
	}
	sb.WriteByte(')')
}

// letterName maps 0, 1, ... 25, 26 to a, b, ... z, aa
func letterName(i int) string {
	var out []byte
	for {
		out = append([]byte{byte('a' + i%26)}, out...)
		i = i/26 - 1
		if i < 0 {
			return string(out)
		}
	}
}

// wrapperType reads the inferred result type of the REPL wrapper function
func wrapperType(unit *CompiledUnit) (Type, error) {
	t, ok := unit.FnType(wrapperName)
	if !ok {
		return nil, errors.Errorf("unit %s has no function %s", unit.Name, wrapperName)
	}
	fnT, ok := prune(t).(*FnType)
	if !ok {
		return nil, errors.Errorf("%s in unit %s is not a function", wrapperName, unit.Name)
	}
	return fnT.Return, nil
}

// QueryType renders the type an item would have if it were evaluated
func QueryType(unit *CompiledUnit) (string, error) {
	t, err := wrapperType(unit)
	if err != nil {
		return "", err
	}
	return RenderType(t), nil
}
