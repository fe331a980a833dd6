package glint

import (
	"strings"
)

// Names generated into REPL units
const (
	wrapperName = "repl_main"
	discardName = "repl_value"
)

// Segment maps a run of synthetic source bytes back to the input line
type Segment struct {
	SynthStart int
	OrigStart  int
	Length     int
}

// SourceMap relates a synthetic unit to the user's input
type SourceMap struct {
	Segments []Segment
}

// ToOriginal maps a synthetic span into the input; spans outside the
// copied user text do not map
func (m SourceMap) ToOriginal(span Span) (Span, bool) {
	for _, seg := range m.Segments {
		end := seg.SynthStart + seg.Length
		if span.Start < seg.SynthStart || span.Start >= end {
			continue
		}
		out := Span{Start: seg.OrigStart + span.Start - seg.SynthStart}
		if span.End <= end {
			out.End = seg.OrigStart + span.End - seg.SynthStart
		} else {
			out.End = seg.OrigStart + seg.Length
		}
		return out, true
	}
	return Span{}, false
}

// SyntheticSource is a complete unit assembled for one item
type SyntheticSource struct {
	Text string
	Map  SourceMap
	// FnText is the stored form of a new function, shims included
	FnText string
}

type sourceBuilder struct {
	sb   strings.Builder
	smap SourceMap
}

func (b *sourceBuilder) write(s string) {
	b.sb.WriteString(s)
}

// copyInput writes user text that starts at origStart in the input
func (b *sourceBuilder) copyInput(text string, origStart int) {
	if text == "" {
		return
	}
	b.smap.Segments = append(b.smap.Segments, Segment{SynthStart: b.sb.Len(), OrigStart: origStart, Length: len(text)})
	b.sb.WriteString(text)
}

func (b *sourceBuilder) line(s string) {
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

func (b *sourceBuilder) result() *SyntheticSource {
	return &SyntheticSource{Text: b.sb.String(), Map: b.smap}
}

// shims rebinds every saved variable except the excluded names, in slot
// order
func shims(s *Session, exclude map[string]bool) string {
	var sb strings.Builder
	for _, name := range s.VarNames() {
		if exclude[name] {
			continue
		}
		sb.WriteString(ShimLine(name, s.Vars[name]))
	}
	return sb.String()
}

// writePrelude emits everything the session has accumulated before the
// given item; a new constant or type is placed at the end of its section
func writePrelude(b *sourceBuilder, s *Session, item *TurnItem, skipFn string) {
	b.write(bridgeHeader)
	if s.UserImport != "" {
		b.line(s.UserImport)
	}
	for _, imp := range s.Imports {
		b.line(imp)
	}
	for _, c := range s.Consts {
		b.line(c)
	}
	if item != nil && item.Kind == ItemConst {
		b.copyInput(item.Text, item.Span.Start)
		b.write("\n")
	}
	for _, t := range s.Types {
		b.line(t)
	}
	if item != nil && item.Kind == ItemType {
		b.copyInput(item.Text, item.Span.Start)
		b.write("\n")
	}
	for _, name := range s.FnOrder {
		if name == skipFn {
			continue
		}
		b.line(s.Fns[name])
	}
}

// BuildDefinition assembles the unit that validates a constant, type or
// function definition against the session
func BuildDefinition(s *Session, item *TurnItem) *SyntheticSource {
	b := &sourceBuilder{}
	if item.Kind != ItemFn {
		writePrelude(b, s, item, "")
		return b.result()
	}

	writePrelude(b, s, item, item.Name)
	fd := item.Def.(*FnDef)
	start := b.sb.Len()
	if fd.Body == nil {
		b.copyInput(item.Text, item.Span.Start)
	} else {
		exclude := map[string]bool{fd.Name: true}
		for _, p := range fd.Params {
			exclude[p.Name] = true
		}
		split := fd.BodyOpen.End - item.Span.Start
		b.copyInput(item.Text[:split], item.Span.Start)
		b.write("\n")
		b.write(shims(s, exclude))
		b.copyInput(strings.TrimLeft(item.Text[split:], " \t"), item.Span.Start+split+leadingBlanks(item.Text[split:]))
	}
	fnText := b.sb.String()[start:]
	b.write("\n")
	src := b.result()
	src.FnText = fnText
	return src
}

func leadingBlanks(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// BuildWrapper assembles the unit that evaluates a let, discard or
// expression item inside repl_main
func BuildWrapper(s *Session, item *TurnItem) *SyntheticSource {
	b := &sourceBuilder{}
	writePrelude(b, s, nil, "")
	b.line("fn " + wrapperName + "() {")
	b.write(shims(s, nil))
	b.write("  ")
	switch item.Kind {
	case ItemLet:
		b.copyInput(item.Text, item.Span.Start)
		b.write("\n  " + SaveCall(item.Name, s.NextSlot) + "\n")
	case ItemDiscard:
		pat := item.Stmt.(*LetStmt).Pattern.PatternSpan()
		head := pat.Start - item.Span.Start
		tail := pat.End - item.Span.Start
		b.copyInput(item.Text[:head], item.Span.Start)
		b.write(discardName)
		b.copyInput(item.Text[tail:], pat.End)
		b.write("\n  " + discardName + "\n")
	default:
		b.copyInput(item.Text, item.Span.Start)
		b.write("\n")
	}
	b.line("}")
	return b.result()
}

// BuildBase renders the session alone; two equal sessions always render the
// same text
func BuildBase(s *Session) string {
	b := &sourceBuilder{}
	writePrelude(b, s, nil, "")
	return b.sb.String()
}
