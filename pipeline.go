package glint

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pipeline stages synthetic units in the project and compiles them
type Pipeline struct {
	project *Project
	logger  *Logger
}

// NewPipeline creates a pipeline over a project
func NewPipeline(project *Project, logger *Logger) *Pipeline {
	return &Pipeline{project: project, logger: logger}
}

// UnitName names the ephemeral unit of one item of one turn
func UnitName(turn, item int) string {
	return fmt.Sprintf("repl_%d_%d", turn, item)
}

// Compile writes src as unit, compiles the project and returns the new unit
// with every unit compiled alongside it. The staged unit is always removed.
// Compile errors inside user text are reported against input.
func (p *Pipeline) Compile(unit string, src *SyntheticSource, input string) (_ *CompiledUnit, _ []*CompiledUnit, err error) {
	if err := p.project.WriteSource(unit, src.Text); err != nil {
		return nil, nil, err
	}
	defer func() {
		if derr := p.project.Delete(unit); derr != nil && err == nil {
			err = derr
		}
	}()
	p.logger.TraceCat(CatCompile, "synthetic source for %s:\n%s", unit, src.Text)

	units, err := p.project.Compile()
	if err != nil {
		return nil, nil, p.mapError(unit, src, input, err)
	}
	for _, u := range units {
		if u.Name == unit {
			return u, units, nil
		}
	}
	return nil, nil, errors.Errorf("compiled project has no unit %s", unit)
}

func (p *Pipeline) mapError(unit string, src *SyntheticSource, input string, err error) error {
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Unit != unit {
		return err
	}
	span, ok := src.Map.ToOriginal(ce.Span)
	if !ok {
		p.logger.DebugCat(CatCompile, "error outside user text in %s: %s", unit, ce.Message)
		return err
	}
	return &CompileError{Unit: unit, Source: input, Span: span, Message: ce.Message}
}
