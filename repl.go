package glint

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// UserModule is a module loaded before the session starts; its public
// surface is imported into every turn. Imports holds the sources of the
// local modules it imports, by module name.
type UserModule struct {
	Name    string
	Source  string
	Imports map[string]string
}

// REPLConfig configures a REPL
type REPLConfig struct {
	Version      string
	Quiet        bool
	MaxCallDepth int
	UserModule   *UserModule
}

// REPL runs interactive turns against a long lived engine
type REPL struct {
	config   REPLConfig
	session  *Session
	project  *Project
	pipeline *Pipeline
	engine   Engine
	bridge   *ValueBridge
	out      io.Writer
	errOut   io.Writer
	logger   *Logger
}

// NewREPL creates a REPL with its own project and machine. Values are
// printed to out, diagnostics to errOut.
func NewREPL(config REPLConfig, out, errOut io.Writer, logger *Logger) (*REPL, error) {
	project, err := NewProject(logger)
	if err != nil {
		return nil, err
	}
	machine := NewMachine(out, errOut, logger)
	machine.SetMaxCallDepth(config.MaxCallDepth)
	return NewREPLWithEngine(config, project, machine, out, errOut, logger)
}

// NewREPLWithEngine creates a REPL over an existing project and engine
func NewREPLWithEngine(config REPLConfig, project *Project, engine Engine, out, errOut io.Writer, logger *Logger) (*REPL, error) {
	r := &REPL{
		config:   config,
		project:  project,
		pipeline: NewPipeline(project, logger),
		engine:   engine,
		bridge:   NewValueBridge(engine, logger),
		out:      out,
		errOut:   errOut,
		logger:   logger,
	}
	userImport := ""
	if config.UserModule != nil {
		imp, err := r.loadUserModule(config.UserModule)
		if err != nil {
			return nil, err
		}
		userImport = imp
	}
	r.session = NewSession(userImport)
	return r, nil
}

// Session exposes the accumulated state
func (r *REPL) Session() *Session {
	return r.session
}

// Interrupt stops the evaluation in progress, if any
func (r *REPL) Interrupt() {
	r.engine.Interrupt()
}

// ValidateModuleName rejects names reserved for the standard library and
// for REPL units, and names whose import alias would clash with them
func ValidateModuleName(name string) error {
	if name == "" {
		return errors.New("module name is empty")
	}
	if strings.HasPrefix(name, "std/") || name == bridgeModule || strings.HasPrefix(name, reservedPrefix) {
		return errors.Errorf("module name '%s' is reserved", name)
	}
	alias := path.Base(name)
	for _, std := range StdModules {
		if path.Base(std) == alias {
			return errors.Errorf("module '%s' would shadow the standard module %s", name, std)
		}
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || !isLower(seg[0]) {
			return errors.Errorf("invalid module name '%s'", name)
		}
	}
	return nil
}

// loadUserModule compiles a user module and returns the import statement
// exposing all of its public types and values
func (r *REPL) loadUserModule(mod *UserModule) (string, error) {
	if err := ValidateModuleName(mod.Name); err != nil {
		return "", err
	}
	for name, src := range mod.Imports {
		if err := ValidateModuleName(name); err != nil {
			return "", err
		}
		if err := r.project.WriteSource(name, src); err != nil {
			return "", err
		}
	}
	if err := r.project.WriteSource(mod.Name, mod.Source); err != nil {
		return "", err
	}
	units, err := r.project.Compile()
	if err != nil {
		return "", err
	}
	var unit *CompiledUnit
	for _, u := range units {
		if u.Name == mod.Name {
			unit = u
		}
	}
	if unit == nil {
		return "", errors.Errorf("module %s was not compiled", mod.Name)
	}
	if err := r.engine.Load(units); err != nil {
		return "", err
	}

	var names []string
	for _, t := range unit.PublicTypes() {
		names = append(names, "type "+t)
	}
	for _, v := range unit.PublicValues() {
		if !strings.HasPrefix(v, reservedPrefix) {
			names = append(names, v)
		}
	}
	if len(names) == 0 {
		return "import " + mod.Name, nil
	}
	return "import " + mod.Name + ".{" + strings.Join(names, ", ") + "}", nil
}

// Welcome is printed when an interactive session starts
func (r *REPL) Welcome() string {
	version := r.config.Version
	if version == "" {
		version = Version
	}
	return fmt.Sprintf("Welcome to glint %s.\nType ctrl-d or \"%s\" to exit.\n", version, QuitCommand)
}

// Run reads and processes inputs until end of input or the quit command
func (r *REPL) Run(ctx context.Context, reader LineReader) error {
	if !r.config.Quiet {
		fmt.Fprint(r.out, r.Welcome())
	}
	for {
		input, err := reader.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading input")
		}
		if quit, _ := r.ProcessLine(ctx, input); quit {
			return nil
		}
	}
}

// ProcessLine runs one turn. It reports whether the session should end;
// the returned error has already been shown to the user.
func (r *REPL) ProcessLine(ctx context.Context, input string) (bool, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == QuitCommand {
		return true, nil
	}
	if trimmed == "" {
		return false, nil
	}

	r.session.Turn++
	turn := r.session.Turn
	line, err := Classify(input, UnitName(turn, 0))
	if err != nil {
		r.report(err)
		return false, err
	}
	for _, item := range line.Items {
		if err := item.Unsupported(); err != nil {
			r.report(err)
			return false, err
		}
	}
	if line.TypeQuery {
		err := r.typeQuery(line, turn)
		if err != nil {
			r.report(err)
		}
		return false, err
	}

	snapshot := r.session.Clone()
	for i, item := range line.Items {
		if err := r.dispatch(ctx, line, item, UnitName(turn, i)); err != nil {
			r.session.restore(snapshot)
			r.logger.DebugCat(CatSession, "turn %d rolled back at item %d (%s)", turn, i, item.Kind)
			r.report(err)
			return false, err
		}
	}
	r.logger.DebugCat(CatSession, "turn %d committed %d items", turn, len(line.Items))
	return false, nil
}

// report shows an error unless the engine has already written it
func (r *REPL) report(err error) {
	var re *RuntimeError
	if errors.As(err, &re) || errors.Is(err, ErrInterrupted) {
		return
	}
	fmt.Fprintln(r.errOut, Diagnostic(err))
}

func (r *REPL) dispatch(ctx context.Context, line *Line, item *TurnItem, unit string) error {
	switch item.Kind {
	case ItemConst, ItemType, ItemFn:
		src := BuildDefinition(r.session, item)
		if _, _, err := r.pipeline.Compile(unit, src, line.Input); err != nil {
			return err
		}
		switch item.Kind {
		case ItemConst:
			r.session.AddConst(item.Text)
		case ItemType:
			r.session.AddType(item.Text)
		default:
			r.session.SetFn(item.Name, src.FnText)
		}
		return nil
	case ItemLet, ItemDiscard, ItemExpr:
		return r.evaluate(ctx, line, item, unit)
	}
	return errors.Errorf("unexpected %s item", item.Kind)
}

func (r *REPL) evaluate(ctx context.Context, line *Line, item *TurnItem, unit string) error {
	src := BuildWrapper(r.session, item)
	compiled, units, err := r.pipeline.Compile(unit, src, line.Input)
	if err != nil {
		return err
	}
	if err := r.engine.Load(units); err != nil {
		return err
	}
	defer r.engine.Release(unit)

	if item.Kind != ItemLet {
		return r.engine.Run(ctx, unit, wrapperName, true)
	}

	typ, err := QueryType(compiled)
	if err != nil {
		return err
	}
	slot := r.session.allocSlot()
	runErr := r.engine.Run(ctx, unit, wrapperName, true)
	if !r.bridge.Saved(slot) {
		if runErr == nil {
			runErr = errors.Errorf("the value of '%s' was not saved", item.Name)
		}
		return runErr
	}
	r.session.SetVar(item.Name, slot, typ)
	r.logger.DebugCat(CatBridge, "bound %s to slot %d as %s", item.Name, slot, typ)
	return runErr
}

func (r *REPL) typeQuery(line *Line, turn int) error {
	item := line.Items[0]
	unit := UnitName(turn, 0)
	compiled, _, err := r.pipeline.Compile(unit, BuildWrapper(r.session, item), line.Input)
	if err != nil {
		return err
	}
	typ, err := QueryType(compiled)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, typ)
	return nil
}
