package glint

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// SourceDir is the virtual directory holding every module of a project
const SourceDir = "/src"

// SourceExt is the file extension of glint modules
const SourceExt = ".glint"

//go:embed stdlib/*.glint
var stdlibFS embed.FS

// StdModules lists the standard modules in the order they are imported by
// a REPL session
var StdModules = []string{"std/bool", "std/float", "std/int", "std/io", "std/list", "std/result", "std/string"}

// CompiledUnit is the checked and lowered form of one module
type CompiledUnit struct {
	Name      string
	Source    string
	AST       *Module
	Interface *ModuleInterface
	Code      *ModuleCode
	Deps      []string

	fnTypes map[string]Type
	spans   map[string]Span
}

// FnType returns the inferred type of a named function of the unit
func (u *CompiledUnit) FnType(name string) (Type, bool) {
	t, ok := u.fnTypes[name]
	return t, ok
}

// DefinitionSpan returns the source span of a top-level definition
func (u *CompiledUnit) DefinitionSpan(name string) (Span, bool) {
	s, ok := u.spans[name]
	return s, ok
}

// PublicTypes lists the names of the public types, sorted
func (u *CompiledUnit) PublicTypes() []string {
	names := make([]string, 0, len(u.Interface.Types))
	for name := range u.Interface.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PublicValues lists the names of the public values, sorted, constructors
// included
func (u *CompiledUnit) PublicValues() []string {
	names := make([]string, 0, len(u.Interface.Values))
	for name := range u.Interface.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cacheEntry remembers a compiled unit together with what it was built from
type cacheEntry struct {
	source string
	deps   []*CompiledUnit
	unit   *CompiledUnit
}

// Project is a set of modules stored in a virtual filesystem
type Project struct {
	fs     afero.Fs
	logger *Logger
	cache  map[string]*cacheEntry
}

// NewProject creates a project on an in-memory filesystem seeded with the
// standard library
func NewProject(logger *Logger) (*Project, error) {
	p := &Project{
		fs:     afero.NewMemMapFs(),
		logger: logger,
		cache:  map[string]*cacheEntry{},
	}
	entries, err := fs.ReadDir(stdlibFS, "stdlib")
	if err != nil {
		return nil, errors.Wrap(err, "reading embedded standard library")
	}
	for _, entry := range entries {
		data, err := stdlibFS.ReadFile("stdlib/" + entry.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", entry.Name())
		}
		name := "std/" + strings.TrimSuffix(entry.Name(), SourceExt)
		if err := p.WriteSource(name, string(data)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func modulePath(name string) string {
	return path.Join(SourceDir, name+SourceExt)
}

// WriteSource stores the source of a module, replacing any previous one
func (p *Project) WriteSource(name, text string) error {
	file := modulePath(name)
	if err := p.fs.MkdirAll(path.Dir(file), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", name)
	}
	if err := afero.WriteFile(p.fs, file, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "writing module %s", name)
	}
	p.logger.DebugCat(CatIO, "wrote module %s (%d bytes)", name, len(text))
	return nil
}

// Delete removes a module
func (p *Project) Delete(name string) error {
	if err := p.fs.Remove(modulePath(name)); err != nil {
		return errors.Wrapf(err, "deleting module %s", name)
	}
	delete(p.cache, name)
	p.logger.DebugCat(CatIO, "deleted module %s", name)
	return nil
}

// Exists reports whether a module is stored
func (p *Project) Exists(name string) bool {
	ok, err := afero.Exists(p.fs, modulePath(name))
	return err == nil && ok
}

// Modules lists the stored module names, sorted
func (p *Project) Modules() ([]string, error) {
	var names []string
	err := afero.Walk(p.fs, SourceDir, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(file, SourceExt) {
			return nil
		}
		rel := strings.TrimPrefix(file, SourceDir+"/")
		names = append(names, strings.TrimSuffix(rel, SourceExt))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing modules")
	}
	sort.Strings(names)
	return names, nil
}

// ReadSource returns the stored source of a module
func (p *Project) ReadSource(name string) (string, error) {
	data, err := afero.ReadFile(p.fs, modulePath(name))
	if err != nil {
		return "", errors.Wrapf(err, "reading module %s", name)
	}
	return string(data), nil
}

// Compile parses and checks every module, returning the units in
// dependency order
func (p *Project) Compile() ([]*CompiledUnit, error) {
	names, err := p.Modules()
	if err != nil {
		return nil, err
	}
	sources := map[string]string{}
	modules := map[string]*Module{}
	for _, name := range names {
		src, err := p.ReadSource(name)
		if err != nil {
			return nil, err
		}
		sources[name] = src
		if entry, ok := p.cache[name]; ok && entry.source == src {
			modules[name] = entry.unit.AST
			continue
		}
		mod, err := ParseModule(name, src)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				return nil, &CompileError{Unit: name, Source: src, Span: pe.Span, Message: "syntax error: " + pe.Message}
			}
			return nil, err
		}
		modules[name] = mod
	}

	order, err := importOrder(names, modules, sources)
	if err != nil {
		return nil, err
	}

	known := map[string]*ModuleInterface{}
	compiled := map[string]*CompiledUnit{}
	units := make([]*CompiledUnit, 0, len(order))
	for _, name := range order {
		mod := modules[name]
		deps := make([]*CompiledUnit, len(mod.Imports))
		for i, imp := range mod.Imports {
			deps[i] = compiled[imp.Path]
		}
		unit := p.cached(name, sources[name], deps)
		if unit == nil {
			unit, err = checkModule(mod, sources[name], known)
			if err != nil {
				return nil, err
			}
			p.cache[name] = &cacheEntry{source: sources[name], deps: deps, unit: unit}
			p.logger.DebugCat(CatCompile, "checked module %s", name)
			p.logger.Dump(CatCompile, "interface of "+name, unit.Interface.Values)
		}
		known[name] = unit.Interface
		compiled[name] = unit
		units = append(units, unit)
	}
	return units, nil
}

// cached returns a previous result when the source and every dependency are
// unchanged
func (p *Project) cached(name, src string, deps []*CompiledUnit) *CompiledUnit {
	entry, ok := p.cache[name]
	if !ok || entry.source != src || len(entry.deps) != len(deps) {
		return nil
	}
	for i := range deps {
		if entry.deps[i] != deps[i] {
			return nil
		}
	}
	return entry.unit
}

// importOrder sorts modules so that every module follows its imports
func importOrder(names []string, modules map[string]*Module, sources map[string]string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	var order []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &CompileError{Unit: name, Source: sources[name], Message: "import cycle involving module '" + name + "'"}
		case done:
			return nil
		}
		state[name] = visiting
		for _, imp := range modules[name].Imports {
			if _, ok := modules[imp.Path]; !ok {
				return &CompileError{Unit: name, Source: sources[name], Span: imp.Span, Message: "unknown module '" + imp.Path + "'"}
			}
			if err := visit(imp.Path); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
