package glint

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ModuleNameForFile derives a module name from a file path: app.glint is
// module app
func ModuleNameForFile(file string) string {
	return strings.TrimSuffix(filepath.Base(file), SourceExt)
}

// CompileFiles compiles the given sources, keyed by module name
func CompileFiles(project *Project, sources map[string]string) ([]*CompiledUnit, error) {
	for name, src := range sources {
		if err := ValidateModuleName(name); err != nil {
			return nil, err
		}
		if err := project.WriteSource(name, src); err != nil {
			return nil, err
		}
	}
	return project.Compile()
}

// LoadSources reads files and, transitively, the local modules they import.
// An import of a/b is read from a/b.glint next to the first file; imports
// with no such file are left for the compiler to report. The module names
// of files are returned in order.
func LoadSources(fs afero.Fs, files []string) (map[string]string, []string, error) {
	type pending struct {
		name, file string
		imported   bool
	}
	var queue []pending
	var names []string
	for _, file := range files {
		name := ModuleNameForFile(file)
		names = append(names, name)
		queue = append(queue, pending{name: name, file: file})
	}
	base := "."
	if len(files) > 0 {
		base = filepath.Dir(files[0])
	}

	sources := map[string]string{}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, done := sources[next.name]; done {
			continue
		}
		if next.imported {
			if ok, _ := afero.Exists(fs, next.file); !ok {
				continue
			}
		}
		content, err := afero.ReadFile(fs, next.file)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading module %s", next.name)
		}
		sources[next.name] = string(content)

		mod, err := ParseModule(next.name, string(content))
		if err != nil {
			// the compiler reports it with the module's position
			continue
		}
		for _, imp := range mod.Imports {
			if strings.HasPrefix(imp.Path, "std/") {
				continue
			}
			file := filepath.Join(base, filepath.FromSlash(imp.Path)+SourceExt)
			queue = append(queue, pending{name: imp.Path, file: file, imported: true})
		}
	}
	return sources, names, nil
}

// MainKind is the signature of a program's entry point
type MainKind int

const (
	MainPlain      MainKind = iota // no arguments
	MainStdin                      // smain(String), standard input as one string
	MainStdinLines                 // smain(List(String)), standard input as lines
)

const (
	mainName  = "main"
	smainName = "smain"
)

// EntryPoint is the function RunMain calls
type EntryPoint struct {
	Name string
	Kind MainKind
}

// FindMain picks smain when the module defines it and main otherwise
func FindMain(unit *CompiledUnit) (EntryPoint, error) {
	if t, ok := unit.FnType(smainName); ok {
		fnT, _ := prune(t).(*FnType)
		switch {
		case fnT == nil:
		case len(fnT.Params) == 0:
			return EntryPoint{Name: smainName, Kind: MainPlain}, nil
		case len(fnT.Params) == 1 && RenderType(fnT.Params[0]) == "String":
			return EntryPoint{Name: smainName, Kind: MainStdin}, nil
		case len(fnT.Params) == 1 && RenderType(fnT.Params[0]) == "List(String)":
			return EntryPoint{Name: smainName, Kind: MainStdinLines}, nil
		}
		return EntryPoint{}, errors.Errorf("smain in module %s must take String or List(String), found %s",
			unit.Name, RenderType(t))
	}
	t, ok := unit.FnType(mainName)
	if !ok {
		return EntryPoint{}, errors.Errorf("module %s has no main function", unit.Name)
	}
	if fnT, ok := prune(t).(*FnType); !ok || len(fnT.Params) != 0 {
		return EntryPoint{}, errors.Errorf("main in module %s must take no arguments", unit.Name)
	}
	return EntryPoint{Name: mainName, Kind: MainPlain}, nil
}

// RunMain calls the entry point of module, feeding stdin to smain. A String
// result is written to out as is, Nil is not written and any other value is
// inspected.
func RunMain(ctx context.Context, engine Engine, units []*CompiledUnit, module string, stdin io.Reader, out io.Writer) error {
	var unit *CompiledUnit
	for _, u := range units {
		if u.Name == module {
			unit = u
		}
	}
	if unit == nil {
		return errors.Errorf("module %s was not compiled", module)
	}
	entry, err := FindMain(unit)
	if err != nil {
		return err
	}
	var args []Value
	if entry.Kind != MainPlain {
		lines, err := readLines(stdin)
		if err != nil {
			return err
		}
		if entry.Kind == MainStdin {
			args = append(args, strings.Join(lines, "\n"))
		} else {
			values := make([]Value, len(lines))
			for i, l := range lines {
				values[i] = l
			}
			args = append(args, ListFromSlice(values))
		}
	}
	if err := engine.Load(units); err != nil {
		return err
	}
	v, err := engine.Call(ctx, module, entry.Name, args...)
	if err != nil {
		return err
	}
	switch r := v.(type) {
	case string:
		fmt.Fprintln(out, r)
	case NilValue:
	default:
		fmt.Fprintln(out, Inspect(v))
	}
	return nil
}

// readLines reads r to the end, splitting on newlines
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading standard input")
		}
	}
}

// RunExamples loads the units and runs their *_examples functions
func RunExamples(ctx context.Context, engine Engine, units []*CompiledUnit) (TestSummary, error) {
	if err := engine.Load(units); err != nil {
		return TestSummary{}, err
	}
	return engine.RunTests(ctx, units), nil
}
