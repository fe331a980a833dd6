package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/phroun/glint"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

var version = "dev" // set via -ldflags at build time

// errorPrintf prints an error message to stderr, using color if supported
func errorPrintf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if glint.StderrSupportsColor() {
		message = glint.Highlight(message)
	}
	fmt.Fprint(os.Stderr, message)
}

// findSourceFile resolves a file argument, adding .glint when it is missing
func findSourceFile(filename string) string {
	if _, err := os.Stat(filename); err == nil {
		return filename
	}
	if filepath.Ext(filename) == "" {
		withExt := filename + glint.SourceExt
		if _, err := os.Stat(withExt); err == nil {
			return withExt
		}
	}
	return ""
}

func showUsage() {
	usage := `Usage: glint [options]               start the REPL
       glint [options] file.glint    run the main function of a module
       glint -t file.glint...        run the *_examples functions
       glint -c file.glint...        type check only

Options:
  -i FILE     Start the REPL with the public surface of FILE imported
  -q          Do not print the welcome message
  -t          Run tests
  -c          Check only
  -d          Enable debug output (all log categories)
  -version    Print the version and exit

Configuration is read from ~/.glint/config.toml (GLINT_CONFIG overrides
the location, GLINT_DEBUG=1 enables debug output).
`
	fmt.Fprint(os.Stderr, usage)
}

func main() {
	glint.Version = version

	importFlag := flag.String("i", "", "Start the REPL with FILE imported")
	quietFlag := flag.Bool("q", false, "Do not print the welcome message")
	testFlag := flag.Bool("t", false, "Run *_examples test functions")
	checkFlag := flag.Bool("c", false, "Type check only")
	debugFlag := flag.Bool("d", false, "Enable debug output")
	versionFlag := flag.Bool("version", false, "Print the version")
	flag.Usage = showUsage
	flag.Parse()

	if *versionFlag {
		fmt.Println("glint", version)
		return
	}

	cfg, err := glint.LoadConfig(glint.ConfigPath())
	if err != nil {
		errorPrintf("Error: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Debug = true
		cfg.LogCategories = append(cfg.LogCategories, "all")
	}
	logger := glint.NewLogger(false)
	cfg.Apply(logger)

	files := flag.Args()
	switch {
	case *testFlag || *checkFlag:
		os.Exit(runFiles(cfg, logger, files, *testFlag))
	case len(files) == 1 && *importFlag == "":
		os.Exit(runMain(cfg, logger, files[0]))
	case len(files) > 1:
		showUsage()
		os.Exit(2)
	}
	os.Exit(runREPL(cfg, logger, *importFlag, *quietFlag))
}

// interruptOnSignal forwards SIGINT to the engine until the returned stop
// function is called
func interruptOnSignal(interrupt func()) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigChan:
				interrupt()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// readSources reads the files and the local modules they import
func readSources(files []string) (map[string]string, []string, bool) {
	var found []string
	for _, requested := range files {
		file := findSourceFile(requested)
		if file == "" {
			errorPrintf("Error: source file not found: %s\n", requested)
			return nil, nil, false
		}
		found = append(found, file)
	}
	sources, names, err := glint.LoadSources(afero.NewOsFs(), found)
	if err != nil {
		errorPrintf("Error reading source file: %v\n", err)
		return nil, nil, false
	}
	return sources, names, true
}

func runFiles(cfg *glint.Config, logger *glint.Logger, files []string, test bool) int {
	if len(files) == 0 {
		showUsage()
		return 2
	}
	sources, _, ok := readSources(files)
	if !ok {
		return 1
	}
	project, err := glint.NewProject(logger)
	if err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}
	units, err := glint.CompileFiles(project, sources)
	if err != nil {
		errorPrintf("%s\n", glint.Diagnostic(err))
		return 1
	}
	if !test {
		return 0
	}

	machine := glint.NewMachine(os.Stdout, os.Stderr, logger)
	machine.SetMaxCallDepth(cfg.MaxCallDepth)
	stop := interruptOnSignal(machine.Interrupt)
	defer stop()
	summary, err := glint.RunExamples(context.Background(), machine, units)
	if err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}
	for _, msg := range summary.Messages {
		errorPrintf("%s\n", msg)
	}
	fmt.Println(summary.String())
	if summary.Failures > 0 || summary.Errors > 0 {
		return 1
	}
	return 0
}

func runMain(cfg *glint.Config, logger *glint.Logger, file string) int {
	sources, names, ok := readSources([]string{file})
	if !ok {
		return 1
	}
	project, err := glint.NewProject(logger)
	if err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}
	units, err := glint.CompileFiles(project, sources)
	if err != nil {
		errorPrintf("%s\n", glint.Diagnostic(err))
		return 1
	}
	machine := glint.NewMachine(os.Stdout, os.Stderr, logger)
	machine.SetMaxCallDepth(cfg.MaxCallDepth)
	stop := interruptOnSignal(machine.Interrupt)
	defer stop()
	if err := glint.RunMain(context.Background(), machine, units, names[0], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, glint.ErrInterrupted) {
			return 130
		}
		var runtimeErr *glint.RuntimeError
		if !errors.As(err, &runtimeErr) {
			errorPrintf("Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func runREPL(cfg *glint.Config, logger *glint.Logger, importFile string, quiet bool) int {
	replConfig := glint.REPLConfig{Version: version, Quiet: quiet, MaxCallDepth: cfg.MaxCallDepth}
	if importFile != "" {
		sources, names, ok := readSources([]string{importFile})
		if !ok {
			return 1
		}
		mod := &glint.UserModule{Name: names[0], Source: sources[names[0]], Imports: map[string]string{}}
		for name, src := range sources {
			if name != mod.Name {
				mod.Imports[name] = src
			}
		}
		replConfig.UserModule = mod
	}

	repl, err := glint.NewREPL(replConfig, os.Stdout, os.Stderr, logger)
	if err != nil {
		errorPrintf("%s\n", glint.Diagnostic(err))
		return 1
	}

	var reader glint.LineReader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		tr := glint.NewTerminalReader(cfg.Prompt, cfg.HistoryFile)
		defer func() {
			if err := tr.Close(); err != nil {
				logger.WarnCat(glint.CatIO, "%v", err)
			}
		}()
		reader = tr
	} else {
		reader = glint.NewStreamReader(os.Stdin)
	}

	stop := interruptOnSignal(repl.Interrupt)
	defer stop()
	if err := repl.Run(context.Background(), reader); err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}
	return 0
}
