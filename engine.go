package glint

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Engine executes compiled units and keeps the value store that REPL
// bindings live in
type Engine interface {
	// Load makes the globals of the units callable; loading a unit again
	// replaces its globals
	Load(units []*CompiledUnit) error
	// Run calls entry in unit with no arguments. With showOutput the result
	// is printed. Runtime errors are written to the engine's error writer
	// and returned.
	Run(ctx context.Context, unit, entry string, showOutput bool) error
	// Call is Run for an entry that takes arguments; the result is returned
	// instead of printed
	Call(ctx context.Context, unit, entry string, args ...Value) (Value, error)
	// StoreLen is the length of the bridge value store
	StoreLen() int
	// Release drops the globals of a unit that will not be called again,
	// unless the value saved by the last Run still refers to its code
	Release(unit string)
	// SlotSaved reports whether the last Run wrote slot of the store
	SlotSaved(slot int) bool
	// Interrupt asks a running evaluation to stop at the next safe point
	Interrupt()
	// RunTests calls every public *_examples function of the units
	RunTests(ctx context.Context, units []*CompiledUnit) TestSummary
}

// TestSummary counts the outcome of a test run. Every assertion is a test;
// an example function that stops with an error counts as one more.
type TestSummary struct {
	Tests     int
	Successes int
	Failures  int
	Errors    int
	Messages  []string
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if strings.HasSuffix(word, "s") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// String renders the closing line of a test run
func (s TestSummary) String() string {
	return fmt.Sprintf("%s, %s, %s and %s.",
		plural(s.Tests, "test"), plural(s.Successes, "success"), plural(s.Failures, "failure"), plural(s.Errors, "error"))
}

// checkTally records the assertions made by std/check during one example
// function; each failure is the detail block printed under its location
type checkTally struct {
	passed   int
	failures []string
}

func (c *checkTally) pass() {
	c.passed++
}

func (c *checkTally) fail(message string) {
	c.failures = append(c.failures, message)
}

// exampleFunctions lists the public test functions of a unit, sorted
func exampleFunctions(unit *CompiledUnit) []string {
	var names []string
	for _, name := range unit.PublicValues() {
		vi := unit.Interface.Values[name]
		if vi.Kind != valueFn || !strings.HasSuffix(name, "_examples") {
			continue
		}
		if fnT, ok := prune(vi.Type).(*FnType); ok && len(fnT.Params) == 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
