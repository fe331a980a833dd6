package glint

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(enabled bool) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewLogger(enabled)
	l.SetOutput(&out, &errOut)
	l.SetColor(false)
	return l, &out, &errOut
}

func TestLoggerLevels(t *testing.T) {
	t.Run("Debug needs enabled logger and category", func(t *testing.T) {
		l, out, _ := newTestLogger(false)
		l.DebugCat(CatSession, "hidden")
		if out.Len() != 0 {
			t.Errorf("Expected no output while disabled, got %q", out.String())
		}

		l.SetEnabled(true)
		l.DebugCat(CatSession, "still hidden")
		if out.Len() != 0 {
			t.Errorf("Expected no output for a disabled category, got %q", out.String())
		}

		l.EnableCategory(CatSession)
		l.DebugCat(CatSession, "turn %d", 3)
		if got := out.String(); got != "[DEBUG:session] turn 3\n" {
			t.Errorf("Expected '[DEBUG:session] turn 3', got %q", got)
		}
	})

	t.Run("Warnings are always shown", func(t *testing.T) {
		l, _, errOut := newTestLogger(false)
		l.WarnCat(CatIO, "disk %s", "full")
		l.Log(LevelError, CatNone, "broken")
		l.Log(LevelNotice, CatNone, "note")
		want := "[glint:io WARN] disk full\n[glint ERROR] broken\n[glint NOTICE] note\n"
		if got := errOut.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("Categories filter low levels", func(t *testing.T) {
		l, out, _ := newTestLogger(true)
		l.EnableCategory(CatRuntime)
		l.TraceCat(CatBridge, "x")
		l.Log(LevelInfo, CatRuntime, "y")
		if got := out.String(); got != "[INFO:runtime] y\n" {
			t.Errorf("Expected only the runtime line, got %q", got)
		}
	})

	t.Run("Nil logger is silent", func(t *testing.T) {
		var l *Logger
		l.DebugCat(CatSession, "nothing")
	})
}

func TestLoggerColor(t *testing.T) {
	l, _, errOut := newTestLogger(false)
	l.SetColor(true)
	l.WarnCat(CatConfig, "odd")
	if got := errOut.String(); got != Highlight("[glint:config WARN] odd")+"\n" {
		t.Errorf("Expected a highlighted warning, got %q", got)
	}
	if Highlight("x") != "\x1b[93mx\x1b[0m" {
		t.Errorf("Unexpected highlight %q", Highlight("x"))
	}
}

func TestLoggerDump(t *testing.T) {
	l, out, _ := newTestLogger(true)
	l.Dump(CatCompile, "binding", VarBinding{Slot: 2, Type: "Int"})
	if out.Len() != 0 {
		t.Errorf("Expected no dump without the category, got %q", out.String())
	}
	l.EnableCategory(CatCompile)
	l.Dump(CatCompile, "binding", VarBinding{Slot: 2, Type: "Int"})
	got := out.String()
	if !strings.HasPrefix(got, "[TRACE:compile] binding:") || !strings.Contains(got, "Slot: (int) 2") {
		t.Errorf("Unexpected dump %q", got)
	}
}
