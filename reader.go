package glint

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
)

// Prompts shown by the terminal reader
const (
	DefaultPrompt      = "> "
	ContinuationPrompt = "... "
)

// LineReader yields complete REPL inputs; it returns io.EOF at the end of
// input
type LineReader interface {
	ReadLine() (string, error)
}

// InputState says whether a buffer can be handed to the REPL yet
type InputState int

const (
	InputValid InputState = iota
	InputIncomplete
	InputInvalid
)

// ValidateInput checks bracket and string balance; an open bracket or
// string asks for another line, a stray closing bracket is left to the
// parser to report
func ValidateInput(input string) InputState {
	var stack []byte
	inString := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				for i < len(input) && input[i] != '\n' {
					i++
				}
			}
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != openerOf(c) {
				return InputInvalid
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inString || len(stack) > 0 {
		return InputIncomplete
	}
	return InputValid
}

func openerOf(c byte) byte {
	switch c {
	case ')':
		return '('
	case ']':
		return '['
	}
	return '{'
}

// readComplete joins physical lines until the input is complete
func readComplete(next func(continuation bool) (string, error)) (string, error) {
	var b strings.Builder
	for {
		line, err := next(b.Len() > 0)
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if ValidateInput(b.String()) != InputIncomplete {
			return b.String(), nil
		}
	}
}

// StreamReader reads inputs from a non-interactive stream
type StreamReader struct {
	scanner *bufio.Scanner
}

// NewStreamReader creates a reader over r
func NewStreamReader(r io.Reader) *StreamReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &StreamReader{scanner: scanner}
}

// ReadLine implements LineReader
func (s *StreamReader) ReadLine() (string, error) {
	return readComplete(func(bool) (string, error) {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", errors.Wrap(err, "reading input")
			}
			return "", io.EOF
		}
		return s.scanner.Text(), nil
	})
}

// TerminalReader edits lines with history on an interactive terminal
type TerminalReader struct {
	state       *liner.State
	prompt      string
	historyFile string
}

// NewTerminalReader creates a reader and loads the history file, if any
func NewTerminalReader(prompt, historyFile string) *TerminalReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetMultiLineMode(true)
	r := &TerminalReader{state: state, prompt: prompt, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return r
}

// ReadLine implements LineReader. Ctrl-C at the prompt discards the
// current input and yields an empty line.
func (t *TerminalReader) ReadLine() (string, error) {
	input, err := readComplete(func(continuation bool) (string, error) {
		prompt := t.prompt
		if continuation {
			prompt = ContinuationPrompt
		}
		line, err := t.state.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			return "", errAborted
		}
		return line, err
	})
	if err == errAborted {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		t.state.AppendHistory(strings.ReplaceAll(input, "\n", " "))
	}
	return input, nil
}

var errAborted = errors.New("input aborted")

// Close saves the history and restores the terminal
func (t *TerminalReader) Close() error {
	defer t.state.Close()
	if t.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0o755); err != nil {
		return errors.Wrap(err, "creating history directory")
	}
	f, err := os.Create(t.historyFile)
	if err != nil {
		return errors.Wrap(err, "saving history")
	}
	defer f.Close()
	if _, err := t.state.WriteHistory(f); err != nil {
		return errors.Wrap(err, "saving history")
	}
	return nil
}
