package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"vybe/interpreter-go/pkg/interpreter"
	"vybe/interpreter-go/pkg/parser"
	"vybe/interpreter-go/pkg/runtime"
)

const (
	replPrompt     = "vybe> "
	replMorePrompt = "....> "
)

// replSession evaluates REPL input against one interpreter. Declarations
// and variables persist between inputs.
type replSession struct {
	interp  *interpreter.Interpreter
	out     io.Writer
	errOut  io.Writer
	pending []string
}

func newReplSession(interp *interpreter.Interpreter, out, errOut io.Writer) *replSession {
	return &replSession{interp: interp, out: out, errOut: errOut}
}

// feed consumes one input line and reports whether more lines are needed
// to complete the current block. A blank line ends a pending block.
func (s *replSession) feed(line string) bool {
	if len(s.pending) == 0 && strings.TrimSpace(line) == "" {
		return false
	}
	blank := strings.TrimSpace(line) == ""
	if !blank {
		s.pending = append(s.pending, line)
	}
	src := strings.Join(s.pending, "\n")

	if strings.HasPrefix(strings.TrimSpace(src), "?") {
		s.pending = nil
		s.evalAndPrint(strings.TrimPrefix(strings.TrimSpace(src), "?"))
		return false
	}

	program, err := parser.ParseProgram(src + "\n")
	if err != nil {
		if len(s.pending) == 1 {
			if _, exprErr := parser.ParseExpression(src); exprErr == nil {
				s.pending = nil
				s.evalAndPrint(src)
				return false
			}
		}
		var perr *parser.ParseError
		if !errors.As(err, &perr) {
			s.pending = nil
			fmt.Fprintf(s.errOut, "parse error: %v\n", err)
			return false
		}
		// An error at end of input means the block is still open.
		if !blank && perr.Line > len(s.pending) {
			return true
		}
		s.pending = nil
		fmt.Fprintf(s.errOut, "parse error: %d:%d: %s\n", perr.Line, perr.Column, perr.Message)
		return false
	}
	s.pending = nil
	err = s.interp.Run(program)
	s.flush()
	if err != nil {
		fmt.Fprintf(s.errOut, "runtime error: %v\n", err)
	}
	return false
}

func (s *replSession) evalAndPrint(src string) {
	expr, err := parser.ParseExpression(src)
	if err != nil {
		fmt.Fprintf(s.errOut, "%v\n", err)
		return
	}
	val, err := s.interp.EvaluateExpression(expr)
	s.flush()
	if err != nil {
		fmt.Fprintf(s.errOut, "runtime error: %v\n", err)
		return
	}
	if val == nil || runtime.IsNothing(val) {
		fmt.Fprintln(s.out, "Nothing")
		return
	}
	fmt.Fprintln(s.out, runtime.AsString(val))
}

func (s *replSession) flush() {
	renderEffects(s.out, s.interp.Logger(), s.interp.SideEffects.Drain())
}

func (c *cli) runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "repl takes no arguments")
		return 1
	}
	interp := interpreter.New(interpreter.WithLogger(c.logger()), interpreter.WithInput(c.stdin))
	defer interp.Close()
	session := newReplSession(interp, c.stdout, c.stderr)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	if f, err := os.Open(c.cfg.History); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer c.saveHistory(line)

	fmt.Fprintf(c.stdout, "%s. End a block with a blank line; ?expr prints a value; :quit exits.\n", cliToolVersion)
	prompt := replPrompt
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				session.pending = nil
				prompt = replPrompt
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.stdout)
				return 0
			}
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return 1
		}
		if trimmed := strings.TrimSpace(input); trimmed == ":quit" || trimmed == ":q" {
			return 0
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if session.feed(input) {
			prompt = replMorePrompt
		} else {
			prompt = replPrompt
		}
	}
}

func (c *cli) saveHistory(line *liner.State) {
	if c.cfg.History == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.History), 0o755); err != nil {
		return
	}
	f, err := os.Create(c.cfg.History)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
