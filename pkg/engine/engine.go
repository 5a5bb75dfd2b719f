// Package engine evaluates paint scripts. A script is zygomys Lisp run in a
// sandbox; its builtins record paint commands instead of touching a model,
// so a script can be checked, logged or replayed before it is applied.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/facepaint/pkg/command"
	"github.com/chazu/facepaint/pkg/kernel"
	"github.com/chazu/facepaint/pkg/logging"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a suspicious but accepted builtin call. Command is the
// index of the command it refers to, or -1.
type EvalWarning struct {
	Message string
	Command int
}

// Script is the output of a successful evaluation.
type Script struct {
	Commands []command.Command
	Warnings []EvalWarning
	// Color is the current color when the script ended.
	Color kernel.ColorID
}

// Engine evaluates paint scripts. It is safe for concurrent use; each call
// to Evaluate creates a fresh sandboxed environment.
type Engine struct {
	mu           sync.Mutex
	generation   uint64
	initialColor kernel.ColorID
}

// Option configures an Engine.
type Option func(*Engine)

// WithColor sets the color scripts start with.
func WithColor(c kernel.ColorID) Option {
	return func(e *Engine) { e.initialColor = c }
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs source and returns the commands it recorded.
//
// Return semantics:
//   - On success: returns script + nil errors + nil error
//   - On parse/eval failure: returns nil script + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Script, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{script: s, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

func (e *Engine) evaluate(source string) (*Script, []EvalError, error) {
	script := &Script{Color: e.initialColor}
	if strings.TrimSpace(source) == "" {
		return script, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, script)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	logging.Logger().Debug("evaluated paint script",
		"commands", len(script.Commands), "warnings", len(script.Warnings))
	return script, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
