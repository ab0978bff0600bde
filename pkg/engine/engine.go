// Package engine evaluates .vtree parameter scripts.
//
// A .vtree file is a small Lisp program run in a sandboxed zygomys
// environment. Scripts can compute values with ordinary expressions and
// declare the tree through block builtins such as (main-branch ...) and
// (primary-branches ...). Evaluation yields the same loosely typed record a
// YAML file would, which the config package then normalizes and validates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
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

// EvalErrors joins the errors of one evaluation.
type EvalErrors []EvalError

func (e EvalErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// DefaultTimeout bounds one evaluation unless WithTimeout overrides it.
const DefaultTimeout = 5 * time.Second

// Engine wraps the zygomys interpreter. Each evaluation runs in a fresh
// sandbox, so an Engine holds no script state and is safe for concurrent
// use.
type Engine struct {
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds how long a script may run.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// outcome is what one sandboxed run produced.
type outcome struct {
	record map[string]any
	errors []EvalError
	err    error
}

// Evaluate runs a .vtree script and returns the parameter record it
// declares.
//
// Return semantics:
//   - On success: returns record + nil errors + nil error
//   - On parse/eval failure: returns nil record + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (map[string]any, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate bounded by ctx as well as the engine timeout.
// A script still running when either ends is abandoned; its sandbox is
// private, so whatever it produces later is dropped.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (map[string]any, []EvalError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()
		rec, evalErrs, err := run(source)
		done <- outcome{record: rec, errors: evalErrs, err: err}
	}()
	return await(ctx, done)
}

// await returns the first outcome sent on done, or an error once ctx ends.
func await(ctx context.Context, done <-chan outcome) (map[string]any, []EvalError, error) {
	select {
	case o := <-done:
		return o.record, o.errors, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("engine: evaluation timed out: %w", ctx.Err())
		}
		return nil, nil, fmt.Errorf("engine: %w", ctx.Err())
	}
}

// run evaluates source in a fresh sandbox.
func run(source string) (map[string]any, []EvalError, error) {
	rec := make(map[string]any)

	// Empty source is a valid program that declares nothing.
	if strings.TrimSpace(source) == "" {
		return rec, nil, nil
	}

	// Sandbox mode prevents scripts from touching the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, rec)

	if err := env.LoadString(toZygo(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return rec, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
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
