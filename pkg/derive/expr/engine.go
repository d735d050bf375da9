// Package expr implements the built-in derivation language: a small,
// side-effect free expression grammar evaluated over named bindings only.
//
// Supported syntax:
//   - literals: numbers, 'strings' or "strings", true, false, null
//   - names: `price`, `$total`, or backtick quoted ids such as `field-12`
//   - arithmetic: + - * / % (with + concatenating when either side is a string)
//   - comparisons: == != (=== and !== are accepted as aliases) < <= > >=
//   - logic: && || ! and the conditional operator cond ? a : b
//   - calls to a fixed set of pure functions (see Functions)
//
// The grammar has no loops, assignment or member access. Every evaluation is
// additionally bounded by derive.Limits.
package expr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/derive"
)

// Program is a parsed expression ready to run.
type Program struct {
	source string
	root   node
	names  []string
}

// Compile parses text using the default limits.
func Compile(text string) (*Program, error) {
	return compile(text, derive.DefaultLimits())
}

func compile(text string, limits derive.Limits) (*Program, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("derive/expr: %w", derive.ErrEmptyExpression)
	}
	if len(trimmed) > limits.MaxLength {
		return nil, fmt.Errorf("derive/expr: %w: expression longer than %d bytes", derive.ErrBudgetExceeded, limits.MaxLength)
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	root, names, err := parse(tokens, limits.MaxDepth)
	if err != nil {
		return nil, err
	}
	return &Program{source: trimmed, root: root, names: names}, nil
}

// Source returns the normalized expression text.
func (p *Program) Source() string { return p.source }

// Identifiers returns the binding names the program reads, in order of first
// appearance.
func (p *Program) Identifiers() []string {
	return append([]string(nil), p.names...)
}

// Run evaluates the program against bindings within limits.
func (p *Program) Run(ctx context.Context, bindings derive.Bindings, limits derive.Limits) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	limits = limits.WithDefaults()
	m := &machine{
		ctx:      ctx,
		bindings: bindings,
		limits:   limits,
		deadline: time.Now().Add(limits.Timeout),
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(m.deadline) {
		m.deadline = deadline
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("derive/expr: %w: %v", derive.ErrBudgetExceeded, err)
	}
	return p.root.eval(m)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the evaluation budget. Zero fields keep their
// defaults.
func WithLimits(limits derive.Limits) Option {
	return func(e *Engine) {
		e.limits = limits.WithDefaults()
	}
}

// WithCacheSize bounds the number of compiled programs kept in memory.
func WithCacheSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.cacheSize = size
		}
	}
}

const defaultCacheSize = 256

// Engine evaluates derivation expressions with the built-in interpreter. It
// is safe for concurrent use.
type Engine struct {
	limits    derive.Limits
	cacheSize int

	mu    sync.RWMutex
	cache map[string]*Program
}

var (
	_ derive.Evaluator = (*Engine)(nil)
	_ derive.Checker   = (*Engine)(nil)
)

// New returns an Engine using the default budget.
func New(opts ...Option) *Engine {
	e := &Engine{
		limits:    derive.DefaultLimits(),
		cacheSize: defaultCacheSize,
		cache:     make(map[string]*Program),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Limits reports the budget applied to each evaluation.
func (e *Engine) Limits() derive.Limits { return e.limits }

// Evaluate implements derive.Evaluator.
func (e *Engine) Evaluate(ctx context.Context, fieldID, expression string, bindings derive.Bindings) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, derive.Wrap(fieldID, err)
	}
	out, err := program.Run(ctx, bindings, e.limits)
	if err != nil {
		return nil, derive.Wrap(fieldID, err)
	}
	return out, nil
}

// Check implements derive.Checker.
func (e *Engine) Check(expression string) (derive.Reference, error) {
	program, err := e.program(expression)
	if err != nil {
		return derive.Reference{}, err
	}
	return derive.Reference{Names: program.Identifiers()}, nil
}

func (e *Engine) program(expression string) (*Program, error) {
	key := strings.TrimSpace(expression)

	e.mu.RLock()
	if prog, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	prog, err := compile(key, e.limits)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.cache[key]; ok {
		return cached, nil
	}
	if len(e.cache) >= e.cacheSize {
		// No recency tracking; a full cache is simply reset.
		e.cache = make(map[string]*Program, e.cacheSize)
	}
	e.cache[key] = prog
	return prog, nil
}
