// Package exprlang evaluates derivation expressions with
// github.com/expr-lang/expr. Programs are restricted before compilation to
// scalar arithmetic, comparisons, logic and an allowlist of pure functions,
// so the engine honours the same contract as the built-in interpreter.
//
// expr-lang programs cannot be interrupted. A run that outlives its timeout
// is abandoned and its goroutine keeps going until the VM returns; the
// number of such runs is capped by WithMaxInFlight, and once every slot is
// taken further evaluations fail with derive.ErrBudgetExceeded.
package exprlang

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the evaluation budget. MaxSteps bounds the number of
// AST nodes; MaxDepth is not used by this engine.
func WithLimits(limits derive.Limits) Option {
	return func(e *Engine) {
		e.limits = limits.WithDefaults()
	}
}

// WithMaxInFlight caps how many programs may run at once, abandoned ones
// included.
func WithMaxInFlight(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.inflight = make(chan struct{}, n)
		}
	}
}

const defaultMaxInFlight = 64

// Engine evaluates expressions using expr-lang. It is safe for concurrent
// use.
type Engine struct {
	limits   derive.Limits
	inflight chan struct{}

	mu       sync.RWMutex
	programs map[string]*compiled
}

type compiled struct {
	program *vm.Program
	names   []string
}

var (
	_ derive.Evaluator = (*Engine)(nil)
	_ derive.Checker   = (*Engine)(nil)
)

// New returns an Engine using the default budget.
func New(opts ...Option) *Engine {
	e := &Engine{
		limits:   derive.DefaultLimits(),
		inflight: make(chan struct{}, defaultMaxInFlight),
		programs: make(map[string]*compiled),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate implements derive.Evaluator.
func (e *Engine) Evaluate(ctx context.Context, fieldID, expression string, bindings derive.Bindings) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	prog, err := e.program(expression)
	if err != nil {
		return nil, derive.Wrap(fieldID, err)
	}

	env := make(map[string]any, len(prog.names))
	for _, name := range prog.names {
		raw, ok := bindings[name]
		if !ok {
			return nil, derive.Errorf(fieldID, derive.ErrUnknownName, "%q", name)
		}
		value := schema.NormalizeScalar(raw)
		// The VM cannot stop a growing concatenation, so oversized inputs
		// are refused up front.
		if str, ok := value.(string); ok && len(str) > e.limits.MaxStringLength {
			return nil, derive.Errorf(fieldID, derive.ErrBudgetExceeded, "binding %q longer than %d bytes", name, e.limits.MaxStringLength)
		}
		env[name] = value
	}

	out, err := e.run(ctx, prog.program, env)
	if err != nil {
		return nil, derive.Wrap(fieldID, err)
	}
	return out, nil
}

// Check implements derive.Checker.
func (e *Engine) Check(expression string) (derive.Reference, error) {
	prog, err := e.program(expression)
	if err != nil {
		return derive.Reference{}, err
	}
	return derive.Reference{Names: append([]string(nil), prog.names...)}, nil
}

type result struct {
	value any
	err   error
}

func (e *Engine) run(ctx context.Context, program *vm.Program, env map[string]any) (any, error) {
	timer := time.NewTimer(e.limits.Timeout)
	defer timer.Stop()

	select {
	case e.inflight <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("exprlang: %w: no free evaluation slot within %s", derive.ErrBudgetExceeded, e.limits.Timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("exprlang: %w: %v", derive.ErrBudgetExceeded, ctx.Err())
	}

	done := make(chan result, 1)
	go func() {
		defer func() { <-e.inflight }()
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("exprlang: %w: %v", derive.ErrType, r)}
			}
		}()
		value, err := expr.Run(program, env)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			var derr *derive.DerivationError
			if errors.As(r.err, &derr) || errors.Is(r.err, derive.ErrType) {
				return nil, r.err
			}
			return nil, fmt.Errorf("exprlang: %w: %v", derive.ErrType, r.err)
		}
		return scalar(r.value, e.limits.MaxStringLength)
	case <-timer.C:
		return nil, fmt.Errorf("exprlang: %w: exceeded %s", derive.ErrBudgetExceeded, e.limits.Timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("exprlang: %w: %v", derive.ErrBudgetExceeded, ctx.Err())
	}
}

func scalar(value any, maxString int) (any, error) {
	switch v := value.(type) {
	case nil, bool:
		return v, nil
	case string:
		if len(v) > maxString {
			return nil, fmt.Errorf("exprlang: %w: string longer than %d bytes", derive.ErrBudgetExceeded, maxString)
		}
		return v, nil
	}
	f, ok := schema.ToFloat(value)
	if !ok {
		return nil, fmt.Errorf("exprlang: %w: unsupported result of type %T", derive.ErrType, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("exprlang: %w: result is not a finite number", derive.ErrType)
	}
	return f, nil
}

func (e *Engine) program(expression string) (*compiled, error) {
	key := strings.TrimSpace(expression)

	e.mu.RLock()
	if prog, ok := e.programs[key]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	prog, err := e.compile(key)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.programs[key]; ok {
		return cached, nil
	}
	e.programs[key] = prog
	return prog, nil
}

func (e *Engine) compile(text string) (*compiled, error) {
	if text == "" {
		return nil, fmt.Errorf("exprlang: %w", derive.ErrEmptyExpression)
	}
	if len(text) > e.limits.MaxLength {
		return nil, fmt.Errorf("exprlang: %w: expression longer than %d bytes", derive.ErrBudgetExceeded, e.limits.MaxLength)
	}

	names, err := inspect(text)
	if err != nil {
		return nil, err
	}

	program, err := expr.Compile(text,
		expr.AllowUndefinedVariables(),
		expr.MaxNodes(uint(e.limits.MaxSteps)),
		daysBetween(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "exceeds maximum allowed nodes") {
			return nil, fmt.Errorf("exprlang: %w: %v", derive.ErrBudgetExceeded, err)
		}
		return nil, fmt.Errorf("exprlang: %w: %v", derive.ErrSyntax, err)
	}
	return &compiled{program: program, names: names}, nil
}

func daysBetween() expr.Option {
	return expr.Function("daysBetween", func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("exprlang: %w: daysBetween requires 2 arguments", derive.ErrType)
		}
		from, err := parseDate(params[0])
		if err != nil {
			return nil, err
		}
		to, err := parseDate(params[1])
		if err != nil {
			return nil, err
		}
		return math.Round(to.Sub(from).Hours() / 24), nil
	})
}

func parseDate(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("exprlang: %w: expected a date string, got %T", derive.ErrType, value)
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("exprlang: %w: expected a date in YYYY-MM-DD form, got %q", derive.ErrType, s)
	}
	return t, nil
}
