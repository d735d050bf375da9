// Package derive defines the contract between the form runtime and the
// engines that compute derived field values. Engines evaluate user-authored
// expression text over the values of a field's declared parents only, must
// stay within a bounded budget, and report every failure as a
// *DerivationError scoped to the derived field.
package derive

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Bindings maps parent field ids to their current values.
type Bindings map[string]any

// Evaluator computes a derived value for fieldID from expression and the
// supplied bindings.
type Evaluator interface {
	Evaluate(ctx context.Context, fieldID, expression string, bindings Bindings) (any, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(ctx context.Context, fieldID, expression string, bindings Bindings) (any, error)

// Evaluate delegates to the underlying function.
func (fn EvaluatorFunc) Evaluate(ctx context.Context, fieldID, expression string, bindings Bindings) (any, error) {
	return fn(ctx, fieldID, expression, bindings)
}

// Checker is implemented by engines that can validate expression text ahead
// of time and report which names it references.
type Checker interface {
	Check(expression string) (Reference, error)
}

// Reference lists the binding names an expression reads.
type Reference struct {
	Names []string
}

var (
	// ErrSyntax marks expression text that does not parse.
	ErrSyntax = errors.New("syntax error")
	// ErrType marks operations applied to values of the wrong type.
	ErrType = errors.New("type error")
	// ErrUnknownName marks references to names absent from the bindings.
	ErrUnknownName = errors.New("unknown name")
	// ErrBudgetExceeded marks evaluations stopped by the step, depth or time
	// budget.
	ErrBudgetExceeded = errors.New("evaluation budget exceeded")
	// ErrEmptyExpression marks derived fields without expression text.
	ErrEmptyExpression = errors.New("empty expression")
)

// DerivationError reports that the value of a derived field could not be
// computed. The runtime treats it as "derived value unavailable".
type DerivationError struct {
	FieldID string
	Cause   error
}

func (e *DerivationError) Error() string {
	if e == nil {
		return ""
	}
	if e.FieldID == "" {
		return fmt.Sprintf("derive: %v", e.Cause)
	}
	return fmt.Sprintf("derive: field %q: %v", e.FieldID, e.Cause)
}

// Unwrap exposes the cause so callers can match the sentinels above.
func (e *DerivationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Message returns the human-readable cause without the package prefix.
func (e *DerivationError) Message() string {
	if e == nil || e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// Errorf builds a DerivationError whose cause wraps kind.
func Errorf(fieldID string, kind error, format string, args ...any) *DerivationError {
	return &DerivationError{
		FieldID: fieldID,
		Cause:   fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}

// Wrap converts any error into a DerivationError for fieldID. Context
// deadline errors are reported as budget exhaustion.
func Wrap(fieldID string, err error) *DerivationError {
	if err == nil {
		return nil
	}
	var derr *DerivationError
	if errors.As(err, &derr) {
		if derr.FieldID == "" {
			return &DerivationError{FieldID: fieldID, Cause: derr.Cause}
		}
		return derr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &DerivationError{FieldID: fieldID, Cause: fmt.Errorf("%w: %v", ErrBudgetExceeded, err)}
	}
	return &DerivationError{FieldID: fieldID, Cause: err}
}

// Limits bounds a single evaluation.
type Limits struct {
	// MaxSteps caps the number of evaluated nodes.
	MaxSteps int
	// MaxDepth caps expression nesting.
	MaxDepth int
	// MaxLength caps the expression text length in bytes.
	MaxLength int
	// MaxStringLength caps the length of any string value produced.
	MaxStringLength int
	// Timeout caps wall-clock time per evaluation.
	Timeout time.Duration
}

// DefaultLimits returns the budget applied when callers do not override it.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:        10_000,
		MaxDepth:        64,
		MaxLength:       4096,
		MaxStringLength: 64 * 1024,
		Timeout:         50 * time.Millisecond,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	def := DefaultLimits()
	if l.MaxSteps <= 0 {
		l.MaxSteps = def.MaxSteps
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = def.MaxDepth
	}
	if l.MaxLength <= 0 {
		l.MaxLength = def.MaxLength
	}
	if l.MaxStringLength <= 0 {
		l.MaxStringLength = def.MaxStringLength
	}
	if l.Timeout <= 0 {
		l.Timeout = def.Timeout
	}
	return l
}
