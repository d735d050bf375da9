package session

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/derive"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithEvaluator sets the derivation engine. Defaults to the built-in
// interpreter.
func WithEvaluator(evaluator derive.Evaluator) Option {
	return func(r *Runtime) {
		if evaluator != nil {
			r.evaluator = evaluator
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an observer notified about edits, derivations,
// validation failures and submissions.
func WithObserver(observer Observer) Option {
	return func(r *Runtime) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithEvalTimeout bounds each derivation with a context deadline in addition
// to the engine's own budget.
func WithEvalTimeout(timeout time.Duration) Option {
	return func(r *Runtime) {
		if timeout > 0 {
			r.evalTimeout = timeout
		}
	}
}
