// Package formbuilder is the entry point for building, checking, storing and
// running dynamic forms. It wires the packages under pkg/ together:
// schema documents, the builder draft, dependency-ordered derivation, field
// validation and the persistence backends.
package formbuilder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/derive/expr"
	"github.com/goliatone/go-formbuilder/pkg/derive/exprlang"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/store/filestore"
	"github.com/goliatone/go-formbuilder/pkg/store/memory"
	"github.com/goliatone/go-formbuilder/pkg/store/sqlstore"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Expression engine names accepted by NewEvaluator.
const (
	EngineBuiltin = "builtin"
	EngineExpr    = "expr"
)

// Store driver names accepted by OpenStore.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Evaluator both evaluates and statically checks derivation expressions.
type Evaluator interface {
	derive.Evaluator
	derive.Checker
}

// NewEvaluator returns the named expression engine with limits applied.
func NewEvaluator(engine string, limits derive.Limits) (Evaluator, error) {
	switch engine {
	case "", EngineBuiltin:
		return expr.New(expr.WithLimits(limits)), nil
	case EngineExpr:
		return exprlang.New(exprlang.WithLimits(limits)), nil
	default:
		return nil, fmt.Errorf("formbuilder: unknown expression engine %q", engine)
	}
}

// NewRuntime constructs an unloaded form session.
func NewRuntime(opts ...session.Option) *session.Runtime {
	return session.New(opts...)
}

// NewBuilder returns an empty builder draft.
func NewBuilder(opts ...builder.Option) *builder.Draft {
	return builder.New(opts...)
}

// ParseSchema decodes a JSON or YAML document holding one form or a list.
func ParseSchema(data []byte) ([]schema.FormSchema, error) {
	return schema.ParseDocument(data)
}

// Prepare sanitizes and normalizes an incoming schema and fills in a
// missing id or creation timestamp.
func Prepare(form schema.FormSchema, now time.Time) schema.FormSchema {
	form = schema.Normalize(schema.Sanitize(form))
	if form.ID == "" {
		form.ID = "form-" + uuid.NewString()
	}
	if form.CreatedAt == "" {
		form.CreatedAt = schema.Timestamp(now)
	}
	return form
}

// CheckSchema reports structural issues in form. A nil checker uses the
// built-in engine.
func CheckSchema(form schema.FormSchema, checker derive.Checker) validation.SchemaValidationResult {
	return validation.CheckSchema(form, validation.CheckOptions{Checker: checker})
}

// OpenStore opens the named persistence backend. The returned close func is
// never nil.
func OpenStore(driver, path string) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch driver {
	case StoreMemory:
		return memory.New(), noop, nil
	case StoreFile:
		if path == "" {
			return nil, noop, fmt.Errorf("formbuilder: %s store needs a path", driver)
		}
		return filestore.New(path), noop, nil
	case StoreSQLite:
		if path == "" {
			return nil, noop, fmt.Errorf("formbuilder: %s store needs a path", driver)
		}
		s, err := sqlstore.Open(path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("formbuilder: unknown store driver %q", driver)
	}
}
