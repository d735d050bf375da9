// Package session runs a loaded form: it seeds values, applies edits one at
// a time, recomputes derived fields in dependency order and tracks
// validation and derivation errors. Each call yields one consistent
// Snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/derive/expr"
	"github.com/goliatone/go-formbuilder/pkg/graph"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// State is the lifecycle state of a Runtime.
type State int

const (
	// StateUninitialized means no schema has been loaded yet.
	StateUninitialized State = iota
	// StateReady means a schema is loaded and edits are accepted.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNotReady is returned by operations that need a loaded schema.
	ErrNotReady = errors.New("session: no schema loaded")
	// ErrUnknownField is returned when an edit names a field the schema does
	// not declare.
	ErrUnknownField = errors.New("session: unknown field")
	// ErrDerivedField is returned when an edit targets a derived field.
	ErrDerivedField = errors.New("session: derived fields cannot be edited")
)

// Snapshot is the complete value and error state after an operation.
// Errors holds validation messages; DerivationErrors holds the causes of
// derived values that could not be computed. Touched lists the fields the
// operation wrote, in the order they were processed. Revision is the
// runtime revision the snapshot was taken at.
type Snapshot struct {
	Revision         uint64            `json:"revision"`
	Values           map[string]any    `json:"values"`
	Errors           map[string]string `json:"errors"`
	DerivationErrors map[string]string `json:"derivationErrors"`
	Touched          []string          `json:"touched,omitempty"`
}

// Valid reports whether the snapshot carries no validation errors.
func (s Snapshot) Valid() bool {
	return len(s.Errors) == 0
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	OK       bool                  `json:"ok"`
	Snapshot Snapshot              `json:"snapshot"`
	Failures []*validation.Failure `json:"failures,omitempty"`
}

// Runtime is the live editing state of one form. All methods are safe for
// concurrent use; edits are serialized so each one, including its cascade
// of derived recomputation, completes before the next starts.
type Runtime struct {
	evaluator   derive.Evaluator
	logger      *slog.Logger
	observer    Observer
	evalTimeout time.Duration

	mu               sync.Mutex
	state            State
	form             schema.FormSchema
	fields           map[string]schema.Field
	graph            *graph.Graph
	values           map[string]any
	errors           map[string]*validation.Failure
	derivationErrors map[string]*derive.DerivationError
	revision         uint64
}

// New returns an uninitialized Runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger:   slog.Default(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.evaluator == nil {
		r.evaluator = expr.New()
	}
	return r
}

// Load installs form and seeds every field with its default or kind zero
// value. Derivation cycles and other structural graph errors are reported
// here and leave the runtime unchanged.
func (r *Runtime) Load(form schema.FormSchema) (Snapshot, error) {
	g, err := graph.FromSchema(form)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: load %q: %w", form.ID, err)
	}

	form = form.Clone()
	fields := make(map[string]schema.Field, len(form.Fields))
	values := make(map[string]any, len(form.Fields))
	for _, field := range form.Fields {
		fields[field.ID] = field
		values[field.ID] = field.InitialValue()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.form = form
	r.fields = fields
	r.graph = g
	r.values = values
	r.errors = make(map[string]*validation.Failure)
	r.derivationErrors = make(map[string]*derive.DerivationError)
	r.state = StateReady
	r.revision++

	r.logger.Debug("session loaded",
		slog.String("form", form.ID),
		slog.Int("fields", len(form.Fields)),
	)
	return r.snapshotLocked(nil), nil
}

// Reset reseeds the loaded form's values and clears every error.
func (r *Runtime) Reset() (Snapshot, error) {
	r.mu.Lock()
	if r.state != StateReady {
		r.mu.Unlock()
		return Snapshot{}, ErrNotReady
	}
	form := r.form
	r.mu.Unlock()
	return r.Load(form)
}

// ApplyEdit stores value for fieldID, validates it, then recomputes every
// field derived from it (directly or transitively) in dependency order.
// A derived field whose expression fails keeps its previous value and gets a
// derivation error instead; the edit itself still succeeds.
func (r *Runtime) ApplyEdit(ctx context.Context, fieldID string, value any) (Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady {
		return Snapshot{}, ErrNotReady
	}
	field, ok := r.fields[fieldID]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w %q", ErrUnknownField, fieldID)
	}
	if field.IsDerived {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrDerivedField, fieldID)
	}

	start := time.Now()
	r.values[fieldID] = schema.NormalizeScalar(value)
	r.validateLocked(field)
	touched := []string{fieldID}

	affected, err := r.graph.Affected(fieldID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: resolve %q: %w", fieldID, err)
	}
	for _, id := range affected {
		r.recomputeLocked(ctx, r.fields[id])
		touched = append(touched, id)
	}

	r.revision++
	r.observer.EditApplied(fieldID, len(affected), time.Since(start))
	return r.snapshotLocked(touched), nil
}

func (r *Runtime) recomputeLocked(ctx context.Context, field schema.Field) {
	bindings := make(derive.Bindings, len(field.ParentFields))
	for _, parent := range field.ParentFields {
		bindings[parent] = r.values[parent]
	}

	out, err := r.evaluate(ctx, field, bindings)
	r.observer.DerivationEvaluated(field.ID, err)
	if err != nil {
		derr := derive.Wrap(field.ID, err)
		r.derivationErrors[field.ID] = derr
		r.logger.Debug("derivation failed",
			slog.String("field", field.ID),
			slog.Any("err", derr.Cause),
		)
		return
	}

	delete(r.derivationErrors, field.ID)
	r.values[field.ID] = out
	r.validateLocked(field)
}

func (r *Runtime) evaluate(ctx context.Context, field schema.Field, bindings derive.Bindings) (out any, err error) {
	if r.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.evalTimeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = derive.Errorf(field.ID, derive.ErrType, "evaluator panic: %v", rec)
		}
	}()
	return r.evaluator.Evaluate(ctx, field.ID, field.DerivationLogic, bindings)
}

func (r *Runtime) validateLocked(field schema.Field) *validation.Failure {
	failure := validation.Validate(field, r.values[field.ID])
	if failure == nil {
		delete(r.errors, field.ID)
		return nil
	}
	r.errors[field.ID] = failure
	r.observer.ValidationFailed(failure)
	return failure
}

// Submit re-validates every field against its current value and reports
// whether the form is free of validation errors. Derived values are never
// recomputed here, and derivation errors do not block submission.
func (r *Runtime) Submit() (SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady {
		return SubmitResult{}, ErrNotReady
	}

	r.errors = make(map[string]*validation.Failure)
	var failures []*validation.Failure
	for _, field := range r.form.Fields {
		if failure := r.validateLocked(field); failure != nil {
			failures = append(failures, failure)
		}
	}

	ok := len(failures) == 0
	r.observer.Submitted(ok)
	r.logger.Debug("session submitted",
		slog.String("form", r.form.ID),
		slog.Bool("ok", ok),
		slog.Int("failures", len(failures)),
	)
	return SubmitResult{OK: ok, Snapshot: r.snapshotLocked(nil), Failures: failures}, nil
}

// Snapshot returns the current state without modifying it.
func (r *Runtime) Snapshot() (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady {
		return Snapshot{}, ErrNotReady
	}
	return r.snapshotLocked(nil), nil
}

// State reports the lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Revision increases with every load and edit. Hosts that apply edits
// asynchronously can drop snapshots older than the latest revision they
// have seen.
func (r *Runtime) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// Schema returns a copy of the loaded form.
func (r *Runtime) Schema() (schema.FormSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady {
		return schema.FormSchema{}, ErrNotReady
	}
	return r.form.Clone(), nil
}

// DerivationError returns the current derivation error for fieldID, if any.
func (r *Runtime) DerivationError(fieldID string) *derive.DerivationError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.derivationErrors[fieldID]
}

func (r *Runtime) snapshotLocked(touched []string) Snapshot {
	snap := Snapshot{
		Revision:         r.revision,
		Values:           make(map[string]any, len(r.values)),
		Errors:           make(map[string]string, len(r.errors)),
		DerivationErrors: make(map[string]string, len(r.derivationErrors)),
		Touched:          append([]string(nil), touched...),
	}
	for id, value := range r.values {
		snap.Values[id] = value
	}
	for id, failure := range r.errors {
		snap.Errors[id] = failure.Message
	}
	for id, derr := range r.derivationErrors {
		snap.DerivationErrors[id] = derr.Message()
	}
	return snap
}

// ErrorIDs returns the ids with validation errors in s, sorted.
func (s Snapshot) ErrorIDs() []string {
	ids := make([]string, 0, len(s.Errors))
	for id := range s.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
