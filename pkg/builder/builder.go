// Package builder holds the editable draft of a form while it is being
// assembled: the ordered field list, the selected field and the form name.
// Finalize turns a draft into an immutable schema.FormSchema.
package builder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

var (
	ErrUnknownField     = errors.New("builder: unknown field")
	ErrUnknownKind      = errors.New("builder: unknown field kind")
	ErrUnknownRule      = errors.New("builder: unknown rule kind")
	ErrMissingMessage   = errors.New("builder: validation message is required")
	ErrInvalidThreshold = errors.New("builder: length rules need a non-negative whole number")
	ErrIndexOutOfRange  = errors.New("builder: index out of range")
	ErrSelfParent       = errors.New("builder: a field cannot derive from itself")
	ErrNoOptions        = errors.New("builder: field kind has no options")
	ErrNameRequired     = errors.New("builder: form name is required")
	ErrNoFields         = errors.New("builder: form has no fields")
)

// CheckError is returned by Finalize when the draft has structural issues.
type CheckError struct {
	Result validation.SchemaValidationResult
}

func (e *CheckError) Error() string {
	if e == nil || len(e.Result.Issues) == 0 {
		return "builder: schema check failed"
	}
	first := e.Result.Issues[0]
	msg := first.Message
	if first.Path != "" {
		msg = first.Path + ": " + msg
	}
	if extra := len(e.Result.Issues) - 1; extra > 0 {
		return fmt.Sprintf("builder: schema check failed: %s (and %d more)", msg, extra)
	}
	return "builder: schema check failed: " + msg
}

// Option configures a Draft.
type Option func(*Draft)

// WithIDGenerator replaces the random suffix used for new field and form
// ids.
func WithIDGenerator(next func() string) Option {
	return func(d *Draft) {
		if next != nil {
			d.newID = next
		}
	}
}

// WithChecker sets the expression checker used by Check and Finalize.
func WithChecker(checker derive.Checker) Option {
	return func(d *Draft) {
		d.checker = checker
	}
}

// Draft is a form under construction. It is meant for a single editor and
// is not safe for concurrent use.
type Draft struct {
	newID   func() string
	checker derive.Checker

	formID    string
	createdAt string
	name      string
	fields    []schema.Field
	selected  string
}

// New returns an empty draft.
func New(opts ...Option) *Draft {
	d := &Draft{newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Name returns the draft form name.
func (d *Draft) Name() string { return d.name }

// SetName sets the draft form name.
func (d *Draft) SetName(name string) { d.name = name }

// Fields returns a copy of the fields in order.
func (d *Draft) Fields() []schema.Field {
	out := make([]schema.Field, len(d.fields))
	for idx, field := range d.fields {
		out[idx] = field.Clone()
	}
	return out
}

// Field returns a copy of the field with id.
func (d *Draft) Field(id string) (schema.Field, bool) {
	idx := d.index(id)
	if idx < 0 {
		return schema.Field{}, false
	}
	return d.fields[idx].Clone(), true
}

// SelectedID returns the id of the selected field or "".
func (d *Draft) SelectedID() string { return d.selected }

// SelectField selects id; "" clears the selection.
func (d *Draft) SelectField(id string) error {
	if id != "" && d.index(id) < 0 {
		return fmt.Errorf("%w %q", ErrUnknownField, id)
	}
	d.selected = id
	return nil
}

// Reset clears the draft.
func (d *Draft) Reset() {
	d.formID = ""
	d.createdAt = ""
	d.name = ""
	d.fields = nil
	d.selected = ""
}

// Load replaces the draft content with name and fields.
func (d *Draft) Load(name string, fields []schema.Field) {
	d.Reset()
	d.name = name
	for _, field := range fields {
		d.fields = append(d.fields, field.Clone())
	}
}

// Edit loads an existing schema so that Finalize overwrites it by id.
func (d *Draft) Edit(form schema.FormSchema) {
	d.Load(form.Name, form.Fields)
	d.formID = form.ID
	d.createdAt = form.CreatedAt
}

// AddField appends a new field of kind and selects it.
func (d *Draft) AddField(kind schema.FieldKind) (schema.Field, error) {
	if !kind.Valid() {
		return schema.Field{}, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	field := schema.Field{
		ID:    "field-" + d.newID(),
		Type:  kind,
		Label: fmt.Sprintf("New %s Field", kind),
	}
	if kind.HasOptions() {
		field.Options = []schema.Option{{Label: "Option 1", Value: "option1"}}
	}
	d.fields = append(d.fields, field)
	d.selected = field.ID
	return field.Clone(), nil
}

// UpdateField replaces the field with the same id.
func (d *Draft) UpdateField(field schema.Field) error {
	idx := d.index(field.ID)
	if idx < 0 {
		return fmt.Errorf("%w %q", ErrUnknownField, field.ID)
	}
	if !field.Type.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownKind, field.Type)
	}
	d.fields[idx] = field.Clone()
	return nil
}

// RemoveField deletes the field with id and clears the selection if it
// pointed at it.
func (d *Draft) RemoveField(id string) error {
	idx := d.index(id)
	if idx < 0 {
		return fmt.Errorf("%w %q", ErrUnknownField, id)
	}
	d.fields = append(d.fields[:idx], d.fields[idx+1:]...)
	if d.selected == id {
		d.selected = ""
	}
	return nil
}

// ReorderFields moves the field at start to end.
func (d *Draft) ReorderFields(start, end int) error {
	if start < 0 || start >= len(d.fields) || end < 0 || end >= len(d.fields) {
		return fmt.Errorf("%w: move %d to %d with %d fields", ErrIndexOutOfRange, start, end, len(d.fields))
	}
	moved := d.fields[start]
	d.fields = append(d.fields[:start], d.fields[start+1:]...)
	d.fields = append(d.fields[:end], append([]schema.Field{moved}, d.fields[end:]...)...)
	return nil
}

// AddValidation appends rule to the field. Rules need a message and length
// rules need a usable threshold.
func (d *Draft) AddValidation(fieldID string, rule schema.ValidationRule) error {
	field, err := d.mutable(fieldID)
	if err != nil {
		return err
	}
	if !rule.Type.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownRule, rule.Type)
	}
	if strings.TrimSpace(rule.Message) == "" {
		return ErrMissingMessage
	}
	if rule.Type.NeedsThreshold() {
		limit, ok := rule.Threshold()
		if !ok {
			return ErrInvalidThreshold
		}
		rule.Value = float64(limit)
	} else {
		rule.Value = nil
	}
	field.Validations = append(field.Validations, rule)
	return nil
}

// RemoveValidation deletes the rule at index.
func (d *Draft) RemoveValidation(fieldID string, index int) error {
	field, err := d.mutable(fieldID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(field.Validations) {
		return fmt.Errorf("%w: validation %d", ErrIndexOutOfRange, index)
	}
	field.Validations = append(field.Validations[:index], field.Validations[index+1:]...)
	if len(field.Validations) == 0 {
		field.Validations = nil
	}
	return nil
}

// AddOption appends a numbered option to a select or radio field.
func (d *Draft) AddOption(fieldID string) (schema.Option, error) {
	field, err := d.mutable(fieldID)
	if err != nil {
		return schema.Option{}, err
	}
	if !field.Type.HasOptions() {
		return schema.Option{}, fmt.Errorf("%w: %s", ErrNoOptions, field.Type)
	}
	n := len(field.Options) + 1
	opt := schema.Option{Label: fmt.Sprintf("Option %d", n), Value: fmt.Sprintf("option%d", n)}
	field.Options = append(field.Options, opt)
	return opt, nil
}

// UpdateOption replaces the option at index.
func (d *Draft) UpdateOption(fieldID string, index int, opt schema.Option) error {
	field, err := d.mutable(fieldID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(field.Options) {
		return fmt.Errorf("%w: option %d", ErrIndexOutOfRange, index)
	}
	field.Options[index] = opt
	return nil
}

// RemoveOption deletes the option at index.
func (d *Draft) RemoveOption(fieldID string, index int) error {
	field, err := d.mutable(fieldID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(field.Options) {
		return fmt.Errorf("%w: option %d", ErrIndexOutOfRange, index)
	}
	field.Options = append(field.Options[:index], field.Options[index+1:]...)
	return nil
}

// SetDerivation marks the field as derived from parents through expression.
func (d *Draft) SetDerivation(fieldID string, parents []string, expression string) error {
	field, err := d.mutable(fieldID)
	if err != nil {
		return err
	}
	for _, parent := range parents {
		if parent == fieldID {
			return ErrSelfParent
		}
		if d.index(parent) < 0 {
			return fmt.Errorf("%w %q", ErrUnknownField, parent)
		}
	}
	field.IsDerived = true
	field.ParentFields = append([]string(nil), parents...)
	field.DerivationLogic = strings.TrimSpace(expression)
	return nil
}

// ClearDerivation turns the field back into a plain input.
func (d *Draft) ClearDerivation(fieldID string) error {
	field, err := d.mutable(fieldID)
	if err != nil {
		return err
	}
	field.IsDerived = false
	field.ParentFields = nil
	field.DerivationLogic = ""
	return nil
}

// ParentCandidates lists the fields that fieldID may derive from.
func (d *Draft) ParentCandidates(fieldID string) []schema.Field {
	var out []schema.Field
	for _, field := range d.fields {
		if field.ID != fieldID {
			out = append(out, field.Clone())
		}
	}
	return out
}

// Check reports structural issues without the form-level requirements
// Finalize enforces.
func (d *Draft) Check() validation.SchemaValidationResult {
	return validation.CheckSchema(d.snapshot(), validation.CheckOptions{Checker: d.checker, AllowDraft: true})
}

// Finalize validates the draft and returns the schema to persist. A new id
// is generated unless the draft was opened with Edit. The draft is cleared
// on success.
func (d *Draft) Finalize(now time.Time) (schema.FormSchema, error) {
	if strings.TrimSpace(d.name) == "" {
		return schema.FormSchema{}, ErrNameRequired
	}
	if len(d.fields) == 0 {
		return schema.FormSchema{}, ErrNoFields
	}

	form := d.snapshot()
	if form.ID == "" {
		form.ID = "form-" + d.newID()
	}
	if form.CreatedAt == "" {
		form.CreatedAt = schema.Timestamp(now)
	}
	form = schema.Normalize(schema.Sanitize(form))

	result := validation.CheckSchema(form, validation.CheckOptions{Checker: d.checker})
	if !result.Valid {
		return schema.FormSchema{}, &CheckError{Result: result}
	}
	d.Reset()
	return form, nil
}

func (d *Draft) snapshot() schema.FormSchema {
	return schema.FormSchema{
		ID:        d.formID,
		Name:      d.name,
		CreatedAt: d.createdAt,
		Fields:    d.Fields(),
	}
}

func (d *Draft) index(id string) int {
	for idx := range d.fields {
		if d.fields[idx].ID == id {
			return idx
		}
	}
	return -1
}

func (d *Draft) mutable(id string) (*schema.Field, error) {
	idx := d.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, id)
	}
	return &d.fields[idx], nil
}
