package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldKind is the closed enumeration of input kinds a form field can take.
// The string values are part of the persisted record shape.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindRadio    FieldKind = "radio"
	KindCheckbox FieldKind = "checkbox"
	KindDate     FieldKind = "date"
)

var fieldKinds = []FieldKind{
	KindText,
	KindNumber,
	KindTextarea,
	KindSelect,
	KindRadio,
	KindCheckbox,
	KindDate,
}

// Kinds returns the palette of field kinds in display order.
func Kinds() []FieldKind {
	return append([]FieldKind(nil), fieldKinds...)
}

// ParseKind resolves a raw kind name, ignoring case and surrounding space.
func ParseKind(raw string) (FieldKind, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for _, kind := range fieldKinds {
		if string(kind) == trimmed {
			return kind, nil
		}
	}
	return "", fmt.Errorf("schema: unknown field kind %q", raw)
}

// Valid reports whether k is one of the enumerated kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindTextarea, KindSelect, KindRadio, KindCheckbox, KindDate:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the kind picks its value from a list of choices.
func (k FieldKind) HasOptions() bool {
	return k == KindSelect || k == KindRadio
}

// ValueType describes the runtime value family a kind produces.
type ValueType int

const (
	ValueString ValueType = iota
	ValueNumber
	ValueBool
)

// ValueType maps the kind onto the value family used by validation and by
// expression bindings.
func (k FieldKind) ValueType() ValueType {
	switch k {
	case KindNumber:
		return ValueNumber
	case KindCheckbox:
		return ValueBool
	case KindText, KindTextarea, KindSelect, KindRadio, KindDate:
		return ValueString
	default:
		return ValueString
	}
}

// RuleKind enumerates the validation rule identifiers.
type RuleKind string

const (
	RuleRequired  RuleKind = "required"
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleEmail     RuleKind = "email"
	RulePassword  RuleKind = "password"
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleRequired, RuleMinLength, RuleMaxLength, RuleEmail, RulePassword:
		return true
	default:
		return false
	}
}

// NeedsThreshold reports whether the rule carries a numeric threshold.
func (k RuleKind) NeedsThreshold() bool {
	return k == RuleMinLength || k == RuleMaxLength
}

// ValidationRule is a single constraint attached to a field. Value holds the
// threshold for length rules and is ignored otherwise.
type ValidationRule struct {
	Type    RuleKind `json:"type" yaml:"type"`
	Value   any      `json:"value,omitempty" yaml:"value,omitempty"`
	Message string   `json:"message" yaml:"message"`
}

// Threshold returns the rule value as a non-negative integer. Numeric strings
// are accepted since older records stored the raw input text.
func (r ValidationRule) Threshold() (int, bool) {
	switch v := r.Value.(type) {
	case nil:
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	default:
		f, ok := ToFloat(v)
		if !ok || f < 0 || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
}

// Option is a (label, value) choice for select and radio fields.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Field describes one input of a form. Derived fields compute their value
// from ParentFields through DerivationLogic instead of direct input.
type Field struct {
	ID              string           `json:"id" yaml:"id"`
	Type            FieldKind        `json:"type" yaml:"type"`
	Label           string           `json:"label" yaml:"label"`
	Required        bool             `json:"required" yaml:"required"`
	DefaultValue    any              `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Validations     []ValidationRule `json:"validations,omitzero" yaml:"validations,omitempty"`
	IsDerived       bool             `json:"isDerived" yaml:"isDerived"`
	ParentFields    []string         `json:"parentFields,omitzero" yaml:"parentFields,omitempty"`
	DerivationLogic string           `json:"derivationLogic,omitempty" yaml:"derivationLogic,omitempty"`
	Options         []Option         `json:"options,omitzero" yaml:"options,omitempty"`
}

// Rule returns the first rule of the given kind.
func (f Field) Rule(kind RuleKind) (ValidationRule, bool) {
	for _, rule := range f.Validations {
		if rule.Type == kind {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// HasOption reports whether value matches one of the field options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// InitialValue returns the value a fresh session seeds for the field: the
// default when present, otherwise the kind's zero value. Number fields start
// unset (nil) so presence checks still fire.
func (f Field) InitialValue() any {
	if f.DefaultValue != nil {
		return NormalizeScalar(f.DefaultValue)
	}
	switch f.Type {
	case KindCheckbox:
		return false
	case KindSelect, KindRadio:
		if len(f.Options) > 0 {
			return f.Options[0].Value
		}
		return ""
	case KindNumber:
		return nil
	case KindText, KindTextarea, KindDate:
		return ""
	default:
		return nil
	}
}

// FormSchema is the persisted, named definition of a form. CreatedAt keeps
// the ISO-8601 text verbatim so records round-trip unchanged.
type FormSchema struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	CreatedAt string  `json:"createdAt" yaml:"createdAt"`
	Fields    []Field `json:"fields" yaml:"fields"`
}

// Field looks up a field by id.
func (s FormSchema) Field(id string) (Field, bool) {
	if idx := s.Index(id); idx >= 0 {
		return s.Fields[idx], true
	}
	return Field{}, false
}

// Index returns the position of the field id or -1.
func (s FormSchema) Index(id string) int {
	for idx, field := range s.Fields {
		if field.ID == id {
			return idx
		}
	}
	return -1
}

// FieldIDs returns the field ids in schema order.
func (s FormSchema) FieldIDs() []string {
	out := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		out = append(out, field.ID)
	}
	return out
}

// Created parses CreatedAt.
func (s FormSchema) Created() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s.CreatedAt))
	if err != nil {
		return time.Time{}, fmt.Errorf("schema: invalid createdAt %q: %w", s.CreatedAt, err)
	}
	return t, nil
}

// Timestamp formats t the way CreatedAt is stored (UTC, millisecond precision).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
