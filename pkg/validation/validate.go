// Package validation checks field values against their declared rules and
// checks form schemas for structural problems before they are saved or run.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// RuleKindMismatch marks failures raised because a value does not fit the
// field kind (for example text in a number field).
const RuleKindMismatch schema.RuleKind = "kind"

// DefaultRequiredMessage is reported for required fields without a message
// of their own.
const DefaultRequiredMessage = "This field is required"

const passwordMinLength = 8

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitPattern = regexp.MustCompile(`\d`)
)

// Failure is a field-scoped validation failure. It is always recoverable by
// editing the field again.
type Failure struct {
	FieldID string          `json:"fieldId"`
	Rule    schema.RuleKind `json:"rule"`
	Message string          `json:"message"`
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("validation: field %q: %s", f.FieldID, f.Message)
}

// Validate returns the first failing rule for value, or nil when the value is
// acceptable. Presence is checked first (only for required fields), then the
// value is checked against the field kind, then declared rules run in order.
func Validate(field schema.Field, value any) *Failure {
	empty := isEmpty(value)
	if field.Required && empty {
		message := DefaultRequiredMessage
		if rule, ok := field.Rule(schema.RuleRequired); ok && strings.TrimSpace(rule.Message) != "" {
			message = rule.Message
		}
		return &Failure{FieldID: field.ID, Rule: schema.RuleRequired, Message: message}
	}

	if !empty {
		if message := checkKind(field, value); message != "" {
			return &Failure{FieldID: field.ID, Rule: RuleKindMismatch, Message: message}
		}
	}

	for _, rule := range field.Validations {
		if ok := checkRule(rule, value); !ok {
			return &Failure{FieldID: field.ID, Rule: rule.Type, Message: ruleMessage(rule)}
		}
	}
	return nil
}

// ValidateFields validates every field against values and returns the
// failures in field order.
func ValidateFields(fields []schema.Field, values map[string]any) []*Failure {
	var out []*Failure
	for _, field := range fields {
		if failure := Validate(field, values[field.ID]); failure != nil {
			out = append(out, failure)
		}
	}
	return out
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

func checkRule(rule schema.ValidationRule, value any) bool {
	switch rule.Type {
	case schema.RuleMinLength:
		s, ok := value.(string)
		limit, has := rule.Threshold()
		if !ok || !has {
			return true
		}
		return utf8.RuneCountInString(s) >= limit
	case schema.RuleMaxLength:
		s, ok := value.(string)
		limit, has := rule.Threshold()
		if !ok || !has {
			return true
		}
		return utf8.RuneCountInString(s) <= limit
	case schema.RuleEmail:
		return emailPattern.MatchString(shapeText(value))
	case schema.RulePassword:
		s, ok := shapeString(value)
		return ok && utf8.RuneCountInString(s) >= passwordMinLength && digitPattern.MatchString(s)
	default:
		// Presence is handled up front; unknown kinds never fail.
		return true
	}
}

// shapeText returns the text matched by shape rules. Unset values match as
// the empty string and therefore fail.
func shapeText(value any) string {
	s, _ := shapeString(value)
	return s
}

func shapeString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	default:
		return "", false
	}
}

func ruleMessage(rule schema.ValidationRule) string {
	if message := strings.TrimSpace(rule.Message); message != "" {
		return rule.Message
	}
	limit, _ := rule.Threshold()
	switch rule.Type {
	case schema.RuleMinLength:
		return fmt.Sprintf("Must be at least %d characters", limit)
	case schema.RuleMaxLength:
		return fmt.Sprintf("Must be at most %d characters", limit)
	case schema.RuleEmail:
		return "Enter a valid email address"
	case schema.RulePassword:
		return fmt.Sprintf("Password must be at least %d characters and contain a digit", passwordMinLength)
	default:
		return "Invalid value"
	}
}

const dateLayout = "2006-01-02"

// checkKind returns a message when a non-empty value does not fit the field
// kind.
func checkKind(field schema.Field, value any) string {
	switch field.Type {
	case schema.KindNumber:
		if _, ok := schema.ToFloat(value); ok {
			return ""
		}
		if s, ok := value.(string); ok {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return ""
			}
		}
		return "Enter a number"
	case schema.KindCheckbox:
		if _, ok := value.(bool); ok {
			return ""
		}
		return "Must be checked or unchecked"
	case schema.KindDate:
		s, ok := value.(string)
		if !ok {
			return "Enter a date as YYYY-MM-DD"
		}
		if _, err := time.Parse(dateLayout, strings.TrimSpace(s)); err != nil {
			return "Enter a date as YYYY-MM-DD"
		}
		return ""
	case schema.KindSelect, schema.KindRadio:
		s, ok := value.(string)
		if !ok {
			return "Choose one of the options"
		}
		if len(field.Options) > 0 && !field.HasOption(s) {
			return "Choose one of the options"
		}
		return ""
	default:
		return ""
	}
}
