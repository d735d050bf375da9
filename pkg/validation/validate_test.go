package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

func rule(kind schema.RuleKind, value any, message string) schema.ValidationRule {
	return schema.ValidationRule{Type: kind, Value: value, Message: message}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	nameField := schema.Field{
		ID:       "name",
		Type:     schema.KindText,
		Required: true,
		Validations: []schema.ValidationRule{
			rule(schema.RuleMinLength, 5.0, "Too short"),
			rule(schema.RuleRequired, nil, "Name is required"),
		},
	}

	cases := []struct {
		name  string
		field schema.Field
		value any
		want  *Failure
	}{
		{
			name:  "presence wins over later rules",
			field: nameField,
			value: "",
			want:  &Failure{FieldID: "name", Rule: schema.RuleRequired, Message: "Name is required"},
		},
		{
			name:  "whitespace only is missing",
			field: nameField,
			value: "   ",
			want:  &Failure{FieldID: "name", Rule: schema.RuleRequired, Message: "Name is required"},
		},
		{
			name:  "nil is missing",
			field: schema.Field{ID: "c", Type: schema.KindText, Required: true},
			value: nil,
			want:  &Failure{FieldID: "c", Rule: schema.RuleRequired, Message: DefaultRequiredMessage},
		},
		{
			name:  "min length",
			field: nameField,
			value: "ab",
			want:  &Failure{FieldID: "name", Rule: schema.RuleMinLength, Message: "Too short"},
		},
		{
			name:  "length counts code points",
			field: nameField,
			value: "héllo",
		},
		{
			name:  "max length",
			field: schema.Field{ID: "bio", Type: schema.KindTextarea, Validations: []schema.ValidationRule{rule(schema.RuleMaxLength, 3, "Too long")}},
			value: "abcd",
			want:  &Failure{FieldID: "bio", Rule: schema.RuleMaxLength, Message: "Too long"},
		},
		{
			name:  "max length boundary",
			field: schema.Field{ID: "bio", Type: schema.KindTextarea, Validations: []schema.ValidationRule{rule(schema.RuleMaxLength, 3, "Too long")}},
			value: "abc",
		},
		{
			name:  "length rules skip non strings",
			field: schema.Field{ID: "n", Type: schema.KindNumber, Validations: []schema.ValidationRule{rule(schema.RuleMinLength, 5, "Too short")}},
			value: 12.0,
		},
		{
			name:  "length threshold as string",
			field: schema.Field{ID: "code", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RuleMinLength, "3", "Too short")}},
			value: "ab",
			want:  &Failure{FieldID: "code", Rule: schema.RuleMinLength, Message: "Too short"},
		},
		{
			name:  "email shape",
			field: schema.Field{ID: "email", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RuleEmail, nil, "Bad email")}},
			value: "a@b",
			want:  &Failure{FieldID: "email", Rule: schema.RuleEmail, Message: "Bad email"},
		},
		{
			name:  "email whitespace",
			field: schema.Field{ID: "email", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RuleEmail, nil, "Bad email")}},
			value: "a b@c.io",
			want:  &Failure{FieldID: "email", Rule: schema.RuleEmail, Message: "Bad email"},
		},
		{
			name:  "email ok",
			field: schema.Field{ID: "email", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RuleEmail, nil, "Bad email")}},
			value: "ada@example.com",
		},
		{
			name:  "unset value fails shape rules",
			field: schema.Field{ID: "email", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RuleEmail, nil, "Bad email")}},
			value: nil,
			want:  &Failure{FieldID: "email", Rule: schema.RuleEmail, Message: "Bad email"},
		},
		{
			name:  "password without digit",
			field: schema.Field{ID: "pw", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RulePassword, nil, "Weak")}},
			value: "abcdefgh",
			want:  &Failure{FieldID: "pw", Rule: schema.RulePassword, Message: "Weak"},
		},
		{
			name:  "password too short",
			field: schema.Field{ID: "pw", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RulePassword, nil, "Weak")}},
			value: "abc1",
			want:  &Failure{FieldID: "pw", Rule: schema.RulePassword, Message: "Weak"},
		},
		{
			name:  "password ok",
			field: schema.Field{ID: "pw", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RulePassword, nil, "Weak")}},
			value: "abcdefg1",
		},
		{
			name:  "default rule message",
			field: schema.Field{ID: "pw", Type: schema.KindText, Validations: []schema.ValidationRule{rule(schema.RulePassword, nil, "")}},
			value: "short",
			want:  &Failure{FieldID: "pw", Rule: schema.RulePassword, Message: "Password must be at least 8 characters and contain a digit"},
		},
		{
			name:  "no rules accepts anything",
			field: schema.Field{ID: "free", Type: schema.KindText},
			value: 42.0,
		},
		{
			name:  "number kind rejects text",
			field: schema.Field{ID: "a", Type: schema.KindNumber},
			value: "oops",
			want:  &Failure{FieldID: "a", Rule: RuleKindMismatch, Message: "Enter a number"},
		},
		{
			name:  "number kind accepts numeric text",
			field: schema.Field{ID: "a", Type: schema.KindNumber},
			value: "3.5",
		},
		{
			name:  "checkbox kind",
			field: schema.Field{ID: "ok", Type: schema.KindCheckbox},
			value: "yes",
			want:  &Failure{FieldID: "ok", Rule: RuleKindMismatch, Message: "Must be checked or unchecked"},
		},
		{
			name:  "date kind",
			field: schema.Field{ID: "when", Type: schema.KindDate},
			value: "2024-13-01",
			want:  &Failure{FieldID: "when", Rule: RuleKindMismatch, Message: "Enter a date as YYYY-MM-DD"},
		},
		{
			name:  "date ok",
			field: schema.Field{ID: "when", Type: schema.KindDate},
			value: "2024-02-29",
		},
		{
			name: "select outside options",
			field: schema.Field{
				ID:      "color",
				Type:    schema.KindSelect,
				Options: []schema.Option{{Label: "Red", Value: "red"}},
			},
			value: "blue",
			want:  &Failure{FieldID: "color", Rule: RuleKindMismatch, Message: "Choose one of the options"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Validate(tc.field, tc.value)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Validate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateFieldsOrder(t *testing.T) {
	t.Parallel()

	fields := []schema.Field{
		{ID: "a", Type: schema.KindText, Required: true},
		{ID: "b", Type: schema.KindText},
		{ID: "c", Type: schema.KindNumber, Required: true},
	}
	failures := ValidateFields(fields, map[string]any{"b": "x"})
	var ids []string
	for _, failure := range failures {
		ids = append(ids, failure.FieldID)
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
		t.Fatalf("failure order mismatch (-want +got):\n%s", diff)
	}
}

func TestFailureError(t *testing.T) {
	t.Parallel()

	failure := &Failure{FieldID: "c", Rule: schema.RuleRequired, Message: "This field is required"}
	if got, want := failure.Error(), `validation: field "c": This field is required`; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
