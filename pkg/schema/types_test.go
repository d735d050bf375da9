package schema

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFieldInitialValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		field Field
		want  any
	}{
		{name: "default wins", field: Field{Type: KindText, DefaultValue: "hi"}, want: "hi"},
		{name: "default number folded", field: Field{Type: KindNumber, DefaultValue: 4}, want: float64(4)},
		{name: "checkbox", field: Field{Type: KindCheckbox}, want: false},
		{name: "select first option", field: Field{Type: KindSelect, Options: []Option{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}}}, want: "a"},
		{name: "radio without options", field: Field{Type: KindRadio}, want: ""},
		{name: "number unset", field: Field{Type: KindNumber}, want: nil},
		{name: "date", field: Field{Type: KindDate}, want: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, tc.field.InitialValue()); diff != "" {
				t.Fatalf("initial value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidationRuleThreshold(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value any
		want  int
		ok    bool
	}{
		{value: float64(5), want: 5, ok: true},
		{value: 3, want: 3, ok: true},
		{value: " 7 ", want: 7, ok: true},
		{value: 2.5, ok: false},
		{value: -1, ok: false},
		{value: "abc", ok: false},
		{value: nil, ok: false},
	}
	for _, tc := range cases {
		got, ok := ValidationRule{Type: RuleMinLength, Value: tc.value}.Threshold()
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Threshold(%#v) = %d, %v; want %d, %v", tc.value, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseKind(" Radio ")
	if err != nil || kind != KindRadio {
		t.Fatalf("ParseKind = %q, %v", kind, err)
	}
	if _, err := ParseKind("slider"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if got := len(Kinds()); got != 7 {
		t.Fatalf("expected 7 kinds, got %d", got)
	}
}

func TestTimestampAndCreated(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	stamp := Timestamp(at)
	if stamp != "2024-03-04T05:06:07.008Z" {
		t.Fatalf("unexpected timestamp %q", stamp)
	}
	parsed, err := FormSchema{CreatedAt: stamp}.Created()
	if err != nil {
		t.Fatalf("Created: %v", err)
	}
	if !parsed.Equal(at) {
		t.Fatalf("expected %v, got %v", at, parsed)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	form := FormSchema{Fields: []Field{{ID: "a", ParentFields: []string{"b"}, Options: []Option{{Label: "x", Value: "x"}}}}}
	clone := form.Clone()
	clone.Fields[0].ParentFields[0] = "changed"
	clone.Fields[0].Options[0].Value = "changed"

	if form.Fields[0].ParentFields[0] != "b" || form.Fields[0].Options[0].Value != "x" {
		t.Fatalf("clone shares backing arrays with source")
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	form := FormSchema{
		Name: "<b>Signup</b> & more",
		Fields: []Field{{
			ID:          "email",
			Label:       `Email <script>alert(1)</script>`,
			Validations: []ValidationRule{{Type: RuleEmail, Message: "<i>bad</i> email"}},
			Options:     []Option{{Label: "<em>One</em>", Value: "<one>"}},
		}},
	}
	got := Sanitize(form)
	if got.Name != "Signup & more" {
		t.Fatalf("name not sanitized: %q", got.Name)
	}
	if got.Fields[0].Label != "Email" {
		t.Fatalf("label not sanitized: %q", got.Fields[0].Label)
	}
	if got.Fields[0].Validations[0].Message != "bad email" {
		t.Fatalf("message not sanitized: %q", got.Fields[0].Validations[0].Message)
	}
	if got.Fields[0].Options[0].Label != "One" || got.Fields[0].Options[0].Value != "<one>" {
		t.Fatalf("option sanitized incorrectly: %#v", got.Fields[0].Options[0])
	}
	if form.Name != "<b>Signup</b> & more" {
		t.Fatalf("source schema mutated")
	}
}
