package validation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/derive/exprlang"
	"github.com/goliatone/go-formbuilder/pkg/schema"
)

func validForm() schema.FormSchema {
	return schema.FormSchema{
		ID:        "form-1",
		Name:      "Order",
		CreatedAt: "2024-01-01T00:00:00.000Z",
		Fields: []schema.Field{
			{ID: "qty", Type: schema.KindNumber, Label: "Quantity", Required: true},
			{ID: "price", Type: schema.KindNumber, Label: "Price", DefaultValue: 2.5},
			{
				ID:              "total",
				Type:            schema.KindNumber,
				Label:           "Total",
				IsDerived:       true,
				ParentFields:    []string{"qty", "price"},
				DerivationLogic: "qty * price",
			},
			{
				ID:      "size",
				Type:    schema.KindSelect,
				Label:   "Size",
				Options: []schema.Option{{Label: "Small", Value: "s"}, {Label: "Large", Value: "l"}},
			},
		},
	}
}

func TestCheckSchema_Valid(t *testing.T) {
	t.Parallel()

	result := CheckSchema(validForm(), CheckOptions{})
	if !result.Valid {
		t.Fatalf("expected schema to be valid: %#v", result.Issues)
	}

	result = CheckSchema(validForm(), CheckOptions{Checker: exprlang.New()})
	if !result.Valid {
		t.Fatalf("expected schema to be valid with exprlang checker: %#v", result.Issues)
	}
}

func TestCheckSchema_Issues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*schema.FormSchema)
		want   []SchemaIssue
	}{
		{
			name:   "missing name",
			mutate: func(f *schema.FormSchema) { f.Name = " " },
			want:   []SchemaIssue{{Path: "name", Message: "form name is required"}},
		},
		{
			name:   "duplicate id",
			mutate: func(f *schema.FormSchema) { f.Fields[1].ID = "qty" },
			want: []SchemaIssue{
				{Path: "fields[1].id", Field: "qty", Message: `duplicate field id "qty"`},
				{Path: "fields[2].parentFields[1]", Field: "total", Message: `unknown parent field "price"`},
			},
		},
		{
			name:   "unknown kind",
			mutate: func(f *schema.FormSchema) { f.Fields[0].Type = "slider" },
			want:   []SchemaIssue{{Path: "fields[0].type", Field: "qty", Message: `unknown field kind "slider"`}},
		},
		{
			name: "missing threshold",
			mutate: func(f *schema.FormSchema) {
				f.Fields[0].Validations = []schema.ValidationRule{{Type: schema.RuleMinLength, Message: "short"}}
			},
			want: []SchemaIssue{{Path: "fields[0].validations[0].value", Field: "qty", Message: "minLength requires a non-negative whole number"}},
		},
		{
			name: "inverted thresholds",
			mutate: func(f *schema.FormSchema) {
				f.Fields[0].Validations = []schema.ValidationRule{
					{Type: schema.RuleMinLength, Value: 5.0, Message: "short"},
					{Type: schema.RuleMaxLength, Value: 2.0, Message: "long"},
				}
			},
			want: []SchemaIssue{{Path: "fields[0].validations", Field: "qty", Message: "minLength 5 is greater than maxLength 2"}},
		},
		{
			name:   "select without options",
			mutate: func(f *schema.FormSchema) { f.Fields[3].Options = nil },
			want:   []SchemaIssue{{Path: "fields[3].options", Field: "size", Message: "select fields need at least one option"}},
		},
		{
			name:   "default does not fit kind",
			mutate: func(f *schema.FormSchema) { f.Fields[1].DefaultValue = "cheap" },
			want:   []SchemaIssue{{Path: "fields[1].defaultValue", Field: "price", Message: "default value: Enter a number"}},
		},
		{
			name:   "expression outside parents",
			mutate: func(f *schema.FormSchema) { f.Fields[2].DerivationLogic = "qty * price * tax" },
			want:   []SchemaIssue{{Path: "fields[2].derivationLogic", Field: "total", Message: `expression reads "tax" which is not a parent field`}},
		},
		{
			name:   "expression syntax",
			mutate: func(f *schema.FormSchema) { f.Fields[2].DerivationLogic = "qty *" },
			want:   []SchemaIssue{{Path: "fields[2].derivationLogic", Field: "total", Message: "syntax error: unexpected end of expression"}},
		},
		{
			name:   "missing expression",
			mutate: func(f *schema.FormSchema) { f.Fields[2].DerivationLogic = "" },
			want:   []SchemaIssue{{Path: "fields[2].derivationLogic", Field: "total", Message: "derived field has no expression"}},
		},
		{
			name: "cycle",
			mutate: func(f *schema.FormSchema) {
				f.Fields[1].IsDerived = true
				f.Fields[1].ParentFields = []string{"total"}
				f.Fields[1].DerivationLogic = "total / 2"
			},
			want: []SchemaIssue{{Path: "fields[1].parentFields", Field: "price", Message: "derivation cycle: price -> total -> price"}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			form := validForm().Clone()
			tc.mutate(&form)
			result := CheckSchema(form, CheckOptions{})
			if result.Valid {
				t.Fatalf("expected issues")
			}
			if diff := cmp.Diff(tc.want, result.Issues); diff != "" {
				t.Fatalf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckSchema_AllowDraft(t *testing.T) {
	t.Parallel()

	result := CheckSchema(schema.FormSchema{}, CheckOptions{AllowDraft: true})
	if !result.Valid {
		t.Fatalf("expected empty draft to be valid: %#v", result.Issues)
	}
}

func TestCheckDocument(t *testing.T) {
	t.Parallel()

	raw := []byte(`[
  {"id": "a", "name": "A", "createdAt": "2024-01-01T00:00:00.000Z", "fields": [{"id": "x", "type": "text", "label": "X"}]},
  {"id": "b", "name": "", "createdAt": "2024-01-01T00:00:00.000Z", "fields": [{"id": "y", "type": "text", "label": "Y"}]}
]`)
	result := CheckDocument(raw, CheckOptions{})
	if result.Valid {
		t.Fatalf("expected document to be invalid")
	}
	if diff := cmp.Diff([]SchemaIssue{{Path: "[1].name", Message: "form name is required"}}, result.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}

	result = CheckDocument([]byte("not: [valid"), CheckOptions{})
	if result.Valid || len(result.Issues) != 1 || strings.TrimSpace(result.Issues[0].Message) == "" {
		t.Fatalf("expected a parse issue, got %#v", result)
	}
}
