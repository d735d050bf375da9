package openapi

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

func orderForm() schema.FormSchema {
	return schema.FormSchema{
		ID:        "form-order",
		Name:      "Order",
		CreatedAt: "2024-05-01T10:00:00.000Z",
		Fields: []schema.Field{
			{
				ID:       "quantity",
				Type:     schema.KindNumber,
				Label:    "Quantity",
				Required: true,
				Validations: []schema.ValidationRule{
					{Type: schema.RuleRequired, Message: "Quantity is required"},
				},
			},
			{ID: "price", Type: schema.KindNumber, Label: "Price", DefaultValue: float64(10)},
			{
				ID:              "total",
				Type:            schema.KindNumber,
				Label:           "Total",
				IsDerived:       true,
				ParentFields:    []string{"quantity", "price"},
				DerivationLogic: "quantity * price",
			},
			{
				ID:    "size",
				Type:  schema.KindRadio,
				Label: "Size",
				Options: []schema.Option{
					{Label: "Small", Value: "s"},
					{Label: "Large", Value: "l"},
				},
			},
			{
				ID:    "contact",
				Type:  schema.KindText,
				Label: "Contact",
				Validations: []schema.ValidationRule{
					{Type: schema.RuleEmail, Message: "Enter a valid email"},
					{Type: schema.RuleMaxLength, Value: float64(40), Message: "Too long"},
				},
			},
			{ID: "gift", Type: schema.KindCheckbox, Label: "Gift wrap"},
			{ID: "deliver", Type: schema.KindDate, Label: "Deliver on"},
		},
	}
}

func TestExportShape(t *testing.T) {
	t.Parallel()

	out, err := Export(orderForm())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Title != "Order" || !out.Type.Is(openapi3.TypeObject) {
		t.Fatalf("unexpected object header: title=%q type=%v", out.Title, out.Type)
	}
	if diff := cmp.Diff([]string{"quantity"}, out.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	total := out.Properties["total"].Value
	if !total.ReadOnly || !total.Type.Is(openapi3.TypeNumber) {
		t.Fatalf("derived field should be a read-only number: %+v", total)
	}
	size := out.Properties["size"].Value
	if diff := cmp.Diff([]any{"s", "l"}, size.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	contact := out.Properties["contact"].Value
	if contact.Format != "email" || contact.MaxLength == nil || *contact.MaxLength != 40 {
		t.Fatalf("unexpected contact constraints: format=%q max=%v", contact.Format, contact.MaxLength)
	}
	if got := out.Properties["deliver"].Value.Format; got != "date" {
		t.Fatalf("expected date format, got %q", got)
	}
	if !out.Properties["gift"].Value.Type.Is(openapi3.TypeBoolean) {
		t.Fatalf("checkbox should export as boolean")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	form := orderForm()
	out, err := Export(form)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := Import(out)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff(form, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentMarshalParse(t *testing.T) {
	t.Parallel()

	form := orderForm()
	doc, err := Document(Info{}, form)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Info.Title != DefaultInfo.Title {
		t.Fatalf("expected default title, got %q", doc.Info.Title)
	}
	if doc.Paths.Find("/forms/form-order/submissions") == nil {
		t.Fatalf("expected submission path")
	}

	data, err := Marshal(context.Background(), doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !json.Valid(data) || !strings.Contains(string(data), ExtensionKey) {
		t.Fatalf("unexpected document:\n%s", data)
	}

	forms, err := Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]schema.FormSchema{form}, forms); diff != "" {
		t.Fatalf("parsed forms mismatch (-want +got):\n%s", diff)
	}
}

func TestImportPlainObject(t *testing.T) {
	t.Parallel()

	raw := []byte(`
openapi: 3.0.3
info: {title: plain, version: "1"}
paths: {}
components:
  schemas:
    signup:
      type: object
      title: Sign up
      required: [email]
      properties:
        email: {type: string, format: email, maxLength: 80}
        plan: {type: string, enum: [free, pro]}
        seats: {type: integer}
        terms: {type: boolean, title: Accept terms}
        start: {type: string, format: date}
`)
	forms, err := Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ceiling := float64(80)
	want := []schema.FormSchema{{
		ID:   "signup",
		Name: "Sign up",
		Fields: []schema.Field{
			{ID: "email", Type: schema.KindText, Label: "email", Required: true, Validations: []schema.ValidationRule{
				{Type: schema.RuleMaxLength, Value: ceiling},
				{Type: schema.RuleEmail},
			}},
			{ID: "plan", Type: schema.KindSelect, Label: "plan", Options: []schema.Option{{Label: "free", Value: "free"}, {Label: "pro", Value: "pro"}}},
			{ID: "seats", Type: schema.KindNumber, Label: "seats"},
			{ID: "start", Type: schema.KindDate, Label: "start"},
			{ID: "terms", Type: schema.KindCheckbox, Label: "Accept terms"},
		},
	}}
	if diff := cmp.Diff(want, forms); diff != "" {
		t.Fatalf("import mismatch (-want +got):\n%s", diff)
	}
}

func TestExportErrors(t *testing.T) {
	t.Parallel()

	if _, err := Export(schema.FormSchema{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	dup := schema.FormSchema{ID: "f", Fields: []schema.Field{
		{ID: "a", Type: schema.KindText},
		{ID: "a", Type: schema.KindText},
	}}
	if _, err := Export(dup); err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if _, err := Import(openapi3.NewStringSchema()); err == nil {
		t.Fatalf("expected error for non-object schema")
	}
	if got := ComponentName("form 1/x"); got != "form_1_x" {
		t.Fatalf("unexpected component name %q", got)
	}
}
