package openapi

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Import converts an object schema back into a form. Schemas produced by
// Export round-trip exactly; plain OpenAPI objects are mapped by type and
// format, with fields ordered by property name.
func Import(in *openapi3.Schema) (schema.FormSchema, error) {
	if in == nil {
		return schema.FormSchema{}, errors.New("openapi: schema is nil")
	}
	if in.Type != nil && !in.Type.Is(openapi3.TypeObject) {
		return schema.FormSchema{}, fmt.Errorf("openapi: expected object schema, got %v", in.Type.Slice())
	}

	var meta formExtension
	if _, err := decodeExtension(in.Extensions, &meta); err != nil {
		return schema.FormSchema{}, err
	}

	form := schema.FormSchema{
		ID:        meta.ID,
		Name:      in.Title,
		CreatedAt: meta.CreatedAt,
	}

	for _, name := range propertyOrder(in, meta.Order) {
		ref := in.Properties[name]
		if ref == nil || ref.Value == nil {
			return schema.FormSchema{}, fmt.Errorf("openapi: property %q has no schema", name)
		}
		field, err := importField(name, ref.Value)
		if err != nil {
			return schema.FormSchema{}, err
		}
		field.Required = slices.Contains(in.Required, name)
		form.Fields = append(form.Fields, field)
	}
	return form, nil
}

func propertyOrder(in *openapi3.Schema, order []string) []string {
	out := make([]string, 0, len(in.Properties))
	seen := make(map[string]struct{}, len(in.Properties))
	for _, name := range order {
		if _, ok := in.Properties[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	var rest []string
	for name := range in.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func importField(id string, property *openapi3.Schema) (schema.Field, error) {
	var ext fieldExtension
	found, err := decodeExtension(property.Extensions, &ext)
	if err != nil {
		return schema.Field{}, fmt.Errorf("openapi: property %q: %w", id, err)
	}

	field := schema.Field{
		ID:           id,
		Label:        property.Title,
		DefaultValue: schema.NormalizeScalar(property.Default),
	}

	if found && ext.Kind != "" {
		field.Type = ext.Kind
		if ext.Label != "" {
			field.Label = ext.Label
		}
		field.Validations = ext.Validations
		field.Options = ext.Options
		if ext.Derivation != nil {
			field.IsDerived = true
			field.ParentFields = ext.Derivation.Parents
			field.DerivationLogic = ext.Derivation.Expression
		}
		if !field.Type.Valid() {
			return schema.Field{}, fmt.Errorf("openapi: property %q: unknown kind %q", id, field.Type)
		}
		return field, nil
	}

	field.Type = inferKind(property)
	if field.Type.HasOptions() {
		for _, value := range property.Enum {
			text := fmt.Sprint(value)
			field.Options = append(field.Options, schema.Option{Label: text, Value: text})
		}
	}
	field.Validations = inferRules(property)
	if field.Label == "" {
		field.Label = id
	}
	return field, nil
}

func inferKind(property *openapi3.Schema) schema.FieldKind {
	switch {
	case property.Type == nil:
		return schema.KindText
	case property.Type.Is(openapi3.TypeBoolean):
		return schema.KindCheckbox
	case property.Type.Is(openapi3.TypeNumber), property.Type.Is(openapi3.TypeInteger):
		return schema.KindNumber
	case len(property.Enum) > 0:
		return schema.KindSelect
	case property.Format == "date":
		return schema.KindDate
	default:
		return schema.KindText
	}
}

func inferRules(property *openapi3.Schema) []schema.ValidationRule {
	var rules []schema.ValidationRule
	if property.MinLength > 0 {
		rules = append(rules, schema.ValidationRule{Type: schema.RuleMinLength, Value: float64(property.MinLength)})
	}
	if property.MaxLength != nil {
		rules = append(rules, schema.ValidationRule{Type: schema.RuleMaxLength, Value: float64(*property.MaxLength)})
	}
	switch property.Format {
	case "email":
		rules = append(rules, schema.ValidationRule{Type: schema.RuleEmail})
	case "password":
		rules = append(rules, schema.ValidationRule{Type: schema.RulePassword})
	}
	return rules
}
