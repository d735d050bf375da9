package openapi

import (
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Export converts form into an OpenAPI object schema.
func Export(form schema.FormSchema) (*openapi3.Schema, error) {
	if form.ID == "" {
		return nil, errors.New("openapi: form id is required")
	}

	out := openapi3.NewObjectSchema()
	out.Title = form.Name
	out.Properties = make(openapi3.Schemas, len(form.Fields))
	out.Extensions = map[string]any{
		ExtensionKey: formExtension{
			ID:        form.ID,
			CreatedAt: form.CreatedAt,
			Order:     form.FieldIDs(),
		},
	}

	for _, field := range form.Fields {
		if field.ID == "" {
			return nil, errors.New("openapi: field id is required")
		}
		if _, exists := out.Properties[field.ID]; exists {
			return nil, fmt.Errorf("openapi: duplicate field %q", field.ID)
		}
		property, err := exportField(field)
		if err != nil {
			return nil, err
		}
		out.Properties[field.ID] = openapi3.NewSchemaRef("", property)
		if field.Required {
			out.Required = append(out.Required, field.ID)
		}
	}
	return out, nil
}

func exportField(field schema.Field) (*openapi3.Schema, error) {
	var property *openapi3.Schema
	switch field.Type {
	case schema.KindNumber:
		property = openapi3.NewFloat64Schema()
	case schema.KindCheckbox:
		property = openapi3.NewBoolSchema()
	case schema.KindDate:
		property = openapi3.NewStringSchema().WithFormat("date")
	case schema.KindText, schema.KindTextarea:
		property = openapi3.NewStringSchema()
	case schema.KindSelect, schema.KindRadio:
		property = openapi3.NewStringSchema()
		values := make([]any, 0, len(field.Options))
		for _, opt := range field.Options {
			values = append(values, opt.Value)
		}
		if len(values) > 0 {
			property = property.WithEnum(values...)
		}
	default:
		return nil, fmt.Errorf("openapi: field %q: unknown kind %q", field.ID, field.Type)
	}

	property.Title = field.Label
	property.Default = schema.NormalizeScalar(field.DefaultValue)
	property.ReadOnly = field.IsDerived

	for _, rule := range field.Validations {
		switch rule.Type {
		case schema.RuleMinLength:
			if limit, ok := rule.Threshold(); ok {
				property.MinLength = uint64(limit)
			}
		case schema.RuleMaxLength:
			if limit, ok := rule.Threshold(); ok {
				ceiling := uint64(limit)
				property.MaxLength = &ceiling
			}
		case schema.RuleEmail:
			if property.Format == "" {
				property.Format = "email"
			}
		case schema.RulePassword:
			if property.Format == "" {
				property.Format = "password"
			}
		}
	}

	ext := fieldExtension{
		Kind:        field.Type,
		Label:       field.Label,
		Validations: field.Validations,
		Options:     field.Options,
	}
	if field.IsDerived {
		ext.Derivation = &derivationExtension{
			Parents:    append([]string{}, field.ParentFields...),
			Expression: field.DerivationLogic,
		}
	}
	property.Extensions = map[string]any{ExtensionKey: ext}
	return property, nil
}
