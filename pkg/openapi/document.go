package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Info names the generated document.
type Info struct {
	Title   string
	Version string
}

// DefaultInfo is used when Document receives a zero Info.
var DefaultInfo = Info{Title: "formbuilder forms", Version: "1.0.0"}

var componentName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ComponentName returns the components.schemas key used for a form id.
func ComponentName(formID string) string {
	name := componentName.ReplaceAllString(strings.TrimSpace(formID), "_")
	if name == "" {
		return "form"
	}
	return name
}

// Document wraps forms into an OpenAPI document. Every form is registered
// under components.schemas and gets a submission operation
// (POST /forms/{id}/submissions) whose request body references it.
func Document(info Info, forms ...schema.FormSchema) (*openapi3.T, error) {
	if info.Title == "" {
		info.Title = DefaultInfo.Title
	}
	if info.Version == "" {
		info.Version = DefaultInfo.Version
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: info.Title, Version: info.Version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas, len(forms)),
		},
	}

	for _, form := range forms {
		exported, err := Export(form)
		if err != nil {
			return nil, err
		}
		name := ComponentName(form.ID)
		if _, exists := doc.Components.Schemas[name]; exists {
			return nil, fmt.Errorf("openapi: duplicate component %q", name)
		}
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", exported)

		op := openapi3.NewOperation()
		op.OperationID = "submit_" + name
		op.Summary = form.Name
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+name, nil)),
		}
		op.Responses = openapi3.NewResponses(
			openapi3.WithStatus(204, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Submission accepted")}),
			openapi3.WithStatus(422, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Validation failed")}),
		)
		doc.Paths.Set("/forms/"+name+"/submissions", &openapi3.PathItem{Post: op})
	}
	return doc, nil
}

// Marshal validates doc and encodes it as indented JSON.
func Marshal(ctx context.Context, doc *openapi3.T) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("openapi: document is nil")
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("openapi: encode: %w", err)
	}
	return indent(data)
}

// Parse loads an OpenAPI document (JSON or YAML) and imports every object
// schema under components.schemas, in component name order.
func Parse(ctx context.Context, raw []byte) ([]schema.FormSchema, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, errors.New("openapi: document has no component schemas")
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var forms []schema.FormSchema
	for _, name := range names {
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil || ref.Value.Type == nil || !ref.Value.Type.Is(openapi3.TypeObject) {
			continue
		}
		form, err := Import(ref.Value)
		if err != nil {
			return nil, fmt.Errorf("openapi: component %q: %w", name, err)
		}
		if form.ID == "" {
			form.ID = name
		}
		if form.Name == "" {
			form.Name = name
		}
		forms = append(forms, form)
	}
	if len(forms) == 0 {
		return nil, errors.New("openapi: document has no object schemas")
	}
	return forms, nil
}

func indent(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("openapi: indent: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
