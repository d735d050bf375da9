package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/render/html"
	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Format names registered by DefaultRegistry.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatOpenAPI = "openapi"
	FormatHTML    = "html"
)

var errNoForms = errors.New("render: no forms to render")

// DefaultRegistry returns a registry holding every built-in format. page
// renders the html format; nil uses html.New with no options.
func DefaultRegistry(page *html.Renderer) (*Registry, error) {
	if page == nil {
		var err error
		if page, err = html.New(); err != nil {
			return nil, err
		}
	}
	r := NewRegistry()
	r.MustRegister(jsonRenderer{})
	r.MustRegister(yamlRenderer{})
	r.MustRegister(openapiRenderer{})
	r.MustRegister(htmlRenderer{page: page})
	return r, nil
}

type jsonRenderer struct{}

func (jsonRenderer) Name() string        { return FormatJSON }
func (jsonRenderer) ContentType() string { return "application/json" }

func (jsonRenderer) Render(_ context.Context, forms []schema.FormSchema, _ RenderOptions) ([]byte, error) {
	if len(forms) == 0 {
		return nil, errNoForms
	}
	out, err := schema.EncodeJSON(forms...)
	if err != nil {
		return nil, fmt.Errorf("render: json: %w", err)
	}
	return append(out, '\n'), nil
}

type yamlRenderer struct{}

func (yamlRenderer) Name() string        { return FormatYAML }
func (yamlRenderer) ContentType() string { return "application/yaml" }

func (yamlRenderer) Render(_ context.Context, forms []schema.FormSchema, _ RenderOptions) ([]byte, error) {
	if len(forms) == 0 {
		return nil, errNoForms
	}
	return schema.EncodeYAML(forms...)
}

type openapiRenderer struct{}

func (openapiRenderer) Name() string        { return FormatOpenAPI }
func (openapiRenderer) ContentType() string { return "application/json" }

func (openapiRenderer) Render(ctx context.Context, forms []schema.FormSchema, options RenderOptions) ([]byte, error) {
	if len(forms) == 0 {
		return nil, errNoForms
	}
	doc, err := openapi.Document(options.Info, forms...)
	if err != nil {
		return nil, err
	}
	return openapi.Marshal(ctx, doc)
}

type htmlRenderer struct {
	page *html.Renderer
}

func (htmlRenderer) Name() string        { return FormatHTML }
func (htmlRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (h htmlRenderer) Render(_ context.Context, forms []schema.FormSchema, options RenderOptions) ([]byte, error) {
	if len(forms) != 1 {
		return nil, fmt.Errorf("render: html renders one form, got %d", len(forms))
	}
	return h.page.Render(forms[0], options.Snapshot)
}
