// Package render turns stored form schemas into exportable documents. Each
// output format is a Renderer registered by name; DefaultRegistry wires the
// JSON, YAML, OpenAPI and HTML formats.
package render

import (
	"context"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Renderer converts one or more schemas into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, forms []schema.FormSchema, options RenderOptions) ([]byte, error)
}
