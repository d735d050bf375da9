package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func TestDefaultRegistryFormats(t *testing.T) {
	t.Parallel()

	reg, err := DefaultRegistry(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if diff := cmp.Diff([]string{"html", "json", "openapi", "yaml"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	forms := []schema.FormSchema{testsupport.OrderSchema()}

	for _, name := range []string{FormatJSON, FormatYAML} {
		renderer, err := reg.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		out, err := renderer.Render(ctx, forms, RenderOptions{})
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		parsed, err := schema.ParseDocument(out)
		if err != nil {
			t.Fatalf("parse %s output: %v", name, err)
		}
		if diff := cmp.Diff(forms, parsed); diff != "" {
			t.Fatalf("%s round trip mismatch (-want +got):\n%s", name, diff)
		}
	}

	oa, _ := reg.Get(FormatOpenAPI)
	out, err := oa.Render(ctx, forms, RenderOptions{Info: openapi.Info{Title: "Orders"}})
	if err != nil {
		t.Fatalf("render openapi: %v", err)
	}
	if !strings.Contains(string(out), `"title": "Orders"`) || !strings.Contains(string(out), `"version": "1.0.0"`) {
		t.Fatalf("openapi info not applied:\n%s", out)
	}
	parsed, err := openapi.Parse(ctx, out)
	if err != nil {
		t.Fatalf("parse openapi: %v", err)
	}
	if diff := cmp.Diff(forms, parsed); diff != "" {
		t.Fatalf("openapi round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLFormatUsesSnapshot(t *testing.T) {
	t.Parallel()

	reg, err := DefaultRegistry(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	page, _ := reg.Get(FormatHTML)
	if page.ContentType() != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", page.ContentType())
	}

	snap := &session.Snapshot{
		Values: map[string]any{"quantity": float64(2), "price": float64(10), "total": float64(20)},
		Errors: map[string]string{},
	}
	out, err := page.Render(context.Background(), []schema.FormSchema{testsupport.OrderSchema()}, RenderOptions{Snapshot: snap})
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if !strings.Contains(string(out), "Derived value: 20") {
		t.Fatalf("snapshot values not rendered:\n%s", out)
	}

	two := []schema.FormSchema{testsupport.OrderSchema(), testsupport.OrderSchema()}
	if _, err := page.Render(context.Background(), two, RenderOptions{}); err == nil {
		t.Fatalf("expected error rendering two forms as html")
	}
}

func TestRegistryErrors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(nil); err == nil {
		t.Fatalf("expected error for nil renderer")
	}
	reg.MustRegister(jsonRenderer{})
	if err := reg.Register(jsonRenderer{}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if _, err := reg.Get("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := (jsonRenderer{}).Render(context.Background(), nil, RenderOptions{}); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
