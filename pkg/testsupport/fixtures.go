package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// OrderSchema returns the quantity/price/total fixture used across package
// tests: total is derived from quantity and price, and quantity is required.
func OrderSchema() schema.FormSchema {
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
				Type:  schema.KindSelect,
				Label: "Size",
				Options: []schema.Option{
					{Label: "Small", Value: "s"},
					{Label: "Large", Value: "l"},
				},
			},
			{ID: "gift", Type: schema.KindCheckbox, Label: "Gift wrap"},
		},
	}
}

// LoadSchema reads a single-form fixture (JSON or YAML).
func LoadSchema(t *testing.T, path string) schema.FormSchema {
	t.Helper()

	forms := LoadSchemas(t, path)
	if len(forms) != 1 {
		t.Fatalf("load schema: expected 1 form in %s, got %d", path, len(forms))
	}
	return forms[0]
}

// LoadSchemas reads every form in a fixture document.
func LoadSchemas(t *testing.T, path string) []schema.FormSchema {
	t.Helper()

	forms, err := LoadSchemasFromPath(path)
	if err != nil {
		t.Fatalf("load schemas: %v", err)
	}
	return forms
}

// LoadSchemasFromPath returns the forms in a fixture without requiring
// testing.T, for setup code outside tests.
func LoadSchemasFromPath(path string) ([]schema.FormSchema, error) {
	if path == "" {
		return nil, errors.New("testsupport: schema path is required")
	}
	forms, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: load schema: %w", err)
	}
	return forms, nil
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	WriteMaybeGolden(t, path, payload)
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureOutput runs render against a buffer and returns what was written.
func CaptureOutput(t *testing.T, render func(io.Writer) error) string {
	t.Helper()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}
