package openapi

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// ExtensionKey is the vendor extension carrying builder metadata on both the
// form object and each property.
const ExtensionKey = "x-formbuilder"

type formExtension struct {
	ID        string   `json:"id"`
	CreatedAt string   `json:"createdAt,omitempty"`
	Order     []string `json:"order"`
}

type fieldExtension struct {
	Kind        schema.FieldKind        `json:"kind"`
	Label       string                  `json:"label,omitempty"`
	Validations []schema.ValidationRule `json:"validations,omitempty"`
	Options     []schema.Option         `json:"options,omitempty"`
	Derivation  *derivationExtension    `json:"derivation,omitempty"`
}

type derivationExtension struct {
	Parents    []string `json:"parents"`
	Expression string   `json:"expression"`
}

// decodeExtension reads an extension value into target. Values may be typed
// structs (schemas built in memory), decoded maps or raw JSON (schemas loaded
// from a document), so everything goes through a JSON round trip.
func decodeExtension(extensions map[string]any, target any) (bool, error) {
	raw, ok := extensions[ExtensionKey]
	if !ok || raw == nil {
		return false, nil
	}
	var data []byte
	switch v := raw.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("openapi: encode %s: %w", ExtensionKey, err)
		}
		data = encoded
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("openapi: decode %s: %w", ExtensionKey, err)
	}
	return true, nil
}
