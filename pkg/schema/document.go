package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document wraps a raw schema payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, fmt.Errorf("schema: document %s is empty", src.Location())
	}
	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone}, nil
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a defensive copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Forms decodes the payload. A document holds either one schema object or a
// list of them, encoded as JSON or YAML.
func (d Document) Forms() ([]FormSchema, error) {
	forms, err := ParseDocument(d.raw)
	if err != nil {
		return nil, fmt.Errorf("%w (source %s)", err, d.Location())
	}
	return forms, nil
}

// ParseDocument decodes JSON first and falls back to YAML. Every decoded
// schema is passed through Normalize.
func ParseDocument(data []byte) ([]FormSchema, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("schema: document is empty")
	}

	var (
		forms []FormSchema
		err   error
	)
	switch trimmed[0] {
	case '[':
		err = json.Unmarshal(trimmed, &forms)
	case '{':
		var single FormSchema
		if err = json.Unmarshal(trimmed, &single); err == nil {
			forms = []FormSchema{single}
		}
	default:
		err = errors.New("not json")
	}
	if err != nil {
		forms, err = parseYAML(trimmed)
		if err != nil {
			return nil, fmt.Errorf("schema: parse document: invalid JSON or YAML: %w", err)
		}
	}

	out := make([]FormSchema, 0, len(forms))
	for _, form := range forms {
		out = append(out, Normalize(form))
	}
	return out, nil
}

func parseYAML(data []byte) ([]FormSchema, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, errors.New("empty yaml document")
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var forms []FormSchema
		if err := root.Decode(&forms); err != nil {
			return nil, err
		}
		return forms, nil
	case yaml.MappingNode:
		var form FormSchema
		if err := root.Decode(&form); err != nil {
			return nil, err
		}
		return []FormSchema{form}, nil
	default:
		return nil, fmt.Errorf("unexpected yaml node kind %d", root.Kind)
	}
}

// LoadFile reads and decodes a schema document from disk.
func LoadFile(path string) ([]FormSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Decode(SourceFromFile(path), raw)
}

// LoadFS reads and decodes a schema document from fsys.
func LoadFS(fsys fs.FS, name string) ([]FormSchema, error) {
	if fsys == nil {
		return nil, errors.New("schema: filesystem is nil")
	}
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", name, err)
	}
	return Decode(SourceFromFS(name), raw)
}

// Decode wraps raw in a Document from src and decodes its forms. Errors name
// the source.
func Decode(src Source, raw []byte) ([]FormSchema, error) {
	doc, err := NewDocument(src, raw)
	if err != nil {
		return nil, err
	}
	return doc.Forms()
}

// EncodeJSON renders one schema as an object and several as an array.
func EncodeJSON(forms ...FormSchema) ([]byte, error) {
	var payload any = forms
	if len(forms) == 1 {
		payload = forms[0]
	}
	return json.MarshalIndent(payload, "", "  ")
}

// EncodeYAML renders one schema as a mapping and several as a sequence.
func EncodeYAML(forms ...FormSchema) ([]byte, error) {
	var payload any = forms
	if len(forms) == 1 {
		payload = forms[0]
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("schema: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("schema: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// IsYAMLPath reports whether the file extension selects YAML output.
func IsYAMLPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
