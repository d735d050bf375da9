package tui

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/render/html"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
)

func (f *Filler) serialize(form schema.FormSchema, snapshot session.Snapshot) ([]byte, error) {
	switch f.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(form, snapshot.Values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(form, snapshot)), nil
	default:
		return jsonBytes(snapshot.Values)
	}
}

func flattenForm(form schema.FormSchema, values map[string]any) string {
	flattened := url.Values{}
	for _, field := range form.Fields {
		flattened.Set(field.ID, html.FormatValue(values[field.ID]))
	}
	return flattened.Encode()
}

func prettyPrint(form schema.FormSchema, snapshot session.Snapshot) string {
	var b strings.Builder
	for _, field := range form.Fields {
		label := field.Label
		if label == "" {
			label = field.ID
		}
		text := html.FormatValue(snapshot.Values[field.ID])
		if field.IsDerived && text == "" {
			text = html.NotComputed
		}
		fmt.Fprintf(&b, "%s: %s\n", label, text)
		if msg := snapshot.Errors[field.ID]; msg != "" {
			fmt.Fprintf(&b, "  error: %s\n", msg)
		}
		if msg := snapshot.DerivationErrors[field.ID]; msg != "" {
			fmt.Fprintf(&b, "  derivation error: %s\n", msg)
		}
	}
	return b.String()
}

func jsonBytes(values map[string]any) ([]byte, error) {
	out, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tui: encode values: %w", err)
	}
	return append(out, '\n'), nil
}
