package schema

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText strips markup from user-authored text (names, labels, rule
// messages) and returns plain text. Entities escaped by the policy are
// decoded again since renderers escape on output.
func SanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := textSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// Sanitize returns a copy of form with every user-facing text run through
// SanitizeText. Identifiers, option values and expressions are left alone.
func Sanitize(form FormSchema) FormSchema {
	out := form.Clone()
	out.Name = SanitizeText(out.Name)
	for idx := range out.Fields {
		field := &out.Fields[idx]
		field.Label = SanitizeText(field.Label)
		for r := range field.Validations {
			field.Validations[r].Message = SanitizeText(field.Validations[r].Message)
		}
		for o := range field.Options {
			field.Options[o].Label = SanitizeText(field.Options[o].Label)
		}
	}
	return out
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
