// Package html renders a form schema, optionally filled from a session
// snapshot, as a static HTML preview. Templates run on pongo2 and may be
// overridden through WithTemplates; theme tokens come from go-theme.
package html

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
)

//go:embed templates/*.tpl
var defaultTemplates embed.FS

const (
	pageTemplate = "form.tpl"

	// NotComputed is shown for derived fields without a value.
	NotComputed = "Not computed"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplates replaces the embedded templates. The filesystem must provide
// form.tpl and field.tpl.
func WithTemplates(files fs.FS) Option {
	return func(r *Renderer) {
		if files != nil {
			r.templates = files
		}
	}
}

// WithTheme applies theme CSS variables and data attributes to the page.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(r *Renderer) {
		r.theme = cfg
	}
}

// WithAction sets the form action attribute.
func WithAction(action string) Option {
	return func(r *Renderer) {
		r.action = strings.TrimSpace(action)
	}
}

// Renderer turns schemas into HTML pages.
type Renderer struct {
	templates fs.FS
	theme     *theme.RendererConfig
	action    string

	set  *pongo2.TemplateSet
	mu   sync.Mutex
	page *pongo2.Template
}

// New constructs a Renderer.
func New(opts ...Option) (*Renderer, error) {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("html: embedded templates: %w", err)
	}
	r := &Renderer{templates: sub}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.set = pongo2.NewSet("formbuilder-html", pongo2.NewFSLoader(r.templates))
	return r, nil
}

// Render returns the HTML page for form. snapshot may be nil, in which case
// each field shows its initial value.
func (r *Renderer) Render(form schema.FormSchema, snapshot *session.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, form, snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTo writes the HTML page for form to w.
func (r *Renderer) RenderTo(w io.Writer, form schema.FormSchema, snapshot *session.Snapshot) error {
	if r == nil || r.set == nil {
		return errors.New("html: renderer is nil")
	}
	tmpl, err := r.template()
	if err != nil {
		return err
	}
	ctx := pongo2.Context{
		"form":   map[string]any{"id": form.ID, "name": form.Name},
		"fields": fieldViews(form, snapshot),
		"theme":  themeView(r.theme),
		"action": r.action,
	}
	if err := tmpl.ExecuteWriter(ctx, w); err != nil {
		return fmt.Errorf("html: execute template: %w", err)
	}
	return nil
}

func (r *Renderer) template() (*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.page != nil {
		return r.page, nil
	}
	tmpl, err := r.set.FromFile(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("html: load template %q: %w", pageTemplate, err)
	}
	r.page = tmpl
	return tmpl, nil
}

func fieldViews(form schema.FormSchema, snapshot *session.Snapshot) []map[string]any {
	out := make([]map[string]any, 0, len(form.Fields))
	for _, field := range form.Fields {
		value := field.InitialValue()
		var failure, derivationErr string
		if snapshot != nil {
			value = snapshot.Values[field.ID]
			failure = snapshot.Errors[field.ID]
			derivationErr = snapshot.DerivationErrors[field.ID]
		}
		text := FormatValue(value)

		view := map[string]any{
			"id":               field.ID,
			"label":            field.Label,
			"kind":             string(field.Type),
			"input_type":       inputType(field),
			"required":         field.Required,
			"derived":          field.IsDerived,
			"value":            text,
			"checked":          value == true,
			"error":            failure,
			"derivation_error": derivationErr,
		}
		if field.IsDerived {
			if text == "" {
				view["derived_text"] = NotComputed
			} else {
				view["derived_text"] = text
			}
		}
		if len(field.Options) > 0 {
			options := make([]map[string]any, 0, len(field.Options))
			for _, opt := range field.Options {
				options = append(options, map[string]any{
					"label":    opt.Label,
					"value":    opt.Value,
					"selected": opt.Value == text,
				})
			}
			view["options"] = options
		}
		out = append(out, view)
	}
	return out
}

func inputType(field schema.Field) string {
	switch field.Type {
	case schema.KindNumber:
		return "number"
	case schema.KindDate:
		return "date"
	default:
		if _, ok := field.Rule(schema.RuleEmail); ok {
			return "email"
		}
		if _, ok := field.Rule(schema.RulePassword); ok {
			return "password"
		}
		return "text"
	}
}

// FormatValue renders a field value as display text: numbers without
// trailing zeros, booleans as true/false and unset values as "".
func FormatValue(value any) string {
	switch v := schema.NormalizeScalar(value).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func themeView(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":           cfg.Theme,
		"variant":        cfg.Variant,
		"css_vars_style": cssVarsStyle(cfg.CSSVars),
	}
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}
