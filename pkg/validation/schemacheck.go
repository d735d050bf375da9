package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/derive/expr"
	"github.com/goliatone/go-formbuilder/pkg/graph"
	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// SchemaIssue represents a structural problem with optional location
// metadata. Path addresses the offending value (fields[2].parentFields[0]);
// Field names the field id when one applies.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures check outcomes for builder previews,
// imports and the check command.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// CheckOptions configures CheckSchema.
type CheckOptions struct {
	// Checker parses derivation expressions. Defaults to the built-in
	// interpreter.
	Checker derive.Checker
	// AllowDraft skips the form-level id, name and field count checks so
	// builder drafts can be checked before they are finalized.
	AllowDraft bool
}

// CheckDocument parses raw as a schema document and checks every form in it.
// Issue paths are prefixed with the form position when the document holds
// more than one form.
func CheckDocument(raw []byte, opts CheckOptions) SchemaValidationResult {
	forms, err := schema.ParseDocument(raw)
	if err != nil {
		return SchemaValidationResult{Issues: []SchemaIssue{issueFromError(err)}}
	}

	result := SchemaValidationResult{Valid: true}
	for idx, form := range forms {
		checked := CheckSchema(form, opts)
		for _, issue := range checked.Issues {
			if len(forms) > 1 {
				issue.Path = joinPath(fmt.Sprintf("[%d]", idx), issue.Path)
			}
			result.Issues = append(result.Issues, issue)
		}
	}
	result.Valid = len(result.Issues) == 0
	return result
}

// CheckSchema reports every structural problem in form: identifiers, kinds,
// rule thresholds, options, default values and derivation declarations
// (missing parts, unknown parents, cycles, unparsable expressions and
// expressions reading names outside their parents).
func CheckSchema(form schema.FormSchema, opts CheckOptions) SchemaValidationResult {
	c := &checker{opts: opts, ids: make(map[string]int, len(form.Fields))}
	if c.opts.Checker == nil {
		c.opts.Checker = expr.New()
	}

	if !opts.AllowDraft {
		if strings.TrimSpace(form.ID) == "" {
			c.add("id", "", "form id is required")
		}
		if strings.TrimSpace(form.Name) == "" {
			c.add("name", "", "form name is required")
		}
		if len(form.Fields) == 0 {
			c.add("fields", "", "form has no fields")
		}
	}

	for idx, field := range form.Fields {
		path := fmt.Sprintf("fields[%d]", idx)
		id := strings.TrimSpace(field.ID)
		switch {
		case id == "":
			c.add(path+".id", "", "field id is required")
		case c.has(id):
			c.add(path+".id", id, fmt.Sprintf("duplicate field id %q", id))
		default:
			c.ids[id] = idx
		}
	}

	for idx, field := range form.Fields {
		c.checkField(fmt.Sprintf("fields[%d]", idx), field)
	}
	c.checkCycles(form.Fields)

	return SchemaValidationResult{Valid: len(c.issues) == 0, Issues: c.issues}
}

type checker struct {
	opts   CheckOptions
	ids    map[string]int
	issues []SchemaIssue
}

func (c *checker) add(path, field, message string) {
	c.issues = append(c.issues, SchemaIssue{Path: path, Field: field, Message: message})
}

func (c *checker) has(id string) bool {
	_, ok := c.ids[id]
	return ok
}

func (c *checker) checkField(path string, field schema.Field) {
	id := field.ID
	if !field.Type.Valid() {
		c.add(path+".type", id, fmt.Sprintf("unknown field kind %q", field.Type))
	}

	var minLen, maxLen = -1, -1
	for ri, rule := range field.Validations {
		rulePath := fmt.Sprintf("%s.validations[%d]", path, ri)
		if !rule.Type.Valid() {
			c.add(rulePath+".type", id, fmt.Sprintf("unknown rule kind %q", rule.Type))
			continue
		}
		if !rule.Type.NeedsThreshold() {
			continue
		}
		limit, ok := rule.Threshold()
		if !ok {
			c.add(rulePath+".value", id, fmt.Sprintf("%s requires a non-negative whole number", rule.Type))
			continue
		}
		if rule.Type == schema.RuleMinLength {
			minLen = limit
		} else {
			maxLen = limit
		}
	}
	if minLen >= 0 && maxLen >= 0 && minLen > maxLen {
		c.add(path+".validations", id, fmt.Sprintf("minLength %d is greater than maxLength %d", minLen, maxLen))
	}

	if field.Type.HasOptions() {
		if len(field.Options) == 0 {
			c.add(path+".options", id, fmt.Sprintf("%s fields need at least one option", field.Type))
		}
		seen := make(map[string]struct{}, len(field.Options))
		for oi, opt := range field.Options {
			if _, dup := seen[opt.Value]; dup {
				c.add(fmt.Sprintf("%s.options[%d].value", path, oi), id, fmt.Sprintf("duplicate option value %q", opt.Value))
			}
			seen[opt.Value] = struct{}{}
		}
	}

	if field.DefaultValue != nil && field.Type.Valid() && !isEmpty(field.DefaultValue) {
		if message := checkKind(field, schema.NormalizeScalar(field.DefaultValue)); message != "" {
			c.add(path+".defaultValue", id, "default value: "+message)
		}
	}

	if field.IsDerived {
		c.checkDerivation(path, field)
	}
}

func (c *checker) checkDerivation(path string, field schema.Field) {
	id := field.ID
	if len(field.ParentFields) == 0 {
		c.add(path+".parentFields", id, "derived field has no parent fields")
	}
	parents := make(map[string]struct{}, len(field.ParentFields))
	for pi, parent := range field.ParentFields {
		parents[parent] = struct{}{}
		if !c.has(parent) {
			c.add(fmt.Sprintf("%s.parentFields[%d]", path, pi), id, fmt.Sprintf("unknown parent field %q", parent))
		}
	}

	if strings.TrimSpace(field.DerivationLogic) == "" {
		c.add(path+".derivationLogic", id, "derived field has no expression")
		return
	}
	ref, err := c.opts.Checker.Check(field.DerivationLogic)
	if err != nil {
		issue := issueFromError(err)
		c.add(path+".derivationLogic", id, issue.Message)
		return
	}
	for _, name := range ref.Names {
		if _, ok := parents[name]; !ok {
			c.add(path+".derivationLogic", id, fmt.Sprintf("expression reads %q which is not a parent field", name))
		}
	}
}

// checkCycles runs the dependency graph over the well-formed part of the
// schema so cycles are reported alongside the other issues.
func (c *checker) checkCycles(fields []schema.Field) {
	clean := make([]schema.Field, 0, len(fields))
	for idx, field := range fields {
		if at, ok := c.ids[field.ID]; !ok || at != idx {
			continue
		}
		known := field
		known.ParentFields = nil
		for _, parent := range field.ParentFields {
			if c.has(parent) {
				known.ParentFields = append(known.ParentFields, parent)
			}
		}
		clean = append(clean, known)
	}

	if _, err := graph.New(clean); err != nil {
		issue := issueFromError(err)
		if idx, ok := c.ids[issue.Field]; ok {
			issue.Path = fmt.Sprintf("fields[%d].parentFields", idx)
		}
		c.issues = append(c.issues, issue)
	}
}

func issueFromError(err error) SchemaIssue {
	if err == nil {
		return SchemaIssue{Message: "unknown error"}
	}

	var cycle *graph.CycleError
	if errors.As(err, &cycle) {
		message := "derivation cycle"
		if len(cycle.Path) > 0 {
			message = "derivation cycle: " + strings.Join(cycle.Path, " -> ")
		}
		return SchemaIssue{Field: cycle.FieldID, Message: message}
	}
	var unknown *graph.UnknownParentError
	if errors.As(err, &unknown) {
		return SchemaIssue{Field: unknown.FieldID, Message: fmt.Sprintf("unknown parent field %q", unknown.Parent)}
	}
	var dup *graph.DuplicateFieldError
	if errors.As(err, &dup) {
		return SchemaIssue{Field: dup.FieldID, Message: fmt.Sprintf("duplicate field id %q", dup.FieldID)}
	}

	msg := strings.TrimSpace(err.Error())
	for _, prefix := range []string{"derive/expr: ", "exprlang: ", "schema: ", "graph: "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return SchemaIssue{Message: strings.TrimSpace(msg)}
}

func joinPath(prefix, path string) string {
	if path == "" {
		return prefix
	}
	return prefix + "." + path
}
