package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/render/html"
	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/session"
)

// Filler walks a user through a form in the terminal. Every answer goes
// through a session runtime so derived values and inline validation behave
// exactly as they do in any other client.
type Filler struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	maxRounds    int
	sessionOpts  []session.Option
}

// Result is the outcome of a fill session.
type Result struct {
	Submit session.SubmitResult
	Rounds int
}

// New constructs a Filler with defaults (survey driver, JSON output).
func New(options ...Option) (*Filler, error) {
	f := &Filler{
		outputFormat: OutputFormatJSON,
		maxRounds:    DefaultMaxRounds,
		theme:        Theme{ErrorPrefix: "! ", DerivedPrefix: "= "},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	if _, ok := ParseOutputFormat(string(f.outputFormat)); !ok {
		return nil, fmt.Errorf("tui: unknown output format %q", f.outputFormat)
	}
	return f, nil
}

// ContentType reports the serialization format used by Render.
func (f *Filler) ContentType() string {
	switch f.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render fills form and serializes the submitted values. The serialized
// values are returned together with the error when the form could not be
// completed.
func (f *Filler) Render(ctx context.Context, form schema.FormSchema) ([]byte, error) {
	result, err := f.Fill(ctx, form)
	if result.Submit.Snapshot.Values == nil {
		return nil, err
	}
	out, serr := f.serialize(form, result.Submit.Snapshot)
	if serr != nil {
		return nil, serr
	}
	return out, err
}

// Fill prompts every input field in order, then submits. Fields that fail
// the submit pass are prompted again, up to the configured round limit.
func (f *Filler) Fill(ctx context.Context, form schema.FormSchema) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rt := session.New(f.sessionOpts...)
	snapshot, err := rt.Load(form)
	if err != nil {
		return Result{}, err
	}

	pending := inputFields(form.Fields)
	var result Result
	for round := 1; round <= f.maxRounds; round++ {
		result.Rounds = round
		for _, field := range pending {
			snapshot, err = f.promptField(ctx, rt, form, field, snapshot)
			if err != nil {
				return result, err
			}
		}

		submitted, err := rt.Submit()
		if err != nil {
			return result, err
		}
		result.Submit = submitted
		if submitted.OK {
			return result, nil
		}

		pending = pending[:0]
		for _, failure := range submitted.Failures {
			f.info(ctx, fmt.Sprintf("%s%s: %s", f.theme.ErrorPrefix, labelFor(form, failure.FieldID), failure.Message))
			if field, ok := form.Field(failure.FieldID); ok && !field.IsDerived {
				pending = append(pending, field)
			}
		}
		if len(pending) == 0 {
			return result, ErrUnfixable
		}
		snapshot = submitted.Snapshot
	}
	return result, ErrRoundsExhausted
}

func (f *Filler) promptField(ctx context.Context, rt *session.Runtime, form schema.FormSchema, field schema.Field, snapshot session.Snapshot) (session.Snapshot, error) {
	current := snapshot.Values[field.ID]
	label := field.Label
	if label == "" {
		label = field.ID
	}
	if field.Required {
		label += " *"
	}

	var (
		value any
		err   error
	)
	switch field.Type {
	case schema.KindCheckbox:
		value, err = f.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current == true})
	case schema.KindSelect, schema.KindRadio:
		value, err = f.promptOption(ctx, field, label, current)
	case schema.KindTextarea:
		value, err = f.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: html.FormatValue(current)})
	default:
		cfg := InputConfig{Message: label, Default: html.FormatValue(current), Help: helpFor(field)}
		var raw string
		if _, secret := field.Rule(schema.RulePassword); secret {
			raw, err = f.driver.Password(ctx, cfg)
		} else {
			raw, err = f.driver.Input(ctx, cfg)
		}
		value = coerceInput(field, raw)
	}
	if err != nil {
		return snapshot, err
	}

	next, err := rt.ApplyEdit(ctx, field.ID, value)
	if err != nil {
		return snapshot, err
	}
	if msg := next.Errors[field.ID]; msg != "" {
		f.info(ctx, f.theme.ErrorPrefix+msg)
	}
	for _, id := range next.Touched {
		if id == field.ID {
			continue
		}
		name := labelFor(form, id)
		if msg := next.DerivationErrors[id]; msg != "" {
			f.info(ctx, fmt.Sprintf("%s%s: %s", f.theme.ErrorPrefix, name, msg))
			continue
		}
		text := html.FormatValue(next.Values[id])
		if text == "" {
			text = html.NotComputed
		}
		f.info(ctx, fmt.Sprintf("%s%s: %s", f.theme.DerivedPrefix, name, text))
	}
	return next, nil
}

func (f *Filler) promptOption(ctx context.Context, field schema.Field, label string, current any) (any, error) {
	if len(field.Options) == 0 {
		return "", nil
	}
	labels := make([]string, 0, len(field.Options))
	defaultIdx := 0
	for idx, opt := range field.Options {
		labels = append(labels, opt.Label)
		if opt.Value == current {
			defaultIdx = idx
		}
	}
	idx, err := f.driver.Select(ctx, SelectConfig{Message: label, Options: labels, DefaultIndex: defaultIdx})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(field.Options) {
		return "", nil
	}
	return field.Options[idx].Value, nil
}

func (f *Filler) info(ctx context.Context, msg string) {
	_ = f.driver.Info(ctx, f.theme.InfoPrefix+msg)
}

func inputFields(fields []schema.Field) []schema.Field {
	out := make([]schema.Field, 0, len(fields))
	for _, field := range fields {
		if !field.IsDerived {
			out = append(out, field)
		}
	}
	return out
}

// coerceInput turns typed text into a value: blanks become unset for number
// fields and numeric text becomes a number. Anything else is passed through
// so validation can report it.
func coerceInput(field schema.Field, raw string) any {
	if field.Type != schema.KindNumber {
		return raw
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return raw
}

func helpFor(field schema.Field) string {
	switch field.Type {
	case schema.KindDate:
		return "YYYY-MM-DD"
	case schema.KindNumber:
		return "A number"
	default:
		return ""
	}
}

func labelFor(form schema.FormSchema, id string) string {
	if field, ok := form.Field(id); ok && field.Label != "" {
		return field.Label
	}
	return id
}
