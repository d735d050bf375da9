package tui

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func TestFillOrderForm(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		inputs:    []string{"3", "12"},
		selectIdx: []int{1},
		confirm:   []bool{true},
	}
	f, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := f.Render(context.Background(), testsupport.OrderSchema())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := map[string]any{
		"quantity": float64(3),
		"price":    float64(12),
		"total":    float64(36),
		"size":     "l",
		"gift":     true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"Quantity *", "Price", "Size", "Gift wrap"}, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"= Total: 30", "= Total: 36"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	if f.ContentType() != "application/json" {
		t.Fatalf("unexpected content type %q", f.ContentType())
	}
}

func TestFillRepromptsInvalidFields(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		inputs:    []string{"", "10", "2"},
		selectIdx: []int{0},
		confirm:   []bool{false},
	}
	f, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result, err := f.Fill(context.Background(), testsupport.OrderSchema())
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if result.Rounds != 2 || !result.Submit.OK {
		t.Fatalf("expected success in round 2, got rounds=%d ok=%v", result.Rounds, result.Submit.OK)
	}
	if got := result.Submit.Snapshot.Values["total"]; got != float64(20) {
		t.Fatalf("expected total 20, got %v", got)
	}
	if !slices.Contains(driver.infoMessages, "! Quantity: Quantity is required") {
		t.Fatalf("expected submit failure message, got %v", driver.infoMessages)
	}
	if driver.prompts[len(driver.prompts)-1] != "Quantity *" {
		t.Fatalf("expected only quantity re-prompted, got %v", driver.prompts)
	}
}

func TestFillRoundsExhausted(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		inputs:    []string{"", "10", ""},
		selectIdx: []int{0},
		confirm:   []bool{false},
	}
	f, err := New(WithPromptDriver(driver), WithMaxRounds(2), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := f.Render(context.Background(), testsupport.OrderSchema())
	if !errors.Is(err, ErrRoundsExhausted) {
		t.Fatalf("expected ErrRoundsExhausted, got %v", err)
	}
	text := string(out)
	for _, want := range []string{"Quantity: \n  error: Quantity is required\n", "Total: Not computed\n", "Size: s\n"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in pretty output:\n%s", want, text)
		}
	}
}

func TestFillKindPrompts(t *testing.T) {
	t.Parallel()

	form := schema.FormSchema{
		ID:   "form-account",
		Name: "Account",
		Fields: []schema.Field{
			{ID: "secret", Type: schema.KindText, Label: "Secret", Validations: []schema.ValidationRule{
				{Type: schema.RulePassword, Message: "Weak password"},
			}},
			{ID: "bio", Type: schema.KindTextarea, Label: "Bio"},
			{ID: "born", Type: schema.KindDate, Label: "Born"},
		},
	}
	driver := &stubDriver{
		passwords: []string{"hunter22"},
		textAreas: []string{"line one\nline two"},
		inputs:    []string{"1990-02-03"},
	}
	f, err := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatFormURLEncoded))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := f.Render(context.Background(), form)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "bio=line+one%0Aline+two&born=1990-02-03&secret=hunter22"
	if string(out) != want {
		t.Fatalf("unexpected output %q, want %q", out, want)
	}
}

func TestFillAbortStopsSession(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{}
	f, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := f.Fill(context.Background(), testsupport.OrderSchema()); err == nil {
		t.Fatalf("expected driver error to stop the session")
	}

	if _, err := New(WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
