// Package store defines the persistence collaborator for finished form
// schemas. Implementations treat schemas as an ordered collection keyed by
// id with last-write-wins semantics: saving an existing id replaces it in
// place, saving a new id appends it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// Store persists form schemas.
type Store interface {
	Save(ctx context.Context, form schema.FormSchema) error
	LoadAll(ctx context.Context) ([]schema.FormSchema, error)
	DeleteByID(ctx context.Context, id string) error
}

// Operation names reported by PersistenceError.
const (
	OpSave    = "save"
	OpLoadAll = "load"
	OpDelete  = "delete"
)

var (
	// ErrNotFound is returned by Find when no schema has the id.
	ErrNotFound = errors.New("store: schema not found")
	// ErrInvalidID is returned when a schema without an id is saved.
	ErrInvalidID = errors.New("store: schema id is required")
)

// PersistenceError reports a failed store operation. The in-memory editing
// state of callers is never affected by it.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Fail wraps err as a PersistenceError unless it already is one.
func Fail(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, ID: id, Err: err}
}

// CheckID validates the id of a schema about to be saved.
func CheckID(form schema.FormSchema) error {
	if strings.TrimSpace(form.ID) == "" {
		return &PersistenceError{Op: OpSave, Err: ErrInvalidID}
	}
	return nil
}

// Upsert replaces the schema with the same id in forms or appends form.
func Upsert(forms []schema.FormSchema, form schema.FormSchema) []schema.FormSchema {
	for idx := range forms {
		if forms[idx].ID == form.ID {
			forms[idx] = form
			return forms
		}
	}
	return append(forms, form)
}

// Remove drops the schema with id from forms. Missing ids are ignored.
func Remove(forms []schema.FormSchema, id string) []schema.FormSchema {
	out := forms[:0]
	for _, form := range forms {
		if form.ID != id {
			out = append(out, form)
		}
	}
	return out
}

// Find loads every schema and returns the one with id.
func Find(ctx context.Context, s Store, id string) (schema.FormSchema, error) {
	forms, err := s.LoadAll(ctx)
	if err != nil {
		return schema.FormSchema{}, err
	}
	for _, form := range forms {
		if form.ID == id {
			return form, nil
		}
	}
	return schema.FormSchema{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}
