// Package storetest holds the behaviour every store.Store implementation
// must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// Sample returns a schema exercising every persisted attribute.
func Sample(id, name string) schema.FormSchema {
	return schema.FormSchema{
		ID:        id,
		Name:      name,
		CreatedAt: "2024-05-01T10:00:00.000Z",
		Fields: []schema.Field{
			{
				ID:       "email",
				Type:     schema.KindText,
				Label:    "Email",
				Required: true,
				Validations: []schema.ValidationRule{
					{Type: schema.RuleRequired, Message: "Email is required"},
					{Type: schema.RuleEmail, Message: "Enter a valid email"},
				},
			},
			{ID: "qty", Type: schema.KindNumber, Label: "Quantity", DefaultValue: 1.0},
			{
				ID:              "total",
				Type:            schema.KindNumber,
				Label:           "Total",
				IsDerived:       true,
				ParentFields:    []string{"qty"},
				DerivationLogic: "qty * 9.5",
			},
			{
				ID:      "size",
				Type:    schema.KindRadio,
				Label:   "Size",
				Options: []schema.Option{{Label: "Small", Value: "s"}, {Label: "Large", Value: "l"}},
			},
			{
				ID:          "bio",
				Type:        schema.KindTextarea,
				Label:       "Bio",
				Validations: []schema.ValidationRule{{Type: schema.RuleMaxLength, Value: 200.0, Message: "Too long"}},
			},
			{ID: "agree", Type: schema.KindCheckbox, Label: "Agree", DefaultValue: false},
		},
	}
}

// Run exercises s. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		forms, err := newStore(t).LoadAll(ctx)
		require.NoError(t, err)
		require.Empty(t, forms)
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		want := Sample("form-1", "Signup")
		require.NoError(t, s.Save(ctx, want))

		forms, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, forms, 1)
		if diff := cmp.Diff(want, forms[0]); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("numbers fold and empty slices survive", func(t *testing.T) {
		s := newStore(t)
		form := schema.FormSchema{
			ID:        "form-ints",
			Name:      "Ints",
			CreatedAt: "2024-05-01T10:00:00.000Z",
			Fields: []schema.Field{
				{
					ID:           "qty",
					Type:         schema.KindNumber,
					Label:        "Quantity",
					DefaultValue: 3,
					Validations:  []schema.ValidationRule{{Type: schema.RuleMaxLength, Value: 5, Message: "Too long"}},
					ParentFields: []string{},
				},
				{
					ID:           "note",
					Type:         schema.KindText,
					Label:        "Note",
					Validations:  []schema.ValidationRule{},
					ParentFields: []string{},
					Options:      []schema.Option{},
				},
			},
		}
		require.NoError(t, s.Save(ctx, form))

		forms, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, forms, 1)
		if diff := cmp.Diff(schema.NormalizeValues(form), forms[0]); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, 3.0, forms[0].Fields[0].DefaultValue)
		require.Equal(t, 5.0, forms[0].Fields[0].Validations[0].Value)
		require.NotNil(t, forms[0].Fields[1].Validations)
		require.Empty(t, forms[0].Fields[1].Validations)
		require.Nil(t, forms[0].Fields[0].Options)
	})

	t.Run("overwrite keeps position", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Sample("a", "A")))
		require.NoError(t, s.Save(ctx, Sample("b", "B")))
		require.NoError(t, s.Save(ctx, Sample("a", "A2")))

		forms, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, forms, 2)
		require.Equal(t, "a", forms[0].ID)
		require.Equal(t, "A2", forms[0].Name)
		require.Equal(t, "b", forms[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Sample("a", "A")))
		require.NoError(t, s.Save(ctx, Sample("b", "B")))
		require.NoError(t, s.DeleteByID(ctx, "a"))
		require.NoError(t, s.DeleteByID(ctx, "missing"))

		forms, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, forms, 1)
		require.Equal(t, "b", forms[0].ID)

		_, err = store.Find(ctx, s, "a")
		require.ErrorIs(t, err, store.ErrNotFound)
		found, err := store.Find(ctx, s, "b")
		require.NoError(t, err)
		require.Equal(t, "B", found.Name)
	})

	t.Run("loaded copies are detached", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Sample("a", "A")))

		forms, err := s.LoadAll(ctx)
		require.NoError(t, err)
		forms[0].Fields[0].Label = "changed"

		again, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Equal(t, "Email", again[0].Fields[0].Label)
	})

	t.Run("blank id", func(t *testing.T) {
		err := newStore(t).Save(ctx, Sample(" ", "Nameless"))
		var perr *store.PersistenceError
		require.True(t, errors.As(err, &perr), "expected PersistenceError, got %v", err)
		require.Equal(t, store.OpSave, perr.Op)
		require.ErrorIs(t, err, store.ErrInvalidID)
	})
}
