// Package memory is a process-local store used by tests and the default
// configuration.
package memory

import (
	"context"
	"sync"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// Store keeps deep copies of saved schemas in insertion order.
type Store struct {
	mu    sync.RWMutex
	forms []schema.FormSchema
}

var _ store.Store = (*Store)(nil)

// New returns a store seeded with forms.
func New(forms ...schema.FormSchema) *Store {
	s := &Store{}
	for _, form := range forms {
		s.forms = append(s.forms, schema.NormalizeValues(form))
	}
	return s
}

func (s *Store) Save(ctx context.Context, form schema.FormSchema) error {
	if err := store.CheckID(form); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return store.Fail(store.OpSave, form.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = store.Upsert(s.forms, schema.NormalizeValues(form))
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]schema.FormSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Fail(store.OpLoadAll, "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.CloneAll(s.forms), nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return store.Fail(store.OpDelete, id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = store.Remove(s.forms, id)
	return nil
}
