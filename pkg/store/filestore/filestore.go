// Package filestore persists schemas as a JSON array in a single file. A
// sibling ".lock" file serializes writers across processes and every write
// replaces the file atomically.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/goliatone/go-formbuilder/pkg/schema"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

const (
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long operations wait for the file lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// Store reads and writes a JSON array of schemas at path.
type Store struct {
	path        string
	lockTimeout time.Duration
}

var _ store.Store = (*Store)(nil)

// New returns a store backed by path. The file is created on first save.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Save(ctx context.Context, form schema.FormSchema) error {
	if err := store.CheckID(form); err != nil {
		return err
	}
	return s.update(ctx, store.OpSave, form.ID, func(forms []schema.FormSchema) []schema.FormSchema {
		return store.Upsert(forms, schema.NormalizeValues(form))
	})
}

func (s *Store) LoadAll(ctx context.Context) ([]schema.FormSchema, error) {
	lock, err := s.lock(ctx)
	if err != nil {
		return nil, store.Fail(store.OpLoadAll, "", err)
	}
	defer lock.Unlock()

	forms, err := s.read()
	if err != nil {
		return nil, store.Fail(store.OpLoadAll, "", err)
	}
	return forms, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	return s.update(ctx, store.OpDelete, id, func(forms []schema.FormSchema) []schema.FormSchema {
		return store.Remove(forms, id)
	})
}

func (s *Store) update(ctx context.Context, op, id string, mutate func([]schema.FormSchema) []schema.FormSchema) error {
	lock, err := s.lock(ctx)
	if err != nil {
		return store.Fail(op, id, err)
	}
	defer lock.Unlock()

	forms, err := s.read()
	if err != nil {
		return store.Fail(op, id, err)
	}
	if err := s.write(mutate(forms)); err != nil {
		return store.Fail(op, id, err)
	}
	return nil
}

func (s *Store) lock(ctx context.Context) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, errors.New("timeout waiting for store lock")
	}
	return lock, nil
}

func (s *Store) read() ([]schema.FormSchema, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var forms []schema.FormSchema
	if err := json.Unmarshal(data, &forms); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return forms, nil
}

func (s *Store) write(forms []schema.FormSchema) error {
	if forms == nil {
		forms = []schema.FormSchema{}
	}
	data, err := json.MarshalIndent(forms, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schemas: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
