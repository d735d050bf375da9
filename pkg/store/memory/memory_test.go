package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestSaveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Save(ctx, storetest.Sample("a", "A"))
	var perr *store.PersistenceError
	if !errors.As(err, &perr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected persistence error wrapping context.Canceled, got %v", err)
	}
}
