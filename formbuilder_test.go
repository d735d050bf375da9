package formbuilder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
)

func TestEnginesAgreeOnOrderForm(t *testing.T) {
	t.Parallel()

	for _, name := range []string{EngineBuiltin, EngineExpr} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			eval, err := NewEvaluator(name, derive.DefaultLimits())
			if err != nil {
				t.Fatalf("evaluator: %v", err)
			}
			form := testsupport.OrderSchema()
			if result := CheckSchema(form, eval); !result.Valid {
				t.Fatalf("unexpected issues: %+v", result.Issues)
			}

			rt := NewRuntime(session.WithEvaluator(eval))
			if _, err := rt.Load(form); err != nil {
				t.Fatalf("load: %v", err)
			}
			snap, err := rt.ApplyEdit(context.Background(), "quantity", 4)
			if err != nil {
				t.Fatalf("edit: %v", err)
			}
			if got := snap.Values["total"]; got != float64(40) {
				t.Fatalf("expected total 40, got %v", got)
			}
		})
	}

	if _, err := NewEvaluator("lua", derive.Limits{}); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := map[string]string{
		StoreMemory: "",
		StoreFile:   filepath.Join(dir, "forms.json"),
		StoreSQLite: filepath.Join(dir, "forms.db"),
	}
	for driver, path := range cases {
		s, closeFn, err := OpenStore(driver, path)
		if err != nil {
			t.Fatalf("%s: open: %v", driver, err)
		}
		ctx := context.Background()
		form := testsupport.OrderSchema()
		if err := s.Save(ctx, form); err != nil {
			t.Fatalf("%s: save: %v", driver, err)
		}
		forms, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("%s: load: %v", driver, err)
		}
		if diff := cmp.Diff(form, forms[0]); len(forms) != 1 || diff != "" {
			t.Fatalf("%s: round trip mismatch (-want +got):\n%s", driver, diff)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("%s: close: %v", driver, err)
		}
	}

	if _, _, err := OpenStore(StoreFile, ""); err == nil {
		t.Fatalf("expected missing path error")
	}
	if _, _, err := OpenStore("redis", "x"); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestParseSchemaAndBuilder(t *testing.T) {
	t.Parallel()

	forms, err := ParseSchema([]byte(`{"id":"f","name":"F","createdAt":"2024-01-01T00:00:00.000Z","fields":[{"id":"a","type":"text","label":"A"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	draft := NewBuilder()
	draft.Edit(forms[0])
	if len(draft.Fields()) != 1 || draft.Name() != "F" {
		t.Fatalf("unexpected draft state")
	}
}
