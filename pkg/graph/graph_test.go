package graph

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

func plain(id string) schema.Field {
	return schema.Field{ID: id, Type: schema.KindNumber}
}

func derived(id string, parents ...string) schema.Field {
	return schema.Field{
		ID:              id,
		Type:            schema.KindNumber,
		IsDerived:       true,
		ParentFields:    parents,
		DerivationLogic: "0",
	}
}

func TestAffected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fields  []schema.Field
		changed string
		want    []string
	}{
		{
			name:    "single dependent",
			fields:  []schema.Field{plain("a"), derived("b", "a")},
			changed: "a",
			want:    []string{"b"},
		},
		{
			name:    "chain",
			fields:  []schema.Field{plain("a"), derived("b", "a"), derived("c", "b")},
			changed: "a",
			want:    []string{"b", "c"},
		},
		{
			name:    "chain declared out of order",
			fields:  []schema.Field{derived("c", "b"), derived("b", "a"), plain("a")},
			changed: "a",
			want:    []string{"b", "c"},
		},
		{
			name:    "diamond follows schema order",
			fields:  []schema.Field{plain("a"), derived("d", "b", "c"), derived("c", "a"), derived("b", "a")},
			changed: "a",
			want:    []string{"c", "b", "d"},
		},
		{
			name:    "only reachable fields",
			fields:  []schema.Field{plain("a"), plain("x"), derived("b", "a"), derived("y", "x")},
			changed: "x",
			want:    []string{"y"},
		},
		{
			name:    "leaf",
			fields:  []schema.Field{plain("a"), derived("b", "a")},
			changed: "b",
			want:    nil,
		},
		{
			name: "parents on plain fields are ignored",
			fields: []schema.Field{
				plain("a"),
				{ID: "b", Type: schema.KindText, ParentFields: []string{"a"}},
			},
			changed: "a",
			want:    nil,
		},
		{
			name:    "duplicate parents",
			fields:  []schema.Field{plain("a"), derived("b", "a", "a")},
			changed: "a",
			want:    []string{"b"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g, err := New(tc.fields)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			got, err := g.Affected(tc.changed)
			if err != nil {
				t.Fatalf("Affected returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Affected(%q) mismatch (-want +got):\n%s", tc.changed, diff)
			}
		})
	}
}

func TestNewDetectsCycles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		fields    []schema.Field
		wantField string
		wantPath  []string
	}{
		{
			name:      "self reference",
			fields:    []schema.Field{derived("a", "a")},
			wantField: "a",
			wantPath:  []string{"a", "a"},
		},
		{
			name:      "three field loop",
			fields:    []schema.Field{plain("x"), derived("a", "c"), derived("b", "a"), derived("c", "b", "x")},
			wantField: "a",
			wantPath:  []string{"a", "b", "c", "a"},
		},
		{
			name:      "downstream of a loop",
			fields:    []schema.Field{derived("z", "q"), derived("q", "r"), derived("r", "q")},
			wantField: "q",
			wantPath:  []string{"q", "r", "q"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tc.fields)
			var cycle *CycleError
			if !errors.As(err, &cycle) {
				t.Fatalf("expected *CycleError, got %v", err)
			}
			if cycle.FieldID != tc.wantField {
				t.Fatalf("expected cycle at %q, got %q", tc.wantField, cycle.FieldID)
			}
			if diff := cmp.Diff(tc.wantPath, cycle.Path); diff != "" {
				t.Fatalf("cycle path mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewStructuralErrors(t *testing.T) {
	t.Parallel()

	_, err := New([]schema.Field{plain("a"), plain("a")})
	var dup *DuplicateFieldError
	if !errors.As(err, &dup) || dup.FieldID != "a" {
		t.Fatalf("expected duplicate field error for a, got %v", err)
	}

	_, err = New([]schema.Field{derived("b", "missing")})
	var unknown *UnknownParentError
	if !errors.As(err, &unknown) || unknown.Parent != "missing" {
		t.Fatalf("expected unknown parent error, got %v", err)
	}
}

func TestAffectedUnknownField(t *testing.T) {
	t.Parallel()

	g, err := New([]schema.Field{plain("a")})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := g.Affected("nope"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestParentsDependentsOrder(t *testing.T) {
	t.Parallel()

	g, err := New([]schema.Field{plain("a"), plain("b"), derived("sum", "a", "b"), derived("double", "a")})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	parents, _ := g.Parents("sum")
	if diff := cmp.Diff([]string{"a", "b"}, parents); diff != "" {
		t.Fatalf("parents mismatch (-want +got):\n%s", diff)
	}
	dependents, _ := g.Dependents("a")
	if diff := cmp.Diff([]string{"sum", "double"}, dependents); diff != "" {
		t.Fatalf("dependents mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "sum", "double"}, g.Order()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

// Random acyclic graphs: every affected field appears once and after all of
// its affected parents, and repeated builds give the same answer.
func TestAffectedRandomDAGs(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 2 + rng.Intn(12)
		fields := make([]schema.Field, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("f%d", i)
			var parents []string
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					parents = append(parents, fmt.Sprintf("f%d", j))
				}
			}
			if len(parents) == 0 {
				fields[i] = plain(id)
				continue
			}
			fields[i] = derived(id, parents...)
		}
		// Shuffle declaration order; ids keep the acyclic structure.
		rng.Shuffle(len(fields), func(i, j int) { fields[i], fields[j] = fields[j], fields[i] })

		g, err := New(fields)
		if err != nil {
			t.Fatalf("round %d: New returned error: %v", round, err)
		}
		again, _ := New(fields)

		for _, field := range fields {
			got, err := g.Affected(field.ID)
			if err != nil {
				t.Fatalf("round %d: Affected returned error: %v", round, err)
			}
			repeat, _ := again.Affected(field.ID)
			if diff := cmp.Diff(got, repeat); diff != "" {
				t.Fatalf("round %d: non-deterministic order (-first +second):\n%s", round, diff)
			}

			position := make(map[string]int, len(got))
			for i, id := range got {
				if _, dup := position[id]; dup {
					t.Fatalf("round %d: %q listed twice", round, id)
				}
				if id == field.ID {
					t.Fatalf("round %d: changed field %q listed as affected", round, id)
				}
				position[id] = i
			}
			for _, id := range got {
				parents, _ := g.Parents(id)
				for _, parent := range parents {
					if at, ok := position[parent]; ok && at > position[id] {
						t.Fatalf("round %d: %q listed before its parent %q", round, id, parent)
					}
				}
			}
		}
	}
}
