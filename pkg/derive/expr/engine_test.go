package expr

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/derive"
)

func TestEngineEvaluate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		expr     string
		bindings derive.Bindings
		want     any
	}{
		{name: "multiply", expr: "a * 2", bindings: derive.Bindings{"a": 3}, want: 6.0},
		{name: "float binding", expr: "a + 1", bindings: derive.Bindings{"a": 2.5}, want: 3.5},
		{name: "numeric string", expr: "a - 1", bindings: derive.Bindings{"a": "5"}, want: 4.0},
		{name: "concatenation", expr: "a + b", bindings: derive.Bindings{"a": "x", "b": 1}, want: "x1"},
		{name: "quoted name", expr: "`field-1` + 1", bindings: derive.Bindings{"field-1": 1}, want: 2.0},
		{name: "precedence", expr: "1 + 2 * 3", want: 7.0},
		{name: "grouping", expr: "(1 + 2) * 3", want: 9.0},
		{name: "modulo", expr: "10 % 4", want: 2.0},
		{name: "unary minus", expr: "-a + 10", bindings: derive.Bindings{"a": 4}, want: 6.0},
		{name: "not", expr: "!a", bindings: derive.Bindings{"a": 0}, want: true},
		{name: "conditional", expr: "a > 2 ? 'big' : 'small'", bindings: derive.Bindings{"a": 3}, want: "big"},
		{name: "and returns operand", expr: "a && b", bindings: derive.Bindings{"a": true, "b": ""}, want: ""},
		{name: "or fallback", expr: "a || 'fallback'", bindings: derive.Bindings{"a": ""}, want: "fallback"},
		{name: "strict equality", expr: "a == '3'", bindings: derive.Bindings{"a": 3}, want: false},
		{name: "triple equals", expr: "a === 3", bindings: derive.Bindings{"a": 3}, want: true},
		{name: "null equality", expr: "null == a", bindings: derive.Bindings{"a": nil}, want: true},
		{name: "comparison then equality", expr: "1 < 2 == true", want: true},
		{name: "string comparison", expr: "a < b", bindings: derive.Bindings{"a": "apple", "b": "banana"}, want: true},
		{name: "escaped quote", expr: `'it\'s'`, want: "it's"},
		{name: "round", expr: "round(a / 3, 2)", bindings: derive.Bindings{"a": 10}, want: 3.33},
		{name: "len counts runes", expr: "len(name)", bindings: derive.Bindings{"name": "héllo"}, want: 5.0},
		{name: "nested calls", expr: "upper(trim(name))", bindings: derive.Bindings{"name": " ab "}, want: "AB"},
		{name: "min", expr: "min(a, 2, 7)", bindings: derive.Bindings{"a": 5}, want: 2.0},
		{name: "days between", expr: "daysBetween(start, end)", bindings: derive.Bindings{"start": "2024-01-01", "end": "2024-03-01"}, want: 60.0},
		{name: "concat", expr: "concat(first, ' ', last)", bindings: derive.Bindings{"first": "Ada", "last": "Lovelace"}, want: "Ada Lovelace"},
	}

	engine := New()
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := engine.Evaluate(context.Background(), "out", tc.expr, tc.bindings)
			if err != nil {
				t.Fatalf("Evaluate(%q) returned error: %v", tc.expr, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Evaluate(%q) mismatch (-want +got):\n%s", tc.expr, diff)
			}
		})
	}
}

func TestEngineEvaluateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		expr     string
		bindings derive.Bindings
		opts     []Option
		want     error
	}{
		{name: "non numeric operand", expr: "a * 2", bindings: derive.Bindings{"a": "oops"}, want: derive.ErrType},
		{name: "null operand", expr: "a * 2", bindings: derive.Bindings{"a": nil}, want: derive.ErrType},
		{name: "division by zero", expr: "1 / 0", want: derive.ErrType},
		{name: "unsupported binding", expr: "a + 1", bindings: derive.Bindings{"a": []int{1}}, want: derive.ErrType},
		{name: "dangling operator", expr: "a *", bindings: derive.Bindings{"a": 1}, want: derive.ErrSyntax},
		{name: "assignment", expr: "a = 1", want: derive.ErrSyntax},
		{name: "unterminated string", expr: "'abc", want: derive.ErrSyntax},
		{name: "unknown function", expr: "exec('rm')", want: derive.ErrSyntax},
		{name: "wrong arity", expr: "len()", want: derive.ErrSyntax},
		{name: "unknown name", expr: "b + 1", bindings: derive.Bindings{"a": 1}, want: derive.ErrUnknownName},
		{name: "empty", expr: "   ", want: derive.ErrEmptyExpression},
		{
			name: "nesting",
			expr: strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100),
			want: derive.ErrBudgetExceeded,
		},
		{
			name: "steps",
			expr: "1 + 1 + 1 + 1 + 1 + 1",
			opts: []Option{WithLimits(derive.Limits{MaxSteps: 5})},
			want: derive.ErrBudgetExceeded,
		},
		{
			name: "length",
			expr: "1 + 1 + 1 + 1 + 1",
			opts: []Option{WithLimits(derive.Limits{MaxLength: 8})},
			want: derive.ErrBudgetExceeded,
		},
		{
			name: "string size",
			expr: "'abc' + 'def'",
			opts: []Option{WithLimits(derive.Limits{MaxStringLength: 4})},
			want: derive.ErrBudgetExceeded,
		},
		{
			name:     "concat size",
			expr:     "concat(a, a)",
			bindings: derive.Bindings{"a": "abc"},
			opts:     []Option{WithLimits(derive.Limits{MaxStringLength: 4})},
			want:     derive.ErrBudgetExceeded,
		},
		{
			name:     "upper input size",
			expr:     "upper(a)",
			bindings: derive.Bindings{"a": "abcdef"},
			opts:     []Option{WithLimits(derive.Limits{MaxStringLength: 4})},
			want:     derive.ErrBudgetExceeded,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tc.opts...).Evaluate(context.Background(), "b", tc.expr, tc.bindings)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Evaluate(%q) error = %v, want %v", tc.expr, err, tc.want)
			}
			var derr *derive.DerivationError
			if !errors.As(err, &derr) {
				t.Fatalf("expected *derive.DerivationError, got %T", err)
			}
			if derr.FieldID != "b" {
				t.Fatalf("expected field id b, got %q", derr.FieldID)
			}
		})
	}
}

func TestEngineConcatLargeBindingStopsEarly(t *testing.T) {
	big := strings.Repeat("x", 1<<20)
	args := strings.TrimSuffix(strings.Repeat("x, ", 400), ", ")
	text := "concat(" + args + ")"
	engine := New()

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	start := time.Now()

	_, err := engine.Evaluate(context.Background(), "out", text, derive.Bindings{"x": big})

	elapsed := time.Since(start)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, derive.ErrBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if elapsed > engine.Limits().Timeout {
		t.Fatalf("concat ran for %s, longer than the %s budget", elapsed, engine.Limits().Timeout)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 4<<20 {
		t.Fatalf("concat allocated %d bytes before failing", allocated)
	}
}

func TestEngineEvaluateCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Evaluate(ctx, "b", "a * 2", derive.Bindings{"a": 1})
	if !errors.Is(err, derive.ErrBudgetExceeded) {
		t.Fatalf("expected budget error for cancelled context, got %v", err)
	}
}

func TestProgramIdentifiers(t *testing.T) {
	t.Parallel()

	program, err := Compile("a + `b-1` * len(a) + c")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b-1", "c"}, program.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineCheck(t *testing.T) {
	t.Parallel()

	engine := New()
	ref, err := engine.Check("price * qty")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"price", "qty"}, ref.Names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	if _, err := engine.Check("price *"); !errors.Is(err, derive.ErrSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestEngineCacheBounded(t *testing.T) {
	t.Parallel()

	engine := New(WithCacheSize(1))
	for _, text := range []string{"1 + 1", "2 + 2", "2 + 2"} {
		if _, err := engine.Evaluate(context.Background(), "x", text, nil); err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", text, err)
		}
	}
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	if len(engine.cache) != 1 {
		t.Fatalf("expected cache size 1, got %d", len(engine.cache))
	}
	if _, ok := engine.cache["2 + 2"]; !ok {
		t.Fatalf("expected most recent program to be cached")
	}
}

func TestFunctionsSorted(t *testing.T) {
	t.Parallel()

	names := Functions()
	if len(names) == 0 || names[0] != "abs" {
		t.Fatalf("unexpected function list: %v", names)
	}
}
