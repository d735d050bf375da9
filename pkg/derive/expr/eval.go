package expr

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// checkEvery controls how often the machine looks at the clock and context.
const checkEvery = 32

type machine struct {
	ctx      context.Context
	bindings derive.Bindings
	limits   derive.Limits
	deadline time.Time
	steps    int
}

func typeErrorf(format string, args ...any) error {
	return fmt.Errorf("derive/expr: %w: %s", derive.ErrType, fmt.Sprintf(format, args...))
}

func (m *machine) step() error {
	m.steps++
	if m.steps > m.limits.MaxSteps {
		return fmt.Errorf("derive/expr: %w: more than %d steps", derive.ErrBudgetExceeded, m.limits.MaxSteps)
	}
	if m.steps%checkEvery != 0 {
		return nil
	}
	return m.expired()
}

func (m *machine) expired() error {
	if err := m.ctx.Err(); err != nil {
		return fmt.Errorf("derive/expr: %w: %v", derive.ErrBudgetExceeded, err)
	}
	if !m.deadline.IsZero() && time.Now().After(m.deadline) {
		return fmt.Errorf("derive/expr: %w: exceeded %s", derive.ErrBudgetExceeded, m.limits.Timeout)
	}
	return nil
}

// fits reports whether a string of n bytes stays within the budget.
func (m *machine) fits(n int) error {
	if n > m.limits.MaxStringLength {
		return fmt.Errorf("derive/expr: %w: string longer than %d bytes", derive.ErrBudgetExceeded, m.limits.MaxStringLength)
	}
	return nil
}

func (m *machine) checkString(s string) (string, error) {
	if err := m.fits(len(s)); err != nil {
		return "", err
	}
	return s, nil
}

func (n literalNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	return n.value, nil
}

func (n identNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	raw, ok := m.bindings[n.name]
	if !ok {
		return nil, fmt.Errorf("derive/expr: %w: %q", derive.ErrUnknownName, n.name)
	}
	value, err := bindingValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%w (name %q)", err, n.name)
	}
	return value, nil
}

func (n unaryNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	operand, err := n.operand.eval(m)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case tokenNot:
		return !truthy(operand), nil
	case tokenMinus:
		f, err := toNumber(operand)
		if err != nil {
			return nil, err
		}
		return -f, nil
	default:
		return toNumber(operand)
	}
}

func (n logicalNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	left, err := n.left.eval(m)
	if err != nil {
		return nil, err
	}
	if n.op == tokenAnd && !truthy(left) {
		return left, nil
	}
	if n.op == tokenOr && truthy(left) {
		return left, nil
	}
	return n.right.eval(m)
}

func (n conditionalNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	cond, err := n.cond.eval(m)
	if err != nil {
		return nil, err
	}
	if truthy(cond) {
		return n.then.eval(m)
	}
	return n.otherwise.eval(m)
}

func (n binaryNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	left, err := n.left.eval(m)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(m)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenEq:
		return strictEqual(left, right), nil
	case tokenNeq:
		return !strictEqual(left, right), nil
	case tokenLt, tokenLte, tokenGt, tokenGte:
		return compare(n.op, left, right)
	case tokenPlus:
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			l, r := stringify(left), stringify(right)
			if err := m.fits(len(l) + len(r)); err != nil {
				return nil, err
			}
			return l + r, nil
		}
	}

	a, err := toNumber(left)
	if err != nil {
		return nil, fmt.Errorf("%w (left of %q)", err, n.op.String())
	}
	b, err := toNumber(right)
	if err != nil {
		return nil, fmt.Errorf("%w (right of %q)", err, n.op.String())
	}

	var out float64
	switch n.op {
	case tokenPlus:
		out = a + b
	case tokenMinus:
		out = a - b
	case tokenStar:
		out = a * b
	case tokenSlash:
		if b == 0 {
			return nil, typeErrorf("division by zero")
		}
		out = a / b
	case tokenPercent:
		if b == 0 {
			return nil, typeErrorf("modulo by zero")
		}
		out = math.Mod(a, b)
	default:
		return nil, syntaxErrorf("unsupported operator %q", n.op.String())
	}
	return finite(out)
}

func (n callNode) eval(m *machine) (any, error) {
	if err := m.step(); err != nil {
		return nil, err
	}
	args := make([]any, len(n.args))
	for i, arg := range n.args {
		value, err := arg.eval(m)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}
	out, err := n.fn.call(m, args)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, n.name)
	}
	if s, ok := out.(string); ok {
		return m.checkString(s)
	}
	if f, ok := out.(float64); ok {
		return finite(f)
	}
	return out, nil
}

// bindingValue folds a bound value into the interpreter's value domain:
// nil, bool, float64 and string.
func bindingValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil, bool, string:
		return v, nil
	}
	if f, ok := schema.ToFloat(raw); ok {
		return f, nil
	}
	return nil, typeErrorf("unsupported value of type %T", raw)
}

func finite(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, typeErrorf("result is not a finite number")
	}
	return f, nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// toNumber accepts numbers and numeric strings. Everything else, including
// null and blank strings, is a type error.
func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, typeErrorf("expected a number, got an empty string")
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, typeErrorf("expected a number, got %q", v)
		}
		return f, nil
	case nil:
		return 0, typeErrorf("expected a number, got null")
	case bool:
		return 0, typeErrorf("expected a number, got %t", v)
	default:
		return 0, typeErrorf("expected a number, got %T", value)
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	default:
		return false
	}
}

func compare(op tokenKind, left, right any) (any, error) {
	var cmp int
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		cmp = strings.Compare(ls, rs)
	} else {
		a, err := toNumber(left)
		if err != nil {
			return nil, fmt.Errorf("%w (left of %q)", err, op.String())
		}
		b, err := toNumber(right)
		if err != nil {
			return nil, fmt.Errorf("%w (right of %q)", err, op.String())
		}
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}
	switch op {
	case tokenLt:
		return cmp < 0, nil
	case tokenLte:
		return cmp <= 0, nil
	case tokenGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func runeLen(s string) float64 {
	return float64(utf8.RuneCountInString(s))
}
