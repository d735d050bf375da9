package expr

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type builtin struct {
	minArgs int
	// maxArgs is -1 for variadic functions.
	maxArgs int
	call    func(m *machine, args []any) (any, error)
}

func (b builtin) arity() string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.minArgs == b.maxArgs && b.minArgs == 1:
		return "1 argument"
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
	}
}

const dateLayout = "2006-01-02"

var builtins = map[string]builtin{
	"len":    {minArgs: 1, maxArgs: 1, call: fnLen},
	"upper":  {minArgs: 1, maxArgs: 1, call: stringFn(strings.ToUpper)},
	"lower":  {minArgs: 1, maxArgs: 1, call: stringFn(strings.ToLower)},
	"trim":   {minArgs: 1, maxArgs: 1, call: stringFn(strings.TrimSpace)},
	"round":  {minArgs: 1, maxArgs: 2, call: fnRound},
	"floor":  {minArgs: 1, maxArgs: 1, call: numberFn(math.Floor)},
	"ceil":   {minArgs: 1, maxArgs: 1, call: numberFn(math.Ceil)},
	"abs":    {minArgs: 1, maxArgs: 1, call: numberFn(math.Abs)},
	"min":    {minArgs: 1, maxArgs: -1, call: extremum(math.Min)},
	"max":    {minArgs: 1, maxArgs: -1, call: extremum(math.Max)},
	"concat": {minArgs: 0, maxArgs: -1, call: fnConcat},
	"number": {minArgs: 1, maxArgs: 1, call: func(_ *machine, args []any) (any, error) {
		return toNumber(args[0])
	}},
	"string": {minArgs: 1, maxArgs: 1, call: func(_ *machine, args []any) (any, error) {
		return stringify(args[0]), nil
	}},
	"daysBetween": {minArgs: 2, maxArgs: 2, call: fnDaysBetween},
}

// Functions lists the names callable from expressions.
func Functions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fnLen(_ *machine, args []any) (any, error) {
	switch v := args[0].(type) {
	case nil:
		return float64(0), nil
	case string:
		return runeLen(v), nil
	default:
		return nil, typeErrorf("expected a string, got %s", stringify(v))
	}
}

// fnConcat fails as soon as the running length passes the string budget.
func fnConcat(m *machine, args []any) (any, error) {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 && i%checkEvery == 0 {
			if err := m.expired(); err != nil {
				return nil, err
			}
		}
		s := stringify(arg)
		if err := m.fits(b.Len() + len(s)); err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func stringFn(fn func(string) string) func(*machine, []any) (any, error) {
	return func(m *machine, args []any) (any, error) {
		s := stringify(args[0])
		if err := m.fits(len(s)); err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func numberFn(fn func(float64) float64) func(*machine, []any) (any, error) {
	return func(_ *machine, args []any) (any, error) {
		f, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return fn(f), nil
	}
}

func fnRound(_ *machine, args []any) (any, error) {
	f, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return math.Round(f), nil
	}
	digits, err := toNumber(args[1])
	if err != nil {
		return nil, err
	}
	if digits != math.Trunc(digits) || digits < 0 || digits > 15 {
		return nil, typeErrorf("round precision must be an integer between 0 and 15")
	}
	scale := math.Pow(10, digits)
	return math.Round(f*scale) / scale, nil
}

func extremum(pick func(a, b float64) float64) func(*machine, []any) (any, error) {
	return func(_ *machine, args []any) (any, error) {
		out, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		for _, arg := range args[1:] {
			f, err := toNumber(arg)
			if err != nil {
				return nil, err
			}
			out = pick(out, f)
		}
		return out, nil
	}
}

func fnDaysBetween(_ *machine, args []any) (any, error) {
	from, err := toDate(args[0])
	if err != nil {
		return nil, err
	}
	to, err := toDate(args[1])
	if err != nil {
		return nil, err
	}
	return math.Round(to.Sub(from).Hours() / 24), nil
}

func toDate(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, typeErrorf("expected a date string, got %s", stringify(value))
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, typeErrorf("expected a date in YYYY-MM-DD form, got %q", s)
	}
	return t, nil
}
