package expr

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-formbuilder/pkg/derive"
)

type node interface {
	eval(m *machine) (any, error)
}

type literalNode struct {
	value any
}

type identNode struct {
	name string
}

type unaryNode struct {
	op      tokenKind
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

type logicalNode struct {
	op          tokenKind
	left, right node
}

type conditionalNode struct {
	cond, then, otherwise node
}

type callNode struct {
	name string
	fn   builtin
	args []node
}

type parser struct {
	tokens   []token
	pos      int
	depth    int
	maxDepth int
	names    []string
	seen     map[string]struct{}
}

func parse(tokens []token, maxDepth int) (node, []string, error) {
	p := &parser{tokens: tokens, maxDepth: maxDepth, seen: map[string]struct{}{}}
	if p.peek().kind == tokenEOF {
		return nil, nil, fmt.Errorf("derive/expr: %w", derive.ErrEmptyExpression)
	}
	root, err := p.parseConditional()
	if err != nil {
		return nil, nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, nil, syntaxErrorf("unexpected %s at %d", describe(tok), tok.pos)
	}
	return root, p.names, nil
}

func describe(tok token) string {
	switch tok.kind {
	case tokenEOF:
		return "end of expression"
	case tokenIdentifier:
		return fmt.Sprintf("name %q", tok.raw)
	case tokenString:
		return fmt.Sprintf("string %q", tok.raw)
	case tokenNumber, tokenBool, tokenNull:
		return fmt.Sprintf("%q", tok.raw)
	default:
		return fmt.Sprintf("%q", tok.kind.String())
	}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) match(kinds ...tokenKind) (token, bool) {
	tok := p.peek()
	for _, kind := range kinds {
		if tok.kind == kind {
			p.advance()
			return tok, true
		}
	}
	return token{}, false
}

func (p *parser) expect(kind tokenKind) error {
	if _, ok := p.match(kind); ok {
		return nil
	}
	tok := p.peek()
	return syntaxErrorf("expected %q, got %s at %d", kind.String(), describe(tok), tok.pos)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return fmt.Errorf("derive/expr: %w: nesting deeper than %d", derive.ErrBudgetExceeded, p.maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

// conditional := or ( "?" conditional ":" conditional )?
func (p *parser) parseConditional() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.match(tokenQuestion); !ok {
		return cond, nil
	}
	then, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokenColon); err != nil {
		return nil, err
	}
	otherwise, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	return conditionalNode{cond: cond, then: then, otherwise: otherwise}, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match(tokenOr); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: tokenOr, left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match(tokenAnd); !ok {
			return left, nil
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: tokenAnd, left: left, right: right}
	}
}

func (p *parser) parseEquality() (node, error) {
	return p.parseBinary(p.parseComparison, tokenEq, tokenNeq)
}

func (p *parser) parseComparison() (node, error) {
	return p.parseBinary(p.parseAdditive, tokenLt, tokenLte, tokenGt, tokenGte)
}

func (p *parser) parseAdditive() (node, error) {
	return p.parseBinary(p.parseMultiplicative, tokenPlus, tokenMinus)
}

func (p *parser) parseMultiplicative() (node, error) {
	return p.parseBinary(p.parseUnary, tokenStar, tokenSlash, tokenPercent)
}

func (p *parser) parseBinary(next func() (node, error), ops ...tokenKind) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.match(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok, ok := p.match(tokenNot, tokenMinus, tokenPlus)
	if !ok {
		return p.parsePrimary()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return unaryNode{op: tok.kind, operand: operand}, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.advance()
	switch tok.kind {
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, syntaxErrorf("invalid number %q at %d", tok.raw, tok.pos)
		}
		return literalNode{value: value}, nil
	case tokenString:
		return literalNode{value: tok.raw}, nil
	case tokenBool:
		return literalNode{value: tok.raw == "true"}, nil
	case tokenNull:
		return literalNode{value: nil}, nil
	case tokenLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		inner, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenIdentifier:
		if p.peek().kind == tokenLParen {
			return p.parseCall(tok)
		}
		if _, ok := p.seen[tok.raw]; !ok {
			p.seen[tok.raw] = struct{}{}
			p.names = append(p.names, tok.raw)
		}
		return identNode{name: tok.raw}, nil
	case tokenEOF:
		return nil, syntaxErrorf("unexpected end of expression")
	default:
		return nil, syntaxErrorf("unexpected %s at %d", describe(tok), tok.pos)
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := builtins[name.raw]
	if !ok {
		return nil, syntaxErrorf("unknown function %q at %d", name.raw, name.pos)
	}
	p.advance() // "("
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	var args []node
	if _, ok := p.match(tokenRParen); !ok {
		for {
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if _, ok := p.match(tokenComma); ok {
				continue
			}
			if err := p.expect(tokenRParen); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, syntaxErrorf("%s expects %s, got %d", name.raw, fn.arity(), len(args))
	}
	return callNode{name: name.raw, fn: fn, args: args}, nil
}
