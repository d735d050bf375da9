package exprlang

import (
	"fmt"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/goliatone/go-formbuilder/pkg/derive"
)

// allowedCalls lists the functions expressions may call. Everything else,
// including the collection builtins and now(), is rejected before compile.
var allowedCalls = map[string]struct{}{
	"len":         {},
	"upper":       {},
	"lower":       {},
	"trim":        {},
	"round":       {},
	"floor":       {},
	"ceil":        {},
	"abs":         {},
	"min":         {},
	"max":         {},
	"string":      {},
	"float":       {},
	"int":         {},
	"daysBetween": {},
}

const envIdentifier = "$env"

type inspector struct {
	callees map[*ast.IdentifierNode]struct{}
	names   []string
	seen    map[string]struct{}
	err     error
}

// inspect parses text, rejects constructs outside the scalar subset and
// returns the referenced binding names in order of first appearance.
func inspect(text string) ([]string, error) {
	tree, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("exprlang: %w: %v", derive.ErrSyntax, err)
	}

	in := &inspector{
		callees: make(map[*ast.IdentifierNode]struct{}),
		seen:    make(map[string]struct{}),
	}
	ast.Walk(&tree.Node, calleeCollector{in})
	ast.Walk(&tree.Node, in)
	if in.err != nil {
		return nil, in.err
	}
	return in.names, nil
}

type calleeCollector struct {
	in *inspector
}

func (c calleeCollector) Visit(node *ast.Node) {
	if call, ok := (*node).(*ast.CallNode); ok {
		if ident, ok := call.Callee.(*ast.IdentifierNode); ok {
			c.in.callees[ident] = struct{}{}
		}
	}
	if member, ok := (*node).(*ast.MemberNode); ok {
		if ident, ok := member.Node.(*ast.IdentifierNode); ok && ident.Value == envIdentifier {
			c.in.callees[ident] = struct{}{}
		}
	}
}

func (in *inspector) reject(format string, args ...any) {
	if in.err == nil {
		in.err = fmt.Errorf("exprlang: %w: %s", derive.ErrSyntax, fmt.Sprintf(format, args...))
	}
}

func (in *inspector) add(name string) {
	if _, ok := in.seen[name]; ok {
		return
	}
	in.seen[name] = struct{}{}
	in.names = append(in.names, name)
}

func (in *inspector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if _, ok := in.callees[n]; ok {
			return
		}
		if n.Value == envIdentifier {
			in.reject("%s is only allowed as $env[\"name\"]", envIdentifier)
			return
		}
		in.add(n.Value)
	case *ast.MemberNode:
		ident, ok := n.Node.(*ast.IdentifierNode)
		if !ok || ident.Value != envIdentifier {
			in.reject("member access is not allowed")
			return
		}
		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			in.reject("$env must be indexed by a string literal")
			return
		}
		in.add(prop.Value)
	case *ast.CallNode:
		ident, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			in.reject("only named functions can be called")
			return
		}
		if _, ok := allowedCalls[ident.Value]; !ok {
			in.reject("function %q is not allowed", ident.Value)
		}
	case *ast.BinaryNode:
		if n.Operator == ".." {
			in.reject("ranges are not allowed")
		}
	case *ast.BuiltinNode:
		if _, ok := allowedCalls[n.Name]; !ok {
			in.reject("function %q is not allowed", n.Name)
		}
	case *ast.PredicateNode, *ast.PointerNode, *ast.VariableDeclaratorNode:
		in.reject("closures and variables are not allowed")
	case *ast.ArrayNode, *ast.MapNode, *ast.SliceNode:
		in.reject("collections are not allowed")
	}
}
