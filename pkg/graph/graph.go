// Package graph resolves which derived fields must be recomputed when a field
// changes. The graph is built once per schema; cycles, duplicate ids and
// unknown parents are rejected at build time so edits never walk an unsafe
// structure.
package graph

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/schema"
)

// ErrUnknownField is returned when a query names a field absent from the
// graph.
var ErrUnknownField = errors.New("graph: unknown field")

// CycleError reports a derivation cycle. FieldID is the cycle member that
// appears first in schema order; Path walks the cycle starting and ending on
// FieldID.
type CycleError struct {
	FieldID string
	Path    []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Path) == 0 {
		return fmt.Sprintf("graph: derivation cycle at field %q", e.FieldID)
	}
	return fmt.Sprintf("graph: derivation cycle at field %q (%s)", e.FieldID, strings.Join(e.Path, " -> "))
}

// DuplicateFieldError reports a field id declared more than once.
type DuplicateFieldError struct {
	FieldID string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("graph: duplicate field id %q", e.FieldID)
}

// UnknownParentError reports a derived field naming a parent that is not in
// the schema.
type UnknownParentError struct {
	FieldID string
	Parent  string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("graph: field %q derives from unknown field %q", e.FieldID, e.Parent)
}

// Graph is an immutable dependency graph. Edges run from each parent to the
// derived fields that read it. It is safe for concurrent reads.
type Graph struct {
	ids      []string
	index    map[string]int
	parents  [][]int
	children [][]int
	// rank is each field's position in the deterministic topological order.
	rank  []int
	order []string
}

// New builds the graph for fields. Only fields flagged as derived contribute
// edges.
func New(fields []schema.Field) (*Graph, error) {
	g := &Graph{
		ids:      make([]string, len(fields)),
		index:    make(map[string]int, len(fields)),
		parents:  make([][]int, len(fields)),
		children: make([][]int, len(fields)),
		rank:     make([]int, len(fields)),
	}

	for i, field := range fields {
		if _, exists := g.index[field.ID]; exists {
			return nil, &DuplicateFieldError{FieldID: field.ID}
		}
		g.ids[i] = field.ID
		g.index[field.ID] = i
	}

	for i, field := range fields {
		if !field.IsDerived {
			continue
		}
		seen := make(map[int]struct{}, len(field.ParentFields))
		for _, parent := range field.ParentFields {
			p, ok := g.index[parent]
			if !ok {
				return nil, &UnknownParentError{FieldID: field.ID, Parent: parent}
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			g.parents[i] = append(g.parents[i], p)
			g.children[p] = append(g.children[p], i)
		}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// FromSchema builds the graph for form.
func FromSchema(form schema.FormSchema) (*Graph, error) {
	return New(form.Fields)
}

// sort computes a topological order with Kahn's algorithm, always taking the
// ready field that comes first in schema order.
func (g *Graph) sort() error {
	n := len(g.ids)
	indegree := make([]int, n)
	for i := range g.parents {
		indegree[i] = len(g.parents[i])
	}

	ready := &indexHeap{}
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	g.order = make([]string, 0, n)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		g.rank[i] = len(g.order)
		g.order = append(g.order, g.ids[i])
		for _, child := range g.children[i] {
			indegree[child]--
			if indegree[child] == 0 {
				heap.Push(ready, child)
			}
		}
	}

	if len(g.order) == n {
		return nil
	}

	blocked := make([]bool, n)
	for i := range indegree {
		blocked[i] = indegree[i] > 0
	}
	return g.cycle(blocked)
}

// cycle locates a concrete cycle among the blocked fields. Blocked fields are
// either on a cycle or downstream of one; following parent edges from any
// blocked field therefore ends on a cycle.
func (g *Graph) cycle(blocked []bool) error {
	start := -1
	for i, b := range blocked {
		if b {
			start = i
			break
		}
	}

	position := make(map[int]int)
	var walk []int
	current := start
	for {
		if at, ok := position[current]; ok {
			walk = walk[at:]
			break
		}
		position[current] = len(walk)
		walk = append(walk, current)
		next := -1
		for _, p := range g.parents[current] {
			if blocked[p] {
				next = p
				break
			}
		}
		current = next
	}

	// Report the cycle starting from its earliest field in schema order.
	// walk follows parent edges, so reverse it to follow data flow.
	first := 0
	for i := range walk {
		if walk[i] < walk[first] {
			first = i
		}
	}
	path := make([]string, 0, len(walk)+1)
	for i := 0; i < len(walk); i++ {
		idx := walk[(first-i+len(walk))%len(walk)]
		path = append(path, g.ids[idx])
	}
	path = append(path, g.ids[walk[first]])
	return &CycleError{FieldID: g.ids[walk[first]], Path: path}
}

// Affected returns every field transitively derived from id, ordered so each
// field follows all of its parents that are also in the result. id itself is
// not included.
func (g *Graph) Affected(id string) ([]string, error) {
	start, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, id)
	}

	visited := make(map[int]struct{})
	queue := append([]int(nil), g.children[start]...)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if _, ok := visited[i]; ok {
			continue
		}
		visited[i] = struct{}{}
		queue = append(queue, g.children[i]...)
	}
	if len(visited) == 0 {
		return nil, nil
	}

	reached := make([]int, 0, len(visited))
	for i := range visited {
		reached = append(reached, i)
	}
	sort.Slice(reached, func(a, b int) bool {
		return g.rank[reached[a]] < g.rank[reached[b]]
	})

	out := make([]string, len(reached))
	for i, idx := range reached {
		out[i] = g.ids[idx]
	}
	return out, nil
}

// Parents returns the de-duplicated declared parents of id.
func (g *Graph) Parents(id string) ([]string, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, id)
	}
	return g.names(g.parents[i]), nil
}

// Dependents returns the fields deriving directly from id, in schema order.
func (g *Graph) Dependents(id string) ([]string, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, id)
	}
	children := append([]int(nil), g.children[i]...)
	sort.Ints(children)
	return g.names(children), nil
}

// Order returns all fields in the deterministic topological order.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Has reports whether id is part of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) names(indexes []int) []string {
	if len(indexes) == 0 {
		return nil
	}
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		out[i] = g.ids[idx]
	}
	return out
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
