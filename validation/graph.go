package validation

import (
	"sort"

	"github.com/georgepadayatti/goades/diagnostic"
)

// graph is the dependency graph of a model. Nodes are token indexes in
// model order; deps[i] lists the tokens i depends on.
type graph struct {
	tokens []diagnostic.Token
	index  map[string]int
	deps   [][]int
}

func newGraph(m *diagnostic.Model) *graph {
	tokens := m.Tokens()
	g := &graph{
		tokens: tokens,
		index:  make(map[string]int, len(tokens)),
		deps:   make([][]int, len(tokens)),
	}
	for i, t := range tokens {
		g.index[t.ID()] = i
	}
	for i, t := range tokens {
		for _, id := range t.Dependencies() {
			// Dangling references are reported by the checks that follow them.
			if j, ok := g.index[id]; ok {
				g.deps[i] = append(g.deps[i], j)
			}
		}
	}
	return g
}

// cycles returns, for every node on a dependency cycle, the identifiers of
// the tokens of its cycle in model order. It uses Tarjan's strongly
// connected components.
func (g *graph) cycles() map[int][]string {
	n := len(g.tokens)
	var (
		next    int
		index   = make([]int, n)
		low     = make([]int, n)
		onStack = make([]bool, n)
		stack   []int
		out     = make(map[int][]string)
	)
	for i := range index {
		index[i] = -1
	}

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.deps[v] {
			if index[w] < 0 {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}

		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) == 1 && !g.selfLoop(v) {
			return
		}
		sort.Ints(scc)
		ids := make([]string, len(scc))
		for i, w := range scc {
			ids[i] = g.tokens[w].ID()
		}
		for _, w := range scc {
			out[w] = ids
		}
	}

	for v := 0; v < n; v++ {
		if index[v] < 0 {
			strongConnect(v)
		}
	}
	return out
}

func (g *graph) selfLoop(v int) bool {
	for _, w := range g.deps[v] {
		if w == v {
			return true
		}
	}
	return false
}

// order returns nodes sorted so that every node comes after its
// dependencies, ties going to model order. Nodes in skip are left out and
// edges to them ignored; with every cycle in skip the result holds all the
// other nodes.
func (g *graph) order(nodes []int, skip map[int][]string) []int {
	in := make(map[int]bool, len(nodes))
	for _, v := range nodes {
		if _, cyclic := skip[v]; !cyclic {
			in[v] = true
		}
	}

	pending := make(map[int]int, len(in))
	dependents := make(map[int][]int, len(in))
	for v := range in {
		for _, w := range g.deps[v] {
			if in[w] {
				pending[v]++
				dependents[w] = append(dependents[w], v)
			}
		}
	}

	var ready []int
	for v := range in {
		if pending[v] == 0 {
			ready = append(ready, v)
		}
	}
	sort.Ints(ready)

	out := make([]int, 0, len(in))
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		out = append(out, v)
		for _, w := range dependents[v] {
			pending[w]--
			if pending[w] == 0 {
				i := sort.SearchInts(ready, w)
				ready = append(ready, 0)
				copy(ready[i+1:], ready[i:])
				ready[i] = w
			}
		}
	}
	return out
}

// components partitions the nodes into groups that can be validated
// independently: tokens linked by a dependency, by a timestamp covering
// another token, or by a counter-signature end up in the same group.
// Groups and their members are in model order.
func (g *graph) components() [][]int {
	parent := make([]int, len(g.tokens))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(v int) int {
		for parent[v] != v {
			parent[v] = parent[parent[v]]
			v = parent[v]
		}
		return v
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}
	link := func(v int, id string) {
		if w, ok := g.index[id]; ok {
			union(v, w)
		}
	}

	for v, t := range g.tokens {
		for _, w := range g.deps[v] {
			union(v, w)
		}
		switch t := t.(type) {
		case *diagnostic.Timestamp:
			for _, id := range t.Covered {
				link(v, id)
			}
		case *diagnostic.Signature:
			link(v, t.ParentID)
		}
	}

	byRoot := make(map[int]int)
	var out [][]int
	for v := range g.tokens {
		r := find(v)
		i, ok := byRoot[r]
		if !ok {
			i = len(out)
			byRoot[r] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], v)
	}
	return out
}
