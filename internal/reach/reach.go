// Copyright 2026 The trigc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reach is a ground-truth reachability oracle for property tests
// (spec.md §8 property 1: "after a complete cycle, the set of objects left
// black must equal the set of objects reachable from the roots"). It
// computes reachability and strongly-connected components over an
// arbitrary object graph supplied by the test, independent of the
// collector's own tri-color bookkeeping, so a test can assert the
// collector's output against a second, structurally different
// implementation instead of against itself.
//
// The strongly-connected-component code is adapted from the teacher's
// internal/scc package (Tarjan's algorithm); the reachability sweep is a
// plain BFS added for the oracle's own use.
package reach

import (
	"iter"
	"slices"

	"github.com/vmthings/trigc/internal/diag"
)

// Graph exposes the outgoing edges of a node in a directed graph.
type Graph[Node any] func(Node) iter.Seq[Node]

// Reachable returns the set of nodes reachable from roots by following
// graph's edges, including the roots themselves. This is the oracle
// spec.md §8 property 1 compares the collector's post-cycle black set
// against.
func Reachable[Node comparable](roots []Node, graph Graph[Node]) map[Node]bool {
	seen := make(map[Node]bool, len(roots))
	queue := append([]Node(nil), roots...)
	for _, r := range roots {
		seen[r] = true
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for dep := range graph(n) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			queue = append(queue, dep)
		}
	}
	return seen
}

// IsReachable reports whether target is reachable from roots.
func IsReachable[Node comparable](roots []Node, target Node, graph Graph[Node]) bool {
	return Reachable(roots, graph)[target]
}

// DAG is the strongly-connected-component condensation of a directed graph,
// topologically sorted. Isolated cycles (self-referential tables, mutually
// referencing upvalues) each collapse to one Component, which is how a test
// can assert that a cycle collects as a unit once nothing outside the cycle
// reaches it.
type DAG[Node comparable] struct {
	keys       map[Node]int
	components []Component[Node]
}

// Component is a strongly connected component: a maximal set of nodes each
// reachable from every other.
type Component[Node comparable] struct {
	dag     *DAG[Node]
	index   int
	members []Node
	deps    []int
}

// Sort computes the SCC DAG of the graph reachable from root, using
// Tarjan's algorithm.
func Sort[Node comparable](root Node, graph Graph[Node]) *DAG[Node] {
	out := &DAG[Node]{keys: make(map[Node]int)}
	t := &tarjan[Node]{
		graph:    graph,
		dag:      out,
		metadata: make(map[Node]*metadata),
		depset:   make(map[int]struct{}),
	}
	t.rec(root)
	return out
}

// ForNode returns the component containing node, or nil if node was never
// visited.
func (d *DAG[Node]) ForNode(node Node) *Component[Node] {
	idx, ok := d.keys[node]
	if !ok {
		return nil
	}
	return &d.components[idx]
}

// Topological ranges over every component in dependency order (a
// component's dependencies all appear before it).
func (d *DAG[Node]) Topological() iter.Seq[*Component[Node]] {
	return func(yield func(*Component[Node]) bool) {
		for i := range d.components {
			if !yield(&d.components[i]) {
				return
			}
		}
	}
}

// Members returns the nodes making up this component.
func (c *Component[Node]) Members() []Node { return c.members }

// Cyclic reports whether the component has more than one member, or a
// single member with a self-edge — i.e. whether it needs the tri-color
// marker to treat it as a unit rather than collecting members independently.
func (c *Component[Node]) Cyclic(graph Graph[Node]) bool {
	if len(c.members) > 1 {
		return true
	}
	for dep := range graph(c.members[0]) {
		if dep == c.members[0] {
			return true
		}
	}
	return false
}

// Deps ranges over the components this component directly depends on.
func (c *Component[Node]) Deps() iter.Seq[*Component[Node]] {
	return func(yield func(*Component[Node]) bool) {
		for _, i := range c.deps {
			if !yield(&c.dag.components[i]) {
				return
			}
		}
	}
}

// Index returns this component's position in topological order.
func (c *Component[Node]) Index() int { return c.index }

type tarjan[Node comparable] struct {
	graph Graph[Node]
	dag   *DAG[Node]

	index    int
	stack    []Node
	metadata map[Node]*metadata

	depset map[int]struct{}
}

type metadata struct {
	index, low int
	onStack    bool
}

func (t *tarjan[Node]) rec(node Node) *metadata {
	meta := &metadata{index: t.index, low: t.index, onStack: true}
	diag.Log(nil, "rec", "%v, index: %d", node, meta.index)

	t.metadata[node] = meta
	t.index++
	offset := len(t.stack)
	t.stack = append(t.stack, node)

	for dep := range t.graph(node) {
		m := t.metadata[dep]
		if m == nil {
			m = t.rec(dep)
			meta.low = min(meta.low, m.low)
			continue
		}
		if m.onStack {
			meta.low = min(meta.low, m.index)
		}
	}

	if meta.index != meta.low {
		return meta
	}

	members := append([]Node(nil), t.stack[offset:]...)
	t.stack = t.stack[:offset]

	comp := Component[Node]{dag: t.dag, index: len(t.dag.components), members: members}
	for _, n := range members {
		t.metadata[n].onStack = false
		t.dag.keys[n] = comp.index
		for dep := range t.graph(n) {
			if i, ok := t.dag.keys[dep]; ok && i < comp.index {
				t.depset[i] = struct{}{}
			}
		}
	}
	comp.deps = make([]int, 0, len(t.depset))
	for i := range t.depset {
		comp.deps = append(comp.deps, i)
	}
	slices.Sort(comp.deps)
	clear(t.depset)

	t.dag.components = append(t.dag.components, comp)
	return meta
}
