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

package reach_test

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vmthings/trigc/internal/reach"
)

// node is a minimal stand-in for *gcobj.Object: property tests build the
// same shape of graph over real objects, this just keeps the test
// self-contained.
type node struct {
	name string
	out  []*node
}

func edges(edgesOf map[*node][]*node) reach.Graph[*node] {
	return func(n *node) iter.Seq[*node] {
		return func(yield func(*node) bool) {
			for _, e := range edgesOf[n] {
				if !yield(e) {
					return
				}
			}
		}
	}
}

func TestReachableFindsTransitiveClosureNotJustDirectEdges(t *testing.T) {
	t.Parallel()

	root := &node{name: "root"}
	mid := &node{name: "mid"}
	leaf := &node{name: "leaf"}
	orphan := &node{name: "orphan"}
	root.out = []*node{mid}
	mid.out = []*node{leaf}

	g := edges(map[*node][]*node{root: root.out, mid: mid.out})
	set := reach.Reachable([]*node{root}, g)

	assert.True(t, set[root])
	assert.True(t, set[mid])
	assert.True(t, set[leaf])
	assert.False(t, set[orphan])
}

func TestIsReachableFalseForNodeOutsideRootSet(t *testing.T) {
	t.Parallel()

	a := &node{name: "a"}
	b := &node{name: "b"}
	g := edges(nil)
	assert.False(t, reach.IsReachable([]*node{a}, b, g))
	assert.True(t, reach.IsReachable([]*node{a}, a, g))
}

func TestSortCollapsesACycleIntoOneComponent(t *testing.T) {
	t.Parallel()

	a := &node{name: "a"}
	b := &node{name: "b"}
	c := &node{name: "c"}
	a.out = []*node{b}
	b.out = []*node{c}
	c.out = []*node{a} // closes the cycle: a, b, c are mutually reachable

	g := edges(map[*node][]*node{a: a.out, b: b.out, c: c.out})
	dag := reach.Sort(a, g)

	comp := dag.ForNode(a)
	assert.Same(t, comp, dag.ForNode(b))
	assert.Same(t, comp, dag.ForNode(c))
	assert.ElementsMatch(t, []*node{a, b, c}, comp.Members())
	assert.True(t, comp.Cyclic(g))
}

func TestSortKeepsAcyclicNodesInSeparateComponents(t *testing.T) {
	t.Parallel()

	a := &node{name: "a"}
	b := &node{name: "b"}
	a.out = []*node{b}

	g := edges(map[*node][]*node{a: a.out})
	dag := reach.Sort(a, g)

	compA := dag.ForNode(a)
	compB := dag.ForNode(b)
	assert.NotSame(t, compA, compB)
	assert.False(t, compB.Cyclic(g))

	// b is a dependency of a, so it sorts before a topologically.
	assert.Less(t, compB.Index(), compA.Index())
	var deps []*reach.Component[*node]
	for d := range compA.Deps() {
		deps = append(deps, d)
	}
	assert.Equal(t, []*reach.Component[*node]{compB}, deps)
}
