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

package mark

import "github.com/vmthings/trigc/internal/gcobj"

// EphemeronFixpoint implements spec.md §4.3: for each weak-key table on the
// ephemeron queue, for each occupied hash node whose key is already marked
// and whose value is white, mark the value. It makes a single pass over
// tables; the caller (the root package's atomic phase) runs the loop of
// "propagate new grays, then rescan ephemerons again" until a pass changes
// nothing, per spec.md's "Repeat the whole process... until a fixpoint."
//
// tables itself is not modified; stillPending lists the tables that still
// hold a white key after this pass, so the caller can requeue them.
func (e *Engine) EphemeronFixpoint(tables []*gcobj.Object) (changed bool, stillPending []*gcobj.Object) {
	for _, t := range tables {
		table, ok := t.Traversable.(ephemeronTable)
		if !ok {
			continue
		}
		nodes := table.Nodes()
		keyIsWhite := false
		for i := range nodes {
			n := &nodes[i]
			if n.Val.IsNil() {
				continue
			}
			if !n.Key.IsCollectible() {
				continue
			}
			if e.IsWhite(n.Key.Obj) {
				keyIsWhite = true
				continue
			}
			if n.Val.IsCollectible() && e.IsWhite(n.Val.Obj) {
				e.MarkObject(n.Val.Obj)
				changed = true
			}
		}
		if keyIsWhite {
			stillPending = append(stillPending, t)
		}
	}
	return changed, stillPending
}

// ephemeronTable is implemented by gcobj.Table to expose its hash nodes to
// the ephemeron fixpoint without mark importing gcobj's concrete Table type
// more than necessary.
type ephemeronTable interface {
	Nodes() []nodeView
}

// nodeView is an alias of gcobj.Node, so gcobj.Table implements Nodes() by
// returning its []Node hash part directly, with no conversion.
type nodeView = gcobj.Node
