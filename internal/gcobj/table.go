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

package gcobj

// Node is one slot of a Table's hash part: a key/value pair chained to the
// next colliding node by index, mirroring the teacher-independent layout
// spec.md §3 describes for the `Node.next` intrusive chain that blob-move
// must rewrite.
type Node struct {
	Key, Val Value
	Next     int // index into Hash, -1 if none
}

// Table is the array+hash value container. Array and Hash are conceptually
// owned by the blob region (internal/blob): ArrayBase/HashBase record the
// blob-relative base so Traverse can participate in REAP relocation
// (spec.md §4.2).
type Table struct {
	*Object
	Metatable *Table
	ModeStr   string // cached __mode string, set by the host when the metatable changes

	Array     []Value
	ArrayBase uintptr

	Hash     []Node
	HashBase uintptr

	gcflags WeakMode // cached LJ_GC_WEAK-equivalent bits, spec.md §4.2
}

// NewTable allocates a Table object header.
func NewTable(o *Object) *Table {
	o.Kind = KindTable
	t := &Table{Object: o}
	o.Traversable = t
	return t
}

// Nodes returns the table's hash part, letting internal/mark's ephemeron
// fixpoint inspect key/value reachability without a dependency cycle.
func (t *Table) Nodes() []Node { return t.Hash }

// SetWeakMode records the weak-key/weak-value bits decoded from __mode; it
// is sticky across cycles the way spec.md's `t->gcflags` field is, until the
// metatable's __mode string changes.
func (t *Table) SetWeakMode(mode WeakMode) { t.gcflags = mode }

// Traverse implements gc_traverse_tab (spec.md §4.2): trace the metatable,
// decode __mode, mark array/hash unless weak, and participate in blob REAP
// relocation for the array and hash payloads.
func (t *Table) Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode {
	if t.Metatable != nil {
		visit(t.Metatable.Object)
	}

	weak := t.decodeMode()
	t.gcflags = weak

	if weak > WeakVal {
		// Both keys and values are weak or ephemeron: nothing more to mark.
		return weak
	}

	if len(t.Array) > 0 {
		t.relocateOrAccount(ctx, &t.ArrayBase, len(t.Array)*valueSize)
	}
	if weak&WeakVal == 0 {
		for i := range t.Array {
			if t.Array[i].IsCollectible() {
				visit(t.Array[i].Obj)
			}
		}
	}

	if len(t.Hash) > 0 {
		t.relocateOrAccount(ctx, &t.HashBase, len(t.Hash)*nodeSize)
		for i := range t.Hash {
			n := &t.Hash[i]
			if n.Val.IsNil() {
				continue
			}
			if weak&WeakKey == 0 && n.Key.IsCollectible() {
				visit(n.Key.Obj)
			}
			if weak&WeakVal == 0 && n.Val.IsCollectible() {
				visit(n.Val.Obj)
			}
		}
	}
	return weak
}

const valueSize = 16 // approximation of a host TValue's footprint
const nodeSize = 32  // approximation of a host Node's footprint

// relocateOrAccount implements spec.md §4.2's blob-relocation branch: if the
// payload's page is flagged REAP and no JIT trace is active, the payload is
// moved and *base is rewritten; otherwise only the usage counter advances.
func (t *Table) relocateOrAccount(ctx *TraverseContext, base *uintptr, size int) {
	if ctx == nil {
		return
	}
	if !ctx.JITTraceActive && ctx.MoveBlob != nil {
		if newBase, moved := ctx.MoveBlob(t.Object, *base, size); moved {
			*base = newBase
			return
		}
	}
	if ctx.AccountBlobUsage != nil {
		ctx.AccountBlobUsage(*base, size)
	}
}

// decodeMode parses t.ModeStr into weak-key/weak-value bits, the Go
// equivalent of spec.md §4.2's `for c := range modestr`.
func (t *Table) decodeMode() WeakMode {
	if t.ModeStr == "" {
		return WeakNone
	}
	var w WeakMode
	for _, c := range t.ModeStr {
		switch c {
		case 'k':
			w |= WeakKey
		case 'v':
			w |= WeakVal
		}
	}
	return w
}
