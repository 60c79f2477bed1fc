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

// Thread is a coroutine/stack object. It is an object-list kind (spec.md
// §4.2): marking sets FlagGray and links it via Object.GCList rather than a
// bitmap index, and it is never left black after a normal traversal — it is
// demoted back to gray ("grayagain_th") so the atomic phase can rescan it
// (spec.md §4.2).
type Thread struct {
	*Object
	Env   *Table
	Stack []Value
	Top   int // index of the first unused stack slot

	OpenUpvalues []*Upvalue // open-upvalue chain, pruned in the atomic phase
}

// NewThread allocates a Thread object header.
func NewThread(o *Object) *Thread {
	o.Kind = KindThread
	th := &Thread{Object: o}
	o.Traversable = th
	return th
}

// Traverse implements gc_traverse_thread (spec.md §4.2): mark every stack
// slot from 0 to Top; during the atomic phase, additionally nil every slot
// from Top to len(Stack). The stack is not shrunk and no shrink hint is
// produced (frame-chain walking is out of scope per spec.md §1).
func (th *Thread) Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode {
	for i := 0; i < th.Top && i < len(th.Stack); i++ {
		if th.Stack[i].IsCollectible() {
			visit(th.Stack[i].Obj)
		}
	}
	if ctx != nil && ctx.Atomic {
		for i := th.Top; i < len(th.Stack); i++ {
			th.Stack[i] = Nil
		}
	}
	if th.Env != nil {
		visit(th.Env.Object)
	}
	return WeakNone
}

// PruneDeadUpvalues drops closed, unreachable entries from the open-upvalue
// chain, implementing the atomic-phase step of spec.md §4.4: "Sweep dead
// open-upvalues out of each thread's open-upvalue chain."
func (th *Thread) PruneDeadUpvalues(colors Colors) {
	live := th.OpenUpvalues[:0]
	for _, uv := range th.OpenUpvalues {
		if uv.Closed && colors.IsWhite(uv.Flags) {
			continue
		}
		live = append(live, uv)
	}
	th.OpenUpvalues = live
}
