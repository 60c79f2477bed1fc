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

// Package mark implements the mark engine of spec.md §4.2 ("Mark Engine")
// and §4.3 ("Ephemeron Processing"): the two gray-queue flavors (an
// object-linked list for threads/prototypes/traces/cdata, and a per-arena
// gray bitmap list for string/table/function/upvalue/userdata arenas), the
// mark_value/mark_object dispatch, propagation, and write barriers.
//
// Like internal/gcobj, this has no direct teacher precedent (the teacher
// repo has no reachability graph to mark); it is grounded on
// original_source/src/lj_gc.c's gc_markobj/gc_mark_tab/propagate_one family,
// built atop internal/gcarena's arena-gray queue and internal/gcobj's
// Traversable dispatch.
package mark

import "github.com/vmthings/trigc/internal/gcobj"

// objList is the intrusive singly-linked queue threaded through
// gcobj.Object.GCList, used for the object-list gray queue (thread, proto,
// trace, cdata) and, reusing the same field, for grayagain/weak/ephemeron
// queues regardless of kind (spec.md §4.2, §4.3, §4.4).
type objList struct{ head, tail *gcobj.Object }

func (l *objList) push(o *gcobj.Object) {
	o.GCList = nil
	if l.tail != nil {
		l.tail.GCList = o
	} else {
		l.head = o
	}
	l.tail = o
}

func (l *objList) pop() *gcobj.Object {
	o := l.head
	if o == nil {
		return nil
	}
	l.head = o.GCList
	if l.head == nil {
		l.tail = nil
	}
	o.GCList = nil
	return o
}

func (l *objList) drain(fn func(*gcobj.Object)) {
	for o := l.pop(); o != nil; o = l.pop() {
		fn(o)
	}
}

func (l *objList) empty() bool { return l.head == nil }

// Engine holds the mark-phase gray queues and dispatches mark_value/
// mark_object per spec.md §4.2.
type Engine struct {
	Colors gcobj.Colors

	gray      objList // thread/proto/trace/cdata awaiting traversal
	grayAgain objList // threads demoted after traversal, rescanned in the atomic phase
	weak      objList // tables with only weak-value or only weak-key-and-value mode
	ephemeron objList // weak-key tables, processed by EphemeronFixpoint

	// EnqueueArena is called whenever a bitmap-arena kind's owning arena
	// transitions from having no gray work to having some (spec.md §4.2:
	// "if gray_h transitions from zero to nonzero the arena is enqueued").
	EnqueueArena func(o *gcobj.Object)
}

// NewEngine returns a ready-to-use Engine.
func NewEngine() *Engine { return &Engine{Colors: gcobj.NewColors()} }

// isArenaKind reports whether o's color lives in its arena's bitmaps rather
// than in o.Flags (spec.md §4.2's distinction between fixed-size arena
// kinds and object-list arena kinds).
func isArenaKind(k gcobj.Kind) bool {
	switch k {
	case gcobj.KindThread, gcobj.KindProto, gcobj.KindTrace, gcobj.KindCdata:
		return false
	default:
		return true
	}
}

// IsWhite reports whether o is not yet known reachable.
func (e *Engine) IsWhite(o *gcobj.Object) bool {
	if o == nil {
		return false
	}
	if o.Kind == gcobj.KindString && o.Arena == nil {
		if o.MedArena != nil {
			// Medium strings live in a variable-size freelist arena
			// (internal/medstr) instead of a bitmap-indexed one, but still
			// track color via a per-run-start mark bit rather than the
			// object flag byte (spec.md §3's medium-string mark/free
			// encoding).
			return !o.MedArena.TestMark(o.MedOffset)
		}
		// Huge strings are chained outside any arena (spec.md §4.5, "huge
		// object list"), so they track color via the per-object flag byte
		// like the object-list kinds do, not via an arena mark bitmap.
		return e.Colors.IsWhite(o.Flags)
	}
	if isArenaKind(o.Kind) {
		return o.Arena == nil || !o.Arena.Mark.Test(o.Slot)
	}
	return e.Colors.IsWhite(o.Flags) && o.Flags&gcobj.FlagGray == 0
}

// MarkObject is mark_object/mark_type of spec.md §4.2: marks o if white,
// dispatching to the bitmap-arena path (string leaf-mark, or
// table/function/upvalue/userdata gray-and-enqueue) or the object-list path
// (thread/proto/trace/cdata).
func (e *Engine) MarkObject(o *gcobj.Object) {
	if o == nil || !e.IsWhite(o) {
		return
	}
	if o.Kind == gcobj.KindString {
		// Strings are leaves: a direct black with no traversal and no gray
		// bit (spec.md §4.2).
		if o.Arena != nil {
			o.Arena.Mark.Set(o.Slot)
			o.Arena.Gray.Clear(o.Slot)
		} else if o.MedArena != nil {
			o.MedArena.SetMark(o.MedOffset)
		} else {
			o.Flags = gcobj.ToBlack(o.Flags, e.Colors.Black())
		}
		return
	}
	if isArenaKind(o.Kind) {
		if o.Arena == nil {
			return
		}
		wasEmpty := !o.Arena.Gray.Any()
		o.Arena.Mark.Set(o.Slot)
		o.Arena.Gray.Set(o.Slot)
		if wasEmpty && e.EnqueueArena != nil {
			e.EnqueueArena(o)
		}
		return
	}
	o.Flags = gcobj.ToGray(o.Flags)
	e.gray.push(o)
}

// MarkValue marks v's referent if it is collectible, per spec.md's
// mark_value.
func (e *Engine) MarkValue(v gcobj.Value) {
	if v.IsCollectible() {
		e.MarkObject(v.Obj)
	}
}

// MarkRoots marks the fixed root set (spec.md §4.2 "Roots").
func (e *Engine) MarkRoots(mainThread *gcobj.Object, mainEnv *gcobj.Object, registry gcobj.Value, gcroot []*gcobj.Object) {
	e.MarkObject(mainThread)
	e.MarkObject(mainEnv)
	e.MarkValue(registry)
	for _, r := range gcroot {
		e.MarkObject(r)
	}
}

// PropagateOne processes one object from the object-list gray queue,
// returning false if the queue was empty. Threads are demoted back to gray
// (pushed onto grayAgain) instead of left black, per spec.md §4.2: "Threads
// are never left black after traversal."
func (e *Engine) PropagateOne(ctx *gcobj.TraverseContext) bool {
	o := e.gray.pop()
	if o == nil {
		return false
	}
	if o.Traversable != nil {
		o.Traversable.Traverse(ctx, e.MarkObject)
	}
	if o.Kind == gcobj.KindThread {
		o.Flags = gcobj.ToGray(o.Flags)
		e.grayAgain.push(o)
	} else {
		o.Flags = gcobj.ToBlack(o.Flags, e.Colors.Black())
	}
	return true
}

// PropagateArena processes every gray slot of one arena dequeued from a
// per-kind arena-gray queue: for each slot forEachGray visits, it clears the
// gray bit, traverses the object, and routes tables with a weak mode onto
// the weak list (weak values, or weak keys and values) or the ephemeron list
// (weak keys only) (spec.md §4.2's gc_traverse_tab weak-mode branch).
//
// The caller (the root package's State, which owns the concrete
// *gcarena.Header and *gcobj.Object-per-slot mapping) supplies forEachGray.
func (e *Engine) PropagateArena(ctx *gcobj.TraverseContext, forEachGray func(visit func(o *gcobj.Object))) {
	forEachGray(func(o *gcobj.Object) {
		o.Arena.Gray.Clear(o.Slot)
		if o.Traversable == nil {
			return
		}
		weak := o.Traversable.Traverse(ctx, e.MarkObject)
		if weak == gcobj.WeakNone {
			return
		}
		if weak&gcobj.WeakKey != 0 && weak&gcobj.WeakVal == 0 {
			e.ephemeron.push(o)
		} else {
			e.weak.push(o)
		}
	})
}

// HasGrayWork reports whether the object-list gray queue still has work,
// used by the scheduler to decide when propagate is done.
func (e *Engine) HasGrayWork() bool { return !e.gray.empty() }

// GrayAgain exposes the grayagain queue for the atomic-phase rescan
// (spec.md §4.4 step 3).
func (e *Engine) GrayAgain() []*gcobj.Object { return drainToSlice(&e.grayAgain) }

// Weak exposes the non-ephemeron weak-table queue for atomic-phase clearing
// (spec.md §4.4 step 7).
func (e *Engine) Weak() []*gcobj.Object { return drainToSlice(&e.weak) }

// Ephemeron exposes the weak-key table queue.
func (e *Engine) Ephemeron() []*gcobj.Object { return drainToSlice(&e.ephemeron) }

// ClearWeakLists empties weak and ephemeron without returning their
// contents. The atomic phase calls it once the dead entries of the listed
// tables have been cleared, so each cycle's propagate starts with empty lists.
func (e *Engine) ClearWeakLists() {
	e.weak = objList{}
	e.ephemeron = objList{}
}

func drainToSlice(l *objList) []*gcobj.Object {
	var out []*gcobj.Object
	l.drain(func(o *gcobj.Object) { out = append(out, o) })
	return out
}

// PushGrayAgain re-enqueues o onto the grayagain queue directly (used by the
// atomic-phase rescan after re-traversing a table or thread, spec.md §4.4
// step 3).
func (e *Engine) PushGrayAgain(o *gcobj.Object) { e.grayAgain.push(o) }

// PushEphemeron re-enqueues a table onto the ephemeron queue (used when the
// atomic rescan determines a table is still weak-key after re-traversal).
func (e *Engine) PushEphemeron(o *gcobj.Object) { e.ephemeron.push(o) }

// PushWeak re-enqueues a table onto the non-ephemeron weak queue.
func (e *Engine) PushWeak(o *gcobj.Object) { e.weak.push(o) }
