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

package trigc

import (
	"time"

	"github.com/vmthings/trigc/internal/blob"
	"github.com/vmthings/trigc/internal/diag"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/medstr"
	"github.com/vmthings/trigc/internal/sched"
	"github.com/vmthings/trigc/internal/sweep"
)

const objectStepCost = 16 // approximate per-object propagation cost, spec.md §4.8

// Step drives the scheduler by one incremental unit (spec.md §6's step(L)),
// returning 0 while mid-cycle, -1 if debt still exceeds the post-cycle
// threshold (the host should call Step again soon), or 1 once a full cycle
// completed.
func (s *State) Step() int {
	s.checkOwner()
	start := time.Now()
	r := s.sched.Step()
	s.stepCost.Record(float64(time.Since(start)))
	return r
}

// StepFixtop is step_fixtop(L) of spec.md §6: identical pacing to Step, but
// intended for the call site right after a stack grow, where the host wants
// one extra nudge without changing debt accounting semantics.
func (s *State) StepFixtop() int { return s.Step() }

// StepJIT is step_jit(L) of spec.md §6: identical to Step, offered as a
// distinct entry point so a JIT-aware host can account trace-compile-time
// allocation debt separately without the collector caring which call site
// it came from.
func (s *State) StepJIT() int { return s.Step() }

// FullGC runs fullgc(maximal) (spec.md §4.8, §6) and completes exactly one
// cycle. If maximal, an in-progress cycle is first drained to Pause and a
// fresh cycle is run; otherwise an in-progress cycle is drained only once it
// is past the atomic phase, and a cycle still at or before atomic is simply
// finished as that one cycle (see sched.Scheduler.FullGC).
func (s *State) FullGC(maximal bool) {
	s.checkOwner()
	start := time.Now()
	s.sched.FullGC(maximal)
	s.pauseTime.Record(float64(time.Since(start)))
}

// seedRoots is the Pause->Propagate hook: mark the fixed root set gray
// (spec.md §4.2 "Roots").
func (s *State) seedRoots() {
	if s.sched.Phase == sched.Pause {
		// Start of a mark cycle: traversal re-accounts every live payload.
		s.Blobs.ResetUsage()
	}
	s.Engine.MarkRoots(s.MainThread, s.MainEnv, s.Registry, s.GCRoot)
	if s.ActiveTrace != nil {
		s.Engine.MarkObject(s.ActiveTrace)
	}
	diag.Log(s.id(), "seed_roots", "roots marked")
}

func (s *State) traverseCtx(atomic bool) *gcobj.TraverseContext {
	return &gcobj.TraverseContext{
		Atomic:           atomic,
		JITTraceActive:   s.JITTraceActive,
		MoveBlob:         s.moveBlob,
		AccountBlobUsage: s.accountBlobUsage,
	}
}

func (s *State) moveBlob(owner *gcobj.Object, base uintptr, size int) (uintptr, bool) {
	newAddr, moved, err := s.Blobs.MoveIfReap(blob.Addr(base), size)
	if err != nil {
		diag.Log(s.id(), "move_blob", "relocate failed: %s", err)
		return base, false
	}
	return uintptr(newAddr), moved
}

func (s *State) accountBlobUsage(base uintptr, size int) {
	if base == 0 {
		return
	}
	s.Blobs.AccountUsage(blob.Addr(base), size)
}

// forEachGraySlot bridges a gcarena.Header's Gray bitmap to
// mark.Engine.PropagateArena's forEachGray callback contract (spec.md
// §4.2): it walks every set bit, looks up the slot's Object, and invokes
// visit, which PropagateArena wraps to clear the bit as a side effect.
// Slots with no registered Object (should not happen in practice) have
// their bit cleared directly, so a bookkeeping gap never spins forever.
func (s *State) forEachGraySlot(h *gcarena.Header) func(visit func(*gcobj.Object)) {
	return func(visit func(*gcobj.Object)) {
		for {
			idx, ok := h.Gray.FirstSet()
			if !ok {
				return
			}
			o := s.objAt(h, idx)
			if o == nil {
				h.Gray.Clear(idx)
				continue
			}
			visit(o)
		}
	}
}

// propagateStep is the Propagate-phase hook: drains object-list gray work
// first, then one gray arena per kind, until budget is spent or both queues
// are empty (spec.md §4.2, §4.8).
func (s *State) propagateStep(budget int) (consumed int, more bool) {
	ctx := s.traverseCtx(false)
	for consumed < budget {
		if s.Engine.PropagateOne(ctx) {
			consumed += objectStepCost
			continue
		}
		if s.propagateOneArena(ctx) {
			consumed += s.Tuning.GCStepSize / 4
			continue
		}
		return consumed, false
	}
	return consumed, s.hasGrayWork()
}

func (s *State) propagateOneArena(ctx *gcobj.TraverseContext) bool {
	for _, k := range arenaKinds {
		l := s.arenas[k]
		if h := l.DequeueGray(); h != nil {
			s.Engine.PropagateArena(ctx, s.forEachGraySlot(h))
			return true
		}
	}
	return false
}

func (s *State) hasGrayWork() bool {
	if s.Engine.HasGrayWork() {
		return true
	}
	for _, k := range arenaKinds {
		if s.arenas[k].HasGray() {
			return true
		}
	}
	return false
}

// drainGrayToFixpoint repeatedly drains both gray-queue flavors until
// neither makes further progress, since propagating one flavor's work can
// enqueue fresh work for the other (spec.md §4.4 step 3: re-traversal during
// atomic can gray further objects).
func (s *State) drainGrayToFixpoint(ctx *gcobj.TraverseContext) {
	for {
		progressed := false
		for s.Engine.PropagateOne(ctx) {
			progressed = true
		}
		for s.propagateOneArena(ctx) {
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// runAtomic implements the indivisible atomic phase of spec.md §4.4,
// steps 1-10.
func (s *State) runAtomic() {
	ctx := s.traverseCtx(true)

	// 1. Reset fin_list. The weak and ephemeron lists still hold the weak
	// tables traversed during propagate; they are emptied after step 7.
	s.fin.Reset()

	// 2. Mark roots and the active trace again (anything allocated since
	// propagate began is still white otherwise).
	s.seedRoots()
	s.drainGrayToFixpoint(ctx)

	// 3. Rescan grayagain (threads demoted during propagate) under the
	// atomic context, which additionally nils dead stack slots.
	for _, th := range s.Engine.GrayAgain() {
		if th.Traversable != nil {
			th.Traversable.Traverse(ctx, s.Engine.MarkObject)
		}
		th.Flags = gcobj.ToBlack(th.Flags, s.Engine.Colors.Black())
	}
	s.drainGrayToFixpoint(ctx)

	// 4. Ephemeron fixpoint: mark newly-reachable weak-key values, requeue
	// tables whose key is still white, and re-drain after every round that
	// changed anything (a mark can enqueue further gray work).
	pending := s.Engine.Ephemeron()
	for {
		changed, stillPending := s.Engine.EphemeronFixpoint(pending)
		pending = stillPending
		if !changed {
			break
		}
		s.drainGrayToFixpoint(ctx)
	}
	for _, t := range pending {
		s.Engine.PushEphemeron(t)
	}

	// 5. Prune dead open-upvalues from every thread.
	for o := range s.listObjects {
		if o.Kind != gcobj.KindThread {
			continue
		}
		if th, ok := o.Traversable.(*gcobj.Thread); ok {
			th.PruneDeadUpvalues(s.Engine.Colors)
		}
	}

	// 6. Presweep finalizable objects twice: resurrecting one finalizable
	// object can make another one reachable.
	for round := 0; round < 2; round++ {
		changed := s.fin.PresweepRound(s.finTabHeaders(), s.userdataHeaders(), s.objAt, func(h *gcarena.Header) {
			s.arenas[h.Kind].EnqueueGray(h)
		})
		if changed {
			s.drainGrayToFixpoint(ctx)
		}
	}

	// 7. Clear weak-table entries whose key or value is still white.
	s.clearDeadWeakEntries(s.Engine.Weak())
	s.clearDeadWeakEntries(pending)
	s.Engine.ClearWeakLists() // next cycle's propagate starts with empty lists

	// 8. Flip current-black, unless minor mode (spec.md §3, §4.4 step 8).
	if !s.Tuning.MinorMode {
		s.Engine.Colors.Flip()
	}

	// 9. Build the flat sweep queue for the Sweep phase.
	s.beginSweep()

	// 10. Recompute the live estimate for next cycle's threshold.
	s.sched.SetEstimate(s.estimateLiveBytes())
}

func (s *State) finTabHeaders() []*gcarena.Header {
	var out []*gcarena.Header
	s.arenas[gcarena.KindFinTab].Sweeps(func(h *gcarena.Header) { out = append(out, h) })
	return out
}

func (s *State) userdataHeaders() []*gcarena.Header {
	var out []*gcarena.Header
	s.arenas[gcarena.KindUserdata].Sweeps(func(h *gcarena.Header) { out = append(out, h) })
	return out
}

// clearDeadWeakEntries nils every hash entry (and weak-value array slot) of
// tables whose key or value is white, per spec.md §4.4 step 7.
func (s *State) clearDeadWeakEntries(tables []*gcobj.Object) {
	for _, o := range tables {
		t, ok := o.Traversable.(*gcobj.Table)
		if !ok {
			continue
		}
		for i := range t.Hash {
			n := &t.Hash[i]
			if n.Val.IsNil() {
				continue
			}
			keyDead := n.Key.IsCollectible() && s.Engine.IsWhite(n.Key.Obj)
			valDead := n.Val.IsCollectible() && s.Engine.IsWhite(n.Val.Obj)
			if keyDead || valDead {
				n.Key, n.Val = gcobj.Nil, gcobj.Nil
			}
		}
		for i := range t.Array {
			if t.Array[i].IsCollectible() && s.Engine.IsWhite(t.Array[i].Obj) {
				t.Array[i] = gcobj.Nil
			}
		}
	}
}

// beginSweep builds the flat cross-kind sweep queue (spec.md §4.5): every
// sibling arena of every kind, in kind order, plus the huge-string chain and
// the blob region swept once at the end.
func (s *State) beginSweep() {
	s.sweepQueue = s.sweepQueue[:0]
	for _, k := range arenaKinds {
		s.arenas[k].Sweeps(func(h *gcarena.Header) {
			s.sweepQueue = append(s.sweepQueue, h)
		})
	}
	s.sweepIdx = 0
}

// sweepOneHeader sweeps a single arena out of band with the main sweep
// queue (used by gcarena.List.AcquireForAlloc when handed a stale-parity
// freelist arena mid-allocation, spec.md §4.1).
func (s *State) sweepOneHeader(h *gcarena.Header) {
	s.sweepArena(h)
	h.Flags ^= gcarena.FlagSweeps
}

func (s *State) sweepArena(h *gcarena.Header) sweep.Result {
	switch h.Kind {
	case gcarena.KindStringSmall:
		return sweep.SmallString(h, func(slot int) { s.onStringSlotFreed(h, slot) })
	case gcarena.KindFinTab:
		return sweep.FinTab(h, s.Tuning.MinorMode)
	case gcarena.KindUserdata:
		return sweep.Userdata(h, func(slot int) { s.onUserdataSlotFreed(h, slot) })
	default:
		return sweep.Fixed(h, nil, s.Tuning.MinorMode)
	}
}

func (s *State) onStringSlotFreed(h *gcarena.Header, slot int) {
	if str, ok := s.stringSlotAt(h, slot); ok {
		s.Strings.Remove(str.Hid)
		delete(s.stringAt[h], slot)
	}
	delete(s.objects[h], slot)
}

func (s *State) onMediumStringFreed(a *medstr.Arena, offset int) {
	if str, ok := s.mediumStringAt(a, offset); ok {
		s.Strings.Remove(str.Hid)
		delete(s.mediumAt[a], offset)
	}
}

// sweepMediumStrings sweeps every medium-string arena once per cycle
// (spec.md §4.5): unlike the fixed-slot kinds, these are not paced across
// several Sweep-phase steps, matching how sweepHugeStrings and Blobs.Sweep
// are also swept in one go once the fixed-slot queue drains.
func (s *State) sweepMediumStrings() {
	s.medium.Sweeps(func(a *medstr.Arena) {
		any := a.Sweep(func(offset int) { s.onMediumStringFreed(a, offset) })
		if !any && a.Flags&medstr.FlagPrimary == 0 {
			s.medium.Release(a)
		}
	})
}

func (s *State) onUserdataSlotFreed(h *gcarena.Header, slot int) {
	o := s.objAt(h, slot)
	if o == nil {
		return
	}
	if ud, ok := o.Traversable.(*gcobj.Userdata); ok && ud.Buffer != nil {
		ud.Buffer = nil
	}
	delete(s.objects[h], slot)
}

// sweepStep implements the Sweep-phase hook: sweeps up to budget arenas
// from the flat queue built by beginSweep, per spec.md §4.5, §4.8
// (GCSWEEPMAX arenas per step). Once the queue drains it also sweeps the
// object-list kinds, the huge-string chain, and the blob region, since none
// of those have a natural per-call granularity worth pacing separately.
func (s *State) sweepStep(budget int) (consumed int, more bool) {
	n := 0
	for n < budget && s.sweepIdx < len(s.sweepQueue) {
		h := s.sweepQueue[s.sweepIdx]
		s.sweepIdx++
		res := s.sweepArena(h)
		consumed += s.Tuning.GCSweepCost
		if res.Released {
			s.dropArenaObjects(h)
		}
		n++
	}
	if s.sweepIdx < len(s.sweepQueue) {
		return consumed, true
	}
	s.sweepListObjects()
	s.sweepHugeStrings()
	s.sweepMediumStrings()
	s.Blobs.Sweep()
	return consumed, false
}

// sweepListObjects sweeps the object-list kinds (thread/proto/trace/cdata):
// since atomic's step 8 already flipped current-black, the bit an object
// carries from being blackened during the cycle that just ended is now
// Colors.White() (spec.md §3's alternating-black-bit scheme); anything
// without that bit was never marked and is dead. Survivors are reset to
// colorless flags so MarkObject/IsWhite can promote them again next cycle.
func (s *State) sweepListObjects() {
	survivorBit := s.Engine.Colors.White()
	for o := range s.listObjects {
		if o.Flags&survivorBit == 0 {
			delete(s.listObjects, o)
			continue
		}
		if !s.Tuning.MinorMode {
			o.Flags = gcobj.ToWhite(o.Flags)
		}
	}
}

func (s *State) sweepHugeStrings() {
	survivorBit := s.Engine.Colors.White()
	nodes := make([]*sweep.HugeNode, len(s.huge))
	byNode := make(map[*sweep.HugeNode]*hugeStringEntry, len(s.huge))
	for i, e := range s.huge {
		e.node.Marked = e.str.Flags&survivorBit != 0
		nodes[i] = e.node
		byNode[e.node] = e
	}
	live := sweep.SweepHugeChain(nodes, func(n *sweep.HugeNode) {
		e := byNode[n]
		s.Strings.Remove(e.str.Hid)
	})
	out := make([]*hugeStringEntry, 0, len(live))
	for _, n := range live {
		e := byNode[n]
		e.str.Flags = gcobj.ToWhite(e.str.Flags)
		out = append(out, e)
	}
	s.huge = out
}

// finalizeArenaStep drains one resurrected-object finalizer per call
// (spec.md §4.6, §4.8's GCSfinalize_arena).
func (s *State) finalizeArenaStep() (consumed int, more bool) {
	more = s.fin.FinalizeArenaStep(s.runFinalizer)
	if more {
		consumed = s.Tuning.GCFinalizeCost
	}
	return consumed, more
}

// finalizeStep drains the legacy mmudata chain one object per call
// (spec.md §4.6, §4.8's GCSfinalize).
func (s *State) finalizeStep() (consumed int, more bool) {
	more = s.fin.FinalizeStep(s.runFinalizer)
	if more {
		consumed = s.Tuning.GCFinalizeCost
	}
	return consumed, more
}

// estimateLiveBytes sums every arena's occupied-slot count times its
// element size plus the blob region's accounted usage, the post-atomic
// live-data estimate spec.md §4.4 step 10 and §4.8 feed into the next
// cycle's threshold.
func (s *State) estimateLiveBytes() int {
	total := 0
	for _, k := range arenaKinds {
		l := s.arenas[k]
		l.Sweeps(func(h *gcarena.Header) {
			live := h.Capacity - h.HeaderSlots - countFree(h)
			total += live * int(h.ElemSize)
		})
	}
	s.medium.Sweeps(func(a *medstr.Arena) {
		total += a.LiveUnits() * medstr.UnitSize
	})
	total += s.Blobs.PageCount() * s.Tuning.ArenaSize / 4 // rough blob contribution, refined by ResetUsage/AccountUsage across cycles
	return total
}

func countFree(h *gcarena.Header) int {
	n := 0
	for i := h.HeaderSlots; i < h.Capacity; i++ {
		if h.Free.Test(i) {
			n++
		}
	}
	return n
}

// FreeAll implements freeall(L) of spec.md §6: a terminal sweep where only
// fixed/immortal objects (here: the primary arenas and the main thread)
// survive, running every remaining finalizer along the way. It is intended
// for interpreter shutdown and is not incremental.
func (s *State) FreeAll() {
	s.checkOwner()
	s.sched.FullGC(true)
	for {
		_, more := s.finalizeArenaStep()
		if !more {
			break
		}
	}
	for {
		_, more := s.finalizeStep()
		if !more {
			break
		}
	}
	for _, k := range arenaKinds {
		l := s.arenas[k]
		l.Sweeps(func(h *gcarena.Header) {
			h.Mark.Reset()
			s.sweepArena(h)
		})
	}
	s.medium.Sweeps(func(a *medstr.Arena) {
		a.Mark.Reset()
		any := a.Sweep(func(offset int) { s.onMediumStringFreed(a, offset) })
		if !any && a.Flags&medstr.FlagPrimary == 0 {
			s.medium.Release(a)
		}
	})
}
