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

// Package finalize implements the finalizer pipeline of spec.md §4.6: the
// presweep pass that resurrects newly-unreachable userdata/tables carrying
// a registered finalizer, the fin_list chain, the finalize_arena step that
// runs user finalizers with the collector paused, and the legacy mmudata
// chain.
//
// Grounded on original_source/src/lj_gc.c's lj_gc_separateudata/
// gc_presweep_udata/gc_finalize family.
package finalize

import (
	"fmt"

	"github.com/vmthings/trigc/internal/bitmap"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
)

// Pipeline owns the fin_list chain and the legacy mmudata chain.
type Pipeline struct {
	finList []*gcobj.Object
	mmudata []*gcobj.Object

	// OnError receives errors captured from user finalizer code (spec.md
	// §4.6, §7): surfaced via an ERRFIN-equivalent event, then discarded.
	OnError func(obj *gcobj.Object, err error)
}

// New returns an empty Pipeline.
func New() *Pipeline { return &Pipeline{} }

// Register appends ud to the legacy mmudata finalize chain (the
// registergc_udata(L, ud) interface point of spec.md §6).
func (p *Pipeline) Register(o *gcobj.Object) { p.mmudata = append(p.mmudata, o) }

// Reset clears fin_list, matching lj_gc_separateudata's
// `setgcrefnull(g->gc.fin_list)` at the start of every atomic phase.
func (p *Pipeline) Reset() { p.finList = nil }

// PresweepRound runs one presweep pass over finTabArenas (ungated) and
// udataArenas (gated by FinReq), resurrecting any object found occupied,
// not already finalizing, and currently unmarked: it sets Fin, Mark, and
// Gray on the resurrected slot, enqueues the arena for a gray rescan via
// enqueueGray, and appends the object (looked up via objAt) to fin_list.
// Returns whether any new work was produced, so the atomic phase can decide
// whether a second round (and a mark propagation pass) is needed — spec.md
// §4.4 step 6: "Run presweep twice in sequence... because resurrecting a
// finalizable object may make another finalizable object reachable."
func (p *Pipeline) PresweepRound(
	finTabArenas, udataArenas []*gcarena.Header,
	objAt func(h *gcarena.Header, slot int) *gcobj.Object,
	enqueueGray func(h *gcarena.Header),
) bool {
	changed := false
	for _, h := range finTabArenas {
		if presweepArena(h, nil, func(slot int) {
			p.finList = append(p.finList, objAt(h, slot))
		}) {
			changed = true
			enqueueGray(h)
		}
	}
	for _, h := range udataArenas {
		if presweepArena(h, &h.FinReq, func(slot int) {
			p.finList = append(p.finList, objAt(h, slot))
		}) {
			changed = true
			enqueueGray(h)
		}
	}
	return changed
}

// presweepArena computes f = occupied & !fin & !mark (optionally gated by
// gate, e.g. FinReq for userdata), resurrects every bit in f, and reports
// newly-finalizable slots to onNewWork (spec.md §4.4 step 6).
func presweepArena(h *gcarena.Header, gate *bitmap.Words, onNewWork func(slot int)) bool {
	changed := false
	for i := range h.Mark.W {
		f := h.Free.W[i].Not().And(h.Fin.W[i].Not()).And(h.Mark.W[i].Not())
		if gate != nil {
			f = f.And(gate.W[i])
		}
		if i == 0 && h.HeaderSlots > 0 {
			f = f.AndNot(bitmap.Word(1)<<uint(h.HeaderSlots) - 1)
		}
		if rem := h.Capacity % 64; rem != 0 && i == len(h.Mark.W)-1 {
			f = f.And(bitmap.Word(1)<<uint(rem) - 1)
		}
		if f == 0 {
			continue
		}
		h.Fin.W[i] = h.Fin.W[i].Or(f)
		h.Mark.W[i] = h.Mark.W[i].Or(f)
		h.Gray.W[i] = h.Gray.W[i].Or(f)
		changed = true
		for f != 0 {
			bit := f.Ctz()
			onNewWork(i*64 + bit)
			f = f.Clear(uint(bit))
		}
	}
	if changed {
		recomputeSummary(&h.Fin)
		recomputeSummary(&h.Mark)
		recomputeSummary(&h.Gray)
	}
	return changed
}

func recomputeSummary(w *bitmap.Words) {
	w.Summary = 0
	for i, word := range w.W {
		if word != 0 {
			w.Summary = w.Summary.Set(uint(i))
		}
	}
}

// Pending reports how many objects remain on fin_list.
func (p *Pipeline) Pending() int { return len(p.finList) }

// FinalizeArenaStep implements the GCSfinalize_arena scheduler state
// (spec.md §4.6, §4.8): drains one object from fin_list per call, invoking
// run with the collector effectively paused. run's error is captured and
// routed to OnError, then discarded — it is never retried.
func (p *Pipeline) FinalizeArenaStep(run func(o *gcobj.Object) error) bool {
	if len(p.finList) == 0 {
		return false
	}
	o := p.finList[0]
	p.finList = p.finList[1:]
	if err := run(o); err != nil {
		if p.OnError != nil {
			p.OnError(o, fmt.Errorf("trigc: finalizer: %w", err))
		}
	}
	o.Flags |= gcobj.FlagFinalized
	return true
}

// FinalizeStep implements the legacy GCSfinalize state, draining the
// mmudata chain one object per call (spec.md §4.6, §4.8).
func (p *Pipeline) FinalizeStep(run func(o *gcobj.Object) error) bool {
	if len(p.mmudata) == 0 {
		return false
	}
	o := p.mmudata[0]
	p.mmudata = p.mmudata[1:]
	if err := run(o); err != nil {
		if p.OnError != nil {
			p.OnError(o, fmt.Errorf("trigc: finalizer: %w", err))
		}
	}
	o.Flags |= gcobj.FlagFinalized
	return true
}
