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

// Package sweep implements the sweep engine of spec.md §4.5: per-arena
// bitmap sweep producing fresh `free` bitmaps from `mark`, arena release,
// freelist scheduling, and the kind-specific post-sweep passes (small/huge
// string interning cleanup, finalizer-table AND, scalar userdata teardown).
// Medium strings' freelist sweep is a separate truth table over variable-
// size runs rather than fixed bitmap slots, so it lives in internal/medstr
// instead of here.
//
// Grounded on original_source/src/lj_gc.c's gc_sweep_* family for the
// per-kind dataflow, and built atop internal/bitmap's Backend for the
// "SIMD-accelerated" word-at-a-time pass spec.md §2 bullet 7 asks for.
package sweep

import (
	"github.com/vmthings/trigc/internal/bitmap"
	"github.com/vmthings/trigc/internal/gcarena"
)

// Budget bounds per-step sweep work: GCSWEEPMAX arenas, GCSWEEPCOST per
// arena (spec.md §4.5, §4.8).
type Budget struct {
	MaxArenas int
	Cost      int
}

// Result reports what one arena's sweep did, for the scheduler's cost
// accounting and for tests.
type Result struct {
	Any      bool // any object was live (mark != 0 somewhere)
	Released bool // the arena was returned to the page provider
	Enqueued bool // the arena was (re)linked onto the freelist
}

// Fixed sweeps one fixed-size-slot arena (table, function, upvalue,
// non-string-table userdata bitmap): `free = ~mark`, masked by
// FREE_LOW/FREE_HIGH so header slots are never reported free, mark
// optionally cleared (skipped in minor mode), and the arena released if
// empty and non-primary (spec.md §4.5).
func Fixed(h *gcarena.Header, backend bitmap.Backend, minorMode bool) Result {
	if backend == nil {
		backend = bitmap.Default
	}
	headerMask := headerLowMask(h.HeaderSlots)
	footerMask := footerHighMask(h.Capacity)

	any := backend.SweepMark(h.Free.W, h.Mark.W, headerMask, footerMask)
	recomputeSummary(&h.Free)

	if !minorMode {
		h.Mark.Reset()
	}
	return finishArenaSweep(h, any)
}

// finishArenaSweep applies the release-or-enqueue decision every per-kind
// sweep routine shares (spec.md §4.5): release a non-primary fully-dead
// arena to the page provider, else enqueue it on the freelist if it gained
// any free slot.
func finishArenaSweep(h *gcarena.Header, any bool) Result {
	res := Result{Any: any}
	if !any && h.Flags&gcarena.FlagPrimary == 0 {
		h.Owner.Release(h)
		res.Released = true
		return res
	}
	if h.Free.Any() && h.Flags&gcarena.FlagOnFreelist == 0 {
		h.Owner.PushFreelist(h)
		res.Enqueued = true
	}
	h.Flags &^= gcarena.FlagDirty
	return res
}

func headerLowMask(headerSlots int) bitmap.Word {
	if headerSlots <= 0 {
		return bitmap.Zero
	}
	if headerSlots >= 64 {
		return bitmap.Ones
	}
	return bitmap.Word(1)<<uint(headerSlots) - 1
}

func footerHighMask(capacity int) bitmap.Word {
	rem := capacity % 64
	if rem == 0 {
		return bitmap.Zero
	}
	return ^(bitmap.Word(1)<<uint(rem) - 1)
}

func recomputeSummary(w *bitmap.Words) {
	w.Summary = 0
	for i, word := range w.W {
		if word != 0 {
			w.Summary = w.Summary.Set(uint(i))
		}
	}
}
