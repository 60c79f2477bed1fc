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

// Package gcarena implements the bitmap-indexed, fixed-size-slot arena
// allocator of spec.md §3 ("Arena header", "Bitmaps") and §4.1 ("Arena
// Allocator"). One Arena holds a homogeneous array of same-size slots for a
// single object kind (string, table, function, upvalue, userdata, thread,
// prototype, trace, cdata, or the finalizer-table variant of table).
//
// There is no precedent for this exact shape in the teacher repo — the
// teacher's internal/arena is a monotonic bump allocator with no bitmap
// indexing, no per-slot free/reuse, and no sweep. It is adapted instead into
// internal/blob, which needs bump allocation, not slot reuse. gcarena is
// grounded directly on original_source/src/lj_gc.c's GCAHdr/arena-header
// design (the `mark`/`free`/`gray`/`gray_h` fields, ELEMENTS_OCCUPIED, the
// doubly-linked sibling and freelist chains) and built atop internal/bitmap
// for the word operations and internal/page for backing storage.
package gcarena

import (
	"fmt"

	"github.com/vmthings/trigc/internal/bitmap"
	"github.com/vmthings/trigc/internal/page"
)

// Kind tags the object kind an arena holds, used to select the per-kind
// free/fin/fixed bitmap shape and to dispatch traverse/sweep/free.
type Kind uint8

const (
	KindStringSmall Kind = iota
	KindTable
	KindFinTab // tables with a registered __gc finalizer; swept separately (spec.md §3, §4.5)
	KindFunction
	KindUpvalue
	KindUserdata
	KindThread
	KindProto
	KindTrace
	KindCdata
	numKinds
)

// Medium-size strings (spec.md §3's medium-string band) are not a gcarena
// Kind: they live in a variable-size freelist arena (internal/medstr)
// instead of a bitmap-indexed fixed-slot one, since runs in that band vary
// in length by construction.

func (k Kind) String() string {
	names := [numKinds]string{
		"string-small", "table", "fintab", "function",
		"upvalue", "userdata", "thread", "proto", "trace", "cdata",
	}
	if int(k) >= len(names) {
		return fmt.Sprintf("gcarena.Kind(%d)", k)
	}
	return names[k]
}

// Flags are the arena-header flag bits of spec.md §3.
type Flags uint32

const (
	FlagSweeps     Flags = 1 << iota // parity bit; differs from currentsweep until this arena is swept
	FlagOnFreelist                   // linked into the kind's freelist (has at least one free slot)
	FlagDirty                        // new objects were allocated into swept holes since the last atomic
	FlagPrimary                      // the kind's primary arena: immortal, never released to the page provider
)

// Header is the per-arena header of spec.md §3: object-type tag, flags,
// doubly-linked sibling list, doubly-linked freelist links, and the
// single-direction gray-arena link.
type Header struct {
	Kind        Kind
	Flags       Flags
	ElemSize    uintptr
	Capacity    int // number of slots, including header-occupied ones
	HeaderSlots int // ELEMENTS_OCCUPIED(ArenaT, T): slots consumed by the header itself

	prev, next     *Header // sibling list, all arenas of this Kind
	flPrev, flNext *Header // freelist, arenas with at least one free slot
	grayNext       *Header // gray-arena list (singly linked, spec.md §4.2)
	onGrayList     bool

	Mark bitmap.Words
	Free bitmap.Words
	Gray bitmap.Words
	// GrayH summarizes Gray the same way Words.Summary does, but is spelled
	// out as its own field because spec.md treats gray_h as the thing that
	// triggers the arena's enqueue onto the global gray-arena list (the
	// transition zero->nonzero is the edge that matters, not just its value).
	GrayH bitmap.Word

	Fixed  bitmap.Words // small-string arenas: pinned/never-swept slots
	FinReq bitmap.Words // userdata arenas: requested a finalizer
	Fin    bitmap.Words // userdata + fintab arenas: currently enqueued for finalization

	Page []byte  // backing storage obtained from page.Provider
	Base uintptr // arena-aligned base address of Page

	Owner *List // the List this Header belongs to
}

// Any reports whether this arena holds any live (marked) object.
func (h *Header) Any() bool { return bitmap.Any(h.Mark) }

// AllocSlot implements the fast path of spec.md §4.1:
//
//	i = ctz(free_h); j = ctz(free[i]); clear(free[i] bit j); ...
//
// via the two-level Words.FirstSet lookup. It returns the slot index and
// true, or (0, false) if the arena has no free slot.
func (h *Header) AllocSlot() (int, bool) {
	idx, ok := h.Free.FirstSet()
	if !ok {
		return 0, false
	}
	h.Free.Clear(idx)
	h.Mark.Set(idx)
	h.Flags |= FlagDirty
	return idx, true
}

// AllocRun implements coalesced allocation (spec.md §4.1): scan for a run of
// n adjacent free bits within a single word, clear all of them, and return
// the index of the lowest (the "leader"). n must be 1, 2, or 3 — coalescing
// is only ever attempted for colocated payloads of up to 3 extra slots.
func (h *Header) AllocRun(n int) (int, bool) {
	if n <= 1 {
		return h.AllocSlot()
	}
	for wi := range h.Free.W {
		w := h.Free.W[wi]
		if w == 0 {
			continue
		}
		// k = w & w>>1 & ... & w>>(n-1) keeps exactly the bits that start
		// a run of n set bits within w.
		k := w
		shifted := 1
		for got := 1; got < n; got++ {
			k &= w >> uint(shifted)
			shifted++
		}
		if k == 0 {
			continue
		}
		start := k.Ctz()
		base := wi*64 + start
		for i := 0; i < n; i++ {
			h.Mark.Set(base + i)
			h.Free.Clear(base + i)
		}
		h.Flags |= FlagDirty
		return base, true
	}
	return 0, false
}

// List manages every arena of one Kind: the sibling chain, the primary
// arena, the freelist, and the gray-arena queue (spec.md §4.1, §4.2).
type List struct {
	Kind    Kind
	Primary *Header
	head    *Header // sibling list head (most-recently-acquired arena)
	flHead  *Header
	grayHead, grayTail *Header

	ElemSize    uintptr
	Capacity    int
	HeaderSlots int

	provider page.Provider
}

// NewList constructs an empty List for kind, whose arenas hold elemSize-byte
// slots, capacity of them per arena (computed by the caller from
// ARENA_SIZE/elemSize), with headerSlots reserved at the front for the
// Header's own bookkeeping (spec.md's ELEMENTS_OCCUPIED).
func NewList(kind Kind, provider page.Provider, elemSize uintptr, capacity, headerSlots int) *List {
	return &List{
		Kind:        kind,
		ElemSize:    elemSize,
		Capacity:    capacity,
		HeaderSlots: headerSlots,
		provider:    provider,
	}
}

// fresh acquires a new arena-aligned page from the provider and initializes
// its header and Free bitmap to FREE_MASK, masking out the header's own
// slots (spec.md §4.1: "free_h/free bitmaps are initialized to FREE_MASK...
// with header slots masked out").
func (l *List) fresh() (*Header, error) {
	buf, err := l.provider.Alloc(int(l.ElemSize) * l.Capacity)
	if err != nil {
		return nil, fmt.Errorf("trigc: gcarena: acquire %s arena: %w", l.Kind, err)
	}
	h := &Header{
		Kind:        l.Kind,
		ElemSize:    l.ElemSize,
		Capacity:    l.Capacity,
		HeaderSlots: l.HeaderSlots,
		Mark:        bitmap.NewWords(l.Capacity),
		Free:        bitmap.NewWords(l.Capacity),
		Gray:        bitmap.NewWords(l.Capacity),
		Fixed:       bitmap.NewWords(l.Capacity),
		FinReq:      bitmap.NewWords(l.Capacity),
		Fin:         bitmap.NewWords(l.Capacity),
		Page:        buf,
		Owner:       l,
	}
	for i := l.HeaderSlots; i < l.Capacity; i++ {
		h.Free.Set(i)
	}
	l.linkSibling(h)
	return h, nil
}

func (l *List) linkSibling(h *Header) {
	h.next = l.head
	if l.head != nil {
		l.head.prev = h
	}
	l.head = h
}

func (l *List) unlinkSibling(h *Header) {
	if h.prev != nil {
		h.prev.next = h.next
	} else {
		l.head = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	}
	h.prev, h.next = nil, nil
}

// Sweeps iterates every arena of the list for the sweep engine (internal/sweep).
func (l *List) Sweeps(fn func(*Header)) {
	for h := l.head; h != nil; {
		next := h.next
		fn(h)
		h = next
	}
}

// EnsurePrimary installs the list's immortal primary arena if one does not
// exist yet.
func (l *List) EnsurePrimary() (*Header, error) {
	if l.Primary != nil {
		return l.Primary, nil
	}
	h, err := l.fresh()
	if err != nil {
		return nil, err
	}
	h.Flags |= FlagPrimary
	l.Primary = h
	return h, nil
}

// PushFreelist links h onto the head of the freelist (spec.md §4.1: arenas
// with any new free slot are enqueued if not already on the freelist).
func (l *List) PushFreelist(h *Header) {
	if h.Flags&FlagOnFreelist != 0 {
		return
	}
	h.Flags |= FlagOnFreelist
	h.flNext = l.flHead
	if l.flHead != nil {
		l.flHead.flPrev = h
	}
	l.flHead = h
}

// PopFreelist removes and returns the head of the freelist, or nil.
func (l *List) PopFreelist() *Header {
	h := l.flHead
	if h == nil {
		return nil
	}
	l.flHead = h.flNext
	if l.flHead != nil {
		l.flHead.flPrev = nil
	}
	h.flNext, h.flPrev = nil, nil
	h.Flags &^= FlagOnFreelist
	return h
}

// Release returns a non-primary, fully-dead arena to the page provider and
// removes it from every list it participates in. Spec.md §4.5: "if any == 0
// and this arena is not the primary, unlink from type list and return to the
// page provider."
func (l *List) Release(h *Header) {
	if h.Flags&FlagPrimary != 0 {
		panic("trigc: gcarena: attempted to release the primary arena")
	}
	if h.Flags&FlagOnFreelist != 0 {
		if h.flPrev != nil {
			h.flPrev.flNext = h.flNext
		} else {
			l.flHead = h.flNext
		}
		if h.flNext != nil {
			h.flNext.flPrev = h.flPrev
		}
	}
	l.unlinkSibling(h)
	l.provider.Free(h.Page)
}

// EnqueueGray appends h to the tail of the global per-kind gray-arena list,
// which the collector drains via DequeueGray and mark.Engine.PropagateArena.
// It is a no-op if h is
// already enqueued (spec.md §4.2: "if gray_h transitions from zero to
// nonzero the arena is enqueued").
func (l *List) EnqueueGray(h *Header) {
	if h.onGrayList {
		return
	}
	h.onGrayList = true
	h.grayNext = nil
	if l.grayTail != nil {
		l.grayTail.grayNext = h
	} else {
		l.grayHead = h
	}
	l.grayTail = h
}

// HasGray reports whether the gray-arena list has any arena queued, without
// dequeuing it.
func (l *List) HasGray() bool { return l.grayHead != nil }

// DequeueGray pops the head of the gray-arena list, or nil.
func (l *List) DequeueGray() *Header {
	h := l.grayHead
	if h == nil {
		return nil
	}
	l.grayHead = h.grayNext
	if l.grayHead == nil {
		l.grayTail = nil
	}
	h.grayNext = nil
	h.onGrayList = false
	return h
}

// AcquireForAlloc returns an arena with at least one free slot: the current
// head if it has room, else the first freelist arena (sweeping it first if
// its sweep parity is stale), else a freshly acquired arena (spec.md §4.1).
func (l *List) AcquireForAlloc(currentSweep bool, sweepOne func(*Header)) (*Header, error) {
	if l.head != nil && l.head.Free.Any() {
		return l.head, nil
	}
	if h := l.PopFreelist(); h != nil {
		parity := h.Flags&FlagSweeps != 0
		if parity != currentSweep && sweepOne != nil {
			sweepOne(h)
		}
		l.unlinkSibling(h)
		l.linkSibling(h)
		return h, nil
	}
	h, err := l.fresh()
	if err != nil {
		return nil, err
	}
	if currentSweep {
		h.Flags |= FlagSweeps
	}
	return h, nil
}
