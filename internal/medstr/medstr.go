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

// Package medstr implements the medium-string arena of spec.md §3 and §4.5:
// a variable-size freelist allocator for interned strings too large for the
// fixed 16-byte small-string slot but not large enough to warrant their own
// page (spec.md's smallStringMax..mediumStringMax band). Unlike
// internal/gcarena's bitmap-indexed fixed-size slots, a medium-string arena
// holds runs of varying length addressed by 16-byte unit offset, threaded
// through an intrusive freelist exactly as spec.md describes.
//
// Grounded directly on original_source/src/lj_gc.c's GCAstr medium-string
// pool: lj_arena_str_med_new (fresh-arena layout), lj_mem_allocstr_med
// (first-fit-from-free_start, carve-from-tail), and gc_sweep_str_med /
// gc_aggregate_str_freelist (the per-run sweep collapse and freelist
// coalesce). See DESIGN.md for the two deliberate simplifications this
// package makes relative to the C source: a single headerUnits reservation
// instead of per-string inline-header accounting, and a rebuild-based
// coalesce instead of the incremental parallel bit/list walk the C version
// uses purely for SIMD throughput.
package medstr

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vmthings/trigc/internal/bitmap"
	"github.com/vmthings/trigc/internal/diag"
	"github.com/vmthings/trigc/internal/page"
)

// errFreshTooSmall indicates a freshly acquired arena could not satisfy an
// allocation that should have fit within one arena (a misconfigured tuning,
// not a steady-state out-of-memory condition).
var errFreshTooSmall = errors.New("trigc: medstr: fresh arena too small for requested run")

// UnitSize is the granularity medium-string runs are sized and addressed in:
// spec.md's "size_in_16byte_units".
const UnitSize = 16

// headerUnits is reserved at the front of every fresh arena so that unit
// offset 0 is never a valid block start, the same role gcarena.Header's
// HeaderSlots plays for bitmap arenas (spec.md §3's ELEMENTS_OCCUPIED).
const headerUnits = 1

// noNext marks the end of the freelist chain (spec.md's `next_offset` having
// no valid unit to point to).
const noNext = -1

// UnitsFor returns the number of UnitSize-byte units a string of n bytes
// occupies, rounding up.
func UnitsFor(n int) int {
	return (n + UnitSize - 1) / UnitSize
}

// FreeBlock is the intrusive freelist node spec.md describes: a run's size
// in units plus the unit offset of the next free run. It is addressed by
// offset into the owning Arena rather than by pointer, since Go arenas here
// are plain []byte, not individually addressable C structs.
type FreeBlock struct {
	Size int // in units
	Next int // unit offset of the next free block, or noNext
}

// Flags mirrors gcarena.Flags' role for medium-string arenas, trimmed to
// what this allocator actually needs.
type Flags uint32

const (
	// FlagPrimary marks the list's immortal arena: never released to the
	// page provider even when fully free.
	FlagPrimary Flags = 1 << iota
)

// Arena is one medium-string arena. Liveness and free/live classification
// are tracked per run-start unit offset; the interior units of a run are
// never independently touched (spec.md: "extent continuation"), so Mark and
// Fixed only ever have bits set at live run-starts, and Free only at free
// run-starts.
type Arena struct {
	Buf       []byte
	Capacity  int // total addressable units, including headerUnits
	FreeStart int // unit offset of the first free block, or noNext

	Mark  bitmap.Words // set at a live run-start iff marked this cycle
	Free  bitmap.Words // set at a free run-start
	Fixed bitmap.Words // pinned live run-starts, never swept (unwired, parity with gcarena.Header.Fixed)

	free map[int]*FreeBlock // free run-start offset -> block
	live map[int]int        // live run-start offset -> size in units

	Flags      Flags
	prev, next *Arena
	Owner      *List
}

// TestMark and SetMark implement gcobj.MediumArena, letting the mark engine
// treat a medium string exactly like an arena-bitmap slot (internal/mark),
// the same dispatch small/table/function slots already get through
// gcarena.Header.Mark.
func (a *Arena) TestMark(offset int) bool { return a.Mark.Test(offset) }
func (a *Arena) SetMark(offset int)       { a.Mark.Set(offset) }

// Any reports whether this arena holds any live string.
func (a *Arena) Any() bool { return len(a.live) != 0 }

// LiveUnits sums the size, in units, of every live run. Used by the
// occupancy panel (SPEC_FULL.md §10.7) and the collector's live-bytes
// estimate.
func (a *Arena) LiveUnits() int {
	n := 0
	for _, units := range a.live {
		n += units
	}
	return n
}

// Alloc reserves a run of units 16-byte blocks via first-fit over the free
// list starting at FreeStart. An exact match unlinks the block outright; an
// oversized match is carved from its tail, so the original block's identity
// and list position never change for a partial allocation
// (lj_mem_allocstr_med).
func (a *Arena) Alloc(units int) (offset int, ok bool) {
	prev := noNext
	cur := a.FreeStart
	for cur != noNext {
		blk := a.free[cur]
		switch {
		case blk.Size == units:
			a.unlinkFree(prev, cur)
			a.markLive(cur, units)
			return cur, true
		case blk.Size > units:
			tail := cur + (blk.Size - units)
			blk.Size -= units
			a.markLive(tail, units)
			return tail, true
		default:
			prev = cur
			cur = blk.Next
		}
	}
	return 0, false
}

func (a *Arena) unlinkFree(prev, cur int) {
	blk := a.free[cur]
	if prev == noNext {
		a.FreeStart = blk.Next
	} else {
		a.free[prev].Next = blk.Next
	}
	delete(a.free, cur)
	a.Free.Clear(cur)
}

func (a *Arena) markLive(offset, units int) {
	diag.Assert(a.free[offset] == nil, "trigc: medstr: offset %d already tracked as a free block when marking it live", offset)
	a.live[offset] = units
	a.Free.Clear(offset)
}

func (a *Arena) addFree(offset, units int) {
	a.free[offset] = &FreeBlock{Size: units, Next: noNext}
	a.Free.Set(offset)
}

// Sweep collapses every live run-start (gc_sweep_str_med, collapsed to the
// three cases that remain once free-run interiors are excluded from the
// scan — see DESIGN.md): a fixed (pinned) run-start is left untouched; a
// marked run-start survives with its mark bit reset for the next cycle; an
// unmarked run-start dies, reported via onDead and turned into a fresh
// free-block start. Adjacent free runs are coalesced once, at the end, if
// anything died this sweep. Returns whether the arena still holds any live
// string.
func (a *Arena) Sweep(onDead func(offset int)) bool {
	died := false
	for offset, units := range a.live {
		if a.Fixed.Test(offset) {
			continue
		}
		if a.Mark.Test(offset) {
			a.Mark.Clear(offset)
			continue
		}
		if onDead != nil {
			onDead(offset)
		}
		delete(a.live, offset)
		a.addFree(offset, units)
		died = true
	}
	if died {
		a.coalesce()
	}
	return a.Any()
}

// coalesce rebuilds the free list by merging address-adjacent free runs
// into single blocks and rethreading Next. This replaces
// gc_aggregate_str_freelist's incremental parallel bit-scan/list-merge with
// a full rebuild each sweep that produced new deaths: semantically
// equivalent (the end state is the same maximal-run free list), simpler to
// reason about without the C version's SIMD-driven bit-parallel walk, which
// exists there purely for throughput, not for the resulting data structure.
func (a *Arena) coalesce() {
	offsets := make([]int, 0, len(a.free))
	for off := range a.free {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	merged := offsets[:0]
	for _, off := range offsets {
		blk := a.free[off]
		if n := len(merged); n > 0 {
			prevOff := merged[n-1]
			prevBlk := a.free[prevOff]
			if prevOff+prevBlk.Size == off {
				prevBlk.Size += blk.Size
				delete(a.free, off)
				a.Free.Clear(off)
				continue
			}
		}
		merged = append(merged, off)
	}

	a.FreeStart = noNext
	for i := len(merged) - 1; i >= 0; i-- {
		off := merged[i]
		if i == len(merged)-1 {
			a.free[off].Next = noNext
		} else {
			a.free[off].Next = merged[i+1]
		}
	}
	if len(merged) > 0 {
		a.FreeStart = merged[0]
	}
}

func (a *Arena) fresh(provider page.Provider, arenaBytes int) error {
	buf, err := provider.Alloc(arenaBytes)
	if err != nil {
		return fmt.Errorf("trigc: medstr: acquire arena: %w", err)
	}
	units := arenaBytes / UnitSize
	a.Buf = buf
	a.Capacity = units
	a.Mark = bitmap.NewWords(units)
	a.Free = bitmap.NewWords(units)
	a.Fixed = bitmap.NewWords(units)
	a.free = make(map[int]*FreeBlock)
	a.live = make(map[int]int)
	a.free[headerUnits] = &FreeBlock{Size: units - headerUnits, Next: noNext}
	a.Free.Set(headerUnits)
	a.FreeStart = headerUnits
	return nil
}
