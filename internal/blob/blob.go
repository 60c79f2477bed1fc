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

// Package blob implements the blob region of spec.md §3 ("Blob region") and
// §4.5's blob sweep: a growable list of bump-allocated pages holding
// variable-size payloads owned by GC objects (table array/hash parts,
// prototype constant tables, userdata buffers).
//
// Adapted directly from the teacher's internal/arena: the same bump-pointer
// Alloc/Grow/realloc shape, with pages addressed by id through the Region's
// page slice rather than by pointer, so an Addr holds no Go reference to its
// page — generalized from one monotonic arena with no
// sweeping to a *list* of pages, each independently reaped, with a
// per-page live-usage counter recomputed every mark cycle (spec.md's
// `bloblist_usage[id]`) instead of the teacher's single "Free() resets
// everything" lifecycle, since blob pages have per-object owners that die
// at different times.
package blob

import (
	"fmt"

	"github.com/vmthings/trigc/internal/page"
)

// Addr addresses a byte within the blob region: the high 32 bits are the
// owning page's id, the low 32 bits are the byte offset within that page.
// This plays the role of a raw pointer in spec.md's description without
// requiring unsafe.Pointer arithmetic across independently-allocated pages.
type Addr uint64

// NoAddr is the zero Addr, meaning "no payload allocated yet".
const NoAddr Addr = 0

func makeAddr(id int, offset int) Addr {
	return Addr(uint64(id+1)<<32 | uint64(uint32(offset)))
}

// ID returns the page id this address was allocated from.
func (a Addr) ID() int { return int(a>>32) - 1 }

// Offset returns the byte offset within the page.
func (a Addr) Offset() int { return int(uint32(a)) }

func (a Addr) String() string { return fmt.Sprintf("blob(%d+%#x)", a.ID(), a.Offset()) }

// page_ is one blob-page: a bump-allocated buffer plus the bookkeeping the
// sweep engine needs (spec.md §3, §4.5).
type page_ struct {
	id      int
	buf     []byte
	next    int // bump offset
	usage   int // live bytes accounted during the current mark cycle
	reap    bool
	huge    bool // individually-allocated oversized page (spec.md §3 "Huge object list")
}

// Region is the blob region: a list of pages plus a parallel usage
// accumulator, matching spec.md's `bloblist` / `bloblist_usage[id]`.
type Region struct {
	provider      page.Provider
	pageSize      int
	reapThreshold int

	pages []*page_
	head  int // index of the page Alloc bumps into
}

// NewRegion constructs a blob Region backing pages of pageSize bytes from
// provider, reaping pages whose live usage falls below reapThreshold
// (spec.md §3).
func NewRegion(provider page.Provider, pageSize, reapThreshold int) *Region {
	return &Region{provider: provider, pageSize: pageSize, reapThreshold: reapThreshold, head: -1}
}

// Alloc bump-allocates size bytes, returning the Addr of the new payload.
// Payloads larger than pageSize go through the huge-object path
// (provider.AllocHuge), one page per payload, matching spec.md §3's "huge
// blobs each occupy a dedicated page."
func (r *Region) Alloc(size int) (Addr, error) {
	if size > r.pageSize {
		return r.allocHuge(size)
	}
	if r.head < 0 || r.pages[r.head].next+size > len(r.pages[r.head].buf) {
		if err := r.grow(); err != nil {
			return NoAddr, err
		}
	}
	p := r.pages[r.head]
	off := p.next
	p.next += size
	return makeAddr(p.id, off), nil
}

func (r *Region) allocHuge(size int) (Addr, error) {
	buf, err := r.provider.AllocHuge(size)
	if err != nil {
		return NoAddr, fmt.Errorf("trigc: blob: alloc huge payload of %d bytes: %w", size, err)
	}
	p := &page_{id: len(r.pages), buf: buf, next: size, huge: true}
	r.pages = append(r.pages, p)
	return makeAddr(p.id, 0), nil
}

func (r *Region) grow() error {
	buf, err := r.provider.Alloc(r.pageSize)
	if err != nil {
		return fmt.Errorf("trigc: blob: acquire page: %w", err)
	}
	p := &page_{id: len(r.pages), buf: buf}
	r.pages = append(r.pages, p)
	r.head = p.id
	return nil
}

// Bytes returns the size-byte payload at addr.
func (r *Region) Bytes(addr Addr, size int) []byte {
	p := r.pages[addr.ID()]
	off := addr.Offset()
	return p.buf[off : off+size]
}

// ResetUsage zeroes every page's live-usage counter. Called at the start of
// a mark cycle (gc_mark_start), before traversal recomputes it.
func (r *Region) ResetUsage() {
	for _, p := range r.pages {
		p.usage = 0
	}
}

// AccountUsage adds size live bytes to addr's page, for owners found
// reachable without needing relocation (spec.md §3, §4.2's "else" branch).
func (r *Region) AccountUsage(addr Addr, size int) {
	r.pages[addr.ID()].usage += size
}

// MoveIfReap implements spec.md §4.2's blob-relocation branch: if addr's
// page is flagged REAP, copies the size-byte payload into a fresh page and
// returns its new Addr; otherwise reports moved=false and the caller should
// call AccountUsage instead.
func (r *Region) MoveIfReap(addr Addr, size int) (Addr, bool, error) {
	p := r.pages[addr.ID()]
	if !p.reap {
		return NoAddr, false, nil
	}
	if size <= r.pageSize && r.head >= 0 && r.pages[r.head].reap {
		if err := r.grow(); err != nil {
			return NoAddr, false, err
		}
	}
	newAddr, err := r.Alloc(size)
	if err != nil {
		return NoAddr, false, err
	}
	copy(r.Bytes(newAddr, size), r.Bytes(addr, size))
	r.AccountUsage(newAddr, size)
	return newAddr, true, nil
}

// Sweep walks every page: a page with zero usage is released and
// swap-removed (its slot taken by the last page, id rewritten to match);
// a page with usage below the reap threshold is flagged REAP for the next
// cycle's one-shot compaction (spec.md §4.5).
func (r *Region) Sweep() {
	for i := 0; i < len(r.pages); {
		p := r.pages[i]
		switch {
		case p.usage == 0:
			if p.huge {
				r.provider.FreeHuge(p.buf)
			} else {
				r.provider.Free(p.buf)
			}
			last := len(r.pages) - 1
			removingHead := r.head == i
			if r.head == last {
				r.head = i
			}
			r.pages[i] = r.pages[last]
			r.pages[i].id = i
			r.pages = r.pages[:last]
			if removingHead {
				r.head = -1 // next Alloc grows a fresh page
			}
			continue // re-examine the swapped-in page at index i
		case p.usage < r.reapThreshold:
			p.reap = true
		default:
			p.reap = false
		}
		i++
	}
}

// PageCount reports the number of live pages, for diagnostics and tests.
func (r *Region) PageCount() int { return len(r.pages) }

// Usage reports the live-usage accumulator for addr's page, for tests.
func (r *Region) Usage(addr Addr) int { return r.pages[addr.ID()].usage }

// Reaped reports whether addr's page is currently flagged for compaction.
func (r *Region) Reaped(addr Addr) bool { return r.pages[addr.ID()].reap }
