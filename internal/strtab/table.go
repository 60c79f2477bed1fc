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

package strtab

import (
	"bytes"

	"github.com/vmthings/trigc/internal/gcobj"
)

// maxProbe bounds how many primary slots Intern will probe before falling
// back to the secondary store; keeps the primary array a true open-addressed
// table (bounded probe sequence) rather than an unbounded linear scan.
const maxProbe = 8

// Table is the string-interning table of spec.md §3.
type Table struct {
	primary    []*gcobj.String
	ctrl       []byte // parallel h2 control byte per primary slot, 0 means empty
	primaryCap uint32 // power of two

	secondaries []*secondaryArena
	freeHead    int // index into secondaries with spare entry capacity, -1 if none

	count int
}

type secondaryEntry struct {
	chain [chainPerEntry]*gcobj.String
	used  int
}

type secondaryArena struct {
	id       int
	entries  [entriesPerArena]secondaryEntry
	used     int // total occupied (entry,chain) slots
	capacity int
	freeNext int // occupancy freelist link, -1 if none
}

// New constructs a Table whose primary array has room for primaryCap
// entries (rounded up to a power of two).
func New(primaryCap int) *Table {
	cap := nextPow2(primaryCap)
	return &Table{
		primary:    make([]*gcobj.String, cap),
		ctrl:       make([]byte, cap),
		primaryCap: uint32(cap),
		freeHead:   -1,
	}
}

func nextPow2(n int) int {
	if n < 8 {
		n = 8
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Intern returns the canonical *gcobj.String for data, allocating a new one
// via newString if no match exists yet, and assigns (or reuses) its hid.
// This is spec.md testable property 3: "for all strings s1 != s2 with
// identical bytes, ptr(s1) == ptr(s2)".
func (t *Table) Intern(data []byte, newString func(data []byte, hash uint64) *gcobj.String) *gcobj.String {
	h := hashBytes(data)
	if s, ok := t.lookupPrimary(data, h); ok {
		return s
	}
	if s, ok := t.lookupSecondary(data, h); ok {
		return s
	}

	s := newString(data, h)
	if hid, ok := t.insertPrimary(s, h); ok {
		s.Hid = hid
		return s
	}
	s.Hid = t.insertSecondary(s)
	return s
}

func (t *Table) lookupPrimary(data []byte, h uint64) (*gcobj.String, bool) {
	mask := t.primaryCap - 1
	idx := uint32(h1(h)) & mask
	frag := h2(h)
	for probes := 0; probes < maxProbe; probes++ {
		i := (idx + uint32(probes)) & mask
		if t.ctrl[i] == 0 {
			return nil, false
		}
		if t.ctrl[i] == frag && t.primary[i] != nil && bytes.Equal(t.primary[i].Data, data) {
			return t.primary[i], true
		}
	}
	return nil, false
}

func (t *Table) insertPrimary(s *gcobj.String, h uint64) (uint32, bool) {
	mask := t.primaryCap - 1
	idx := uint32(h1(h)) & mask
	frag := h2(h)
	for probes := 0; probes < maxProbe; probes++ {
		i := (idx + uint32(probes)) & mask
		if t.ctrl[i] == 0 {
			t.ctrl[i] = frag
			t.primary[i] = s
			t.count++
			return makePrimaryHid(i), true
		}
	}
	return 0, false
}

func (t *Table) lookupSecondary(data []byte, h uint64) (*gcobj.String, bool) {
	for _, a := range t.secondaries {
		e := &a.entries[uint32(h1(h))%entriesPerArena]
		for c := 0; c < e.used; c++ {
			if s := e.chain[c]; s != nil && bytes.Equal(s.Data, data) {
				return s, true
			}
		}
	}
	return nil, false
}

func (t *Table) insertSecondary(s *gcobj.String) uint32 {
	a := t.acquireSecondary()
	entryIdx := uint32(h1(s.Hash)) % entriesPerArena
	e := &a.entries[entryIdx]
	if e.used >= chainPerEntry {
		// Degenerate bucket overflow: place the string in a freshly created
		// secondary arena instead.
		// This only triggers under adversarial hash clustering; real traffic
		// spreads across entriesPerArena buckets.
		a2 := t.newSecondaryArena()
		e = &a2.entries[entryIdx]
		e.chain[0] = s
		e.used = 1
		a2.used++
		t.count++
		t.maybeLinkFreelist(a2)
		return makeSecondaryHid(uint32(a2.id), entryIdx, 0)
	}
	chainIdx := e.used
	e.chain[chainIdx] = s
	e.used++
	a.used++
	t.count++
	if a.used >= a.capacity {
		t.unlinkFreelist(a)
	}
	return makeSecondaryHid(uint32(a.id), entryIdx, uint32(chainIdx))
}

func (t *Table) acquireSecondary() *secondaryArena {
	if t.freeHead >= 0 {
		return t.secondaries[t.freeHead]
	}
	return t.newSecondaryArena()
}

func (t *Table) newSecondaryArena() *secondaryArena {
	a := &secondaryArena{id: len(t.secondaries), capacity: entriesPerArena * chainPerEntry, freeNext: -1}
	t.secondaries = append(t.secondaries, a)
	t.maybeLinkFreelist(a)
	return a
}

// maybeLinkFreelist links a onto the occupancy freelist head if it has spare
// capacity (spec.md §3: "Secondary arenas maintain their own occupancy
// freelist so that full secondaries leave the free-head chain").
func (t *Table) maybeLinkFreelist(a *secondaryArena) {
	if a.used >= a.capacity {
		return
	}
	a.freeNext = t.freeHead
	t.freeHead = a.id
}

func (t *Table) unlinkFreelist(full *secondaryArena) {
	if t.freeHead == full.id {
		t.freeHead = full.freeNext
		full.freeNext = -1
		return
	}
	for id := t.freeHead; id >= 0; {
		a := t.secondaries[id]
		if a.freeNext == full.id {
			a.freeNext = full.freeNext
			full.freeNext = -1
			return
		}
		id = a.freeNext
	}
}

// Resolve returns the string whose hid is hid, implementing spec.md's
// round-trip property: `get_strtab(hid).strs[hid & 0xF]` points to the
// string whose hid equals hid (property 3, property 8's sibling for
// strings).
func (t *Table) Resolve(hid uint32) (*gcobj.String, bool) {
	if isPrimary(hid) {
		i := primaryIndex(hid)
		if i >= t.primaryCap || t.primary[i] == nil {
			return nil, false
		}
		return t.primary[i], true
	}
	arena, entry, chain := decodeSecondaryHid(hid)
	if chain == chainInvalid || int(arena) >= len(t.secondaries) {
		return nil, false
	}
	e := &t.secondaries[arena].entries[entry]
	if int(chain) >= e.used {
		return nil, false
	}
	return e.chain[chain], true
}

// Remove clears the string interned at hid, called from sweep when a
// string's arena slot is found dead (spec.md §4.5: "newly-freed strings have
// their interning-table entries cleared").
func (t *Table) Remove(hid uint32) {
	if isPrimary(hid) {
		i := primaryIndex(hid)
		if i < t.primaryCap {
			t.primary[i] = nil
			t.ctrl[i] = 0
			t.count--
		}
		return
	}
	arena, entry, chain := decodeSecondaryHid(hid)
	if chain == chainInvalid || int(arena) >= len(t.secondaries) {
		return
	}
	a := t.secondaries[arena]
	e := &a.entries[entry]
	if int(chain) >= e.used {
		return
	}
	last := e.used - 1
	e.chain[chain] = e.chain[last]
	e.chain[last] = nil
	e.used--
	a.used--
	t.count--
	t.maybeLinkFreelist(a)
}

// Count returns the number of currently-interned strings.
func (t *Table) Count() int { return t.count }
