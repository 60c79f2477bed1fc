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

package medstr

import "github.com/vmthings/trigc/internal/page"

// List manages every medium-string arena: the sibling chain and the
// immortal primary arena, mirroring gcarena.List's role for fixed-slot
// kinds (spec.md §4.1) but without a separate freelist-of-arenas, since
// "has room" here means "has a free run of at least the requested size",
// checked by walking the sibling chain directly (AllocBytes).
type List struct {
	Primary *Arena
	head    *Arena

	arenaBytes int
	provider   page.Provider
}

// NewList constructs an empty List backed by provider, where each arena is
// arenaBytes of backing storage (spec.md §3's ARENA_SIZE).
func NewList(provider page.Provider, arenaBytes int) *List {
	return &List{provider: provider, arenaBytes: arenaBytes}
}

func (l *List) fresh() (*Arena, error) {
	a := &Arena{Owner: l}
	if err := a.fresh(l.provider, l.arenaBytes); err != nil {
		return nil, err
	}
	l.linkSibling(a)
	return a, nil
}

func (l *List) linkSibling(a *Arena) {
	a.next = l.head
	if l.head != nil {
		l.head.prev = a
	}
	l.head = a
}

func (l *List) unlinkSibling(a *Arena) {
	if a.prev != nil {
		a.prev.next = a.next
	} else {
		l.head = a.next
	}
	if a.next != nil {
		a.next.prev = a.prev
	}
	a.prev, a.next = nil, nil
}

// EnsurePrimary installs the list's immortal primary arena if one does not
// exist yet.
func (l *List) EnsurePrimary() (*Arena, error) {
	if l.Primary != nil {
		return l.Primary, nil
	}
	a, err := l.fresh()
	if err != nil {
		return nil, err
	}
	a.Flags |= FlagPrimary
	l.Primary = a
	return a, nil
}

// AllocBytes reserves n bytes' worth of medium-string storage, first-fit
// across the sibling chain, allocating a fresh arena only once none of the
// existing ones have room (spec.md §4.1's "acquire an arena with room"
// generalized from fixed slots to variable-size runs).
func (l *List) AllocBytes(n int) (*Arena, int, error) {
	units := UnitsFor(n)
	for a := l.head; a != nil; a = a.next {
		if off, ok := a.Alloc(units); ok {
			return a, off, nil
		}
	}
	a, err := l.fresh()
	if err != nil {
		return nil, 0, err
	}
	off, ok := a.Alloc(units)
	if !ok {
		return nil, 0, errFreshTooSmall
	}
	return a, off, nil
}

// Sweeps iterates every arena of the list for the sweep engine.
func (l *List) Sweeps(fn func(*Arena)) {
	for a := l.head; a != nil; {
		next := a.next
		fn(a)
		a = next
	}
}

// Release returns a non-primary, fully-dead arena to the page provider.
func (l *List) Release(a *Arena) {
	if a.Flags&FlagPrimary != 0 {
		panic("trigc: medstr: attempted to release the primary arena")
	}
	l.unlinkSibling(a)
	l.provider.Free(a.Buf)
}
