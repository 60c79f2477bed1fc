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

package medstr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/medstr"
	"github.com/vmthings/trigc/internal/page"
)

func newList(t *testing.T) *medstr.List {
	t.Helper()
	return medstr.NewList(page.Heap{}, 4096)
}

func TestArenaAllocExactMatchUnlinksBlock(t *testing.T) {
	t.Parallel()

	l := newList(t)
	a, err := l.EnsurePrimary()
	require.NoError(t, err)

	// The fresh arena is one big free block; an allocation sized to exactly
	// consume it must leave no free block behind.
	units := a.Capacity - 1 // minus headerUnits
	off, ok := a.Alloc(units)
	require.True(t, ok)
	a.SetMark(off)

	_, ok = a.Alloc(1)
	assert.False(t, ok, "fully allocated arena must report no room left")
}

func TestArenaAllocCarvesFromTail(t *testing.T) {
	t.Parallel()

	l := newList(t)
	a, err := l.EnsurePrimary()
	require.NoError(t, err)

	first, ok := a.Alloc(4)
	require.True(t, ok)
	a.SetMark(first)

	second, ok := a.Alloc(4)
	require.True(t, ok)
	a.SetMark(second)

	assert.NotEqual(t, first, second)
	assert.Equal(t, first, second+4, "carving from the tail takes the high end of the block, so each subsequent carve lands immediately below the previous one")
}

func TestArenaSweepReclaimsUnmarkedRuns(t *testing.T) {
	t.Parallel()

	l := newList(t)
	a, err := l.EnsurePrimary()
	require.NoError(t, err)

	dead, ok := a.Alloc(2)
	require.True(t, ok)
	live, ok := a.Alloc(2)
	require.True(t, ok)
	a.SetMark(live) // only the survivor is marked before sweep

	var freed []int
	any := a.Sweep(func(offset int) { freed = append(freed, offset) })

	assert.True(t, any, "the arena still holds the surviving run")
	assert.Equal(t, []int{dead}, freed)
	assert.False(t, a.TestMark(live), "a survivor's mark bit must be reset so the next cycle starts it white again")

	// The freed run's space must be available again, whether or not the
	// first-fit walk happens to hand back that exact offset.
	_, ok = a.Alloc(2)
	assert.True(t, ok, "the dead run's space must be reusable after sweep")
}

func TestArenaSweepCoalescesAdjacentFreeRuns(t *testing.T) {
	t.Parallel()

	l := newList(t)
	a, err := l.EnsurePrimary()
	require.NoError(t, err)

	first, ok := a.Alloc(2)
	require.True(t, ok)
	second, ok := a.Alloc(2)
	require.True(t, ok)
	require.Equal(t, second+2, first)

	// Neither run is marked, so both die this sweep; their address-adjacent
	// free blocks must merge into one run big enough for both combined.
	a.Sweep(nil)

	merged, ok := a.Alloc(4)
	assert.True(t, ok)
	assert.Equal(t, second, merged, "adjacent free runs must coalesce into a single block")
}

func TestArenaFixedRunSurvivesUnconditionally(t *testing.T) {
	t.Parallel()

	l := newList(t)
	a, err := l.EnsurePrimary()
	require.NoError(t, err)

	off, ok := a.Alloc(2)
	require.True(t, ok)
	a.Fixed.Set(off) // pinned, never marked this cycle

	var freed []int
	any := a.Sweep(func(offset int) { freed = append(freed, offset) })
	assert.True(t, any)
	assert.Empty(t, freed, "a fixed run must never be reported dead regardless of its mark bit")
}

func TestListAllocBytesSpillsToFreshArenaWhenExhausted(t *testing.T) {
	t.Parallel()

	l := newList(t)
	first, err := l.EnsurePrimary()
	require.NoError(t, err)

	units := first.Capacity - 1
	off, ok := first.Alloc(units)
	require.True(t, ok)
	first.SetMark(off)

	second, _, err := l.AllocBytes(medstr.UnitSize)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "an exhausted arena must not be reused; a fresh sibling must be acquired")
}

func TestListReleaseReclaimsEmptyNonPrimaryArena(t *testing.T) {
	t.Parallel()

	l := newList(t)
	primary, err := l.EnsurePrimary()
	require.NoError(t, err)

	units := primary.Capacity - 1
	off, ok := primary.Alloc(units)
	require.True(t, ok)
	primary.SetMark(off)

	secondary, _, err := l.AllocBytes(medstr.UnitSize)
	require.NoError(t, err)
	// The new run's offset is discarded and never marked, so it dies this sweep.

	assert.False(t, secondary.Sweep(nil), "an arena with nothing marked must report no survivors")
	l.Release(secondary)
	assert.Panics(t, func() { l.Release(primary) }, "the primary arena must never be released")
}
