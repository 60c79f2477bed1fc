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

package gcarena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/page"
)

func newList(t *testing.T, elemSize uintptr, capacity int) *gcarena.List {
	t.Helper()
	return gcarena.NewList(gcarena.KindTable, page.Heap{}, elemSize, capacity, 1)
}

func TestListAllocSlotFastPath(t *testing.T) {
	t.Parallel()

	l := newList(t, 64, 128)
	h, err := l.EnsurePrimary()
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 127; i++ {
		idx, ok := h.AllocSlot()
		require.True(t, ok)
		assert.False(t, seen[idx], "slot %d allocated twice", idx)
		seen[idx] = true
		assert.GreaterOrEqual(t, idx, h.HeaderSlots)
	}
	_, ok := h.AllocSlot()
	assert.False(t, ok, "arena should be exhausted")
}

func TestListAllocRunCoalesces(t *testing.T) {
	t.Parallel()

	l := newList(t, 64, 128)
	h, err := l.EnsurePrimary()
	require.NoError(t, err)

	idx, ok := h.AllocRun(3)
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		assert.True(t, h.Mark.Test(idx+i))
		assert.False(t, h.Free.Test(idx+i))
	}
}

func TestListFreelistAndRelease(t *testing.T) {
	t.Parallel()

	l := newList(t, 64, 128)
	primary, err := l.EnsurePrimary()
	require.NoError(t, err)
	for {
		if _, ok := primary.AllocSlot(); !ok {
			break
		}
	}

	secondary, err := l.AcquireForAlloc(false, nil)
	require.NoError(t, err)
	assert.NotSame(t, primary, secondary)

	l.PushFreelist(secondary)
	popped := l.PopFreelist()
	assert.Same(t, secondary, popped)

	assert.Panics(t, func() { l.Release(primary) })
	l.Release(secondary)
}

func TestGrayArenaQueueIsFIFO(t *testing.T) {
	t.Parallel()

	l := newList(t, 64, 128)
	a, err := l.EnsurePrimary()
	require.NoError(t, err)
	for {
		if _, ok := a.AllocSlot(); !ok {
			break
		}
	}
	b, err := l.AcquireForAlloc(false, nil)
	require.NoError(t, err)

	l.EnqueueGray(a)
	l.EnqueueGray(b)
	l.EnqueueGray(a) // re-enqueue is a no-op per spec.md §4.2

	assert.Same(t, a, l.DequeueGray())
	assert.Same(t, b, l.DequeueGray())
	assert.Nil(t, l.DequeueGray())
}

func TestSlotIndexRecoversMultiplicativeInverse(t *testing.T) {
	t.Parallel()

	for _, elemSize := range []uintptr{16, 24, 32, 40, 48, 56, 64, 96, 128} {
		inv := gcarena.InverseOf(elemSize)
		for offset := uintptr(0); offset < elemSize*64; offset += elemSize {
			got := gcarena.SlotIndex(offset, inv)
			want := int(offset / elemSize)
			assert.Equal(t, want, got, "elemSize=%d offset=%d", elemSize, offset)
		}
	}
}
