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

package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/bitmap"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/page"
	"github.com/vmthings/trigc/internal/sweep"
)

func freshArena(t *testing.T) *gcarena.Header {
	t.Helper()
	l := gcarena.NewList(gcarena.KindTable, page.Heap{}, 64, 128, 1)
	h, err := l.EnsurePrimary()
	require.NoError(t, err)
	return h
}

func TestFixedSweepFreesUnmarkedSlots(t *testing.T) {
	t.Parallel()

	h := freshArena(t)
	a, _ := h.AllocSlot()
	b, _ := h.AllocSlot()
	h.Mark.Clear(b) // simulate b dying: never remarked this cycle

	res := sweep.Fixed(h, bitmap.Default, false)
	assert.True(t, res.Any)
	assert.False(t, h.Free.Test(a), "a stays live")
	assert.True(t, h.Free.Test(b), "b is freed")
}

func TestFixedSweepReleasesEmptyNonPrimaryArena(t *testing.T) {
	t.Parallel()

	l := gcarena.NewList(gcarena.KindTable, page.Heap{}, 64, 128, 1)
	primary, err := l.EnsurePrimary()
	require.NoError(t, err)
	for {
		if _, ok := primary.AllocSlot(); !ok {
			break
		}
	}
	secondary, err := l.AcquireForAlloc(false, nil)
	require.NoError(t, err)
	idx, _ := secondary.AllocSlot()
	secondary.Mark.Clear(idx)

	res := sweep.Fixed(secondary, bitmap.Default, false)
	assert.True(t, res.Released)
}

func TestFinTabKeepsOnlyMarkedFinalizers(t *testing.T) {
	t.Parallel()

	h := freshArena(t)
	live, _ := h.AllocSlot()
	h.Fin.Set(live)

	dead, _ := h.AllocSlot()
	h.Fin.Set(dead)
	h.Mark.Clear(dead)

	sweep.FinTab(h, false)
	assert.True(t, h.Fin.Test(live))
	assert.False(t, h.Fin.Test(dead))
	assert.True(t, h.Free.Test(dead))
}

func TestUserdataSweepInvokesTeardownOnce(t *testing.T) {
	t.Parallel()

	h := freshArena(t)
	dead, _ := h.AllocSlot()
	h.Mark.Clear(dead)
	live, _ := h.AllocSlot()

	var freed []int
	sweep.Userdata(h, func(slot int) { freed = append(freed, slot) })
	assert.Equal(t, []int{dead}, freed)
	assert.False(t, h.Free.Test(live))
}

func TestSweepHugeChainDropsUnmarkedNodes(t *testing.T) {
	t.Parallel()

	a := &sweep.HugeNode{Marked: true}
	b := &sweep.HugeNode{Marked: false}
	var dead []*sweep.HugeNode

	chain := sweep.SweepHugeChain([]*sweep.HugeNode{a, b}, func(n *sweep.HugeNode) { dead = append(dead, n) })
	assert.Equal(t, []*sweep.HugeNode{a}, chain)
	assert.Equal(t, []*sweep.HugeNode{b}, dead)
	assert.False(t, a.Marked, "surviving nodes have mark cleared for the next cycle")
}
