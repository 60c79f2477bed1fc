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

package mark_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/mark"
	"github.com/vmthings/trigc/internal/page"
)

func newThread(t *testing.T) *gcobj.Thread {
	t.Helper()
	return gcobj.NewThread(&gcobj.Object{})
}

func newArenaObject(t *testing.T, list *gcarena.List) *gcobj.Object {
	t.Helper()
	h, err := list.EnsurePrimary()
	require.NoError(t, err)
	slot, ok := h.AllocSlot()
	require.True(t, ok)
	h.Mark.Clear(slot) // undo AllocSlot's allocate-black so the object starts white
	return &gcobj.Object{Arena: h, Slot: slot}
}

func TestMarkObjectThreadUsesObjectList(t *testing.T) {
	t.Parallel()

	e := mark.NewEngine()
	th := newThread(t)

	assert.True(t, e.IsWhite(th.Object))
	e.MarkObject(th.Object)
	assert.False(t, e.IsWhite(th.Object))
	assert.True(t, e.HasGrayWork())

	ok := e.PropagateOne(&gcobj.TraverseContext{})
	require.True(t, ok)
	// Threads are demoted back to gray, not left black (spec.md §4.2).
	assert.True(t, th.Flags&gcobj.FlagGray != 0)
}

func TestMarkObjectArenaKindSetsMarkAndGray(t *testing.T) {
	t.Parallel()

	list := gcarena.NewList(gcarena.KindTable, page.Heap{}, 64, 128, 1)
	e := mark.NewEngine()

	obj := newArenaObject(t, list)
	tab := gcobj.NewTable(obj)

	enqueued := 0
	e.EnqueueArena = func(o *gcobj.Object) { enqueued++ }

	e.MarkObject(tab.Object)
	assert.True(t, obj.Arena.Mark.Test(obj.Slot))
	assert.True(t, obj.Arena.Gray.Test(obj.Slot))
	assert.Equal(t, 1, enqueued)

	// Marking again is a no-op: already non-white.
	e.MarkObject(tab.Object)
	assert.Equal(t, 1, enqueued)
}

func TestWeakValueTableRoutesToWeakQueueNotBlack(t *testing.T) {
	t.Parallel()

	list := gcarena.NewList(gcarena.KindTable, page.Heap{}, 64, 128, 1)
	e := mark.NewEngine()
	e.EnqueueArena = func(*gcobj.Object) {}

	valObj := newArenaObject(t, list)
	val := gcobj.NewTable(valObj)

	tabObj := newArenaObject(t, list)
	tab := gcobj.NewTable(tabObj)
	tab.ModeStr = "v"
	tab.Array = []gcobj.Value{gcobj.FromObject(val.Object)}

	e.MarkObject(tab.Object)
	e.PropagateArena(&gcobj.TraverseContext{}, func(visit func(*gcobj.Object)) {
		visit(tab.Object)
	})

	assert.Len(t, e.Weak(), 1)
	// The weak-value referent was never marked.
	assert.True(t, e.IsWhite(val.Object))
}

func TestEphemeronFixpointMarksReachableValue(t *testing.T) {
	t.Parallel()

	list := gcarena.NewList(gcarena.KindTable, page.Heap{}, 64, 128, 1)
	e := mark.NewEngine()
	e.EnqueueArena = func(*gcobj.Object) {}

	keyObj := newArenaObject(t, list)
	key := gcobj.NewTable(keyObj)
	e.MarkObject(key.Object) // key independently reachable

	valObj := newArenaObject(t, list)
	val := gcobj.NewTable(valObj)

	ephObj := newArenaObject(t, list)
	eph := gcobj.NewTable(ephObj)
	eph.ModeStr = "k"
	eph.Hash = []gcobj.Node{{Key: gcobj.FromObject(key.Object), Val: gcobj.FromObject(val.Object), Next: -1}}

	changed, pending := e.EphemeronFixpoint([]*gcobj.Object{eph.Object})
	assert.True(t, changed)
	assert.Empty(t, pending)
	assert.False(t, e.IsWhite(val.Object))
}
