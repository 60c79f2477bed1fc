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

package finalize_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/finalize"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/page"
)

func TestPresweepRoundResurrectsDeadFinalizable(t *testing.T) {
	t.Parallel()

	l := gcarena.NewList(gcarena.KindUserdata, page.Heap{}, 64, 128, 1)
	h, err := l.EnsurePrimary()
	require.NoError(t, err)

	slot, ok := h.AllocSlot()
	require.True(t, ok)
	h.FinReq.Set(slot)
	h.Mark.Clear(slot) // looks dead this cycle

	objs := map[int]*gcobj.Object{slot: {Arena: h, Slot: slot}}
	p := finalize.New()

	enqueued := 0
	changed := p.PresweepRound(nil, []*gcarena.Header{h},
		func(h *gcarena.Header, s int) *gcobj.Object { return objs[s] },
		func(*gcarena.Header) { enqueued++ },
	)
	require.True(t, changed)
	assert.Equal(t, 1, enqueued)
	assert.Equal(t, 1, p.Pending())
	assert.True(t, h.Mark.Test(slot), "resurrected object is remarked live")
	assert.True(t, h.Fin.Test(slot))

	// A second round finds no new work.
	changed = p.PresweepRound(nil, []*gcarena.Header{h},
		func(h *gcarena.Header, s int) *gcobj.Object { return objs[s] },
		func(*gcarena.Header) { enqueued++ },
	)
	assert.False(t, changed)
}

func TestFinalizeArenaStepRunsOnceAndCapturesError(t *testing.T) {
	t.Parallel()

	p := finalize.New()
	var captured error
	p.OnError = func(o *gcobj.Object, err error) { captured = err }

	obj := &gcobj.Object{}
	l := gcarena.NewList(gcarena.KindUserdata, page.Heap{}, 64, 128, 1)
	h, err := l.EnsurePrimary()
	require.NoError(t, err)
	slot, _ := h.AllocSlot()
	h.FinReq.Set(slot)
	h.Mark.Clear(slot)
	objs := map[int]*gcobj.Object{slot: obj}

	p.PresweepRound(nil, []*gcarena.Header{h}, func(h *gcarena.Header, s int) *gcobj.Object { return objs[s] }, func(*gcarena.Header) {})
	require.Equal(t, 1, p.Pending())

	runs := 0
	ok := p.FinalizeArenaStep(func(o *gcobj.Object) error {
		runs++
		return errors.New("boom")
	})
	require.True(t, ok)
	assert.Equal(t, 1, runs)
	assert.Error(t, captured)
	assert.True(t, obj.Flags&gcobj.FlagFinalized != 0)
	assert.Equal(t, 0, p.Pending())

	ok = p.FinalizeArenaStep(func(o *gcobj.Object) error { runs++; return nil })
	assert.False(t, ok)
	assert.Equal(t, 1, runs, "finalizer never re-runs for the same object")
}
