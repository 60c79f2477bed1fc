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

package trigc_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/config"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/page"

	trigc "github.com/vmthings/trigc"
)

func newState(t *testing.T, opts ...trigc.Option) *trigc.State {
	t.Helper()
	opts = append([]trigc.Option{trigc.WithProvider(page.Heap{})}, opts...)
	s, err := trigc.NewState(opts...)
	require.NoError(t, err)
	return s
}

// mainTable returns s.MainThread's Env table, creating and rooting one if
// the thread has none yet, so tests have a single reachable root to hang
// objects off of without reaching into State internals.
func mainTable(t *testing.T, s *trigc.State) *gcobj.Table {
	t.Helper()
	th, ok := s.MainThread.Traversable.(*gcobj.Thread)
	require.True(t, ok)
	if th.Env == nil {
		tab, err := s.AllocTab(0, 4)
		require.NoError(t, err)
		th.Env = tab
	}
	return th.Env
}

func TestAllocStrInterns(t *testing.T) {
	s := newState(t)

	a, err := s.AllocStr([]byte("hello"))
	require.NoError(t, err)
	b, err := s.AllocStr([]byte("hello"))
	require.NoError(t, err)

	assert.Same(t, a, b, "two interned allocations of identical content must return the same string object")
	assert.Equal(t, a.Hid, b.Hid)
}

func TestAllocStrDistinctContent(t *testing.T) {
	s := newState(t)

	a, err := s.AllocStr([]byte("foo"))
	require.NoError(t, err)
	b, err := s.AllocStr([]byte("bar"))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

// TestFullGCReclaimsUnreachableTable exercises spec.md §8's "one unreachable
// table is swept" scenario end to end: an unrooted table's slot is freed by
// a maximal FullGC, while a table reachable from the main thread's
// environment survives.
func TestFullGCReclaimsUnreachableTable(t *testing.T) {
	s := newState(t)

	rootTab := mainTable(t, s)
	keep, err := s.AllocTab(0, 0)
	require.NoError(t, err)
	rootTab.Hash[0] = gcobj.Node{Key: gcobj.FromBool(true), Val: gcobj.FromObject(keep.Object), Next: -1}

	garbage, err := s.AllocTab(0, 0)
	require.NoError(t, err)

	s.FullGC(true)

	assert.True(t, garbage.Arena.Free.Test(garbage.Slot), "unreferenced table must be swept")
	assert.False(t, keep.Arena.Free.Test(keep.Slot), "table reachable from a root must survive")
}

// TestFullGCClearsWeakValueEntry exercises spec.md §4.4's weak-value
// clearing: a table whose __mode is "v" must lose an entry whose value
// becomes unreachable, without the table itself being swept.
func TestFullGCClearsWeakValueEntry(t *testing.T) {
	s := newState(t)

	rootTab := mainTable(t, s)
	weak, err := s.AllocTab(0, 1)
	require.NoError(t, err)
	weak.ModeStr = "v"
	rootTab.Hash[0] = gcobj.Node{Key: gcobj.FromBool(true), Val: gcobj.FromObject(weak.Object), Next: -1}

	dead, err := s.AllocTab(0, 0)
	require.NoError(t, err)
	weak.Hash[0] = gcobj.Node{Key: gcobj.FromBool(true), Val: gcobj.FromObject(dead.Object), Next: -1}

	s.FullGC(true)

	assert.False(t, weak.Arena.Free.Test(weak.Slot), "the weak table itself is reachable and must survive")
	assert.True(t, weak.Hash[0].Val.IsNil(), "a weak-value entry whose value died must be cleared")
}

// TestUserdataFinalizerRunsOnce exercises spec.md §4.6: an unreachable
// userdata with a registered finalizer is resurrected for one cycle, has
// its finalizer invoked exactly once, and is then reclaimed.
func TestUserdataFinalizerRunsOnce(t *testing.T) {
	var calls int
	s := newState(t, trigc.WithUdataFinalizer(func(u *gcobj.Userdata) error {
		calls++
		return nil
	}))

	ud, err := s.AllocUdata(0, true)
	require.NoError(t, err)

	s.FullGC(true)
	assert.Equal(t, 1, calls, "finalizer must run exactly once after the object becomes unreachable")

	s.FullGC(true)
	assert.Equal(t, 1, calls, "finalizer must never run a second time for the same object")
	assert.True(t, ud.Arena.Free.Test(ud.Slot), "userdata must be swept the cycle after its finalizer ran")
}

// TestIncrementalStepReachesPause drives the scheduler with Step instead of
// FullGC and checks it eventually returns to a completed cycle (spec.md §6's
// step(L) contract: 0 mid-cycle, 1 once a cycle completes).
func TestIncrementalStepReachesPause(t *testing.T) {
	tuning := config.Default()
	tuning.GCStepSize = 64
	tuning.GCSweepMax = 1
	s := newState(t, trigc.WithTuning(tuning))

	for i := 0; i < 8; i++ {
		_, err := s.AllocTab(0, 0)
		require.NoError(t, err)
	}

	completed := false
	for i := 0; i < 10000 && !completed; i++ {
		if s.Step() == 1 {
			completed = true
		}
	}
	assert.True(t, completed, "incremental stepping must eventually complete a cycle")
}

func TestBarrierFDoesNotPanicOnNilOperands(t *testing.T) {
	s := newState(t)
	assert.NotPanics(t, func() {
		s.BarrierF(nil, nil)
		s.BarrierUV(gcobj.Nil)
		s.BarrierTrace(nil)
	})
}

func TestFreeAllSweepsEverything(t *testing.T) {
	s := newState(t)
	for i := 0; i < 4; i++ {
		_, err := s.AllocTab(0, 0)
		require.NoError(t, err)
	}
	assert.NotPanics(t, func() { s.FreeAll() })
}

// TestFullGCReclaimsHalfOfInternedSmallStrings exercises spec.md §8's
// worked example literally: 1000 distinct small strings "s0".."s999",
// references kept only to the odd-indexed ones (so the even-indexed half
// has none left), a maximal FullGC, and exactly 500 strings must remain
// interned. Re-creating "s4" (released) must land back in the small-string
// arena class, not fall through to the medium or huge path.
func TestFullGCReclaimsHalfOfInternedSmallStrings(t *testing.T) {
	s := newState(t)

	for i := 0; i < 1000; i++ {
		str, err := s.AllocStr([]byte(fmt.Sprintf("s%d", i)))
		require.NoError(t, err)
		if i%2 != 0 {
			s.GCRoot = append(s.GCRoot, str.Object)
		}
	}

	s.FullGC(true)

	occ := s.ArenaOccupancy()["string-small"]
	assert.Equal(t, 500, occ[1], "exactly half of the interned small strings must survive a maximal FullGC")

	s4, err := s.AllocStr([]byte("s4"))
	require.NoError(t, err)
	assert.Equal(t, gcarena.KindStringSmall, s4.Arena.Kind, "re-creating a released small string must land back in the small-string arena class")
}

func TestStatsRecordsSamples(t *testing.T) {
	s := newState(t)
	_, err := s.AllocTab(0, 0)
	require.NoError(t, err)
	s.FullGC(false)

	stepCost, pause := s.Stats()
	assert.GreaterOrEqual(t, stepCost, 0.0)
	assert.GreaterOrEqual(t, pause, 0.0)
}
