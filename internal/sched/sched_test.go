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

package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/config"
	"github.com/vmthings/trigc/internal/sched"
)

func TestOneStepWalksEveryPhaseInOrder(t *testing.T) {
	t.Parallel()

	var seen []sched.Phase
	record := func(p sched.Phase) { seen = append(seen, p) }

	s := sched.New(sched.Hooks{
		SeedRoots:     func() { record(sched.Pause) },
		PropagateStep: func(int) (int, bool) { record(sched.Propagate); return 1, false },
		RunAtomic:     func() { record(sched.Atomic) },
		SweepStep:     func(int) (int, bool) { record(sched.Sweep); return 1, false },
		FinalizeArenaStep: func() (int, bool) {
			record(sched.FinalizeArena)
			return 1, false
		},
		FinalizeStep: func() (int, bool) { record(sched.Finalize); return 1, false },
	}, config.Default())

	for i := 0; i < 6; i++ {
		s.OneStep()
	}

	require.Equal(t, sched.Pause, s.Phase)
	assert.Equal(t, []sched.Phase{
		sched.Pause, sched.Propagate, sched.Atomic, sched.Sweep, sched.FinalizeArena, sched.Finalize,
	}, seen)
}

func TestAtomicStallsWhileJITTraceActive(t *testing.T) {
	t.Parallel()

	traceActive := true
	ran := false
	s := sched.New(sched.Hooks{
		JITTraceActive: func() bool { return traceActive },
		RunAtomic:      func() { ran = true },
	}, config.Default())

	s.OneStep() // pause -> propagate
	s.OneStep() // propagate -> atomic (no PropagateStep hook)
	require.Equal(t, sched.Atomic, s.Phase)

	for i := 0; i < 3; i++ {
		cost := s.OneStep()
		assert.False(t, ran)
		assert.Equal(t, sched.Atomic, s.Phase)
		assert.Greater(t, cost, 0)
	}

	traceActive = false
	s.OneStep()
	assert.True(t, ran)
	assert.Equal(t, sched.Sweep, s.Phase)
}

func TestStepReturnsCompleteWhenCycleFinishesWithinBudget(t *testing.T) {
	t.Parallel()

	s := sched.New(sched.Hooks{}, config.Default())
	result := s.Step()
	assert.Equal(t, 1, result)
	assert.Equal(t, sched.Pause, s.Phase)
}

func TestStepStaysMidCycleWhenPropagateNeverFinishes(t *testing.T) {
	t.Parallel()

	tuning := config.Default()
	tuning.GCStepSize = 100
	tuning.StepMul = 100

	s := sched.New(sched.Hooks{
		PropagateStep: func(budget int) (int, bool) { return budget, true }, // never reports done
	}, tuning)

	result := s.Step()
	assert.Equal(t, 0, result)
	assert.Equal(t, sched.Propagate, s.Phase)
}

func TestFullGCNonMaximalRunsExactlyOneCycle(t *testing.T) {
	t.Parallel()

	propagateCalls := 0
	s := sched.New(sched.Hooks{
		PropagateStep: func(int) (int, bool) { propagateCalls++; return 1, false },
	}, config.Default())

	s.FullGC(false)
	assert.Equal(t, sched.Pause, s.Phase)
	assert.Equal(t, 1, propagateCalls)
}

func TestFullGCMaximalFromPauseRunsExactlyOneCycle(t *testing.T) {
	t.Parallel()

	propagateCalls := 0
	s := sched.New(sched.Hooks{
		PropagateStep: func(int) (int, bool) { propagateCalls++; return 1, false },
	}, config.Default())

	// Called from Pause, maximal behaves exactly like non-maximal: there is
	// no in-progress cycle to pre-drain, so only the one guaranteed cycle
	// runs (lj_gc_fullgc's `state > GCSpause` check is false at Pause).
	s.FullGC(true)
	assert.Equal(t, sched.Pause, s.Phase)
	assert.Equal(t, 1, propagateCalls)
}

func TestFullGCNonMaximalFromMidPropagateFinishesCurrentCycleOnly(t *testing.T) {
	t.Parallel()

	propagateCalls := 0
	s := sched.New(sched.Hooks{
		PropagateStep: func(int) (int, bool) { propagateCalls++; return 1, false },
	}, config.Default())

	s.OneStep() // pause -> propagate
	require.Equal(t, sched.Propagate, s.Phase)

	// Propagate is not past GCSatomic, so non-maximal does not pre-drain: it
	// just finishes the cycle already in flight. That is one propagate call
	// total, not a drain call plus a fresh cycle's call.
	s.FullGC(false)
	assert.Equal(t, sched.Pause, s.Phase)
	assert.Equal(t, 1, propagateCalls)
}

func TestFullGCMaximalFromMidPropagateDrainsThenRunsFreshCycle(t *testing.T) {
	t.Parallel()

	propagateCalls := 0
	s := sched.New(sched.Hooks{
		PropagateStep: func(int) (int, bool) { propagateCalls++; return 1, false },
	}, config.Default())

	s.OneStep() // pause -> propagate
	require.Equal(t, sched.Propagate, s.Phase)

	// Maximal's threshold is GCSpause, so any in-progress phase triggers a
	// pre-drain of the current cycle, followed by one guaranteed fresh
	// cycle: one propagate call to finish the draining cycle, one more for
	// the fresh one that follows.
	s.FullGC(true)
	assert.Equal(t, sched.Pause, s.Phase)
	assert.Equal(t, 2, propagateCalls)
}

func TestFullGCNonMaximalFromMidSweepDrainsThenRunsFreshCycle(t *testing.T) {
	t.Parallel()

	propagateCalls := 0
	s := sched.New(sched.Hooks{
		PropagateStep: func(int) (int, bool) { propagateCalls++; return 1, false },
		SweepStep:     func(int) (int, bool) { return 1, false },
	}, config.Default())

	s.OneStep() // pause -> propagate
	s.OneStep() // propagate -> atomic
	s.OneStep() // atomic -> sweep
	require.Equal(t, sched.Sweep, s.Phase)

	// Sweep is past GCSatomic, so even non-maximal pre-drains here: the
	// in-progress cycle's marking is already behind it, so finishing it in
	// place would not be a fresh cycle. One propagate call came from the
	// setup steps above; draining makes none, and the fresh cycle makes one.
	s.FullGC(false)
	assert.Equal(t, sched.Pause, s.Phase)
	assert.Equal(t, 2, propagateCalls)
}
