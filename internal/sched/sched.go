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

// Package sched implements the collector scheduler of spec.md §4.8: the
// {pause, propagate, atomic, sweep, finalize_arena, finalize} state machine,
// cost-bounded stepping, and debt/threshold/stepmul pacing. The concrete
// mark/sweep/finalize work is supplied by the caller (the root State) via
// Hooks, keeping sched decoupled from internal/gcobj and internal/gcarena —
// the same "own the state machine, delegate the domain work" split the
// teacher's own state-machine-shaped code (see internal/debug's log-state
// toggling) uses, generalized here to a full onestep dispatch table.
//
// Grounded on original_source/src/lj_gc.c's lj_gc_step/lj_gc_fullgc/
// gc_onestep.
package sched

import (
	"math"

	"github.com/vmthings/trigc/internal/config"
)

// Phase names the scheduler's state machine states (spec.md §4.8).
type Phase uint8

const (
	Pause Phase = iota
	Propagate
	Atomic
	Sweep
	FinalizeArena
	Finalize
)

func (p Phase) String() string {
	switch p {
	case Pause:
		return "pause"
	case Propagate:
		return "propagate"
	case Atomic:
		return "atomic"
	case Sweep:
		return "sweep"
	case FinalizeArena:
		return "finalize_arena"
	case Finalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// stallCost is returned by OneStep when the atomic phase cannot run because
// a JIT trace is active (spec.md §4.4, §5: "the scheduler respects these
// preconditions by returning MAX_MEM (stall) until they clear").
const stallCost = math.MaxInt32

// Hooks supplies the domain-specific work for each state. Every hook may be
// nil except SeedRoots and RunAtomic; a nil PropagateStep/SweepStep/
// FinalizeArenaStep/FinalizeStep is treated as "nothing to do, advance".
type Hooks struct {
	SeedRoots         func()
	PropagateStep     func(budget int) (consumed int, more bool)
	JITTraceActive    func() bool
	RunAtomic         func()
	SweepStep         func(budget int) (consumed int, more bool)
	FinalizeArenaStep func() (consumed int, more bool)
	FinalizeStep      func() (consumed int, more bool)
}

// Scheduler is the collector's state machine and pacing parameters.
type Scheduler struct {
	Phase  Phase
	Tuning config.Tuning
	hooks  Hooks

	debt      int
	estimate  int
	threshold int
}

// New returns a Scheduler starting in Pause.
func New(hooks Hooks, tuning config.Tuning) *Scheduler {
	return &Scheduler{Phase: Pause, hooks: hooks, Tuning: tuning}
}

// OneStep dispatches on the current phase, performing bounded work and
// returning the cost consumed (spec.md §4.8's onestep table).
func (s *Scheduler) OneStep() int {
	switch s.Phase {
	case Pause:
		if s.hooks.SeedRoots != nil {
			s.hooks.SeedRoots()
		}
		s.Phase = Propagate
		return 0

	case Propagate:
		if s.hooks.PropagateStep == nil {
			s.Phase = Atomic
			return 0
		}
		consumed, more := s.hooks.PropagateStep(s.Tuning.GCStepSize)
		if !more {
			s.Phase = Atomic
		}
		return consumed

	case Atomic:
		if s.hooks.JITTraceActive != nil && s.hooks.JITTraceActive() {
			return stallCost
		}
		if s.hooks.RunAtomic != nil {
			s.hooks.RunAtomic()
		}
		s.Phase = Sweep
		return s.Tuning.GCStepSize // atomic is indivisible; charge one nominal step

	case Sweep:
		if s.hooks.SweepStep == nil {
			s.Phase = FinalizeArena
			return 0
		}
		consumed, more := s.hooks.SweepStep(s.Tuning.GCSweepMax)
		if !more {
			s.Phase = FinalizeArena
		}
		return consumed

	case FinalizeArena:
		if s.hooks.FinalizeArenaStep == nil {
			s.Phase = Finalize
			return 0
		}
		consumed, more := s.hooks.FinalizeArenaStep()
		if !more {
			s.Phase = Finalize
		}
		return consumed

	case Finalize:
		if s.hooks.FinalizeStep == nil {
			s.endCycle()
			return 0
		}
		consumed, more := s.hooks.FinalizeStep()
		if !more {
			s.endCycle()
		}
		return consumed
	}
	return 0
}

func (s *Scheduler) endCycle() {
	s.Phase = Pause
	s.threshold = (s.estimate / 100) * s.Tuning.Pause
	if s.debt > s.Tuning.GCStepSize {
		s.threshold -= s.debt // shrink the threshold to force more work next cycle
	}
}

// AddDebt accrues mutator allocation debt (bytes allocated since the last
// step), the signal that drives step urgency (spec.md §4.8).
func (s *Scheduler) AddDebt(n int) { s.debt += n }

// SetEstimate records the post-atomic live-heap estimate used to compute
// the next cycle's threshold (spec.md §4.4 step 10, §4.8).
func (s *Scheduler) SetEstimate(n int) { s.estimate = n }

// Step runs onestep repeatedly until the per-step budget
// `(GCStepSize/100)*StepMul` is consumed or the state returns to Pause,
// returning 0 (mid-cycle), -1 (near-threshold: debt still exceeds the
// current threshold), or 1 (cycle complete) per spec.md §6's step(L)
// contract.
func (s *Scheduler) Step() int {
	limit := (s.Tuning.GCStepSize / 100) * s.Tuning.StepMul
	if limit <= 0 {
		limit = s.Tuning.GCStepSize
	}
	consumed := 0
	for consumed < limit {
		c := s.OneStep()
		if c == stallCost {
			return 0
		}
		consumed += c
		if s.Phase == Pause {
			return 1
		}
	}
	if s.debt > s.threshold && s.threshold > 0 {
		return -1
	}
	return 0
}

// fullGCDrainThreshold is the phase past which FullGC pre-drains an
// in-progress cycle before running its one guaranteed fresh cycle, mirroring
// lj_gc_fullgc's `g->gc.state > (maximal ? GCSpause : GCSatomic)` check:
// non-maximal only pre-drains once sweeping has started (the current cycle's
// marking is already done by then, so finishing it in place would not be a
// fresh cycle); maximal pre-drains from any in-progress phase, including
// mid-propagate or mid-atomic, so the one guaranteed cycle that follows is
// always a fresh one (spec.md §4.8, §9, the mechanism resurrected objects
// rely on to get a second chance at being swept).
func fullGCDrainThreshold(maximal bool) Phase {
	if maximal {
		return Pause
	}
	return Atomic
}

// FullGC runs exactly one guaranteed complete cycle, pre-draining whatever
// cycle is already in progress first only when it would otherwise leave that
// cycle's sweep results standing in for a fresh one (see
// fullGCDrainThreshold). This is not "always drain, then always run two
// cycles for maximal": called from Pause it runs a single cycle regardless
// of maximal, exactly as lj_gc_fullgc does (spec.md §4.8).
func (s *Scheduler) FullGC(maximal bool) {
	if s.Phase > fullGCDrainThreshold(maximal) {
		s.drainToPause()
	}
	s.runOneCycle()
}

func (s *Scheduler) drainToPause() {
	for s.Phase != Pause {
		if s.OneStep() == stallCost {
			break
		}
	}
}

func (s *Scheduler) runOneCycle() {
	for {
		if s.OneStep() == stallCost {
			return
		}
		if s.Phase == Pause {
			return
		}
	}
}
