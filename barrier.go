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

package trigc

import (
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/mark"
	"github.com/vmthings/trigc/internal/sched"
)

// barrierPhase translates the scheduler's state into the three-way
// enforcement phase the write barriers need (spec.md §4.7): only Propagate
// and Atomic enforce the tri-color invariant.
func (s *State) barrierPhase() mark.Phase {
	switch s.sched.Phase {
	case sched.Propagate:
		return mark.PhasePropagate
	case sched.Atomic:
		return mark.PhaseAtomic
	default:
		return mark.PhasePauseOrSweep
	}
}

// BarrierF implements barrierf(o, v) of spec.md §4.7: call this around every
// store of v into a field of o that might create a black-to-white
// reference (a table slot, an upvalue cell, a function's upvalue array).
func (s *State) BarrierF(o, v *gcobj.Object) {
	s.checkOwner()
	if o == nil || v == nil {
		return
	}
	s.Engine.BarrierForward(s.barrierPhase(), o, v)
}

// BarrierUV implements barrieruv(tv) of spec.md §4.7: call this around every
// store into an upvalue cell.
func (s *State) BarrierUV(v gcobj.Value) {
	s.checkOwner()
	s.Engine.BarrierUpvalue(v)
}

// BarrierTrace implements barriertrace(traceno) of spec.md §4.7: call this
// when a JIT trace records a reference that might violate the tri-color
// invariant.
func (s *State) BarrierTrace(trace *gcobj.Object) {
	s.checkOwner()
	s.Engine.BarrierTrace(s.barrierPhase(), trace)
}
