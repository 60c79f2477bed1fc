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

package mark

import "github.com/vmthings/trigc/internal/gcobj"

// Phase is the subset of the scheduler's state the write barriers need to
// consult (spec.md §4.7): whether the tri-color invariant is currently being
// enforced.
type Phase uint8

const (
	PhasePauseOrSweep Phase = iota
	PhasePropagate
	PhaseAtomic
)

func (p Phase) enforcing() bool { return p == PhasePropagate || p == PhaseAtomic }

// BarrierForward implements barrierf(o, v) of spec.md §4.7: on a black-to-
// white store, either mark v (if the tri-color invariant is currently
// enforced) or make o white again so it is re-propagated from scratch.
func (e *Engine) BarrierForward(phase Phase, o, v *gcobj.Object) {
	if phase.enforcing() {
		e.MarkObject(v)
		return
	}
	if isArenaKind(o.Kind) {
		if o.Arena != nil {
			o.Arena.Mark.Clear(o.Slot)
		}
		return
	}
	o.Flags = gcobj.ToWhite(o.Flags)
}

// BarrierUpvalue implements barrieruv(tv) of spec.md §4.7: unconditionally
// mark the referenced value, since upvalues may be reached from both the
// interpreter stack and a closed cell and re-deriving "is this a black-to-
// white store" is not worth the bookkeeping the teacher's source declines
// to do either.
func (e *Engine) BarrierUpvalue(v gcobj.Value) { e.MarkValue(v) }

// BarrierTrace implements barriertrace(traceno) of spec.md §4.7: gray the
// trace if the tri-color invariant is currently enforced.
func (e *Engine) BarrierTrace(phase Phase, trace *gcobj.Object) {
	if phase.enforcing() {
		e.MarkObject(trace)
	}
}
