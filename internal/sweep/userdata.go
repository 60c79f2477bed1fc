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

package sweep

import (
	"github.com/vmthings/trigc/internal/bitmap"
	"github.com/vmthings/trigc/internal/gcarena"
)

// Userdata sweeps a userdata arena scalar (not via Backend), because
// per-object teardown must inspect the slot: every newly-dead slot with a
// raw-allocated buffer needs its buffer released (spec.md §4.5: "Userdata
// sweep is scalar... for each newly-free userdata with a malloc'd buffer,
// invoke allocf... and decrement malloc accounting; clear fin and fin_req
// bits for freed slots").
//
// onFreedSlot is called once per slot transitioning from live to dead so
// the caller (internal/finalize / the root State) can release its buffer.
func Userdata(h *gcarena.Header, onFreedSlot func(slot int)) Result {
	newFree := bitmap.Words{W: make([]bitmap.Word, len(h.Free.W))}
	any := false
	for i := range newFree.W {
		if h.Mark.W[i] != 0 {
			any = true
		}
		newFree.W[i] = h.Mark.W[i].Not()
	}
	if n := len(newFree.W); n > 0 {
		newFree.W[0] = newFree.W[0].AndNot(headerLowMask(h.HeaderSlots))
		newFree.W[n-1] = newFree.W[n-1].AndNot(footerHighMask(h.Capacity))
	}
	recomputeSummary(&newFree)

	for i := range newFree.W {
		died := newFree.W[i].AndNot(h.Free.W[i])
		for died != 0 {
			bit := died.Ctz()
			slot := i*64 + bit
			if onFreedSlot != nil {
				onFreedSlot(slot)
			}
			h.FinReq.Clear(slot)
			h.Fin.Clear(slot)
			died = died.Clear(uint(bit))
		}
	}

	h.Free = newFree
	h.Mark.Reset()
	return finishArenaSweep(h, any)
}
