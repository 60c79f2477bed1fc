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

// SmallString sweeps a small-string (16-byte slot) arena: `free =
// ~(fixed | mark)`, so pinned strings are never reported free regardless of
// their mark bit (spec.md §4.5). onFreedSlot is called for every slot that
// transitions from occupied to free, so the caller can clear the string's
// interning-table entry.
func SmallString(h *gcarena.Header, onFreedSlot func(slot int)) Result {
	prevFree := cloneWords(h.Free)

	newFree := bitmap.Words{W: make([]bitmap.Word, len(h.Free.W))}
	for i := range newFree.W {
		newFree.W[i] = h.Mark.W[i].Or(h.Fixed.W[i]).Not()
	}
	recomputeSummary(&newFree)

	if h.Flags&gcarena.FlagDirty != 0 {
		reportNewlyFree(prevFree, newFree, onFreedSlot)
	}

	any := bitmap.Any(h.Mark) || bitmap.Any(h.Fixed)
	h.Free = newFree
	h.Mark.Reset()

	return finishArenaSweep(h, any)
}

func cloneWords(w bitmap.Words) bitmap.Words {
	out := bitmap.Words{W: make([]bitmap.Word, len(w.W)), Summary: w.Summary}
	copy(out.W, w.W)
	return out
}

func reportNewlyFree(before, after bitmap.Words, onFreedSlot func(slot int)) {
	if onFreedSlot == nil {
		return
	}
	for i := range after.W {
		newly := after.W[i].AndNot(before.W[i])
		for newly != 0 {
			bit := newly.Ctz()
			onFreedSlot(i*64 + bit)
			newly = newly.Clear(uint(bit))
		}
	}
}

// HugeString walks the huge-string chain (spec.md §4.5): per node, live if
// marked; otherwise unlink, clear the interning entry, and free the page.
// The chain is represented as a slice the caller owns (no arena, per
// spec.md §2's huge-object list being separate from the typed arenas).
type HugeNode struct {
	Marked bool
	Hid    uint32
}

// SweepHugeChain filters chain in place, invoking onDead for every node
// found unmarked (to clear its interning entry and release its page) and
// clearing every surviving node's mark bit for the next cycle.
func SweepHugeChain(chain []*HugeNode, onDead func(*HugeNode)) []*HugeNode {
	live := chain[:0]
	for _, n := range chain {
		if !n.Marked {
			if onDead != nil {
				onDead(n)
			}
			continue
		}
		n.Marked = false
		live = append(live, n)
	}
	return live
}
