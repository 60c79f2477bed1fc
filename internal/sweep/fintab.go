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

// FinTab sweeps a finalizer-table arena. spec.md §9 flags the source's
// gc_sweep_fintab1_simd as reloading into a local without ever writing
// `fin`, and directs an implementation to reconstruct the intended
// dataflow instead of mimicking it:
//
//	fin &= mark
//	free |= ^mark & ^fin
//	mark &= 0 (unless minor mode)
//
// "fin &= mark" keeps only still-finalized-and-still-marked objects enqueued
// (an object the presweep pass already resurrected onto fin_list stays
// marked, so it survives this AND; one that was never resurrected and is
// now unmarked drops out). "free |= ^mark & ^fin" then frees every slot that
// is neither marked nor still pending finalization.
func FinTab(h *gcarena.Header, minorMode bool) Result {
	bitmap.AndInto(&h.Fin, h.Mark)

	for i := range h.Free.W {
		h.Free.W[i] = h.Free.W[i].Or(h.Mark.W[i].Not().And(h.Fin.W[i].Not()))
	}
	recomputeSummary(&h.Free)

	any := bitmap.Any(h.Mark)
	if !minorMode {
		h.Mark.Reset()
	}
	return finishArenaSweep(h, any)
}
