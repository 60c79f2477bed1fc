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

package bitmap

// Backend computes `free = ~mark` across a whole bitmap in one call — the
// operation the sweep engine (spec.md §4.5) runs once per arena per sweep
// step. It is the seam at which a real SIMD implementation (256-bit AVX2,
// 128-bit NEON) would plug in; trigc ships only portable-Go backends, since
// the teacher's own bit-trick packages (internal/swiss) are pure Go too, but
// the interface is written so a future assembly backend is a drop-in.
type Backend interface {
	// SweepMark computes dst[i] = ^mark[i] for every word, ANDing out the
	// caller-supplied header/footer mask bits (FREE_LOW/FREE_HIGH in
	// spec.md §3), and returns whether any bit in mark was set (`any`).
	SweepMark(dst, mark []Word, headerMask, footerMask Word) (any bool)
}

// Scalar processes one word at a time. The reference implementation; always
// correct, used when the bitmap is too short to amortize the wide path.
type Scalar struct{}

func (Scalar) SweepMark(dst, mark []Word, headerMask, footerMask Word) bool {
	var any bool
	for i, m := range mark {
		if m != 0 {
			any = true
		}
		w := m.Not()
		if i == 0 {
			w = w.AndNot(headerMask)
		}
		if i == len(mark)-1 {
			w = w.AndNot(footerMask)
		}
		dst[i] = w
	}
	return any
}

// Wide4 processes four words per iteration, loop-unrolled. This is the
// "wide" backend spec.md §9 asks for in lieu of real SIMD: four independent
// word computations with no data dependency between them, which a compiler
// (or a human with intrinsics) can trivially widen to a 256-bit register
// holding four uint64 lanes.
type Wide4 struct{}

func (Wide4) SweepMark(dst, mark []Word, headerMask, footerMask Word) bool {
	var any bool
	n := len(mark)
	i := 0
	for ; i+4 <= n; i += 4 {
		m0, m1, m2, m3 := mark[i], mark[i+1], mark[i+2], mark[i+3]
		any = any || m0 != 0 || m1 != 0 || m2 != 0 || m3 != 0
		dst[i], dst[i+1], dst[i+2], dst[i+3] = m0.Not(), m1.Not(), m2.Not(), m3.Not()
	}
	for ; i < n; i++ {
		if mark[i] != 0 {
			any = true
		}
		dst[i] = mark[i].Not()
	}
	if n > 0 {
		dst[0] = dst[0].AndNot(headerMask)
		dst[n-1] = dst[n-1].AndNot(footerMask)
	}
	return any
}

// Default is the backend used when none is explicitly selected.
var Default Backend = Wide4{}
