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

// Words is an arena-length bitmap: one Word per 64 slots, plus a "summary"
// word (the `_h` suffix in spec.md, e.g. `gray_h`) whose bit i is set iff
// Words[i] is nonzero. The summary lets a scan skip whole empty words via a
// single Ctz instead of a linear scan, which is how spec.md's arena
// allocator finds `free_h` and how the mark engine tracks `gray_h`.
type Words struct {
	W       []Word
	Summary Word
}

// NewWords allocates a Words bitmap with room for n bits.
func NewWords(n int) Words {
	return Words{W: make([]Word, NumWords(n))}
}

// Test reports whether bit index is set.
func (b Words) Test(index int) bool {
	return b.W[index>>6].Test(uint(index & 63))
}

// Set sets bit index and updates the summary.
func (b *Words) Set(index int) {
	i := index >> 6
	b.W[i] = b.W[i].Set(uint(index & 63))
	b.Summary = b.Summary.Set(uint(i))
}

// Clear clears bit index, clearing the summary bit too if the word becomes
// zero.
func (b *Words) Clear(index int) {
	i := index >> 6
	b.W[i] = b.W[i].Clear(uint(index & 63))
	if b.W[i] == 0 {
		b.Summary = b.Summary.Clear(uint(i))
	}
}

// SetTo sets bit index to v, clearing or setting it as needed. Used where
// the new bit value is the result of a computed truth table rather than an
// unconditional set or clear (spec.md §4.5's medium-string sweep collapse).
func (b *Words) SetTo(index int, v bool) {
	if v {
		b.Set(index)
	} else {
		b.Clear(index)
	}
}

// Any reports whether any bit is set, via the summary word — O(1).
func (b Words) Any() bool { return b.Summary != 0 }

// FirstSet returns the index of the lowest set bit and true, or (0, false) if
// no bit is set. This is the `ctz(free_h); ctz(free[i])` two-level lookup
// spec.md §4.1 describes for the arena allocator's fast path.
func (b Words) FirstSet() (int, bool) {
	hi := b.Summary.Ctz()
	if hi >= 64 {
		return 0, false
	}
	lo := b.W[hi].Ctz()
	return hi*64 + lo, true
}

// Fill sets every bit in [0, n) and recomputes the summary. Used to
// initialize a fresh arena's `free` bitmap to FREE_MASK (spec.md §4.1).
func (b *Words) Fill(n int) {
	full := n / 64
	for i := 0; i < full; i++ {
		b.W[i] = Ones
		b.Summary = b.Summary.Set(uint(i))
	}
	if rem := n % 64; rem != 0 {
		b.W[full] = Word(1)<<uint(rem) - 1
		if b.W[full] != 0 {
			b.Summary = b.Summary.Set(uint(full))
		}
	}
}

// Reset clears every word and the summary.
func (b *Words) Reset() {
	clear(b.W)
	b.Summary = 0
}

// AndNotInto computes dst[i] = a[i] &^ b[i] for every word and recomputes
// dst's summary. Used by sweep to compute `free = ~mark` (spec.md §4.5).
func AndNotInto(dst, a, b Words) {
	dst.Summary = 0
	for i := range dst.W {
		dst.W[i] = a.W[i].AndNot(b.W[i])
		if dst.W[i] != 0 {
			dst.Summary = dst.Summary.Set(uint(i))
		}
	}
}

// OrInto computes dst[i] |= a[i] for every word and recomputes dst's summary.
func OrInto(dst, a Words) {
	for i := range dst.W {
		dst.W[i] = dst.W[i].Or(a.W[i])
		if dst.W[i] != 0 {
			dst.Summary = dst.Summary.Set(uint(i))
		}
	}
}

// AndInto computes dst[i] &= a[i] for every word and recomputes dst's
// summary. Used by finalizer-table sweep: `fin &= mark` (spec.md §9, open
// question on gc_sweep_fintab1_simd's intended dataflow).
func AndInto(dst, a Words) {
	dst.Summary = 0
	for i := range dst.W {
		dst.W[i] = dst.W[i].And(a.W[i])
		if dst.W[i] != 0 {
			dst.Summary = dst.Summary.Set(uint(i))
		}
	}
}

// Any reports whether the OR of every word in w is nonzero — the `any = OR
// of mark` computation of spec.md §4.5.
func Any(w Words) bool {
	for _, word := range w.W {
		if word != 0 {
			return true
		}
	}
	return false
}

// Popcount returns the total number of set bits across all words.
func Popcount(w Words) int {
	n := 0
	for _, word := range w.W {
		n += word.Popcount()
	}
	return n
}
