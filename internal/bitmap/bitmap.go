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

// Package bitmap implements the width-agnostic bitmap operator set the
// collector's mark/sweep engines are written against: zero, ones, and, or,
// xor, andnot, shl, popcount, ctz and an equality mask.
//
// The operator set and the byte-lane bit-trick style (computing masks with
// add/xor/and instead of branches) is carried over from the control-word
// tricks in the teacher's internal/swiss package (see ctrl.go's broadcast/
// matches/first), generalized from one control word to arbitrarily long
// bitmaps, and from "which byte lane differs" to "which bit is set".
//
// There is no portable SIMD in Go without cgo or assembly, both of which the
// teacher itself avoids in this exact package. [Backend] is the honest
// rendition of the spec's "256-bit / 128-bit / scalar" backing requirement:
// an interface with a scalar (one word at a time) and a "wide" (four words
// at a time, loop-unrolled) implementation, so that sweep routines can be
// written once against the interface and pick a backend at construction
// time.
package bitmap

import "math/bits"

// Word is a single 64-bit bitmap word, addressed LSB-first (bit j of word i
// represents slot i*64+j, matching spec.md's `word = slot_index >> 6; bit =
// slot_index & 63`).
type Word uint64

// Set returns w with bit n set.
func (w Word) Set(n uint) Word { return w | Word(1)<<n }

// Clear returns w with bit n cleared.
func (w Word) Clear(n uint) Word { return w &^ (Word(1) << n) }

// Test reports whether bit n of w is set.
func (w Word) Test(n uint) bool { return w&(Word(1)<<n) != 0 }

// Ctz returns the index of the lowest set bit, or 64 if w is zero.
func (w Word) Ctz() int { return bits.TrailingZeros64(uint64(w)) }

// Popcount returns the number of set bits.
func (w Word) Popcount() int { return bits.OnesCount64(uint64(w)) }

// And, Or, Xor, AndNot are the boolean bitmap operators named in spec.md §9.
func (w Word) And(v Word) Word    { return w & v }
func (w Word) Or(v Word) Word     { return w | v }
func (w Word) Xor(v Word) Word    { return w ^ v }
func (w Word) AndNot(v Word) Word { return w &^ v }
func (w Word) Not() Word          { return ^w }

// Shl shifts left by n, the `shl64` primitive of spec.md §9.
func (w Word) Shl(n uint) Word { return w << n }

// EqMask returns a mask whose nth *byte* is 0xff iff the nth byte of w equals
// the nth byte of v and zero otherwise — the `eq64_mask` primitive, carried
// over near-verbatim from internal/swiss/ctrl.go's `matches`, which computes
// exactly this mask to drive the control-byte probe sequence. Used by the
// string table's control-byte probing (internal/strtab) rather than by
// mark/sweep, which only ever need bit-level (not byte-level) masks.
func (w Word) EqMask(v Word) Word {
	const lows = 0x0101_0101_0101_0101
	const highs = lows << 7
	x := w ^ v
	return Word((uint64(x) - lows) &^ uint64(x) & highs)
}

// Zero and Ones are the fixed-point bitmap constants.
const (
	Zero Word = 0
	Ones Word = ^Word(0)
)

// NumWords returns the number of 64-bit words needed to hold n bits.
func NumWords(n int) int {
	return (n + 63) / 64
}
