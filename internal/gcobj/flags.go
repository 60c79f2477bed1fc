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

// Package gcobj implements the tagged-value model and the per-kind object
// traversal rules of spec.md §3 ("Object lifecycles") and §4.2 ("Mark
// Engine"). It is the part of trigc with no direct teacher precedent — the
// teacher repo has no notion of a GC-managed value graph at all — so it is
// grounded instead on original_source/src/lj_gc.c's gc_traverse_* family and
// on the teacher's internal/xunsafe for the unsafe-pointer plumbing
// (adapted into internal/ptr) used to give every kind struct a common
// *Object header without an interface-dispatch indirection on the hot path.
package gcobj

// Flags is the small per-object flag byte of spec.md §3: two alternating
// black bits, a gray bit, a weak-key bit, a weak-value bit, a finalized bit,
// and size-class bits for colocated payloads.
type Flags uint8

const (
	FlagBlack0 Flags = 1 << iota
	FlagBlack1
	FlagGray
	FlagWeakKey
	FlagWeakVal
	FlagFinalized
	flagSizeShift = 6
)

// sizeClassMask covers the top two bits, encoding a coalesced-allocation run
// length of 0-3 extra slots (spec.md §4.1 "size2flags").
const sizeClassMask = Flags(3) << flagSizeShift

const blackMask = FlagBlack0 | FlagBlack1
const weakMask = FlagWeakKey | FlagWeakVal

// SizeClass returns the number of extra colocated slots encoded in f.
func (f Flags) SizeClass() int { return int((f & sizeClassMask) >> flagSizeShift) }

// WithSizeClass returns f with its size-class bits set to n (0-3).
func (f Flags) WithSizeClass(n int) Flags {
	return (f &^ sizeClassMask) | (Flags(n)<<flagSizeShift)&sizeClassMask
}

// Colors tracks the two alternating black bits, analogous to global_State's
// currentblack/currentblackgray in spec.md §3.
type Colors struct {
	black Flags // one of FlagBlack0/FlagBlack1: "current black"
}

// NewColors returns a fresh Colors with FlagBlack0 as the initial black bit.
func NewColors() Colors { return Colors{black: FlagBlack0} }

// Black is the flag bit meaning "fully traversed this cycle".
func (c Colors) Black() Flags { return c.black }

// White is the flag bit that was black last cycle — the complement the
// sweep pass now treats as dead, per spec.md's "the previous black becomes
// the new white after atomic".
func (c Colors) White() Flags { return blackMask &^ c.black }

// Flip swaps currentblack with its complement, as the atomic phase does
// unless running in minor mode (spec.md §4.4 step 8).
func (c *Colors) Flip() { c.black = blackMask &^ c.black }

// IsWhite reports whether o carries neither black bit — spec.md §3:
// "White is neither current-black bit set".
func (c Colors) IsWhite(f Flags) bool { return f&blackMask == 0 }

// IsBlack reports whether o carries the current black bit.
func (c Colors) IsBlack(f Flags) bool { return f&c.black != 0 }

// ToGray returns f with the gray bit set and both black bits cleared.
func ToGray(f Flags) Flags { return (f &^ blackMask) | FlagGray }

// ToBlack returns f with the gray bit cleared and the given black bit set.
func ToBlack(f Flags, black Flags) Flags { return (f&^FlagGray)&^blackMask | black }

// ToWhite returns f with all color bits cleared (used by barrierf's
// "otherwise make o white" branch, spec.md §4.7).
func ToWhite(f Flags) Flags { return f &^ (blackMask | FlagGray) }
