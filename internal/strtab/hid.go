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

// Package strtab implements the string-interning table of spec.md §3
// ("String interning") and §4.5's small/medium/huge-string sweep
// interactions with it: a primary open-addressed array plus a paged
// secondary store, addressed by a 32-bit hid.
//
// The control-byte probing style (a parallel byte array of hash fragments,
// matched via a SWAR equality mask instead of one-at-a-time comparison) is
// adapted from the teacher's internal/swiss package (ctrl.go's
// broadcast/matches/first, new.go's table-construction shape, fxhash.go's
// hash function) — generalized from a generic open-addressed map to a
// content-addressed string table with a dedicated overflow store, since
// spec.md requires every hid to resolve back to its string deterministically
// even after the primary array is full (swiss's table has no such overflow
// path: it just grows).
package strtab

const (
	chainInvalid   = 0xF // low 4 bits value 15: "invalid" chain index (spec.md §3)
	chainPerEntry  = chainInvalid
	entriesPerArena = 1 << 9 // 512, the "next 9 bits" of the hid
	secondaryArenaBits = 19
)

// isPrimary reports whether hid's top six bits are all set — spec.md §3:
// "if the top six bits are set, the remainder indexes the primary array".
func isPrimary(hid uint32) bool { return hid&primaryTagMask == primaryTagMask }

const primaryTagMask = uint32(0x3F) << 26
const primaryIndexMask = uint32(1)<<26 - 1

func makePrimaryHid(index uint32) uint32 {
	return primaryTagMask | (index & primaryIndexMask)
}

func primaryIndex(hid uint32) uint32 { return hid & primaryIndexMask }

func makeSecondaryHid(arena, entry, chain uint32) uint32 {
	return (arena&(1<<secondaryArenaBits-1))<<13 | (entry&(entriesPerArena-1))<<4 | (chain & 0xF)
}

func decodeSecondaryHid(hid uint32) (arena, entry, chain uint32) {
	arena = hid >> 13
	entry = (hid >> 4) & (entriesPerArena - 1)
	chain = hid & 0xF
	return
}
