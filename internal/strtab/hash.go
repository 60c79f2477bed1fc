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

package strtab

import (
	"encoding/binary"
	"math/bits"
)

// hash is the FxHash-derived content hasher of the teacher's
// internal/swiss/fxhash.go, ported from its unsafe.Pointer word-at-a-time
// walk to plain byte-slice indexing (strtab has no need for the teacher's
// arena-pointer-hashing use case, only for hashing already-materialized
// string content).
type hash uint64

const (
	fxRotate = 5
	fxKey    = 0x517cc1b727220a95
)

func (h hash) mix(n uint64) hash {
	var lo, hi uint64
	hi, lo = bits.Mul64(bits.RotateLeft64(uint64(h), fxRotate)^n, fxKey)
	return hash(lo ^ hi)
}

// hashBytes computes the content hash of b.
func hashBytes(b []byte) uint64 {
	h := hash(0).mix(uint64(len(b)))
	for len(b) >= 8 {
		h = h.mix(binary.LittleEndian.Uint64(b))
		b = b[8:]
	}
	if len(b) > 0 {
		var tail [8]byte
		copy(tail[:], b)
		h = h.mix(binary.LittleEndian.Uint64(tail[:]))
	}
	return uint64(h)
}

// h1 is the index-selecting half of a content hash.
func h1(h uint64) uint64 { return h >> 7 }

// h2 is the control-byte fragment of a content hash, matching the teacher's
// `^(byte(h) & 0x7f)` so that the all-zero and all-ones control bytes never
// collide with a real fragment.
func h2(h uint64) byte { return ^(byte(h) & 0x7f) }
