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

package gcobj

// String is a leaf GC kind: interned byte content addressed by a 32-bit hid
// (internal/strtab). Marking a String is a direct black with no traversal
// (spec.md §4.2).
type String struct {
	*Object
	Data []byte
	Hid  uint32 // set once interned (internal/strtab)
	Hash uint64 // content hash, used by strtab probing
}

// NewString allocates a String object header; o is the slot this string
// occupies in its small/medium/huge-string arena.
func NewString(o *Object, data []byte, hash uint64) *String {
	o.Kind = KindString
	return &String{Object: o, Data: data, Hash: hash}
}

func (s *String) String() string { return string(s.Data) }
