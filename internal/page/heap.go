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

package page

import "unsafe"

// Heap is a portable Provider backed by the Go heap. It over-allocates each
// page by one extra alignment unit and hands back the aligned sub-slice, the
// same "round trip through a bigger allocation" trick the teacher's
// arena.AllocTraceable uses (there via reflect.StructOf, here via plain
// slicing since trigc's arenas do not need to keep a Go pointer alive inside
// page-provider memory — that memory is meant to be opaque to the Go GC).
//
// Heap is the default Provider for tests and for platforms with no
// os-specific backend wired in (see os_unix.go).
type Heap struct{}

// Alloc returns a size-aligned page of exactly size bytes.
func (Heap) Alloc(size int) ([]byte, error) {
	return alignedAlloc(size, size)
}

// Free is a no-op: Go's GC reclaims the backing allocation once it is
// unreachable. Kept as a method so the Provider interface is uniform across
// backends that do need explicit release (see os_unix.go).
func (Heap) Free([]byte) {}

// AllocHuge returns page-aligned memory of at least size bytes; it does not
// need arena alignment because huge objects are chained, never indexed by
// bitmap slot (spec.md §4.5, gc_sweep_hugestrings).
func (Heap) AllocHuge(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (Heap) FreeHuge([]byte) {}

func (Heap) ReallocHuge(page []byte, newSize int) ([]byte, error) {
	next := make([]byte, newSize)
	copy(next, page)
	return next, nil
}

func (Heap) RawAlloc(ptr []byte, oldSize, newSize int) ([]byte, error) {
	if newSize == 0 {
		return nil, nil
	}
	next := make([]byte, newSize)
	copy(next, ptr[:min(oldSize, newSize)])
	return next, nil
}

func alignedAlloc(size, align int) ([]byte, error) {
	raw := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	pad := int(-base & uintptr(align-1))
	return raw[pad : pad+size : pad+size], nil
}
