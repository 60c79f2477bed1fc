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

// Package page implements the page-provider trait of spec.md §6: the one
// external collaborator the collector cannot do without, since arena-aligned
// memory is what makes the `arena = ptr &^ ARENA_OMASK` masking trick (§3)
// work at all.
package page

// Provider is the page-provider trait consumed by the collector (spec.md
// §6). Implementations must return memory aligned to size (a power of two)
// for Alloc, so that masking a pointer within the page by size-1 always
// recovers the page's base address.
type Provider interface {
	// Alloc returns an arena-aligned page of exactly size bytes.
	Alloc(size int) ([]byte, error)
	// Free releases a page returned by Alloc.
	Free(page []byte)
	// AllocHuge returns a page for a single oversized object; it need not be
	// arena-aligned, since huge objects are never indexed by bitmap slot.
	AllocHuge(size int) ([]byte, error)
	// FreeHuge releases a page returned by AllocHuge.
	FreeHuge(page []byte)
	// ReallocHuge resizes a huge page in place if possible, or allocates a
	// new one and copies min(old, new) bytes.
	ReallocHuge(page []byte, newSize int) ([]byte, error)
	// RawAlloc is the non-GC allocator callback of spec.md §6
	// (`allocf(ud, ptr, osz, nsz)`): ptr==nil is a fresh allocation, nsz==0
	// is a free, both nonzero is a resize.
	RawAlloc(ptr []byte, oldSize, newSize int) ([]byte, error)
}
