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

//go:build unix

package page

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// OS is a Provider backed directly by the kernel's mmap/munmap, bypassing
// the Go heap entirely. This is the production default: arena headers are
// reinterpreted via unsafe.Pointer constantly by the mark/sweep engines, and
// keeping that memory outside the Go allocator means the Go runtime's own
// collector never has to scan it or worry about its pointer-validity
// invariants — the same reason the teacher's arena package goes out of its
// way to keep GC-owned memory pointer-free (see internal/arena/arena.go's
// package doc).
//
// Pages are over-mapped by one alignment unit and then trimmed, since mmap
// only guarantees page-size alignment, not ARENA_SIZE alignment.
type OS struct{}

func (OS) Alloc(size int) ([]byte, error) {
	return mmapAligned(size, size)
}

func (OS) Free(p []byte) {
	if len(p) == 0 {
		return
	}
	_ = unix.Munmap(fullMapping(p))
}

func (OS) AllocHuge(size int) ([]byte, error) {
	return mmapAligned(size, unix.Getpagesize())
}

func (OS) FreeHuge(p []byte) {
	if len(p) == 0 {
		return
	}
	_ = unix.Munmap(p)
}

func (OS) ReallocHuge(p []byte, newSize int) ([]byte, error) {
	next, err := mmapAligned(newSize, unix.Getpagesize())
	if err != nil {
		return nil, err
	}
	copy(next, p)
	if len(p) > 0 {
		_ = unix.Munmap(p)
	}
	return next, nil
}

func (OS) RawAlloc(p []byte, oldSize, newSize int) ([]byte, error) {
	if newSize == 0 {
		if len(p) > 0 {
			_ = unix.Munmap(p)
		}
		return nil, nil
	}
	next, err := mmapAligned(newSize, unix.Getpagesize())
	if err != nil {
		return nil, err
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	copy(next, p[:n])
	if len(p) > 0 {
		_ = unix.Munmap(p)
	}
	return next, nil
}

// mapped tracks the over-allocated region behind every trimmed slice so Free
// can hand the *original* mapping back to munmap.
var mapped = map[uintptr][]byte{}

func mmapAligned(size, align int) ([]byte, error) {
	full, err := unix.Mmap(-1, 0, size+align, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("trigc: mmap %d bytes: %w", size+align, err)
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(full)))
	pad := int(-base & uintptr(align-1))
	trimmed := full[pad : pad+size : pad+size]
	mapped[uintptr(unsafe.Pointer(unsafe.SliceData(trimmed)))] = full
	return trimmed, nil
}

func fullMapping(p []byte) []byte {
	key := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	if full, ok := mapped[key]; ok {
		delete(mapped, key)
		return full
	}
	return p
}
