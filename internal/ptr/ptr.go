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

// Package ptr provides typed, low-level pointer arithmetic for the arena and
// bitmap layers of the collector.
//
// The collector decomposes live object pointers into (arena, slot index)
// pairs on every mark and every sweep; doing this with raw unsafe.Pointer
// arithmetic scattered through the mark/sweep engines would be unreadable and
// easy to get subtly wrong across kinds of differing size. [Addr] centralizes
// that arithmetic the way the teacher's internal/xunsafe.Addr does.
package ptr

import (
	"fmt"
	"unsafe"
)

// NoCopy marks a type as non-copyable for go vet's -copylocks check, by
// implementing sync.Locker without ever being locked.
type NoCopy [0]*NoCopy

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}

// Addr is a typed raw address: a uintptr that remembers what it points to,
// so that arithmetic on it is automatically scaled by sizeof(T).
type Addr[T any] uintptr

// Of returns the address of a pointer.
func Of[T any](p *T) Addr[T] {
	return Addr[T](uintptr(unsafe.Pointer(p)))
}

// Valid reinterprets this address as a pointer. The caller is responsible for
// the address actually denoting a live T.
func (a Addr[T]) Valid() *T {
	return (*T)(unsafe.Pointer(uintptr(a))) //nolint:govet // intentional
}

// Add adds n elements' worth of offset to a.
func (a Addr[T]) Add(n int) Addr[T] {
	var z T
	return a + Addr[T](n*int(unsafe.Sizeof(z)))
}

// ByteAdd adds an unscaled byte offset to a.
func (a Addr[T]) ByteAdd(n int) Addr[T] {
	return a + Addr[T](n)
}

// Sub computes the number of T-sized strides between a and b.
func (a Addr[T]) Sub(b Addr[T]) int {
	var z T
	return int(a-b) / int(unsafe.Sizeof(z))
}

// Mask returns a with its low bits (below the given power-of-two alignment)
// cleared. Used to recover an arena's header address from any pointer into
// the arena: arena = ptr.Mask(objAddr, ARENA_SIZE).
func (a Addr[T]) Mask(align uintptr) Addr[T] {
	return a &^ Addr[T](align-1)
}

// Offset returns the low bits of a below the given power-of-two alignment:
// the byte offset of a within its containing aligned region.
func (a Addr[T]) Offset(align uintptr) uintptr {
	return uintptr(a) & (align - 1)
}

// Format implements fmt.Formatter, printing addresses in hex by default.
func (a Addr[T]) Format(state fmt.State, verb rune) {
	if verb == 'v' || verb == 'x' {
		fmt.Fprintf(state, "%#x", uintptr(a))
		return
	}
	fmt.Fprintf(state, fmt.FormatString(state, verb), uintptr(a))
}

// Cast reinterprets a pointer to one type as a pointer to another, without
// a conversion.
func Cast[To, From any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}

// BitCast reinterprets the bits of a value of one type as another, which must
// be the same size.
func BitCast[To, From any](v From) To {
	return *Cast[To](&v)
}

// Layout returns the size and alignment of T.
func Layout[T any]() (size, align int) {
	var z T
	return int(unsafe.Sizeof(z)), int(unsafe.Alignof(z))
}

// RoundUp rounds n up to the nearest multiple of the power-of-two align.
func RoundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// IsPow2 reports whether n is a power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
