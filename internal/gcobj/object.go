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

import "github.com/vmthings/trigc/internal/gcarena"

// Kind tags the dynamic type of a GC object, mirroring spec.md §1's list:
// strings, tables, functions, upvalues, userdata, threads, prototypes,
// traces, cdata.
type Kind uint8

const (
	KindString Kind = iota
	KindTable
	KindFunction
	KindUpvalue
	KindUserdata
	KindThread
	KindProto
	KindTrace
	KindCdata
)

// Object is the common header every kind struct embeds, giving the
// collector dynamic dispatch over GC kinds via a per-kind function table
// (spec.md §9 "Dynamic dispatch over GC kinds") instead of reflection.
type Object struct {
	Kind  Kind
	Flags Flags

	// Arena is non-nil for objects that live in a bitmap-indexed arena
	// (every kind except the object-list kinds tracked instead via GCList,
	// per spec.md §4.2). Slot is this object's index within Arena.
	Arena *gcarena.Header
	Slot  int

	// MedArena is non-nil for a medium-size string, which lives in a
	// variable-size freelist arena (internal/medstr) rather than a
	// bitmap-indexed one, addressed by MedOffset instead of Slot (spec.md
	// §3's medium-string arena). Arena and MedArena are never both non-nil.
	MedArena MediumArena
	MedOffset int

	// GCList links the object into the intrusive gray/grayagain/fin_list
	// chains used for thread, prototype, trace, and cdata kinds (spec.md
	// §4.2: "marking sets the object's GRAY flag, links it into the
	// intrusive gray list via gclist").
	GCList *Object

	// Traversable is the per-kind payload; nil for plain leaf kinds like
	// String which never need gc_traverse_*.
	Traversable Traversable
}

// Traversable is implemented by every kind whose mark phase must visit
// outgoing references (spec.md §4.2). String does not implement it — string
// marking is a direct black with no traversal (spec.md §4.2: "String marking
// is a direct black... strings are leaves").
type Traversable interface {
	// Traverse visits every GC-reachable reference from the receiver via
	// visit, and reports the weak-mode bits observed on a table's __mode
	// (zero for every other kind). ctx carries the state a traversal needs
	// to consult (current GC state, JIT trace activity) without importing
	// the scheduler package (avoiding an import cycle).
	Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode
}

// WeakMode is the `weak` return of gc_traverse_tab in spec.md §4.2.
type WeakMode uint8

const (
	WeakNone WeakMode = 0
	WeakKey  WeakMode = 1 << iota
	WeakVal
)

// TraverseContext is threaded through Traverse calls so table/userdata
// traversal can make the blob-relocation and atomic-phase decisions spec.md
// §4.2 and §4.4 describe without a direct dependency on internal/sched or
// internal/blob.
type TraverseContext struct {
	// Atomic is true during the atomic phase's thread rescan (spec.md
	// §4.2: "in the atomic phase it additionally nils all slots from top
	// to maxstack").
	Atomic bool
	// JITTraceActive forbids blob-payload relocation mid-traversal (spec.md
	// §4.2, §5).
	JITTraceActive bool
	// MoveBlob relocates a blob-region payload flagged REAP and returns its
	// new base offset, or ok=false if the payload's page is not flagged
	// REAP (spec.md §4.2, "When a table's node/array payload lives in a
	// blob-page flagged REAP...").
	MoveBlob func(owner *Object, base uintptr, size int) (newBase uintptr, moved bool)
	// AccountBlobUsage increments a blob-page's live-usage counter when its
	// owner is found reachable without being relocated.
	AccountBlobUsage func(base uintptr, size int)
}

// MediumArena is the subset of internal/medstr.Arena's API the mark engine
// needs to treat a medium string exactly like an arena-bitmap slot, without
// gcobj importing medstr directly (medstr itself does not import gcobj,
// avoiding a cycle; this interface is the seam instead, the same role
// Traversable plays for traversal).
type MediumArena interface {
	TestMark(offset int) bool
	SetMark(offset int)
}

// IsCollectible reports whether k denotes a heap-allocated kind (every Kind
// value in this package is collectible; the helper exists so Value's
// boolean/number/nil cases have a uniform predicate to call).
func (k Kind) IsCollectible() bool { return true }
