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

package trigc

import (
	"github.com/google/uuid"

	"github.com/vmthings/trigc/internal/blob"
	"github.com/vmthings/trigc/internal/config"
	"github.com/vmthings/trigc/internal/diag"
	"github.com/vmthings/trigc/internal/finalize"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/mark"
	"github.com/vmthings/trigc/internal/medstr"
	"github.com/vmthings/trigc/internal/page"
	"github.com/vmthings/trigc/internal/sched"
	"github.com/vmthings/trigc/internal/stats"
	"github.com/vmthings/trigc/internal/strtab"
	"github.com/vmthings/trigc/internal/sweep"
)

// State is the collector's single global instance (spec.md §5: "the global
// state is a single owner of the arena lists, the blob region, the string
// tables, the gray queues, and the allocator callback"). Every exported
// method must be called from the same goroutine (diag.Owner enforces this
// in debug builds).
type State struct {
	// ID correlates this State's diagnostic log lines across a test binary
	// running many collector instances at once (SPEC_FULL.md §10.9).
	ID uuid.UUID

	Tuning   config.Tuning
	provider page.Provider
	owner    *diag.Owner

	Engine *mark.Engine
	sched  *sched.Scheduler

	arenas map[gcarena.Kind]*gcarena.List
	// objects maps every bitmap-arena slot to its object header, since
	// gcarena.Header itself stores only bits, not pointers (spec.md §3).
	objects map[*gcarena.Header]map[int]*gcobj.Object
	// stringAt is objects' counterpart for string slots specifically:
	// gcobj.String carries no Traversable (strings are mark leaves, spec.md
	// §4.2), so sweep-time interning cleanup needs its own slot->*String
	// lookup instead of going through Object.Traversable.
	stringAt map[*gcarena.Header]map[int]*gcobj.String

	// medium is the variable-size freelist arena list backing strings too
	// large for the fixed small-string slot (spec.md §3's medium-string
	// arena). mediumAt is stringAt's counterpart for it, keyed by arena and
	// run-start unit offset instead of by gcarena.Header and slot.
	medium   *medstr.List
	mediumAt map[*medstr.Arena]map[int]*gcobj.String
	// listObjects holds every thread/proto/trace/cdata object: the kinds
	// spec.md §2 does not list among the arena kinds, tracked instead via
	// Object.GCList and Object.Flags (see internal/mark's isArenaKind).
	listObjects map[*gcobj.Object]bool

	Blobs   *blob.Region
	Strings *strtab.Table
	huge    []*hugeStringEntry

	fin *finalize.Pipeline

	MainThread *gcobj.Object
	MainEnv    *gcobj.Object
	Registry   gcobj.Value
	GCRoot     []*gcobj.Object
	// ActiveTrace, if non-nil, is re-marked every atomic phase alongside the
	// running thread (spec.md §4.4 step 2).
	ActiveTrace *gcobj.Object
	// JITTraceActive forbids atomic entry and blob relocation while a trace
	// is recording (spec.md §5); the scheduler returns a stall until the
	// host clears it.
	JITTraceActive bool

	onFinalizerError func(error)
	// OnFinalizeUdata, OnFinalizeCdata, and OnFinalizeTable are the host
	// call-out seams for spec.md §6's finalize_udata/finalize_cdata entry
	// points and the table-__gc counterpart (spec.md §3, §4.6); trigc has no
	// call mechanism of its own into the host language (spec.md §1), so
	// these are nil (no-op finalizers) unless set via WithUdataFinalizer,
	// WithCdataFinalizer or WithTableFinalizer.
	OnFinalizeUdata func(*gcobj.Userdata) error
	OnFinalizeCdata func(*gcobj.Cdata) error
	OnFinalizeTable func(*gcobj.Table) error

	sweepQueue []*gcarena.Header
	sweepIdx   int

	stepCost  *stats.Median
	pauseTime *stats.Median

	debtBytes int
}

type hugeStringEntry struct {
	node *sweep.HugeNode
	str  *gcobj.String
}

// arenaKinds lists every gcarena.Kind backed by a bitmap-indexed fixed-slot
// arena (spec.md §2 bullet 2): everything except thread/proto/trace/cdata
// (tracked via listObjects) and medium strings (tracked via medstr.List,
// since their runs are variable-size rather than fixed-slot).
var arenaKinds = []gcarena.Kind{
	gcarena.KindStringSmall,
	gcarena.KindTable,
	gcarena.KindFinTab,
	gcarena.KindFunction,
	gcarena.KindUpvalue,
	gcarena.KindUserdata,
}

// kindLayout returns the per-slot size, per-arena capacity, and reserved
// header-slot count for kind, derived from arenaSize the way spec.md §3
// describes ("ELEMENTS_OCCUPIED(ArenaT, T)"): one slot's worth of the
// arena is reserved for the Header's own bookkeeping.
func kindLayout(kind gcarena.Kind, arenaSize int) (elemSize uintptr, capacity, headerSlots int) {
	switch kind {
	case gcarena.KindStringSmall:
		elemSize = 16
	case gcarena.KindTable, gcarena.KindFinTab:
		elemSize = 48
	case gcarena.KindFunction:
		elemSize = 32
	case gcarena.KindUpvalue:
		elemSize = 16
	case gcarena.KindUserdata:
		elemSize = 32
	default:
		elemSize = 32
	}
	capacity = arenaSize / int(elemSize)
	headerSlots = 1
	return elemSize, capacity, headerSlots
}

// NewState constructs a ready-to-use State: one primary arena per kind, an
// empty blob region and string table, and a mutator-thread object to serve
// as the root thread. opts are applied before any arena is created, so
// WithProvider and WithTuning take effect for every subsystem.
func NewState(opts ...Option) (*State, error) {
	s := &State{
		Tuning:      config.Default(),
		provider:    page.Default(),
		owner:       diag.NewOwner(),
		Engine:      mark.NewEngine(),
		arenas:      make(map[gcarena.Kind]*gcarena.List),
		objects:     make(map[*gcarena.Header]map[int]*gcobj.Object),
		stringAt:    make(map[*gcarena.Header]map[int]*gcobj.String),
		mediumAt:    make(map[*medstr.Arena]map[int]*gcobj.String),
		listObjects: make(map[*gcobj.Object]bool),
		fin:         finalize.New(),
		stepCost:    stats.NewMedian(256),
		pauseTime:   stats.NewMedian(256),
	}
	for _, o := range opts {
		o(s)
	}
	s.ID = uuid.New()
	s.fin.OnError = func(o *gcobj.Object, err error) {
		if s.onFinalizerError != nil {
			s.onFinalizerError(&FinalizerError{Err: err})
		}
	}
	s.sched = sched.New(sched.Hooks{
		SeedRoots:         s.seedRoots,
		PropagateStep:     s.propagateStep,
		JITTraceActive:    func() bool { return s.JITTraceActive },
		RunAtomic:         s.runAtomic,
		SweepStep:         s.sweepStep,
		FinalizeArenaStep: s.finalizeArenaStep,
		FinalizeStep:      s.finalizeStep,
	}, s.Tuning)

	for _, k := range arenaKinds {
		elemSize, capacity, headerSlots := kindLayout(k, s.Tuning.ArenaSize)
		l := gcarena.NewList(k, s.provider, elemSize, capacity, headerSlots)
		if _, err := l.EnsurePrimary(); err != nil {
			return nil, err
		}
		s.arenas[k] = l
	}
	s.medium = medstr.NewList(s.provider, s.Tuning.ArenaSize)
	if _, err := s.medium.EnsurePrimary(); err != nil {
		return nil, err
	}
	s.Blobs = blob.NewRegion(s.provider, s.Tuning.ArenaSize, s.Tuning.BlobReapThreshold)
	s.Strings = strtab.New(1024)

	th := s.newListObject(gcobj.KindThread)
	s.MainThread = th
	gcobj.NewThread(th)

	diag.Log(s.id(), "new", "state constructed, tuning=%+v", s.Tuning)
	return s, nil
}

func (s *State) id() *uuid.UUID { return &s.ID }

// checkOwner asserts (debug builds only) that the calling goroutine is the
// one the collector was first driven from (spec.md §5).
func (s *State) checkOwner() { s.owner.Check() }

// listFor returns the arena list backing kind, or nil for list-tracked
// kinds (thread/proto/trace/cdata).
func (s *State) listFor(kind gcarena.Kind) *gcarena.List { return s.arenas[kind] }

func (s *State) newObject(h *gcarena.Header, slot int) *gcobj.Object {
	o := &gcobj.Object{Arena: h, Slot: slot}
	m, ok := s.objects[h]
	if !ok {
		m = make(map[int]*gcobj.Object)
		s.objects[h] = m
	}
	m[slot] = o
	return o
}

func (s *State) newListObject(kind gcobj.Kind) *gcobj.Object {
	o := &gcobj.Object{Kind: kind}
	s.listObjects[o] = true
	return o
}

func (s *State) objAt(h *gcarena.Header, slot int) *gcobj.Object {
	return s.objects[h][slot]
}

func (s *State) dropArenaObjects(h *gcarena.Header) {
	delete(s.objects, h)
	delete(s.stringAt, h)
}

func (s *State) registerString(h *gcarena.Header, slot int, str *gcobj.String) {
	m, ok := s.stringAt[h]
	if !ok {
		m = make(map[int]*gcobj.String)
		s.stringAt[h] = m
	}
	m[slot] = str
}

func (s *State) stringSlotAt(h *gcarena.Header, slot int) (*gcobj.String, bool) {
	str, ok := s.stringAt[h][slot]
	return str, ok
}

func (s *State) registerMediumString(a *medstr.Arena, offset int, str *gcobj.String) {
	m, ok := s.mediumAt[a]
	if !ok {
		m = make(map[int]*gcobj.String)
		s.mediumAt[a] = m
	}
	m[offset] = str
}

func (s *State) mediumStringAt(a *medstr.Arena, offset int) (*gcobj.String, bool) {
	str, ok := s.mediumAt[a][offset]
	return str, ok
}

// acquireSlot allocates n adjacent slots of kind (n == 1 for the common
// case, 2 or 3 for coalesced payloads per spec.md §4.1), sweeping the
// acquired arena first if it is stale.
func (s *State) acquireSlot(kind gcarena.Kind, n int) (*gcarena.Header, int, error) {
	l := s.arenas[kind]
	h, err := l.AcquireForAlloc(s.sched.Phase != sched.Pause && s.sched.Phase != sched.Propagate, s.sweepOneHeader)
	if err != nil {
		return nil, 0, ErrOutOfMemory
	}
	idx, ok := h.AllocRun(n)
	if !ok {
		// The acquired arena had no run of n; fall back to a fresh one.
		h, err = l.AcquireForAlloc(false, s.sweepOneHeader)
		if err != nil {
			return nil, 0, ErrOutOfMemory
		}
		idx, ok = h.AllocRun(n)
		if !ok {
			return nil, 0, ErrOutOfMemory
		}
	}
	return h, idx, nil
}

// Stats exposes the scheduler's pacing telemetry (SPEC_FULL.md §10.6).
func (s *State) Stats() (stepCostMedian, pauseMedian float64) {
	return s.stepCost.Get(), s.pauseTime.Get()
}

// Phase names the scheduler's current state machine phase (spec.md §4.8),
// for diagnostics (SPEC_FULL.md §10.7's cmd/trigcstat panel).
func (s *State) Phase() string { return s.sched.Phase.String() }

// ArenaOccupancy reports, per arena kind, how many slots are occupied out
// of how many are addressable, summed across every sibling arena of that
// kind. Intended for diagnostics only (SPEC_FULL.md §10.7); it walks every
// arena's Free bitmap and is not cheap enough to call on a hot path. The
// medium-string pool reports in 16-byte units rather than fixed slots,
// keyed separately as "string-medium" since it is not one of arenaKinds.
func (s *State) ArenaOccupancy() map[string][2]int {
	out := make(map[string][2]int, len(arenaKinds)+1)
	for _, k := range arenaKinds {
		var capacity, free int
		s.arenas[k].Sweeps(func(h *gcarena.Header) {
			capacity += h.Capacity - h.HeaderSlots
			free += countFree(h)
		})
		out[k.String()] = [2]int{capacity, capacity - free}
	}
	var capacity, live int
	s.medium.Sweeps(func(a *medstr.Arena) {
		capacity += a.Capacity
		live += a.LiveUnits()
	})
	out["string-medium"] = [2]int{capacity, live}
	return out
}

// GrayQueueDepth reports whether the object-list gray queue and each
// arena-kind's gray-arena queue still have pending work, keyed by kind name
// ("objects" for the object-list queue).
func (s *State) GrayQueueDepth() map[string]bool {
	out := map[string]bool{"objects": s.Engine.HasGrayWork()}
	for _, k := range arenaKinds {
		out[k.String()] = s.arenas[k].HasGray()
	}
	return out
}
