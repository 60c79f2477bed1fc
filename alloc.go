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
	"github.com/vmthings/trigc/internal/blob"
	"github.com/vmthings/trigc/internal/gcarena"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/medstr"
	"github.com/vmthings/trigc/internal/sched"
	"github.com/vmthings/trigc/internal/sweep"
)

// newSlotObject acquires a slot of kind, registers its Object, and sets the
// black/white state a fresh allocation needs per spec.md §4.1: white during
// Pause/Propagate (so it still gets marked if reachable), black once the
// sweep phase is looking for dead objects (so it is never swept out from
// under the mutator before propagation can reach it again next cycle).
func (s *State) newSlotObject(kind gcarena.Kind, n int) (*gcobj.Object, error) {
	h, slot, err := s.acquireSlot(kind, n)
	if err != nil {
		return nil, err
	}
	o := s.newObject(h, slot)
	if s.sched.Phase == sched.Pause || s.sched.Phase == sched.Propagate {
		// AllocSlot/AllocRun mark the run; clear it so the object starts white.
		for i := 0; i < n; i++ {
			h.Mark.Clear(slot + i)
		}
	}
	s.sched.AddDebt(int(h.ElemSize) * n)
	return o, nil
}

// AllocStr interns data, allocating a fresh small/medium/huge string object
// only on a cache miss (spec.md §6 "alloc_str(L, data, len)").
func (s *State) AllocStr(data []byte) (*gcobj.String, error) {
	s.checkOwner()
	var newErr error
	str := s.Strings.Intern(data, func(d []byte, hash uint64) *gcobj.String {
		str, err := s.allocStringObject(d, hash)
		if err != nil {
			newErr = err
			return nil
		}
		return str
	})
	if newErr != nil {
		return nil, newErr
	}
	return str, nil
}

const smallStringMax = 16
const mediumStringMax = 64

func (s *State) allocStringObject(data []byte, hash uint64) (*gcobj.String, error) {
	switch {
	case len(data) <= smallStringMax:
		o, err := s.newSlotObject(gcarena.KindStringSmall, 1)
		if err != nil {
			return nil, err
		}
		str := gcobj.NewString(o, data, hash)
		s.registerString(o.Arena, o.Slot, str)
		return str, nil
	case len(data) <= mediumStringMax:
		return s.allocMediumStringObject(data, hash)
	default:
		o := &gcobj.Object{Kind: gcobj.KindString}
		str := gcobj.NewString(o, data, hash)
		s.huge = append(s.huge, &hugeStringEntry{node: &sweep.HugeNode{}, str: str})
		return str, nil
	}
}

// allocMediumStringObject allocates a string in the variable-size freelist
// arena (internal/medstr), the band small strings' fixed one-slot arena
// cannot hold (spec.md §3, §4.1). Like newSlotObject, a fresh run starts
// white during Pause/Propagate and black from Atomic onward, so the sweep
// that may run later this same cycle never reaps an object the mutator just
// allocated.
func (s *State) allocMediumStringObject(data []byte, hash uint64) (*gcobj.String, error) {
	a, off, err := s.medium.AllocBytes(len(data))
	if err != nil {
		return nil, ErrOutOfMemory
	}
	o := &gcobj.Object{Kind: gcobj.KindString, MedArena: a, MedOffset: off}
	if s.sched.Phase != sched.Pause && s.sched.Phase != sched.Propagate {
		a.SetMark(off)
	}
	s.sched.AddDebt(medstr.UnitsFor(len(data)) * medstr.UnitSize)
	str := gcobj.NewString(o, data, hash)
	s.registerMediumString(a, off, str)
	return str, nil
}

// AllocTab allocates a table backed by the table arena (spec.md §6
// "alloc_tab(L, narray, nhash)").
func (s *State) AllocTab(narray, nhash int) (*gcobj.Table, error) {
	s.checkOwner()
	o, err := s.newSlotObject(gcarena.KindTable, 1)
	if err != nil {
		return nil, err
	}
	t := gcobj.NewTable(o)
	if narray > 0 {
		addr, err := s.Blobs.Alloc(narray * 16)
		if err != nil {
			return nil, err
		}
		t.Array = make([]gcobj.Value, narray)
		t.ArrayBase = uintptr(addr)
	}
	if nhash > 0 {
		addr, err := s.Blobs.Alloc(nhash * 32)
		if err != nil {
			return nil, err
		}
		t.Hash = make([]gcobj.Node, nhash)
		for i := range t.Hash {
			t.Hash[i].Next = -1
		}
		t.HashBase = uintptr(addr)
	}
	return t, nil
}

// AllocTabEmptyGC allocates a table with no array or hash part, the fast
// path spec.md §6 calls out separately ("alloc_tab_empty").
func (s *State) AllocTabEmptyGC() (*gcobj.Table, error) {
	return s.AllocTab(0, 0)
}

// AllocFunc allocates a function object; the caller fills in IsLua/Proto/
// Upvalues or NativeUpvalues after this returns.
func (s *State) AllocFunc(nupvalues int) (*gcobj.Function, error) {
	s.checkOwner()
	o, err := s.newSlotObject(gcarena.KindFunction, 1)
	if err != nil {
		return nil, err
	}
	f := gcobj.NewFunction(o)
	f.Upvalues = make([]*gcobj.Upvalue, 0, nupvalues)
	return f, nil
}

// AllocUV allocates a closed upvalue cell.
func (s *State) AllocUV(v gcobj.Value) (*gcobj.Upvalue, error) {
	s.checkOwner()
	o, err := s.newSlotObject(gcarena.KindUpvalue, 1)
	if err != nil {
		return nil, err
	}
	uv := gcobj.NewUpvalue(o)
	uv.V = v
	uv.Closed = true
	return uv, nil
}

// AllocUdata allocates a userdata object, optionally with an extra
// raw-allocated buffer (spec.md §6 "alloc_udata"). If wantsFinalizer is set,
// the slot's arena moves to the userdata-with-finalizer bookkeeping (the
// FinReq bit), matching spec.md §4.6's resurrection gate.
func (s *State) AllocUdata(bufSize int, wantsFinalizer bool) (*gcobj.Userdata, error) {
	s.checkOwner()
	o, err := s.newSlotObject(gcarena.KindUserdata, 1)
	if err != nil {
		return nil, err
	}
	u := gcobj.NewUserdata(o)
	if bufSize > 0 {
		u.Buffer = make([]byte, bufSize)
		u.IsBuffer = true
	}
	if wantsFinalizer {
		o.Arena.FinReq.Set(o.Slot)
		u.HasFinal = true
	}
	return u, nil
}

// NewBlob allocates size bytes from the blob region, spec.md §6's
// "new_blob".
func (s *State) NewBlob(size int) (blob.Addr, error) {
	s.checkOwner()
	return s.Blobs.Alloc(size)
}

// ReallocBlob grows or shrinks a previously-allocated blob payload by
// allocating a fresh one and copying, since internal/blob's pages are
// append-only within a cycle (spec.md §6's "realloc_blob").
func (s *State) ReallocBlob(old blob.Addr, oldSize, newSize int) (blob.Addr, error) {
	s.checkOwner()
	addr, err := s.Blobs.Alloc(newSize)
	if err != nil {
		return blob.NoAddr, err
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	copy(s.Blobs.Bytes(addr, newSize)[:n], s.Blobs.Bytes(old, oldSize)[:n])
	return addr, nil
}

// RegisterGCUdata registers o on the legacy mmudata finalize chain (spec.md
// §6's "register_gc_udata"), used by hosts that finalize through the
// GCSfinalize state instead of the resurrection pipeline.
func (s *State) RegisterGCUdata(o *gcobj.Object) {
	s.checkOwner()
	s.fin.Register(o)
}
