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

// Userdata wraps a host-owned opaque payload plus an optional raw-allocated
// buffer. Buffer-typed userdata additionally tracks a copy-on-write source
// object and two dictionary tables, per spec.md §4.2: "Userdata traversal
// marks metatable and environment; buffer-typed userdata additionally marks
// a copy-on-write source reference and two dictionary tables."
type Userdata struct {
	*Object
	Metatable *Table
	Env       *Table

	IsBuffer bool
	Source   *Object // copy-on-write source, buffer userdata only
	Dict1    *Table
	Dict2    *Table

	Buffer     []byte // raw-allocated extra storage, freed via the allocator callback on sweep
	HasFinal   bool   // requested a finalizer (mirrors the arena's FinReq bit)
}

// NewUserdata allocates a Userdata object header.
func NewUserdata(o *Object) *Userdata {
	o.Kind = KindUserdata
	u := &Userdata{Object: o}
	o.Traversable = u
	return u
}

// Traverse implements the userdata half of spec.md §4.2.
func (u *Userdata) Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode {
	if u.Metatable != nil {
		visit(u.Metatable.Object)
	}
	if u.Env != nil {
		visit(u.Env.Object)
	}
	if u.IsBuffer {
		if u.Source != nil {
			visit(u.Source)
		}
		if u.Dict1 != nil {
			visit(u.Dict1.Object)
		}
		if u.Dict2 != nil {
			visit(u.Dict2.Object)
		}
	}
	return WeakNone
}
