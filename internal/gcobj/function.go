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

// Upvalue is a captured variable cell. Closed upvalues hold their own copy
// of V; open ones logically alias a thread stack slot, tracked by the host
// (out of scope per spec.md §1) — trigc only needs V and the object header
// for mark/sweep purposes.
type Upvalue struct {
	*Object
	V      Value
	Closed bool
}

// NewUpvalue allocates an Upvalue object header.
func NewUpvalue(o *Object) *Upvalue {
	o.Kind = KindUpvalue
	return &Upvalue{Object: o}
}

// Function is either a Lua (scripted) closure or a native one, per spec.md
// §4.2's gc_traverse_func: Lua functions mark their prototype and each
// upvalue object; native ones mark every upvalue TValue directly.
type Function struct {
	*Object
	Env *Table

	IsLua bool

	// Lua closures:
	Proto     *Proto
	Upvalues  []*Upvalue

	// Native closures:
	NativeUpvalues []Value
}

// NewFunction allocates a Function object header.
func NewFunction(o *Object) *Function {
	o.Kind = KindFunction
	f := &Function{Object: o}
	o.Traversable = f
	return f
}

// Traverse implements gc_traverse_func (spec.md §4.2).
func (f *Function) Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode {
	if f.Env != nil {
		visit(f.Env.Object)
	}
	if f.IsLua {
		if f.Proto != nil {
			visit(f.Proto.Object)
		}
		for _, uv := range f.Upvalues {
			if uv != nil {
				visit(uv.Object)
			}
		}
	} else {
		for _, v := range f.NativeUpvalues {
			if v.IsCollectible() {
				visit(v.Obj)
			}
		}
	}
	return WeakNone
}
