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

// Proto is a compiled function prototype: a chunk name string, its
// collectible constants, and (if the JIT has compiled it) a linked Trace.
// Object-list kind (spec.md §4.2).
type Proto struct {
	*Object
	ChunkName *String
	Consts    []*Object // collectible constants ("kgc"), spec.md §4.2
	Trace     *Trace
}

// NewProto allocates a Proto object header.
func NewProto(o *Object) *Proto {
	o.Kind = KindProto
	p := &Proto{Object: o}
	o.Traversable = p
	return p
}

// Traverse implements gc_traverse_proto (spec.md §4.2).
func (p *Proto) Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode {
	if p.ChunkName != nil {
		visit(p.ChunkName.Object)
	}
	for _, k := range p.Consts {
		if k != nil {
			visit(k)
		}
	}
	if p.Trace != nil {
		visit(p.Trace.Object)
	}
	return WeakNone
}

// Trace is a JIT-compiled trace: a linear sequence of recorded instructions
// referencing collectible constants, plus its link graph to other traces.
// Object-list kind (spec.md §4.2).
type Trace struct {
	*Object
	TraceNo             uint32
	Consts              []*Object
	Link, NextRoot, NextSide *Trace
	StartPt             *Proto
}

// NewTrace allocates a Trace object header.
func NewTrace(o *Object) *Trace {
	o.Kind = KindTrace
	tr := &Trace{Object: o}
	o.Traversable = tr
	return tr
}

// Traverse implements gc_traverse_trace (spec.md §4.2).
func (tr *Trace) Traverse(ctx *TraverseContext, visit func(*Object)) WeakMode {
	if tr.TraceNo == 0 {
		return WeakNone
	}
	for _, k := range tr.Consts {
		if k != nil {
			visit(k)
		}
	}
	for _, link := range []*Trace{tr.Link, tr.NextRoot, tr.NextSide} {
		if link != nil {
			visit(link.Object)
		}
	}
	if tr.StartPt != nil {
		visit(tr.StartPt.Object)
	}
	return WeakNone
}
