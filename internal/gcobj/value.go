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

// ValueType tags a Value's representation, the simplified stand-in for the
// host language's TValue mentioned throughout spec.md (table slots, stack
// slots, upvalues). trigc does not implement the interpreter's own value
// repertoire (spec.md §1 lists it as an out-of-scope collaborator); this is
// only as much of a tagged union as the mark/sweep engines need to decide
// "is this slot collectible, and if so, what does it point to".
type ValueType uint8

const (
	ValueNil ValueType = iota
	ValueBool
	ValueNumber
	ValueObject // collectible: Obj is non-nil
)

// Value is a tagged value slot: a table array/hash slot, a thread stack
// slot, or an upvalue payload. Only ValueObject carries a collectible
// reference.
type Value struct {
	Type ValueType
	Num  float64
	Bool bool
	Obj  *Object
}

// Nil is the zero Value.
var Nil = Value{}

// FromObject wraps o as a collectible Value. A nil o is equivalent to Nil.
func FromObject(o *Object) Value {
	if o == nil {
		return Nil
	}
	return Value{Type: ValueObject, Obj: o}
}

// FromNumber wraps a float64 as a Value.
func FromNumber(n float64) Value { return Value{Type: ValueNumber, Num: n} }

// FromBool wraps a bool as a Value.
func FromBool(b bool) Value { return Value{Type: ValueBool, Bool: b} }

// IsCollectible reports whether v carries a GC reference.
func (v Value) IsCollectible() bool { return v.Type == ValueObject && v.Obj != nil }

// IsNil reports whether v is the nil value (spec.md's thread-traversal atomic
// slot clear writes this).
func (v Value) IsNil() bool { return v.Type == ValueNil }
