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

// Cdata is an FFI value bridged through a dedicated finalizer table keyed by
// the cdata object itself (spec.md §4.6: "cdata finalizers are dispatched
// via a dedicated finalizer table with the cdata-as-key"). It is opaque to
// the collector beyond that bridge — spec.md §1 places the FFI subsystem
// itself out of scope — so Cdata carries no Traversable payload.
type Cdata struct {
	*Object
	HasFinalizer bool
}

// NewCdata allocates a Cdata object header.
func NewCdata(o *Object) *Cdata {
	o.Kind = KindCdata
	return &Cdata{Object: o}
}
