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

// Package trigc is an incremental, tri-color mark-sweep collector core for
// a dynamic-language runtime (spec.md §1). It owns the arena allocator
// (internal/gcarena), the blob region (internal/blob), the string tables
// (internal/strtab), the mark engine (internal/mark), the sweep engine
// (internal/sweep), the finalizer pipeline (internal/finalize), and the
// scheduler (internal/sched) behind one State value, and exposes the
// external interface spec.md §6 names: step, step_fixtop, step_jit, fullgc,
// barrierf, barrieruv, barriertrace, finalize_udata, finalize_cdata,
// freeall, and the allocation entry points.
//
// A host embeds trigc by constructing a State with NewState, allocating
// objects through its Alloc* methods, invoking the appropriate barrier
// method around every store that might create a black-to-white reference,
// and calling Step (or FullGC) often enough that allocation debt never
// outpaces collection.
package trigc
