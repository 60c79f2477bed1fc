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

// Package diag provides the collector's debug-build-only logging and
// ownership assertions, grounded on the teacher's internal/debug package:
// runtime.Caller-stamped log lines, gated by a build tag so release builds
// pay nothing for them (spec.md §7: "Release builds trust these [debug
// assertions]").
package diag

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/timandy/routine"
)

// Enabled is true only in builds tagged trigc_debug.
const Enabled = enabled

// Log prints a debug line tagged with the calling package/file/line and the
// current goroutine id (via github.com/timandy/routine, exactly as the
// teacher's internal/debug.Log does), when Enabled. It is a no-op function
// call compiled away to nothing interesting in release builds.
func Log(id fmt.Stringer, op, format string, args ...any) {
	logImpl(id, op, format, args...)
}

func formatCaller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	name = name[strings.LastIndex(name, "/")+1:]
	file = file[strings.LastIndex(file, "/")+1:]
	return fmt.Sprintf("%s %s:%d [g%04d]", name, file, line, routine.Goid())
}

// Assert panics (in debug builds only) if cond is false. Release builds
// trust the invariant, per spec.md §7's assertion contract.
func Assert(cond bool, format string, args ...any) {
	assertImpl(cond, format, args...)
}

// owner records the goroutine id first observed driving a given collector
// instance, so that a debug build can catch a second goroutine calling into
// the collector (spec.md §5: "Single-threaded cooperative").
type Owner struct {
	goid atomic.Int64
}

const noOwner = -1

// NewOwner returns an unclaimed Owner tracker.
func NewOwner() *Owner {
	o := &Owner{}
	o.goid.Store(noOwner)
	return o
}

// Check claims the owner on first call, and asserts (debug builds only) that
// every subsequent call comes from the same goroutine.
func (o *Owner) Check() {
	if !Enabled {
		return
	}
	id := routine.Goid()
	if o.goid.CompareAndSwap(noOwner, id) {
		return
	}
	Assert(o.goid.Load() == id,
		"collector driven from goroutine %d, but was first claimed by goroutine %d",
		id, o.goid.Load())
}
