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
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned when the page provider or allocator callback
// returned an error for a nonzero-size request (spec.md §7: "out-of-memory
// ... surfaced by invoking the host error path"). All structures mutated
// before the failing call remain consistent, since the failing call is
// always the last step of an allocation.
var ErrOutOfMemory = errors.New("trigc: out of memory")

// ErrInvariant reports a debug-only assertion failure (spec.md §7: arena
// header consistency, bitmap non-overlap, gray-list membership, color
// transitions). Release builds never construct this error.
var ErrInvariant = errors.New("trigc: invariant violated")

// FinalizerError wraps a panic or error raised from user `__gc`/finalizer
// code (spec.md §7: "caught by protected call, dispatched through the
// ERRFIN event sink, then swallowed"). The finalizer is never re-invoked for
// the same object regardless of this error.
type FinalizerError struct {
	Err error
}

func (e *FinalizerError) Error() string { return fmt.Sprintf("trigc: finalizer: %s", e.Err) }
func (e *FinalizerError) Unwrap() error { return e.Err }

// ErrFinalizer, used with errors.Is, matches any *FinalizerError.
var ErrFinalizer = &FinalizerError{Err: errors.New("finalizer failed")}

func (e *FinalizerError) Is(target error) bool { return target == ErrFinalizer }
