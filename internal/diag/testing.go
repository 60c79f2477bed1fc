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

package diag

import (
	"testing"

	"github.com/timandy/routine"
)

// testingTLS stores the *testing.T of the subtest currently executing on
// each goroutine, mirroring the teacher's internal/debug thread-local
// capture of the active *testing.T so that Log's output is routed through
// t.Log instead of stderr during tests — this is what makes `go test -v`
// show collector diagnostics inline with the failing subtest instead of
// interleaved on stderr.
var testingTLS = routine.NewThreadLocal[testing.TB]()

// WithTesting registers t as the active test for the calling goroutine for
// the duration of the returned func's caller scope; call it as
// `defer diag.WithTesting(t)()` at the top of a subtest.
func WithTesting(t testing.TB) func() {
	prev := testingTLS.Get()
	testingTLS.Set(t)
	return func() { testingTLS.Set(prev) }
}

// activeTest returns the *testing.T registered for the calling goroutine, if
// any.
func activeTest() (testing.TB, bool) {
	t := testingTLS.Get()
	return t, t != nil
}
