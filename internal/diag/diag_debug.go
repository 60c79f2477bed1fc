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

//go:build trigc_debug

package diag

import (
	"fmt"
	"os"
)

const enabled = true

func logImpl(id fmt.Stringer, op, format string, args ...any) {
	prefix := formatCaller(3)
	line := fmt.Sprintf(format, args...)
	tag := "-"
	if id != nil {
		tag = id.String()
	}
	msg := fmt.Sprintf("%s %s %s: %s", prefix, tag, op, line)
	if t, ok := activeTest(); ok {
		t.Log(msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

func assertImpl(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("trigc: internal assertion failed: "+format, args...))
	}
}
