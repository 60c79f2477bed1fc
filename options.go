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
	"github.com/vmthings/trigc/internal/config"
	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/page"
)

// Option configures a State at construction time.
type Option func(*State)

// WithProvider overrides the default page provider (internal/page.Default())
// with p, e.g. internal/page.Heap{} in tests that want a pure-Go backend.
func WithProvider(p page.Provider) Option {
	return func(s *State) { s.provider = p }
}

// WithTuning overrides the default pacing/sizing knobs (spec.md §4.8).
func WithTuning(t config.Tuning) Option {
	return func(s *State) { s.Tuning = t }
}

// WithFinalizerErrorHandler registers fn to observe every error captured
// from user finalizer code (the ERRFIN event sink of spec.md §7). fn may be
// nil to discard finalizer errors silently (the default).
func WithFinalizerErrorHandler(fn func(error)) Option {
	return func(s *State) { s.onFinalizerError = fn }
}

// WithUdataFinalizer registers the host's __gc call-out for userdata,
// invoked by FinalizeUdata.
func WithUdataFinalizer(fn func(*gcobj.Userdata) error) Option {
	return func(s *State) { s.OnFinalizeUdata = fn }
}

// WithCdataFinalizer registers the host's __gc call-out for cdata, invoked
// by FinalizeCdata.
func WithCdataFinalizer(fn func(*gcobj.Cdata) error) Option {
	return func(s *State) { s.OnFinalizeCdata = fn }
}

// WithTableFinalizer registers the host's __gc call-out for tables holding
// their own finalizer metamethod (spec.md §3's fintab kind).
func WithTableFinalizer(fn func(*gcobj.Table) error) Option {
	return func(s *State) { s.OnFinalizeTable = fn }
}
