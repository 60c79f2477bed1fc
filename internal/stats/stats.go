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

// Package stats provides the collector's telemetry counters: per-step cost
// and atomic-phase pause duration, surfaced on State.Stats() so a host
// process can watch the scheduler's pacing without instrumenting it itself.
//
// Grounded on the teacher's internal/stats package (Mean, Median), whose
// "benchmark sample" semantics are repurposed here for "GC step cost" and
// "GC pause duration" semantics.
package stats

import (
	"math"
	"sync/atomic"
)

// Mean tracks a running average. The zero value is ready to use; Record may
// be called concurrently with itself, but not with Get (matching the
// teacher's documented contract).
type Mean struct {
	total, samples atomicFloat64
}

// Record adds one sample.
func (m *Mean) Record(sample float64) {
	m.total.add(sample)
	m.samples.add(1)
}

// Get returns the current mean, or 0 if no samples were recorded.
func (m *Mean) Get() float64 {
	samples := m.samples.load()
	if samples == 0 {
		return 0
	}
	return m.total.load() / samples
}

type atomicFloat64 struct{ bits atomic.Uint64 }

func (a *atomicFloat64) load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) add(v float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}
