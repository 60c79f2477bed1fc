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

package stats

import (
	"slices"
	"sync/atomic"
)

// Median tracks the median of the last N recorded samples in a ring buffer,
// used by the root package's State to track the wall-clock durations of Step
// and FullGC calls (spec.md §4.8) without the tail-latency
// distortion a running Mean would show for a state machine whose phases have
// wildly different costs.
//
// Must be constructed with NewMedian. Record may be called concurrently with
// itself, but not with Get.
type Median struct {
	samples []float64
	w       atomic.Int64 // Offset at which to write the next sample.
	n       atomic.Int64 // Total number of samples ever recorded.
}

// NewMedian returns a Median remembering the last n samples. n should be at
// least 100 for the estimate to be meaningful.
func NewMedian(n int) *Median {
	return &Median{samples: make([]float64, n)}
}

// Record adds one sample, overwriting the oldest once the ring fills.
func (m *Median) Record(sample float64) {
again:
	w := m.w.Load()
	next := w + 1
	if int(next) == len(m.samples) {
		next = 0
	}
	if !m.w.CompareAndSwap(w, next) {
		goto again
	}
	m.n.Add(1)
	m.samples[w] = sample
}

// Get returns the median of the samples recorded so far.
func (m *Median) Get() float64 {
	n := int(m.n.Load())
	if n > len(m.samples) {
		n = len(m.samples)
	}
	samples := slices.Clone(m.samples[:n])
	slices.Sort(samples)

	switch {
	case len(samples) == 0:
		return 0
	case len(samples)%2 == 0:
		a := samples[len(samples)/2-1]
		b := samples[len(samples)/2]
		return (a + b) / 2
	default:
		return samples[len(samples)/2]
	}
}
