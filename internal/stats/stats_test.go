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

package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vmthings/trigc/internal/stats"
)

func TestMean(t *testing.T) {
	t.Parallel()

	m := new(stats.Mean)
	assert.InDelta(t, 0.0, m.Get(), 1e-9)

	m.Record(5)
	assert.InDelta(t, 5.0, m.Get(), 1e-9)

	m.Record(6)
	assert.InDelta(t, 5.5, m.Get(), 1e-9)

	m.Record(-10)
	assert.InDelta(t, float64(1)/3, m.Get(), 1e-9)
}

func TestMedian(t *testing.T) {
	t.Parallel()

	m := stats.NewMedian(4)
	assert.InDelta(t, 0.0, m.Get(), 1e-9)

	m.Record(10)
	m.Record(20)
	m.Record(30)
	assert.InDelta(t, 20.0, m.Get(), 1e-9)

	// Ring buffer wraps: the oldest sample (10) drops off.
	m.Record(40)
	m.Record(50)
	assert.InDelta(t, 35.0, m.Get(), 1e-9)
}
