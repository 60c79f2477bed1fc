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

// Package config holds the collector's pacing and sizing knobs out of line
// from the hot path, loadable from YAML so a host process can retune the
// collector without a recompile.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Tuning collects every constant spec.md names as a literal (§2, §4.1,
// §4.5, §4.8) into one struct, with defaults matching the spec exactly.
type Tuning struct {
	// ArenaSize is the size, in bytes, of every fixed-size-object arena.
	// Must be a power of two (spec.md §3, "Arena header").
	ArenaSize int `yaml:"arena_size"`

	// GCStepSize is the byte budget of one incremental step (spec.md §4.8).
	GCStepSize int `yaml:"gc_step_size"`
	// GCSweepMax is the number of arenas swept per sweep step for primary
	// kinds (spec.md §4.5).
	GCSweepMax int `yaml:"gc_sweep_max"`
	// GCSweepCost is the accounted cost of one sweep step (spec.md §4.5).
	GCSweepCost int `yaml:"gc_sweep_cost"`
	// GCFinalizeCost is the accounted cost of running one legacy finalizer
	// (spec.md §4.8).
	GCFinalizeCost int `yaml:"gc_finalize_cost"`

	// BlobReapThreshold is the usage count below which a blob page is
	// tagged for one-shot compaction on the next mark (spec.md §3).
	BlobReapThreshold int `yaml:"blob_reap_threshold"`

	// Pause scales the post-cycle threshold relative to the live-data
	// estimate, as a percentage (spec.md §4.8: `threshold = (estimate/100)
	// * pause`).
	Pause int `yaml:"pause"`
	// StepMul scales the per-step work budget, as a percentage (spec.md
	// §4.8: `lim = (GCSTEPSIZE/100) * stepmul`).
	StepMul int `yaml:"step_mul"`

	// MinorMode, when set, skips clearing mark bits across a cycle
	// (spec.md §3, "minor mode"; Non-goals note no separate young
	// generation is added, only this toggle is preserved).
	MinorMode bool `yaml:"minor_mode"`
}

// Default returns the spec-mandated default tuning.
func Default() Tuning {
	return Tuning{
		ArenaSize:         64 << 10, // 64 KiB, arena-aligned.
		GCStepSize:        1024,
		GCSweepMax:        40,
		GCSweepCost:       10,
		GCFinalizeCost:    100,
		BlobReapThreshold: 1 << 10,
		Pause:             200,
		StepMul:           200,
		MinorMode:         false,
	}
}

// Load reads a YAML document and overlays it onto the defaults: fields
// absent from the document keep their default value.
func Load(r io.Reader) (Tuning, error) {
	t := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return Tuning{}, fmt.Errorf("trigc: decode tuning config: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks the invariants the allocator and scheduler rely on.
func (t Tuning) Validate() error {
	if t.ArenaSize <= 0 || t.ArenaSize&(t.ArenaSize-1) != 0 {
		return fmt.Errorf("trigc: arena_size must be a power of two, got %d", t.ArenaSize)
	}
	if t.GCStepSize <= 0 {
		return fmt.Errorf("trigc: gc_step_size must be positive")
	}
	if t.Pause <= 0 || t.StepMul <= 0 {
		return fmt.Errorf("trigc: pause and step_mul must be positive")
	}
	return nil
}
