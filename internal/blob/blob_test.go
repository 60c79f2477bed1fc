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

package blob_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/blob"
	"github.com/vmthings/trigc/internal/page"
)

func TestAllocWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	r := blob.NewRegion(page.Heap{}, 4096, 64)
	addr, err := r.Alloc(32)
	require.NoError(t, err)

	copy(r.Bytes(addr, 32), []byte("hello blob region payload here!!"))
	assert.Equal(t, "hello blob region payload here!!", string(r.Bytes(addr, 32)))
}

func TestSweepReleasesZeroUsagePages(t *testing.T) {
	t.Parallel()

	r := blob.NewRegion(page.Heap{}, 64, 16)
	addr, err := r.Alloc(32)
	require.NoError(t, err)
	assert.Equal(t, 1, r.PageCount())

	r.ResetUsage() // nobody re-accounts usage this cycle: addr's owner died
	r.Sweep()
	assert.Equal(t, 0, r.PageCount())
	_ = addr
}

func TestSweepFlagsLowUsagePagesForReap(t *testing.T) {
	t.Parallel()

	r := blob.NewRegion(page.Heap{}, 64, 48)
	addr, err := r.Alloc(32)
	require.NoError(t, err)

	r.AccountUsage(addr, 32) // below the 48-byte reap threshold
	r.Sweep()
	assert.True(t, r.Reaped(addr))
	assert.Equal(t, 1, r.PageCount())
}

func TestMoveIfReapCopiesPayloadWhilePageIsFlagged(t *testing.T) {
	t.Parallel()

	r := blob.NewRegion(page.Heap{}, 64, 48)
	addr, err := r.Alloc(16)
	require.NoError(t, err)
	copy(r.Bytes(addr, 16), []byte("0123456789abcdef"))
	r.AccountUsage(addr, 16)
	r.Sweep()
	require.True(t, r.Reaped(addr))

	newAddr, moved, err := r.MoveIfReap(addr, 16)
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, "0123456789abcdef", string(r.Bytes(newAddr, 16)))
	assert.Equal(t, 16, r.Usage(newAddr))

	_, movedAgain, err := r.MoveIfReap(addr, 16)
	require.NoError(t, err)
	assert.True(t, movedAgain, "old page is still flagged REAP until its own usage drops to zero and it sweeps away")
}
