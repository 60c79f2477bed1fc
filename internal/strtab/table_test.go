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

package strtab_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmthings/trigc/internal/gcobj"
	"github.com/vmthings/trigc/internal/strtab"
)

func newStringFactory() func([]byte, uint64) *gcobj.String {
	return func(data []byte, hash uint64) *gcobj.String {
		cp := append([]byte(nil), data...)
		return gcobj.NewString(&gcobj.Object{}, cp, hash)
	}
}

func TestInternReturnsSameObjectForIdenticalBytes(t *testing.T) {
	t.Parallel()

	tab := strtab.New(16)
	newString := newStringFactory()

	a := tab.Intern([]byte("hello"), newString)
	b := tab.Intern([]byte("hello"), newString)
	assert.Same(t, a, b)

	c := tab.Intern([]byte("world"), newString)
	assert.NotSame(t, a, c)
}

func TestHidRoundTrips(t *testing.T) {
	t.Parallel()

	tab := strtab.New(8) // small primary forces overflow into secondary store
	newString := newStringFactory()

	var created []*gcobj.String
	for i := 0; i < 2000; i++ {
		created = append(created, tab.Intern([]byte(fmt.Sprintf("str-%d", i)), newString))
	}

	for _, s := range created {
		got, ok := tab.Resolve(s.Hid)
		require.True(t, ok, "hid %#x did not resolve", s.Hid)
		assert.Same(t, s, got)
	}
}

func TestRemoveClearsEntry(t *testing.T) {
	t.Parallel()

	tab := strtab.New(16)
	newString := newStringFactory()

	s := tab.Intern([]byte("doomed"), newString)
	before := tab.Count()
	tab.Remove(s.Hid)
	assert.Equal(t, before-1, tab.Count())

	_, ok := tab.Resolve(s.Hid)
	assert.False(t, ok)
}
