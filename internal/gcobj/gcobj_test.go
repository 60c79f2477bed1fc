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

package gcobj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vmthings/trigc/internal/gcobj"
)

func TestColorsWhiteBlackFlip(t *testing.T) {
	t.Parallel()

	c := gcobj.NewColors()
	assert.True(t, c.IsWhite(0))
	assert.False(t, c.IsBlack(0))

	black := c.Black()
	assert.False(t, c.IsWhite(black))
	assert.True(t, c.IsBlack(black))

	white := c.White()
	c.Flip()
	assert.Equal(t, white, c.Black())
}

func TestTableTraverseMarksArrayAndHashUnlessWeak(t *testing.T) {
	t.Parallel()

	var visited []*gcobj.Object
	visit := func(o *gcobj.Object) { visited = append(visited, o) }

	key := gcobj.NewTable(&gcobj.Object{})
	val := gcobj.NewTable(&gcobj.Object{})

	tab := gcobj.NewTable(&gcobj.Object{})
	tab.Array = []gcobj.Value{gcobj.FromObject(val.Object)}
	tab.Hash = []gcobj.Node{{Key: gcobj.FromObject(key.Object), Val: gcobj.FromObject(val.Object), Next: -1}}

	weak := tab.Traverse(nil, visit)
	assert.Equal(t, gcobj.WeakNone, weak)
	assert.Len(t, visited, 3) // array val, hash key, hash val
}

func TestTableWeakValueSkipsValueMark(t *testing.T) {
	t.Parallel()

	var visited []*gcobj.Object
	visit := func(o *gcobj.Object) { visited = append(visited, o) }

	val := gcobj.NewTable(&gcobj.Object{})
	tab := gcobj.NewTable(&gcobj.Object{})
	tab.ModeStr = "v"
	tab.Array = []gcobj.Value{gcobj.FromObject(val.Object)}

	weak := tab.Traverse(nil, visit)
	assert.Equal(t, gcobj.WeakVal, weak)
	assert.Empty(t, visited)
}

func TestThreadTraverseNilsUnusedSlotsDuringAtomic(t *testing.T) {
	t.Parallel()

	th := gcobj.NewThread(&gcobj.Object{})
	live := gcobj.NewTable(&gcobj.Object{})
	th.Stack = []gcobj.Value{gcobj.FromObject(live.Object), gcobj.FromNumber(1), gcobj.FromNumber(2)}
	th.Top = 1

	var visited []*gcobj.Object
	th.Traverse(&gcobj.TraverseContext{Atomic: true}, func(o *gcobj.Object) { visited = append(visited, o) })

	assert.Len(t, visited, 1)
	assert.True(t, th.Stack[1].IsNil())
	assert.True(t, th.Stack[2].IsNil())
}
