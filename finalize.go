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
	"fmt"

	"github.com/vmthings/trigc/internal/gcobj"
)

// runFinalizer dispatches a resurrected object to its kind-specific
// finalizer entry point (spec.md §4.6, §6's "finalize_udata"/
// "finalize_cdata"), recovering from a user finalizer panic so one broken
// `__gc` cannot abort the collector's finalize state.
func (s *State) runFinalizer(o *gcobj.Object) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigc: finalizer panicked: %v", r)
		}
	}()
	switch o.Kind {
	case gcobj.KindUserdata:
		return s.FinalizeUdata(o.Traversable.(*gcobj.Userdata))
	case gcobj.KindCdata:
		return s.FinalizeCdata(o.Traversable.(*gcobj.Cdata))
	case gcobj.KindTable:
		// KindFinTab arenas hold tables carrying their own __gc metamethod
		// (spec.md §3's "tables with a registered __gc finalizer"); trigc
		// has no user-code call mechanism of its own, so this is a second
		// host-overridable seam alongside FinalizeUdata/FinalizeCdata.
		if s.OnFinalizeTable != nil {
			return s.OnFinalizeTable(o.Traversable.(*gcobj.Table))
		}
		return nil
	default:
		return nil
	}
}

// FinalizeUdata runs u's registered finalizer (spec.md §6's
// "finalize_udata"). trigc itself has no user-code call mechanism (spec.md
// §1 places the host language's calling convention out of scope), so this
// is the seam a host overrides — by default it only clears HasFinal so the
// object is never considered pending again.
func (s *State) FinalizeUdata(u *gcobj.Userdata) error {
	if u == nil {
		return nil
	}
	if s.OnFinalizeUdata != nil {
		return s.OnFinalizeUdata(u)
	}
	u.HasFinal = false
	return nil
}

// FinalizeCdata runs cd's registered finalizer (spec.md §6's
// "finalize_cdata"), the FFI-value counterpart of FinalizeUdata.
func (s *State) FinalizeCdata(cd *gcobj.Cdata) error {
	if cd == nil {
		return nil
	}
	if s.OnFinalizeCdata != nil {
		return s.OnFinalizeCdata(cd)
	}
	cd.HasFinalizer = false
	return nil
}
