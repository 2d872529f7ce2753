// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package event

import (
	"fmt"

	"github.com/openthread/nsim/types"
)

// Id is a copyable handle to a scheduled event. It does not own the event; the scheduler resolves
// it through its table of pending events. The zero Id refers to no event.
type Id struct {
	uid     uint64
	ts      types.Time
	context types.ContextId
}

func NewId(uid uint64, ts types.Time, ctx types.ContextId) Id {
	return Id{uid: uid, ts: ts, context: ctx}
}

func (id Id) Uid() uint64 {
	return id.uid
}

func (id Id) Time() types.Time {
	return id.ts
}

func (id Id) Context() types.ContextId {
	return id.context
}

func (id Id) IsValid() bool {
	return id.uid != 0
}

func (id Id) String() string {
	if !id.IsValid() {
		return "Id{invalid}"
	}
	return fmt.Sprintf("Id{%d@%v}", id.uid, id.ts)
}
