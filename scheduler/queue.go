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

package scheduler

import (
	"github.com/pkg/errors"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/types"
)

// Queue is an ordered set of events keyed by (time, uid). Implementations are not goroutine-safe.
type Queue interface {
	// Insert adds ev. An event must not be inserted twice.
	Insert(ev *event.Event)
	// PeekNext returns the earliest event without removing it, or nil when empty.
	PeekNext() *event.Event
	// RemoveNext removes and returns the earliest event, or nil when empty.
	RemoveNext() *event.Event
	// Remove removes ev, reporting whether it was in the queue.
	Remove(ev *event.Event) bool
	Len() int
}

// NewQueue creates an empty queue of the given kind. An empty kind selects the default.
func NewQueue(kind types.QueueKind) (Queue, error) {
	switch kind {
	case types.QueueKindHeap, "":
		return newHeapQueue(), nil
	case types.QueueKindList:
		return newListQueue(), nil
	case types.QueueKindMap:
		return newMapQueue(), nil
	default:
		return nil, errors.Errorf("unknown event queue kind: %s", kind)
	}
}
