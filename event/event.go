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

// State is the lifecycle state of a scheduled Event. Expired and Cancelled are terminal.
type State uint8

const (
	Pending   State = 0
	Running   State = 1
	Expired   State = 2
	Cancelled State = 3
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Expired:
		return "expired"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Event is a callback scheduled to run at a point in virtual time. Events are owned by the
// queue they are inserted into; outside code refers to them through an Id.
type Event struct {
	Time    types.Time
	Uid     uint64
	Context types.ContextId
	State   State

	inv Invoker
}

// New creates a Pending event that will invoke inv.
func New(ts types.Time, uid uint64, ctx types.ContextId, inv Invoker) *Event {
	return &Event{
		Time:    ts,
		Uid:     uid,
		Context: ctx,
		State:   Pending,
		inv:     inv,
	}
}

// Id returns the handle of the event.
func (e *Event) Id() Id {
	return Id{uid: e.Uid, ts: e.Time, context: e.Context}
}

// Before reports whether e fires before other: earlier time first, and equal times in insertion order.
func (e *Event) Before(other *Event) bool {
	if e.Time != other.Time {
		return e.Time < other.Time
	}
	return e.Uid < other.Uid
}

// Invoke runs the callback, moving the event through Running to Expired.
// Calling Invoke on an event that is not Pending does nothing.
func (e *Event) Invoke() {
	if e.State != Pending {
		return
	}
	e.State = Running
	inv := e.inv
	e.inv = nil
	if inv != nil {
		inv.Invoke()
	}
	e.State = Expired
}

// Cancel marks a Pending event as Cancelled and releases its callback.
func (e *Event) Cancel() bool {
	if e.State != Pending {
		return false
	}
	e.State = Cancelled
	e.inv = nil
	return true
}

func (e *Event) String() string {
	return fmt.Sprintf("Event{uid=%d,t=%v,ctx=%d,%v}", e.Uid, e.Time, e.Context, e.State)
}
