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

package types

import "math"

// ContextId identifies the simulation context (e.g. a node) that an event executes in.
type ContextId = uint32

const (
	// NoContext is the context of events scheduled from outside any node.
	NoContext ContextId = math.MaxUint32
)

// PacketUid uniquely identifies a packet instance within one process.
type PacketUid = uint64

const (
	InvalidPacketUid PacketUid = 0
)

// QueueKind names an event-queue implementation.
type QueueKind string

const (
	QueueKindHeap QueueKind = "heap"
	QueueKindList QueueKind = "list"
	QueueKindMap  QueueKind = "map"
)

const (
	DefaultQueueKind = QueueKindHeap
)

// SimState is the run state of a simulation loop.
type SimState int

const (
	SimIdle    SimState = 0
	SimRunning SimState = 1
	SimStopped SimState = 2
)

func (s SimState) String() string {
	switch s {
	case SimIdle:
		return "idle"
	case SimRunning:
		return "running"
	case SimStopped:
		return "stopped"
	default:
		return "invalid"
	}
}
