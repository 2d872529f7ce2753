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
	"sort"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/types"
)

// Counters accumulate scheduler activity since creation.
type Counters struct {
	Scheduled uint64
	Cancelled uint64
	Removed   uint64
	Discarded uint64 // cancelled slots dropped from the queue
}

// Scheduler owns the event queue and the virtual clock. It is driven by a single goroutine.
type Scheduler struct {
	clock    Clock
	queue    Queue
	pending  map[uint64]*event.Event
	nextUid  uint64
	context  types.ContextId
	counters Counters
}

// New creates a Scheduler using the queue kind of cfg.
func New(cfg *Config) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	q, err := NewQueue(cfg.QueueKind)
	if err != nil {
		return nil, err
	}
	return NewWithQueue(q), nil
}

func NewWithQueue(q Queue) *Scheduler {
	return &Scheduler{
		queue:   q,
		pending: map[uint64]*event.Event{},
		nextUid: 1,
		context: types.NoContext,
	}
}

func (s *Scheduler) Now() types.Time {
	return s.clock.Now()
}

// AdvanceTo moves the virtual clock forward to t.
func (s *Scheduler) AdvanceTo(t types.Time) {
	s.clock.AdvanceTo(t)
}

// Context returns the context of the event being executed, or NoContext.
func (s *Scheduler) Context() types.ContextId {
	return s.context
}

func (s *Scheduler) SetContext(ctx types.ContextId) {
	s.context = ctx
}

// Schedule runs inv after delay in the current context.
func (s *Scheduler) Schedule(delay types.Time, inv event.Invoker) event.Id {
	return s.ScheduleWithContext(s.context, delay, inv)
}

// ScheduleNow runs inv at the current time, after any events already due now.
func (s *Scheduler) ScheduleNow(inv event.Invoker) event.Id {
	return s.Schedule(0, inv)
}

func (s *Scheduler) ScheduleWithContext(ctx types.ContextId, delay types.Time, inv event.Invoker) event.Id {
	if delay < 0 {
		logger.Panicf("schedule with negative delay %d", delay)
	}
	now := s.clock.Now()
	ts := types.Never
	if delay < types.Never-now {
		ts = now + delay
	}

	ev := event.New(ts, s.AllocUid(), ctx, inv)
	s.queue.Insert(ev)
	s.pending[ev.Uid] = ev
	s.counters.Scheduled++
	logger.Microf("schedule %v", ev)
	return ev.Id()
}

// AllocUid reserves an event uid, for events kept outside the queue.
func (s *Scheduler) AllocUid() uint64 {
	uid := s.nextUid
	s.nextUid++
	return uid
}

// Cancel marks the event as cancelled. Its queue slot is dropped when it reaches the front.
// Cancelling an expired or unknown event does nothing.
func (s *Scheduler) Cancel(id event.Id) {
	ev, ok := s.pending[id.Uid()]
	if !ok {
		return
	}
	ev.Cancel()
	delete(s.pending, id.Uid())
	s.counters.Cancelled++
}

// Remove takes the event out of the queue immediately.
func (s *Scheduler) Remove(id event.Id) {
	ev, ok := s.pending[id.Uid()]
	if !ok {
		return
	}
	logger.AssertTrue(s.queue.Remove(ev), "pending event %v missing from queue", ev)
	ev.Cancel()
	delete(s.pending, id.Uid())
	s.counters.Removed++
}

// IsExpired reports whether the event has run, was cancelled, or never existed.
func (s *Scheduler) IsExpired(id event.Id) bool {
	_, ok := s.pending[id.Uid()]
	return !ok
}

func (s *Scheduler) IsPending(id event.Id) bool {
	return !s.IsExpired(id)
}

// DelayLeft returns the virtual time until the event fires, or 0 when it is expired.
func (s *Scheduler) DelayLeft(id event.Id) types.Time {
	if s.IsExpired(id) {
		return 0
	}
	return id.Time() - s.clock.Now()
}

func (s *Scheduler) skipCancelled() *event.Event {
	for {
		ev := s.queue.PeekNext()
		if ev == nil || ev.State == event.Pending {
			return ev
		}
		s.queue.RemoveNext()
		s.counters.Discarded++
	}
}

// Next removes and returns the earliest pending event. The event stays Pending and is no longer
// known to IsPending; the caller is expected to invoke it.
func (s *Scheduler) Next() (*event.Event, bool) {
	ev := s.skipCancelled()
	if ev == nil {
		return nil, false
	}
	s.queue.RemoveNext()
	delete(s.pending, ev.Uid)
	return ev, true
}

// PeekNextTime returns the fire time of the earliest pending event.
func (s *Scheduler) PeekNextTime() (types.Time, bool) {
	ev := s.skipCancelled()
	if ev == nil {
		return types.Never, false
	}
	return ev.Time, true
}

func (s *Scheduler) IsEmpty() bool {
	return s.skipCancelled() == nil
}

// PendingCount is the number of events that will still fire.
func (s *Scheduler) PendingCount() int {
	return len(s.pending)
}

// QueueLen is the number of queue slots, including cancelled events not yet discarded.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

func (s *Scheduler) Counters() Counters {
	return s.counters
}

// PendingEvents returns the pending events in firing order.
func (s *Scheduler) PendingEvents() []*event.Event {
	evs := make([]*event.Event, 0, len(s.pending))
	for _, ev := range s.pending {
		evs = append(evs, ev)
	}
	sort.Slice(evs, func(i, j int) bool {
		return evs[i].Before(evs[j])
	})
	return evs
}

// Clear cancels every pending event and empties the queue without invoking anything.
func (s *Scheduler) Clear() {
	for s.queue.Len() > 0 {
		s.queue.RemoveNext().Cancel()
	}
	s.pending = map[uint64]*event.Event{}
}
