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

// Package simulator implements the simulation loop that drives a scheduler through virtual time.
package simulator

import (
	"time"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/scheduler"
	"github.com/openthread/nsim/types"
)

// Counters summarize the activity of a Simulator.
type Counters struct {
	Scheduled uint64
	Executed  uint64
	Cancelled uint64
	Removed   uint64
	Destroyed uint64
}

type Simulator struct {
	*scheduler.Scheduler

	cfg           Config
	state         types.SimState
	stopRequested bool
	destroyed     bool
	executed      uint64
	destroyRan    uint64
	destroyEvents []*event.Event
	destroyIndex  map[uint64]*event.Event
	metrics       *Metrics
	observer      EventObserver

	// serving state, see serve.go
	serving        bool
	taskChan       chan func()
	goDurationChan chan goDuration
	stopAtId       event.Id
}

// New creates an idle Simulator at time 0.
func New(cfg *Config) (*Simulator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	sched, err := scheduler.New(&cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	taskQueueSize := cfg.TaskQueueSize
	if taskQueueSize <= 0 {
		taskQueueSize = DefaultConfig().TaskQueueSize
	}

	s := &Simulator{
		Scheduler:      sched,
		cfg:            *cfg,
		state:          types.SimIdle,
		destroyIndex:   map[uint64]*event.Event{},
		taskChan:       make(chan func(), taskQueueSize),
		goDurationChan: make(chan goDuration, 10),
	}
	if cfg.StopAt != types.Never {
		s.stopAtId = s.StopAt(cfg.StopAt)
	}
	logger.Debugf("simulator created: queue=%s, stop-at=%v", cfg.Scheduler.QueueKind, cfg.StopAt)
	return s, nil
}

func (s *Simulator) State() types.SimState {
	return s.state
}

// LogTimeNs reports the virtual time in nanoseconds, so the Simulator can prefix log lines.
func (s *Simulator) LogTimeNs() int64 {
	return s.Now().Duration().Nanoseconds()
}

// Run processes events until the queue is empty or Stop is called.
func (s *Simulator) Run() {
	s.run(types.Never)
}

// RunUntil processes events with a time up to and including t. Unless stopped early, the clock
// ends at t even when the queue drained before it.
func (s *Simulator) RunUntil(t types.Time) {
	s.run(t)
}

func (s *Simulator) run(limit types.Time) {
	if s.destroyed {
		logger.Warnf("run after destroy ignored")
		return
	}
	s.state = types.SimRunning
	s.stopRequested = false
	start := time.Now()
	defer func() {
		s.metrics.observeRun(time.Since(start), s)
	}()

	for !s.stopRequested {
		if s.serving {
			s.handleTasks()
			if s.stopRequested {
				break
			}
		}
		next, ok := s.PeekNextTime()
		if !ok || next > limit || next == types.Never {
			break
		}
		s.ProcessOneEvent()
	}

	if !s.stopRequested && limit != types.Never && s.Now() < limit {
		s.AdvanceTo(limit)
	}
	s.state = types.SimStopped
}

// ProcessOneEvent pops the next event, advances the clock to it and invokes it in its context.
// It reports false when there was no event.
func (s *Simulator) ProcessOneEvent() bool {
	ev, ok := s.Next()
	if !ok {
		return false
	}
	s.AdvanceTo(ev.Time)
	s.SetContext(ev.Context)
	ev.Invoke()
	s.SetContext(types.NoContext)
	s.executed++
	s.metrics.observeEvent(s)
	if s.observer != nil {
		s.observer.OnEvent(s)
	}
	return true
}

// EventObserver is notified on the simulator goroutine after each executed event.
type EventObserver interface {
	OnEvent(s *Simulator)
}

// SetObserver attaches o to the simulator; nil detaches.
func (s *Simulator) SetObserver(o EventObserver) {
	s.observer = o
}

// Stop makes Run return after the current event. The next Run clears it.
func (s *Simulator) Stop() {
	s.stopRequested = true
}

// StopAt schedules a Stop after delay.
func (s *Simulator) StopAt(delay types.Time) event.Id {
	return s.ScheduleWithContext(types.NoContext, delay, event.InvokerFunc(s.Stop))
}

// IsFinished reports whether a Stop was requested or no events remain.
func (s *Simulator) IsFinished() bool {
	return s.stopRequested || s.IsEmpty()
}

// ScheduleDestroy registers inv to run at Destroy, in registration order.
func (s *Simulator) ScheduleDestroy(inv event.Invoker) event.Id {
	ev := event.New(types.Never, s.AllocUid(), types.NoContext, inv)
	s.destroyEvents = append(s.destroyEvents, ev)
	s.destroyIndex[ev.Uid] = ev
	return ev.Id()
}

// Cancel cancels a regular or a destroy event.
func (s *Simulator) Cancel(id event.Id) {
	if ev, ok := s.destroyIndex[id.Uid()]; ok {
		ev.Cancel()
		delete(s.destroyIndex, id.Uid())
		return
	}
	s.Scheduler.Cancel(id)
}

// Remove removes a regular or a destroy event.
func (s *Simulator) Remove(id event.Id) {
	if ev, ok := s.destroyIndex[id.Uid()]; ok {
		ev.Cancel()
		delete(s.destroyIndex, id.Uid())
		for i, dev := range s.destroyEvents {
			if dev == ev {
				s.destroyEvents = append(s.destroyEvents[:i], s.destroyEvents[i+1:]...)
				break
			}
		}
		return
	}
	s.Scheduler.Remove(id)
}

func (s *Simulator) IsExpired(id event.Id) bool {
	if _, ok := s.destroyIndex[id.Uid()]; ok {
		return false
	}
	return s.Scheduler.IsExpired(id)
}

func (s *Simulator) IsPending(id event.Id) bool {
	return !s.IsExpired(id)
}

// Destroy runs the destroy events and then drops all pending events without firing them.
func (s *Simulator) Destroy() {
	if s.destroyed {
		return
	}
	// destroy events may register further destroy events
	for len(s.destroyEvents) > 0 {
		ev := s.destroyEvents[0]
		s.destroyEvents = s.destroyEvents[1:]
		delete(s.destroyIndex, ev.Uid)
		if ev.State != event.Pending {
			continue
		}
		ev.Invoke()
		s.destroyRan++
	}
	dropped := s.PendingCount()
	s.Clear()
	s.destroyed = true
	s.state = types.SimStopped
	logger.Debugf("simulator destroyed at %v, %d pending events dropped", s.Now(), dropped)
}

func (s *Simulator) IsDestroyed() bool {
	return s.destroyed
}

// EventCount is the number of events executed so far.
func (s *Simulator) EventCount() uint64 {
	return s.executed
}

func (s *Simulator) Counters() Counters {
	sc := s.Scheduler.Counters()
	return Counters{
		Scheduled: sc.Scheduled,
		Executed:  s.executed,
		Cancelled: sc.Cancelled,
		Removed:   sc.Removed,
		Destroyed: s.destroyRan,
	}
}
