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

package simulator

import (
	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/progctx"
	"github.com/openthread/nsim/types"
)

type goDuration struct {
	duration types.Time
	done     chan struct{}
}

// Serve runs the simulator in the calling goroutine until ctx is cancelled. Other goroutines
// interact with it only through PostAsync and Go.
func (s *Simulator) Serve(ctx *progctx.ProgCtx) {
	ctx.WaitAdd("simulator", 1)
	defer ctx.WaitDone("simulator")
	defer logger.Debugf("simulator serve exit.")

	s.serving = true
	defer func() {
		s.serving = false
	}()

	done := ctx.Done()
loop:
	for {
		select {
		case f := <-s.taskChan:
			s.runTask(f)
		case d := <-s.goDurationChan:
			s.goFor(d.duration)
			close(d.done)
			if ctx.Err() != nil {
				break loop
			}
		case <-done:
			break loop
		}
	}
}

// Go requests the serving simulator to advance by duration; Never runs until the queue drains.
// The returned channel is closed when the advance completed.
func (s *Simulator) Go(duration types.Time) <-chan struct{} {
	done := make(chan struct{})
	s.goDurationChan <- goDuration{
		duration: duration,
		done:     done,
	}
	return done
}

func (s *Simulator) goFor(duration types.Time) {
	if duration == types.Never {
		s.Run()
		return
	}
	pauseTime := types.Never
	if now := s.Now(); duration < types.Never-now {
		pauseTime = now + duration
	}
	s.RunUntil(pauseTime)
}

// PostAsync hands task to the serving goroutine. A trivial task is dropped when the task queue is full.
func (s *Simulator) PostAsync(trivial bool, task func()) {
	if trivial {
		select {
		case s.taskChan <- task:
		default:
		}
	} else {
		s.taskChan <- task
	}
}

func (s *Simulator) runTask(task func()) {
	defer func() {
		if err := recover(); err != nil {
			logger.Errorf("simulator handle task failed: %+v", err)
		}
	}()
	task()
}

func (s *Simulator) handleTasks() {
	for {
		select {
		case t := <-s.taskChan:
			s.runTask(t)
		default:
			return
		}
	}
}
