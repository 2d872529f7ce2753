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
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/progctx"
	"github.com/openthread/nsim/types"
)

func TestServeGo(t *testing.T) {
	s := newTestSimulator(t, types.QueueKindHeap)
	ctx := progctx.New(context.Background())
	go s.Serve(ctx)

	fired := make(chan types.Time, 1)
	posted := make(chan struct{})
	s.PostAsync(false, func() {
		s.Schedule(types.MilliSeconds(5), event.InvokerFunc(func() { fired <- s.Now() }))
		close(posted)
	})
	<-posted

	<-s.Go(types.MilliSeconds(10))
	select {
	case at := <-fired:
		assert.Equal(t, types.MilliSeconds(5), at)
	case <-time.After(time.Second):
		t.Fatal("event did not fire")
	}

	now := make(chan types.Time)
	s.PostAsync(false, func() { now <- s.Now() })
	assert.Equal(t, types.MilliSeconds(10), <-now)

	ctx.Cancel(nil)
	assert.Nil(t, ctx.WaitTimeout(time.Second))
}

func TestServeTaskPanicIsRecovered(t *testing.T) {
	s := newTestSimulator(t, types.QueueKindHeap)
	ctx := progctx.New(context.Background())
	go s.Serve(ctx)
	defer ctx.Cancel(nil)

	s.PostAsync(false, func() { panic("task failed") })
	ok := make(chan bool)
	s.PostAsync(false, func() { ok <- true })
	assert.True(t, <-ok)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.Nil(t, err)

	// registering twice reuses the existing collectors
	m2, err := NewMetrics(reg)
	require.Nil(t, err)
	assert.Equal(t, m.EventsExecuted, m2.EventsExecuted)

	s := newTestSimulator(t, types.QueueKindHeap)
	s.SetMetrics(m)
	s.Schedule(types.Seconds(2), event.InvokerFunc(func() {}))
	s.Schedule(types.Seconds(3), event.InvokerFunc(func() {}))
	s.RunUntil(types.Seconds(2))

	families, err := m.Gatherer().Gather()
	require.Nil(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.Counter != nil:
				values[mf.GetName()] = metric.Counter.GetValue()
			case metric.Gauge != nil:
				values[mf.GetName()] = metric.Gauge.GetValue()
			case metric.Histogram != nil:
				values[mf.GetName()] = float64(metric.Histogram.GetSampleCount())
			}
		}
	}
	assert.Equal(t, 1.0, values["nsim_events_executed_total"])
	assert.Equal(t, 1.0, values["nsim_events_pending"])
	assert.Equal(t, 2.0, values["nsim_virtual_time_seconds"])
	assert.Equal(t, 1.0, values["nsim_run_duration_seconds"])

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "nsim_events_executed_total 1")
}
