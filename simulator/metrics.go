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
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes simulator activity as Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	EventsExecuted prometheus.Counter
	PendingEvents  prometheus.Gauge
	QueueSlots     prometheus.Gauge
	VirtualTime    prometheus.Gauge
	RunDuration    prometheus.Histogram
}

// NewMetrics registers the simulator metrics against reg, or the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer}
	var err error
	if m.EventsExecuted, err = registerCollector(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nsim_events_executed_total",
		Help: "Number of simulation events executed.",
	}), "nsim_events_executed_total"); err != nil {
		return nil, err
	}
	if m.PendingEvents, err = registerCollector(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nsim_events_pending",
		Help: "Number of scheduled events that will still fire.",
	}), "nsim_events_pending"); err != nil {
		return nil, err
	}
	if m.QueueSlots, err = registerCollector(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nsim_event_queue_slots",
		Help: "Number of event queue slots, including cancelled events not yet discarded.",
	}), "nsim_event_queue_slots"); err != nil {
		return nil, err
	}
	if m.VirtualTime, err = registerCollector(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nsim_virtual_time_seconds",
		Help: "Current virtual time of the simulation.",
	}), "nsim_virtual_time_seconds"); err != nil {
		return nil, err
	}
	if m.RunDuration, err = registerCollector(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nsim_run_duration_seconds",
		Help:    "Wall-clock duration of simulation runs.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
	}), "nsim_run_duration_seconds"); err != nil {
		return nil, err
	}
	return m, nil
}

// Gatherer returns the Prometheus gatherer associated with the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observeEvent(s *Simulator) {
	if m == nil {
		return
	}
	m.EventsExecuted.Inc()
	m.VirtualTime.Set(s.Now().Seconds())
}

func (m *Metrics) observeRun(d time.Duration, s *Simulator) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
	m.PendingEvents.Set(float64(s.PendingCount()))
	m.QueueSlots.Set(float64(s.QueueLen()))
	m.VirtualTime.Set(s.Now().Seconds())
}

// SetMetrics attaches m to the simulator; nil detaches.
func (s *Simulator) SetMetrics(m *Metrics) {
	s.metrics = m
}

func (s *Simulator) Metrics() *Metrics {
	return s.metrics
}

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
