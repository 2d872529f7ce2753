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

// Package scenario loads YAML scenario files: a list of CLI commands, each to be run at a given
// virtual time, and an optional time at which the simulation stops.
package scenario

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/simulator"
	"github.com/openthread/nsim/types"
)

type Entry struct {
	At  string `yaml:"at"`
	Cmd string `yaml:"cmd"`

	at types.Time
}

// Time is the parsed virtual time of the entry.
func (e *Entry) Time() types.Time {
	return e.at
}

type Scenario struct {
	StopAt string  `yaml:"stop-at,omitempty"`
	Events []Entry `yaml:"events"`

	stopAt types.Time
}

// StopTime is the parsed stop time, or Never.
func (sc *Scenario) StopTime() types.Time {
	return sc.stopAt
}

// Load reads and validates a scenario file.
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", filename)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", filename)
	}
	return sc, nil
}

func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) validate() error {
	sc.stopAt = types.Never
	if sc.StopAt != "" {
		t, err := types.ParseTime(sc.StopAt)
		if err != nil {
			return errors.Wrap(err, "stop-at")
		}
		sc.stopAt = t
	}
	for i := range sc.Events {
		e := &sc.Events[i]
		if e.Cmd == "" {
			return errors.Errorf("event %d: empty cmd", i)
		}
		t, err := types.ParseTime(e.At)
		if err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
		e.at = t
	}
	return nil
}

// Schedule schedules every entry on sim, relative to time zero, to be run by exec. Entries whose time
// already passed run immediately. The stop time, if any, stops the simulation.
func (sc *Scenario) Schedule(sim *simulator.Simulator, exec func(cmd string)) []event.Id {
	now := sim.Now()
	ids := make([]event.Id, 0, len(sc.Events))
	for i := range sc.Events {
		e := &sc.Events[i]
		delay := types.Time(0)
		if e.at > now {
			delay = e.at - now
		}
		logger.Debugf("scenario: %q at %v", e.Cmd, e.at)
		ids = append(ids, sim.Schedule(delay, event.Bind(exec, e.Cmd)))
	}
	if sc.stopAt != types.Never {
		delay := types.Time(0)
		if sc.stopAt > now {
			delay = sc.stopAt - now
		}
		sim.StopAt(delay)
	}
	return ids
}
