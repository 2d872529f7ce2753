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

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Time is a point in, or a span of, virtual simulation time. It counts ticks of the
// process-wide Resolution, which is nanoseconds unless changed before the simulation starts.
type Time int64

const (
	Zero Time = 0
	// Never is a time that a simulation never reaches; an event at Never does not fire.
	Never Time = math.MaxInt64
)

type Resolution int8

const (
	ResolutionNs Resolution = iota
	ResolutionUs
	ResolutionMs
	ResolutionS
)

const (
	ResolutionNsStr = "ns"
	ResolutionUsStr = "us"
	ResolutionMsStr = "ms"
	ResolutionSStr  = "s"
)

var (
	resolution = ResolutionNs
	nsPerTick  = int64(1)
)

// SetResolution sets the length of one Time tick. It must be called before any Time values are created,
// since existing values are not converted.
func SetResolution(r Resolution) error {
	switch r {
	case ResolutionNs:
		nsPerTick = 1
	case ResolutionUs:
		nsPerTick = 1000
	case ResolutionMs:
		nsPerTick = 1000000
	case ResolutionS:
		nsPerTick = 1000000000
	default:
		return errors.Errorf("invalid time resolution: %d", r)
	}
	resolution = r
	return nil
}

func GetResolution() Resolution {
	return resolution
}

func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(s) {
	case ResolutionNsStr, "":
		return ResolutionNs, nil
	case ResolutionUsStr:
		return ResolutionUs, nil
	case ResolutionMsStr:
		return ResolutionMs, nil
	case ResolutionSStr:
		return ResolutionS, nil
	default:
		return ResolutionNs, errors.Errorf("unknown time resolution: %s", s)
	}
}

func (r Resolution) String() string {
	switch r {
	case ResolutionNs:
		return ResolutionNsStr
	case ResolutionUs:
		return ResolutionUsStr
	case ResolutionMs:
		return ResolutionMsStr
	case ResolutionS:
		return ResolutionSStr
	default:
		return "invalid"
	}
}

// FromDuration converts a wall-clock style duration into ticks, truncating below the resolution.
func FromDuration(d time.Duration) Time {
	return Time(int64(d) / nsPerTick)
}

// Duration converts t into a time.Duration. Never maps onto the largest Duration.
func (t Time) Duration() time.Duration {
	if t == Never || int64(t) > math.MaxInt64/nsPerTick {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(int64(t) * nsPerTick)
}

func Seconds(s float64) Time {
	return Time(s * 1e9 / float64(nsPerTick))
}

func MilliSeconds(ms int64) Time {
	return FromDuration(time.Duration(ms) * time.Millisecond)
}

func MicroSeconds(us int64) Time {
	return FromDuration(time.Duration(us) * time.Microsecond)
}

func NanoSeconds(ns int64) Time {
	return FromDuration(time.Duration(ns))
}

func (t Time) Seconds() float64 {
	return float64(t) * float64(nsPerTick) / 1e9
}

// ParseTime parses a time such as "10ms", "1.5s" or "2h". A bare number is taken as seconds,
// and "ever" or "never" yields Never.
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "ever", "never":
		return Never, nil
	case "":
		return 0, errors.Errorf("empty time")
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			return 0, errors.Errorf("negative time: %s", s)
		}
		return Seconds(f), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid time %q", s)
	}
	if d < 0 {
		return 0, errors.Errorf("negative time: %s", s)
	}
	return FromDuration(d), nil
}

func (t Time) String() string {
	if t == Never {
		return "never"
	}
	return t.Duration().String()
}
