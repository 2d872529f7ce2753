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

package prng

import (
	"math/rand"
	"time"

	"github.com/openthread/nsim/types"
)

type RandomSeed int64

var (
	jitterRandGenerator = rand.New(rand.NewSource(1))
	unitRandGenerator   = rand.New(rand.NewSource(2))
)

// Init initializes the prng package, either with a fixed PRNG seed (rootSeed != 0) or a 'random' time-based PRNG
// seed (if rootSeed == 0). It returns the seed in use, so a run can be repeated.
func Init(rootSeed RandomSeed) RandomSeed {
	if rootSeed == 0 {
		rootSeed = RandomSeed(time.Now().UnixNano())
	}
	root := rand.New(rand.NewSource(int64(rootSeed)))
	jitterRandGenerator = rand.New(rand.NewSource(int64(rootSeed) + root.Int63n(1e10)))
	unitRandGenerator = rand.New(rand.NewSource(int64(rootSeed) + root.Int63n(1e10)))
	return rootSeed
}

// NewJitter generates a random delay in [0, max].
func NewJitter(max types.Time) types.Time {
	if max <= 0 {
		return 0
	}
	if max == types.Never {
		return types.Time(jitterRandGenerator.Int63())
	}
	return types.Time(jitterRandGenerator.Int63n(int64(max) + 1))
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func NewUnitRandom() float64 {
	return unitRandGenerator.Float64()
}
