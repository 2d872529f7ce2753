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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/nsim/types"
)

func TestInitIsRepeatable(t *testing.T) {
	draw := func() ([]types.Time, float64) {
		var jitters []types.Time
		for i := 0; i < 10; i++ {
			jitters = append(jitters, NewJitter(types.MilliSeconds(100)))
		}
		return jitters, NewUnitRandom()
	}

	assert.Equal(t, RandomSeed(42), Init(42))
	j1, u1 := draw()
	Init(42)
	j2, u2 := draw()
	assert.Equal(t, j1, j2)
	assert.Equal(t, u1, u2)

	Init(43)
	j3, _ := draw()
	assert.NotEqual(t, j1, j3)

	assert.NotEqual(t, RandomSeed(0), Init(0))
}

func TestJitterBounds(t *testing.T) {
	Init(7)
	assert.Equal(t, types.Time(0), NewJitter(0))
	assert.Equal(t, types.Time(0), NewJitter(-5))
	for i := 0; i < 1000; i++ {
		j := NewJitter(10)
		assert.True(t, j >= 0 && j <= 10, j)
		u := NewUnitRandom()
		assert.True(t, u >= 0 && u < 1, u)
	}
	assert.True(t, NewJitter(types.Never) >= 0)
}
