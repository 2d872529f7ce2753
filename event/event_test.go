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

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/nsim/types"
)

type counter struct {
	total int
	last  string
}

func (c *counter) add(n int) {
	c.total += n
}

func (c *counter) addNamed(name string, n int) {
	c.total += n
	c.last = name
}

func TestEventLifecycle(t *testing.T) {
	ran := 0
	ev := New(10, 1, types.NoContext, InvokerFunc(func() { ran++ }))
	assert.Equal(t, Pending, ev.State)

	ev.Invoke()
	assert.Equal(t, 1, ran)
	assert.Equal(t, Expired, ev.State)

	// terminal: neither a second invoke nor a cancel has any effect
	ev.Invoke()
	assert.False(t, ev.Cancel())
	assert.Equal(t, 1, ran)
	assert.Equal(t, Expired, ev.State)
}

func TestEventCancel(t *testing.T) {
	ran := false
	ev := New(10, 1, 0, InvokerFunc(func() { ran = true }))
	assert.True(t, ev.Cancel())
	assert.Equal(t, Cancelled, ev.State)
	ev.Invoke()
	assert.False(t, ran)
}

func TestEventOrdering(t *testing.T) {
	a := New(5, 2, 0, nil)
	b := New(5, 3, 0, nil)
	c := New(1, 4, 0, nil)
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, c.Before(a))
}

func TestId(t *testing.T) {
	var zero Id
	assert.False(t, zero.IsValid())

	ev := New(42, 7, 3, nil)
	id := ev.Id()
	assert.True(t, id.IsValid())
	assert.Equal(t, uint64(7), id.Uid())
	assert.Equal(t, types.Time(42), id.Time())
	assert.Equal(t, types.ContextId(3), id.Context())
	assert.Equal(t, NewId(7, 42, 3), id)
}

func TestBindCapturesByValue(t *testing.T) {
	got := 0
	x := 5
	inv := Bind(func(v int) { got = v }, x)
	x = 9
	inv.Invoke()
	assert.Equal(t, 5, got)

	var s string
	Bind2(func(a string, b int) { s = a + string(rune('0'+b)) }, "n", 3).Invoke()
	assert.Equal(t, "n3", s)

	sum := 0
	Bind3(func(a, b, c int) { sum = a + b + c }, 1, 2, 3).Invoke()
	assert.Equal(t, 6, sum)
}

func TestBindMethod(t *testing.T) {
	c := &counter{}
	BindMethod(c, (*counter).add, 4).Invoke()
	BindMethod2(c, (*counter).addNamed, "x", 2).Invoke()
	assert.Equal(t, 6, c.total)
	assert.Equal(t, "x", c.last)
}
