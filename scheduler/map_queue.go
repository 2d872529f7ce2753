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
	rb "github.com/glycerine/rbtree"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
)

// mapQueue is an ordered map (red-black tree) from (time, uid) to event.
type mapQueue struct {
	tree *rb.Tree
}

func compareEvents(a, b rb.Item) int {
	av := a.(*event.Event)
	bv := b.(*event.Event)
	switch {
	case av.Time < bv.Time:
		return -1
	case av.Time > bv.Time:
		return 1
	case av.Uid < bv.Uid:
		return -1
	case av.Uid > bv.Uid:
		return 1
	default:
		return 0
	}
}

func newMapQueue() *mapQueue {
	return &mapQueue{
		tree: rb.NewTree(compareEvents),
	}
}

func (q *mapQueue) Insert(ev *event.Event) {
	added := q.tree.Insert(ev)
	logger.AssertTrue(added, "duplicate event uid %d", ev.Uid)
}

func (q *mapQueue) PeekNext() *event.Event {
	if q.tree.Len() == 0 {
		return nil
	}
	return q.tree.Min().Item().(*event.Event)
}

func (q *mapQueue) RemoveNext() *event.Event {
	if q.tree.Len() == 0 {
		return nil
	}
	it := q.tree.Min()
	ev := it.Item().(*event.Event)
	q.tree.DeleteWithIterator(it)
	return ev
}

func (q *mapQueue) Remove(ev *event.Event) bool {
	return q.tree.DeleteWithKey(ev)
}

func (q *mapQueue) Len() int {
	return q.tree.Len()
}
