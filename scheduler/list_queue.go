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
	"container/list"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
)

// listQueue keeps events in a sorted linked list. Insert is O(n), scanning from the back
// since new events tend to be late; removal is O(1).
type listQueue struct {
	l     *list.List
	elems map[uint64]*list.Element
}

func newListQueue() *listQueue {
	return &listQueue{
		l:     list.New(),
		elems: map[uint64]*list.Element{},
	}
}

func (q *listQueue) Insert(ev *event.Event) {
	logger.AssertNil(q.elems[ev.Uid])

	for e := q.l.Back(); e != nil; e = e.Prev() {
		if !ev.Before(e.Value.(*event.Event)) {
			q.elems[ev.Uid] = q.l.InsertAfter(ev, e)
			return
		}
	}
	q.elems[ev.Uid] = q.l.PushFront(ev)
}

func (q *listQueue) PeekNext() *event.Event {
	if e := q.l.Front(); e != nil {
		return e.Value.(*event.Event)
	}
	return nil
}

func (q *listQueue) RemoveNext() *event.Event {
	e := q.l.Front()
	if e == nil {
		return nil
	}
	ev := q.l.Remove(e).(*event.Event)
	delete(q.elems, ev.Uid)
	return ev
}

func (q *listQueue) Remove(ev *event.Event) bool {
	e, ok := q.elems[ev.Uid]
	if !ok {
		return false
	}
	q.l.Remove(e)
	delete(q.elems, ev.Uid)
	return true
}

func (q *listQueue) Len() int {
	return q.l.Len()
}
