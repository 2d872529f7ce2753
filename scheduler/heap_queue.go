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
	"container/heap"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
)

type heapItem struct {
	ev    *event.Event
	index int
}

type eventHeap []*heapItem

func (eh eventHeap) Len() int {
	return len(eh)
}

func (eh eventHeap) Less(i, j int) bool {
	return eh[i].ev.Before(eh[j].ev)
}

func (eh eventHeap) Swap(i, j int) {
	a, b := eh[i], eh[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	eh[i], eh[j] = b, a             // swap the elements
	eh[i].index, eh[j].index = i, j // fix the indexes
}

func (eh *eventHeap) Push(x interface{}) {
	item := x.(*heapItem)
	*eh = append(*eh, item)
	item.index = len(*eh) - 1
}

func (eh *eventHeap) Pop() (elem interface{}) {
	n := len(*eh)
	elem = (*eh)[n-1]
	(*eh)[n-1] = nil
	*eh = (*eh)[:n-1]
	return
}

// heapQueue is a binary min-heap. Insert and removal are O(log n).
type heapQueue struct {
	h     eventHeap
	items map[uint64]*heapItem
}

func newHeapQueue() *heapQueue {
	q := &heapQueue{
		h:     eventHeap{},
		items: map[uint64]*heapItem{},
	}
	heap.Init(&q.h)
	return q
}

func (q *heapQueue) Insert(ev *event.Event) {
	logger.AssertNil(q.items[ev.Uid])

	item := &heapItem{ev: ev}
	heap.Push(&q.h, item)
	q.items[ev.Uid] = item
}

func (q *heapQueue) PeekNext() *event.Event {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0].ev
}

func (q *heapQueue) RemoveNext() *event.Event {
	if len(q.h) == 0 {
		return nil
	}
	item := heap.Pop(&q.h).(*heapItem)
	delete(q.items, item.ev.Uid)
	return item.ev
}

func (q *heapQueue) Remove(ev *event.Event) bool {
	item, ok := q.items[ev.Uid]
	if !ok {
		return false
	}
	heap.Remove(&q.h, item.index)
	delete(q.items, ev.Uid)
	return true
}

func (q *heapQueue) Len() int {
	return len(q.h)
}
