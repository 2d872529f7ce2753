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

package packet

import (
	"github.com/openthread/nsim/logger"
)

// RemoveAtStart removes n bytes from the front, dropping whole records and trimming the fragment
// bounds of a partially covered one.
func (m *Metadata) RemoveAtStart(n uint32) {
	if !m.enabled() || n == 0 {
		return
	}
	left := n
	for left > 0 && m.head != none {
		item, extra, _ := m.readItems(m.head)
		realSize := extra.fragEnd - extra.fragStart
		if realSize <= left {
			m.noteTrim()
			if m.head == m.tail {
				m.head = none
				m.tail = none
			} else {
				m.head = item.next
			}
			left -= realSize
			continue
		}

		// the head record is only partially removed: rebuild the list into a private block
		fragment := m.f.newEmpty(m.packetUid)
		extra.fragStart += left
		left = 0
		fragment.updateTail(fragment.addBig(none, fragment.tail, item, extra))
		cur := m.head
		for cur != m.tail {
			cur = item.next
			item, extra, _ = m.readItems(cur)
			fragment.updateTail(fragment.addBig(none, fragment.tail, item, extra))
		}
		m.moveFrom(fragment)
	}
	if left > 0 && m.f.cfg.Checking {
		logger.Panicf("removing %d bytes at start of packet %d, %d bytes beyond its metadata", n, m.packetUid, left)
	}
	m.check()
}

// RemoveAtEnd removes n bytes from the back.
func (m *Metadata) RemoveAtEnd(n uint32) {
	if !m.enabled() || n == 0 {
		return
	}
	left := n
	for left > 0 && m.tail != none {
		item, extra, _ := m.readItems(m.tail)
		realSize := extra.fragEnd - extra.fragStart
		if realSize <= left {
			m.noteTrim()
			if m.head == m.tail {
				m.head = none
				m.tail = none
			} else {
				m.tail = item.prev
			}
			left -= realSize
			continue
		}

		fragment := m.f.newEmpty(m.packetUid)
		extra.fragEnd -= left
		left = 0
		fragment.updateHead(fragment.addBig(fragment.head, none, item, extra))
		cur := m.tail
		for cur != m.head {
			cur = item.prev
			item, extra, _ = m.readItems(cur)
			fragment.updateHead(fragment.addBig(fragment.head, none, item, extra))
		}
		m.moveFrom(fragment)
	}
	if left > 0 && m.f.cfg.Checking {
		logger.Panicf("removing %d bytes at end of packet %d, %d bytes beyond its metadata", n, m.packetUid, left)
	}
	m.check()
}

// CreateFragment returns metadata for the byte range [start, end) of the packet.
func (m *Metadata) CreateFragment(start, end uint32) *Metadata {
	fragment := m.Copy()
	if !m.enabled() {
		return fragment
	}
	total := m.GetTotalSize()
	if start > end || end > total {
		logger.Panicf("invalid fragment [%d:%d) of packet %d with %d bytes", start, end, m.packetUid, total)
	}
	fragment.RemoveAtEnd(total - end)
	fragment.RemoveAtStart(start)
	return fragment
}

// AddAtEnd appends the records of other. When the last record of m and the first record of
// other are adjacent fragments of the same chunk, they are merged into one record.
func (m *Metadata) AddAtEnd(other *Metadata) {
	if !m.enabled() {
		return
	}
	// other may be m itself, or share its block
	o := other.Copy()
	defer o.Release()

	if m.tail == none {
		uid := m.packetUid
		m.moveFrom(o.Copy())
		m.packetUid = uid
		if o.packetUid != uid {
			m.rebuildWithUid(o.packetUid)
		}
		m.check()
		return
	}
	if o.head == none {
		return
	}

	lastItem, lastExtra, lastSize := m.readItems(m.tail)
	cur := o.head
	for {
		item, extra, _ := o.readItems(cur)
		if cur == o.head &&
			extra.packetUid == lastExtra.packetUid &&
			item.typeId() == lastItem.typeId() &&
			item.chunkUid == lastItem.chunkUid &&
			item.size == lastItem.size &&
			extra.fragStart == lastExtra.fragEnd {
			lastExtra.fragEnd = extra.fragEnd
			m.replaceTail(lastItem, lastExtra, lastSize)
		} else {
			m.updateTail(m.addBig(none, m.tail, item, extra))
		}
		if cur == o.tail {
			break
		}
		cur = item.next
	}
	m.check()
}

// rebuildWithUid rewrites records that rely on the implicit packet uid, after m took over the
// records of a packet with uid recordUid.
func (m *Metadata) rebuildWithUid(recordUid uint64) {
	fragment := m.f.newEmpty(m.packetUid)
	cur := m.head
	for cur != none {
		item := m.readSmall(cur)
		_, extra, _ := m.readItems(cur)
		if !item.hasExtra() {
			extra.packetUid = recordUid
		}
		fragment.updateTail(fragment.addBig(none, fragment.tail, item, extra))
		if cur == m.tail {
			break
		}
		cur = item.next
	}
	m.moveFrom(fragment)
}

// replaceTail overwrites the tail record with item and extra. available is the size of the
// current tail record.
func (m *Metadata) replaceTail(item smallItem, extra extraItem, available uint16) {
	room := uint32(available)
	if uint32(m.tail)+uint32(available) == uint32(m.used) && m.used == m.data.dirtyEnd {
		room = m.data.Capacity() - uint32(m.tail)
	}
	if m.data.count == 1 && room >= bigItemSize {
		item.typeUid |= 1
		putSmall(m.data.buf[m.tail:], &item)
		putExtra(m.data.buf[uint32(m.tail)+smallItemSize:], &extra)
		if end := m.tail + bigItemSize; end > m.used {
			m.used = end
		}
		m.data.dirtyEnd = m.used
		return
	}

	fragment := m.f.newEmpty(m.packetUid)
	cur := m.head
	for cur != m.tail {
		tmpItem, tmpExtra, _ := m.readItems(cur)
		fragment.updateTail(fragment.addBig(none, fragment.tail, tmpItem, tmpExtra))
		cur = tmpItem.next
	}
	fragment.updateTail(fragment.addBig(none, fragment.tail, item, extra))
	m.moveFrom(fragment)
}
