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
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/openthread/nsim/logger"
)

// Record layout inside a Data block, little-endian:
//
//	small item: next u16 | prev u16 | typeUid u32 | size u32 | chunkUid u16
//	extra item: fragmentStart u32 | fragmentEnd u32 | packetUid u64
//
// typeUid is TypeId<<1, with the low bit set when the extra item follows.
const (
	none          uint16 = 0xffff
	smallItemSize        = 14
	extraItemSize        = 16
	bigItemSize          = smallItemSize + extraItemSize
	maxUsed              = uint32(none)
)

var (
	ErrMismatch   = errors.New("metadata item mismatch")
	ErrIncomplete = errors.New("incomplete metadata item")
)

type smallItem struct {
	next     uint16
	prev     uint16
	typeUid  uint32
	size     uint32
	chunkUid uint16
}

func (it *smallItem) typeId() TypeId {
	return TypeId(it.typeUid >> 1)
}

func (it *smallItem) hasExtra() bool {
	return it.typeUid&1 != 0
}

type extraItem struct {
	fragStart uint32
	fragEnd   uint32
	packetUid uint64
}

// Metadata records which headers, trailers and payload chunks make up a packet, as a doubly linked
// list of packed records in a Data block. Copies share the block until one of them is modified.
type Metadata struct {
	f         *MetadataFactory
	data      *Data
	head      uint16
	tail      uint16
	used      uint16
	packetUid uint64
	// trimmedShared is set when records were dropped from the ends of the list while the block was
	// shared; the boundary records may then be inner records of another sharer.
	trimmedShared bool
}

func (m *Metadata) enabled() bool {
	return m.f.cfg.Enabled
}

func (m *Metadata) GetUid() uint64 {
	return m.packetUid
}

// Copy returns metadata sharing the records of m.
func (m *Metadata) Copy() *Metadata {
	c := *m
	if c.data != nil {
		m.f.pool.Share(c.data)
	}
	return &c
}

// Release drops the reference to the record block. m must not be used afterwards.
func (m *Metadata) Release() {
	if m.data != nil {
		m.f.pool.Unshare(m.data)
		m.data = nil
	}
}

// moveFrom makes m take over the records of o, which is left empty.
func (m *Metadata) moveFrom(o *Metadata) {
	if m.data != nil {
		m.f.pool.Unshare(m.data)
	}
	m.data = o.data
	m.head = o.head
	m.tail = o.tail
	m.used = o.used
	m.packetUid = o.packetUid
	m.trimmedShared = o.trimmedShared
	o.data = nil
}

func (m *Metadata) readSmall(off uint16) smallItem {
	b := m.data.buf[off:]
	return smallItem{
		next:     binary.LittleEndian.Uint16(b[0:]),
		prev:     binary.LittleEndian.Uint16(b[2:]),
		typeUid:  binary.LittleEndian.Uint32(b[4:]),
		size:     binary.LittleEndian.Uint32(b[8:]),
		chunkUid: binary.LittleEndian.Uint16(b[12:]),
	}
}

// readItems reads the record at off. A record without extra item covers its whole size and
// belongs to this packet.
func (m *Metadata) readItems(off uint16) (smallItem, extraItem, uint16) {
	item := m.readSmall(off)
	if !item.hasExtra() {
		return item, extraItem{fragStart: 0, fragEnd: item.size, packetUid: m.packetUid}, smallItemSize
	}
	b := m.data.buf[uint32(off)+smallItemSize:]
	extra := extraItem{
		fragStart: binary.LittleEndian.Uint32(b[0:]),
		fragEnd:   binary.LittleEndian.Uint32(b[4:]),
		packetUid: binary.LittleEndian.Uint64(b[8:]),
	}
	return item, extra, bigItemSize
}

func putSmall(b []byte, item *smallItem) {
	binary.LittleEndian.PutUint16(b[0:], item.next)
	binary.LittleEndian.PutUint16(b[2:], item.prev)
	binary.LittleEndian.PutUint32(b[4:], item.typeUid)
	binary.LittleEndian.PutUint32(b[8:], item.size)
	binary.LittleEndian.PutUint16(b[12:], item.chunkUid)
}

func putExtra(b []byte, extra *extraItem) {
	binary.LittleEndian.PutUint32(b[0:], extra.fragStart)
	binary.LittleEndian.PutUint32(b[4:], extra.fragEnd)
	binary.LittleEndian.PutUint64(b[8:], extra.packetUid)
}

func (m *Metadata) setNext(off uint16, next uint16) {
	binary.LittleEndian.PutUint16(m.data.buf[off:], next)
}

func (m *Metadata) setPrev(off uint16, prev uint16) {
	binary.LittleEndian.PutUint16(m.data.buf[uint32(off)+2:], prev)
}

// Reserve makes room for n more bytes of records, moving the records into a private block when
// the current one is too small or cannot be appended to without disturbing other sharers.
func (m *Metadata) Reserve(n uint32) {
	if !m.enabled() {
		return
	}
	m.reserve(n)
}

func (m *Metadata) reserve(n uint32) {
	if m.data == nil || m.data.count == 0 {
		logger.Panicf("metadata of packet %d used after release", m.packetUid)
	}
	if uint32(m.used)+n > maxUsed {
		logger.Panicf("metadata of packet %d exceeds %d bytes", m.packetUid, maxUsed)
	}
	if uint32(m.used)+n > m.data.Capacity() ||
		(m.data.count > 1 && (m.used != m.data.dirtyEnd || m.trimmedShared)) {
		m.reserveCopy(n)
	}
}

func (m *Metadata) reserveCopy(n uint32) {
	newData := m.f.pool.Create(uint32(m.used) + n)
	copy(newData.buf, m.data.buf[:m.used])
	newData.dirtyEnd = m.used
	m.f.pool.Unshare(m.data)
	m.data = newData
	m.trimmedShared = false
	if m.head != none {
		m.setPrev(m.head, none)
	}
	if m.tail != none {
		m.setNext(m.tail, none)
	}
}

// addSmall writes item at the end of the used area and returns its size.
func (m *Metadata) addSmall(item *smallItem) uint16 {
	m.reserve(smallItemSize)
	putSmall(m.data.buf[m.used:], item)
	return smallItemSize
}

// addBig writes item with its extra item, or as a small item when the extra item holds nothing
// that the small form does not imply.
func (m *Metadata) addBig(next, prev uint16, item smallItem, extra extraItem) uint16 {
	item.next = next
	item.prev = prev
	if extra.fragStart == 0 && extra.fragEnd == item.size && extra.packetUid == m.packetUid {
		item.typeUid &^= 1
		return m.addSmall(&item)
	}
	item.typeUid |= 1
	m.reserve(bigItemSize)
	putSmall(m.data.buf[m.used:], &item)
	putExtra(m.data.buf[uint32(m.used)+smallItemSize:], &extra)
	return bigItemSize
}

// updateHead links the record just written at used in front of the list.
func (m *Metadata) updateHead(written uint16) {
	if m.head == none {
		m.head = m.used
		m.tail = m.used
	} else {
		m.setPrev(m.head, m.used)
		m.head = m.used
	}
	m.used += written
	m.data.dirtyEnd = m.used
}

func (m *Metadata) updateTail(written uint16) {
	if m.tail == none {
		m.head = m.used
		m.tail = m.used
	} else {
		m.setNext(m.tail, m.used)
		m.tail = m.used
	}
	m.used += written
	m.data.dirtyEnd = m.used
}

func (m *Metadata) noteTrim() {
	if m.data.count > 1 {
		m.trimmedShared = true
	}
}

// forEach visits the records from head to tail until fn returns false.
func (m *Metadata) forEach(fn func(off uint16, item smallItem, extra extraItem) bool) {
	if m.data == nil {
		return
	}
	cur := m.head
	for cur != none {
		item, extra, _ := m.readItems(cur)
		if !fn(cur, item, extra) || cur == m.tail {
			return
		}
		cur = item.next
	}
}

func (m *Metadata) fail(kind error, format string, args ...interface{}) error {
	if m.f.cfg.Checking {
		logger.Panicf(format, args...)
	}
	err := errors.Wrapf(kind, format, args...)
	logger.Debugf("%v", err)
	return err
}

func (m *Metadata) check() {
	if m.f.cfg.Checking && !m.IsStateOk() {
		logger.Panicf("corrupt metadata for packet %d: head=%d tail=%d used=%d", m.packetUid, m.head, m.tail, m.used)
	}
}

func (m *Metadata) doAddHeader(tid TypeId, size uint32) {
	item := smallItem{
		next:     m.head,
		prev:     none,
		typeUid:  uint32(tid) << 1,
		size:     size,
		chunkUid: m.f.ids.NextChunkUid(),
	}
	m.updateHead(m.addSmall(&item))
}

// AddHeader records a header of size bytes in front of the packet.
func (m *Metadata) AddHeader(tid TypeId, size uint32) {
	if !m.enabled() {
		return
	}
	m.doAddHeader(tid, size)
	m.check()
}

// RemoveHeader removes the first record, which must be the complete header tid of size bytes.
func (m *Metadata) RemoveHeader(tid TypeId, size uint32) error {
	if !m.enabled() {
		return nil
	}
	if m.head == none {
		return m.fail(ErrMismatch, "removing header %v (%d bytes) from empty metadata of packet %d", tid, size, m.packetUid)
	}
	item, extra, read := m.readItems(m.head)
	if item.typeId() != tid || item.size != size {
		return m.fail(ErrMismatch, "removing unexpected header %v (%d bytes) from packet %d, found %v (%d bytes)",
			tid, size, m.packetUid, item.typeId(), item.size)
	}
	if extra.fragStart != 0 || extra.fragEnd != item.size {
		return m.fail(ErrIncomplete, "removing incomplete header %v (%d bytes, fragment [%d:%d]) from packet %d",
			tid, size, extra.fragStart, extra.fragEnd, m.packetUid)
	}

	if uint32(m.head)+uint32(read) == uint32(m.used) {
		m.used = m.head
	}
	m.noteTrim()
	if m.head == m.tail {
		m.head = none
		m.tail = none
	} else {
		m.head = item.next
	}
	m.check()
	return nil
}

// AddTrailer records a trailer of size bytes at the end of the packet.
func (m *Metadata) AddTrailer(tid TypeId, size uint32) {
	if !m.enabled() {
		return
	}
	item := smallItem{
		next:     none,
		prev:     m.tail,
		typeUid:  uint32(tid) << 1,
		size:     size,
		chunkUid: m.f.ids.NextChunkUid(),
	}
	m.updateTail(m.addSmall(&item))
	m.check()
}

// RemoveTrailer removes the last record, which must be the complete trailer tid of size bytes.
func (m *Metadata) RemoveTrailer(tid TypeId, size uint32) error {
	if !m.enabled() {
		return nil
	}
	if m.tail == none {
		return m.fail(ErrMismatch, "removing trailer %v (%d bytes) from empty metadata of packet %d", tid, size, m.packetUid)
	}
	item, extra, read := m.readItems(m.tail)
	if item.typeId() != tid || item.size != size {
		return m.fail(ErrMismatch, "removing unexpected trailer %v (%d bytes) from packet %d, found %v (%d bytes)",
			tid, size, m.packetUid, item.typeId(), item.size)
	}
	if extra.fragStart != 0 || extra.fragEnd != item.size {
		return m.fail(ErrIncomplete, "removing incomplete trailer %v (%d bytes, fragment [%d:%d]) from packet %d",
			tid, size, extra.fragStart, extra.fragEnd, m.packetUid)
	}

	if uint32(m.tail)+uint32(read) == uint32(m.used) {
		m.used = m.tail
	}
	m.noteTrim()
	if m.head == m.tail {
		m.head = none
		m.tail = none
	} else {
		m.tail = item.prev
	}
	m.check()
	return nil
}

// AddPaddingAtEnd records size bytes of payload at the end of the packet.
func (m *Metadata) AddPaddingAtEnd(size uint32) {
	if !m.enabled() || size == 0 {
		return
	}
	item := smallItem{
		next:     none,
		prev:     m.tail,
		typeUid:  uint32(PayloadTypeId) << 1,
		size:     size,
		chunkUid: m.f.ids.NextChunkUid(),
	}
	m.updateTail(m.addSmall(&item))
	m.check()
}

// GetTotalSize is the number of packet bytes covered by the records.
func (m *Metadata) GetTotalSize() uint32 {
	var total uint32
	m.forEach(func(_ uint16, _ smallItem, extra extraItem) bool {
		total += extra.fragEnd - extra.fragStart
		return true
	})
	return total
}

// Len is the number of records.
func (m *Metadata) Len() int {
	n := 0
	m.forEach(func(uint16, smallItem, extraItem) bool {
		n++
		return true
	})
	return n
}

// IsStateOk validates the record list: links stay inside the used area and agree in both directions,
// the walk from head reaches tail, and fragment bounds are consistent.
func (m *Metadata) IsStateOk() bool {
	if !m.enabled() {
		return true
	}
	if m.data == nil || m.data.count == 0 {
		return false
	}
	if (m.head == none) != (m.tail == none) {
		return false
	}
	if m.used > m.data.dirtyEnd || uint32(m.used) > m.data.Capacity() {
		return false
	}
	if m.head == none {
		return true
	}

	maxSteps := int(m.used)/smallItemSize + 1
	cur, prev := m.head, none
	for steps := 0; steps <= maxSteps; steps++ {
		if uint32(cur)+smallItemSize > uint32(m.used) {
			return false
		}
		item := m.readSmall(cur)
		if item.hasExtra() && uint32(cur)+bigItemSize > uint32(m.used) {
			return false
		}
		_, extra, _ := m.readItems(cur)
		if extra.fragStart > extra.fragEnd || extra.fragEnd > item.size {
			return false
		}
		if cur != m.head && item.prev != prev {
			return false
		}
		if cur == m.tail {
			return true
		}
		prev, cur = cur, item.next
		if cur == none {
			return false
		}
	}
	return false
}
