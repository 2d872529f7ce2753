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
)

// Serialized form, little-endian:
//
//	u64 packetUid
//	per record: u32 nameLen | name | u8 isFragment | u32 size | u16 chunkUid |
//	            u32 fragmentStart | u32 fragmentEnd | u64 packetUid
//
// nameLen 0 denotes the payload type.
const (
	serializedUidSize    = 8
	serializedRecordSize = 4 + 1 + 4 + 2 + 4 + 4 + 8
)

// GetSerializedSize is the number of bytes Serialize writes.
func (m *Metadata) GetSerializedSize() uint32 {
	size := uint32(serializedUidSize)
	m.forEach(func(_ uint16, item smallItem, _ extraItem) bool {
		size += serializedRecordSize + uint32(len(item.typeId().Name()))
		return true
	})
	return size
}

// Serialize writes the records into buf. It fails when they need more than maxSize bytes, do not
// fit into buf, or use an unregistered type.
func (m *Metadata) Serialize(buf []byte, maxSize uint32) bool {
	need := m.GetSerializedSize()
	if need > maxSize || need > uint32(len(buf)) {
		return false
	}

	binary.LittleEndian.PutUint64(buf, m.packetUid)
	off := uint32(serializedUidSize)
	ok := true
	m.forEach(func(_ uint16, item smallItem, extra extraItem) bool {
		tid := item.typeId()
		if !tid.IsRegistered() {
			ok = false
			return false
		}
		name := tid.Name()
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(name)))
		off += 4
		off += uint32(copy(buf[off:], name))
		if item.hasExtra() {
			buf[off] = 1
		} else {
			buf[off] = 0
		}
		off++
		binary.LittleEndian.PutUint32(buf[off:], item.size)
		binary.LittleEndian.PutUint16(buf[off+4:], item.chunkUid)
		binary.LittleEndian.PutUint32(buf[off+6:], extra.fragStart)
		binary.LittleEndian.PutUint32(buf[off+10:], extra.fragEnd)
		binary.LittleEndian.PutUint64(buf[off+14:], extra.packetUid)
		off += 22
		return true
	})
	return ok
}

type serializedRecord struct {
	item  smallItem
	extra extraItem
}

// packedSize is the room the record takes once added to metadata of packet uid.
func (r *serializedRecord) packedSize(uid uint64) uint32 {
	if r.extra.fragStart == 0 && r.extra.fragEnd == r.item.size && r.extra.packetUid == uid {
		return smallItemSize
	}
	return bigItemSize
}

// Deserialize replaces the content of m with the records in buf, which must be consumed entirely.
// On failure m is left unchanged.
func (m *Metadata) Deserialize(buf []byte) bool {
	if len(buf) < serializedUidSize {
		return false
	}
	uid := binary.LittleEndian.Uint64(buf)

	var records []serializedRecord
	var packed uint32
	off := uint64(serializedUidSize)
	end := uint64(len(buf))
	for off < end {
		if end-off < 4 {
			return false
		}
		nameLen := uint64(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		if end-off < nameLen+serializedRecordSize-4 {
			return false
		}
		tid, found := LookupTypeIdByName(string(buf[off : off+nameLen]))
		if !found {
			return false
		}
		off += nameLen

		r := serializedRecord{}
		r.item.typeUid = uint32(tid) << 1
		if buf[off] != 0 {
			r.item.typeUid |= 1
		}
		off++
		r.item.size = binary.LittleEndian.Uint32(buf[off:])
		r.item.chunkUid = binary.LittleEndian.Uint16(buf[off+4:])
		r.extra.fragStart = binary.LittleEndian.Uint32(buf[off+6:])
		r.extra.fragEnd = binary.LittleEndian.Uint32(buf[off+10:])
		r.extra.packetUid = binary.LittleEndian.Uint64(buf[off+14:])
		off += 22
		if r.extra.fragStart > r.extra.fragEnd || r.extra.fragEnd > r.item.size {
			return false
		}
		packed += r.packedSize(uid)
		if packed > maxUsed {
			return false
		}
		records = append(records, r)
	}

	if !m.enabled() {
		m.packetUid = uid
		return true
	}
	fresh := m.f.newEmpty(uid)
	for _, r := range records {
		fresh.updateTail(fresh.addBig(none, fresh.tail, r.item, r.extra))
	}
	m.moveFrom(fresh)
	m.check()
	return true
}
