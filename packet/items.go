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
	"fmt"
	"strings"
)

// Item describes one record of packet metadata, in packet order.
type Item struct {
	Kind       TypeKind
	TypeId     TypeId
	IsFragment bool
	ChunkUid   uint16
	PacketUid  uint64
	// Offset is the position of the item's first byte in the packet.
	Offset uint32
	// CurrentSize is the number of bytes of the item present in the packet.
	CurrentSize             uint32
	CurrentTrimmedFromStart uint32
	CurrentTrimmedFromEnd   uint32
}

func (it Item) String() string {
	name := it.TypeId.String()
	if it.IsFragment {
		return fmt.Sprintf("%s Fragment [%d:%d]", name, it.CurrentTrimmedFromStart,
			it.CurrentTrimmedFromStart+it.CurrentSize)
	}
	if it.Kind == KindPayload {
		return fmt.Sprintf("%s (size=%d)", name, it.CurrentSize)
	}
	return fmt.Sprintf("%s (%d)", name, it.CurrentSize)
}

// Items lists the metadata records from the start of the packet to its end.
func (m *Metadata) Items() []Item {
	var items []Item
	var offset uint32
	m.forEach(func(_ uint16, item smallItem, extra extraItem) bool {
		tid := item.typeId()
		size := extra.fragEnd - extra.fragStart
		kind := KindPayload
		if tid != PayloadTypeId {
			kind = tid.Kind()
		}
		items = append(items, Item{
			Kind:                    kind,
			TypeId:                  tid,
			IsFragment:              extra.fragStart != 0 || extra.fragEnd != item.size,
			ChunkUid:                item.chunkUid,
			PacketUid:               extra.packetUid,
			Offset:                  offset,
			CurrentSize:             size,
			CurrentTrimmedFromStart: extra.fragStart,
			CurrentTrimmedFromEnd:   item.size - extra.fragEnd,
		})
		offset += size
		return true
	})
	return items
}

func (m *Metadata) String() string {
	items := m.Items()
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, " ")
}
