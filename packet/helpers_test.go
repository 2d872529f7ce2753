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

var (
	testHdrA   = RegisterTypeId("test.HeaderA", KindHeader)
	testHdrB   = RegisterTypeId("test.HeaderB", KindHeader)
	testTrlC   = RegisterTypeId("test.TrailerC", KindTrailer)
	testTrlD   = RegisterTypeId("test.TrailerD", KindTrailer)
	strictCfg  = &Config{Enabled: true, Checking: true, FreeListCap: DefaultFreeListCap}
	lenientCfg = &Config{Enabled: true, Checking: false, FreeListCap: DefaultFreeListCap}
)

// fixedHeader is a header of constant size filled with one byte value.
type fixedHeader struct {
	tid  TypeId
	size uint32
	fill byte
}

func (h *fixedHeader) TypeId() TypeId {
	return h.tid
}

func (h *fixedHeader) SerializedSize() uint32 {
	return h.size
}

func (h *fixedHeader) Serialize(start []byte) {
	for i := uint32(0); i < h.size; i++ {
		start[i] = h.fill
	}
}

func (h *fixedHeader) Deserialize(start []byte) uint32 {
	if uint32(len(start)) < h.size {
		return 0
	}
	h.fill = start[0]
	return h.size
}

type fixedTrailer struct {
	tid  TypeId
	size uint32
	fill byte
}

func (t *fixedTrailer) TypeId() TypeId {
	return t.tid
}

func (t *fixedTrailer) SerializedSize() uint32 {
	return t.size
}

func (t *fixedTrailer) Serialize(end []byte) {
	for i := uint32(len(end)) - t.size; i < uint32(len(end)); i++ {
		end[i] = t.fill
	}
}

func (t *fixedTrailer) Deserialize(end []byte) uint32 {
	if uint32(len(end)) < t.size {
		return 0
	}
	t.fill = end[len(end)-1]
	return t.size
}

func itemTypes(m *Metadata) []TypeId {
	var tids []TypeId
	for _, it := range m.Items() {
		tids = append(tids, it.TypeId)
	}
	return tids
}
