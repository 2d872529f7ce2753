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
	"github.com/google/gopacket"

	"github.com/openthread/nsim/logger"
)

// Layer is a gopacket layer that can be both serialized and decoded in place, such as
// *layers.IPv4, *layers.UDP or *layers.TCP.
type Layer interface {
	gopacket.SerializableLayer
	gopacket.DecodingLayer
	LayerContents() []byte
}

// LayerHeader adapts a gopacket Layer to a packet Header. Lengths are fixed up on serialization;
// checksums are left as set in the layer.
type LayerHeader struct {
	Layer  Layer
	typeId TypeId
}

// NewLayerHeader wraps l, registering its layer type name as a header type.
func NewLayerHeader(l Layer) *LayerHeader {
	return &LayerHeader{
		Layer:  l,
		typeId: RegisterTypeId(l.LayerType().String(), KindHeader),
	}
}

var layerSerializeOptions = gopacket.SerializeOptions{FixLengths: true}

func (h *LayerHeader) TypeId() TypeId {
	return h.typeId
}

func (h *LayerHeader) SerializedSize() uint32 {
	sb := gopacket.NewSerializeBuffer()
	if err := h.Layer.SerializeTo(sb, layerSerializeOptions); err != nil {
		logger.Panicf("serialize %v: %v", h.Layer.LayerType(), err)
	}
	return uint32(len(sb.Bytes()))
}

func (h *LayerHeader) Serialize(start []byte) {
	size := h.SerializedSize()
	sb := gopacket.NewSerializeBufferExpectedSize(int(size), 0)
	payload, err := sb.AppendBytes(len(start) - int(size))
	logger.PanicIfError(err)
	copy(payload, start[size:])
	if err = h.Layer.SerializeTo(sb, layerSerializeOptions); err != nil {
		logger.Panicf("serialize %v: %v", h.Layer.LayerType(), err)
	}
	copy(start[:size], sb.Bytes())
}

func (h *LayerHeader) Deserialize(start []byte) uint32 {
	if err := h.Layer.DecodeFromBytes(start, gopacket.NilDecodeFeedback); err != nil {
		logger.Debugf("decode %v: %v", h.Layer.LayerType(), err)
		return 0
	}
	return uint32(len(h.Layer.LayerContents()))
}
