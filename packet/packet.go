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

	"github.com/openthread/nsim/logger"
)

// Packet is a byte buffer with metadata describing its headers, trailers and payload chunks.
// The byte slices of a packet are never modified in place: every mutation allocates a new slice,
// so copies and fragments share bytes freely.
type Packet struct {
	f    *MetadataFactory
	buf  []byte
	meta *Metadata
}

// NewPacket creates a packet with a fresh uid holding size zero bytes of payload.
func NewPacket(f *MetadataFactory, size uint32) *Packet {
	return &Packet{
		f:    f,
		buf:  make([]byte, size),
		meta: f.NewMetadata(f.ids.NextPacketUid(), size),
	}
}

// NewPacketFromBytes creates a packet with a fresh uid whose payload is a copy of payload.
func NewPacketFromBytes(f *MetadataFactory, payload []byte) *Packet {
	p := NewPacket(f, uint32(len(payload)))
	copy(p.buf, payload)
	return p
}

func (p *Packet) Size() uint32 {
	return uint32(len(p.buf))
}

func (p *Packet) Uid() uint64 {
	return p.meta.GetUid()
}

// Bytes returns the packet content. The returned slice must not be modified.
func (p *Packet) Bytes() []byte {
	return p.buf
}

func (p *Packet) Metadata() *Metadata {
	return p.meta
}

// Copy returns a packet with the same uid sharing bytes and metadata with p.
func (p *Packet) Copy() *Packet {
	return &Packet{
		f:    p.f,
		buf:  p.buf,
		meta: p.meta.Copy(),
	}
}

// Release returns the metadata block of p to the pool. p must not be used afterwards.
func (p *Packet) Release() {
	p.meta.Release()
	p.buf = nil
}

func (p *Packet) AddHeader(h Header) {
	size := h.SerializedSize()
	nb := make([]byte, int(size)+len(p.buf))
	copy(nb[size:], p.buf)
	h.Serialize(nb)
	p.buf = nb
	p.meta.AddHeader(h.TypeId(), size)
}

// RemoveHeader deserializes h from the front of the packet and removes it. It returns the number
// of bytes removed, or 0 when no header could be read or the metadata does not start with it.
func (p *Packet) RemoveHeader(h Header) uint32 {
	n := h.Deserialize(p.buf)
	if n == 0 || n > p.Size() {
		return 0
	}
	if err := p.meta.RemoveHeader(h.TypeId(), n); err != nil {
		return 0
	}
	p.buf = p.buf[n:]
	return n
}

// PeekHeader deserializes h from the front of the packet without removing it.
func (p *Packet) PeekHeader(h Header) uint32 {
	return h.Deserialize(p.buf)
}

func (p *Packet) AddTrailer(t Trailer) {
	size := t.SerializedSize()
	nb := make([]byte, len(p.buf)+int(size))
	copy(nb, p.buf)
	t.Serialize(nb)
	p.buf = nb
	p.meta.AddTrailer(t.TypeId(), size)
}

// RemoveTrailer deserializes t from the end of the packet and removes it. Like RemoveHeader it
// returns 0 and keeps the bytes when the metadata does not end with t.
func (p *Packet) RemoveTrailer(t Trailer) uint32 {
	n := t.Deserialize(p.buf)
	if n == 0 || n > p.Size() {
		return 0
	}
	if err := p.meta.RemoveTrailer(t.TypeId(), n); err != nil {
		return 0
	}
	p.buf = p.buf[:p.Size()-n]
	return n
}

func (p *Packet) PeekTrailer(t Trailer) uint32 {
	return t.Deserialize(p.buf)
}

// AddPaddingAtEnd appends size zero bytes of payload.
func (p *Packet) AddPaddingAtEnd(size uint32) {
	nb := make([]byte, len(p.buf)+int(size))
	copy(nb, p.buf)
	p.buf = nb
	p.meta.AddPaddingAtEnd(size)
}

func (p *Packet) RemoveAtStart(n uint32) {
	if n > p.Size() {
		logger.Panicf("remove %d bytes at start of %d-byte packet %d", n, p.Size(), p.Uid())
	}
	p.buf = p.buf[n:]
	p.meta.RemoveAtStart(n)
}

func (p *Packet) RemoveAtEnd(n uint32) {
	if n > p.Size() {
		logger.Panicf("remove %d bytes at end of %d-byte packet %d", n, p.Size(), p.Uid())
	}
	p.buf = p.buf[:p.Size()-n]
	p.meta.RemoveAtEnd(n)
}

// CreateFragment returns a packet holding length bytes of p starting at offset. The fragment keeps
// the uid of p.
func (p *Packet) CreateFragment(offset, length uint32) *Packet {
	if uint64(offset)+uint64(length) > uint64(p.Size()) {
		logger.Panicf("fragment [%d:%d) out of %d-byte packet %d", offset, offset+length, p.Size(), p.Uid())
	}
	return &Packet{
		f:    p.f,
		buf:  p.buf[offset : offset+length : offset+length],
		meta: p.meta.CreateFragment(offset, offset+length),
	}
}

// AddAtEnd appends the content of other.
func (p *Packet) AddAtEnd(other *Packet) {
	nb := make([]byte, len(p.buf)+len(other.buf))
	copy(nb, p.buf)
	copy(nb[len(p.buf):], other.buf)
	p.buf = nb
	p.meta.AddAtEnd(other.meta)
}

func (p *Packet) String() string {
	if !p.f.cfg.Enabled {
		return fmt.Sprintf("Packet{uid=%d, size=%d}", p.Uid(), p.Size())
	}
	return p.meta.String()
}
