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
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUdpHeaders() (*LayerHeader, *LayerHeader) {
	ip := NewLayerHeader(&layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	})
	udp := NewLayerHeader(&layers.UDP{SrcPort: 1234, DstPort: 5678})
	return ip, udp
}

func TestPacketIpUdp(t *testing.T) {
	f := NewMetadataFactory(strictCfg)
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	p := NewPacketFromBytes(f, payload)
	ip, udp := newUdpHeaders()
	p.AddHeader(udp)
	p.AddHeader(ip)

	assert.Equal(t, uint32(128), p.Size())
	assert.Equal(t, "IPv4 (20) UDP (8) Payload (size=100)", p.String())

	decoded := gopacket.NewPacket(p.Bytes(), layers.LayerTypeIPv4, gopacket.Default)
	require.Nil(t, decoded.ErrorLayer())
	ipLayer, ok := decoded.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	require.True(t, ok)
	assert.Equal(t, uint16(128), ipLayer.Length)
	assert.Equal(t, "10.0.0.2", ipLayer.DstIP.String())
	udpLayer, ok := decoded.Layer(layers.LayerTypeUDP).(*layers.UDP)
	require.True(t, ok)
	assert.Equal(t, uint16(108), udpLayer.Length)
	assert.Equal(t, layers.UDPPort(5678), udpLayer.DstPort)
	assert.Equal(t, payload, udpLayer.Payload)

	rxIp, rxUdp := newUdpHeaders()
	assert.Equal(t, uint32(20), p.PeekHeader(rxIp))
	assert.Equal(t, uint32(128), p.Size())
	assert.Equal(t, uint32(20), p.RemoveHeader(rxIp))
	assert.Equal(t, uint32(8), p.RemoveHeader(rxUdp))
	assert.Equal(t, layers.UDPPort(1234), rxUdp.Layer.(*layers.UDP).SrcPort)
	assert.Equal(t, payload, p.Bytes())
	assert.Equal(t, "Payload (size=100)", p.String())
}

func TestPacketFragmentAndJoin(t *testing.T) {
	f := NewMetadataFactory(strictCfg)
	p := NewPacket(f, 1000)
	p.AddHeader(&fixedHeader{tid: testHdrA, size: 20, fill: 0xaa})
	original := append([]byte(nil), p.Bytes()...)
	uid := p.Uid()

	a := p.CreateFragment(0, 500)
	b := p.CreateFragment(500, 520)
	assert.Equal(t, uid, a.Uid())
	assert.Equal(t, uid, b.Uid())
	assert.Equal(t, uint32(500), a.Size())
	assert.Equal(t, uint32(520), b.Size())
	assert.Equal(t, a.Size(), a.Metadata().GetTotalSize())

	a.AddAtEnd(b)
	assert.Equal(t, original, a.Bytes())
	assert.Equal(t, p.String(), a.String())
	assert.Equal(t, p.Metadata().Items(), a.Metadata().Items())

	hdr := &fixedHeader{tid: testHdrA, size: 20}
	assert.Equal(t, uint32(20), a.RemoveHeader(hdr))
	assert.Equal(t, byte(0xaa), hdr.fill)
	assert.Equal(t, uint32(1000), a.Size())

	assert.Panics(t, func() { p.CreateFragment(900, 200) })
}

func TestPacketTrailers(t *testing.T) {
	f := NewMetadataFactory(strictCfg)
	p := NewPacket(f, 10)
	p.AddTrailer(&fixedTrailer{tid: testTrlC, size: 4, fill: 0x11})
	p.AddTrailer(&fixedTrailer{tid: testTrlD, size: 2, fill: 0x22})
	assert.Equal(t, uint32(16), p.Size())
	assert.Equal(t, []byte{0x11, 0x11, 0x11, 0x11, 0x22, 0x22}, p.Bytes()[10:])

	d := &fixedTrailer{tid: testTrlD, size: 2}
	assert.Equal(t, uint32(2), p.PeekTrailer(d))
	assert.Equal(t, uint32(16), p.Size())
	assert.Equal(t, uint32(2), p.RemoveTrailer(d))
	assert.Equal(t, byte(0x22), d.fill)

	c := &fixedTrailer{tid: testTrlC, size: 4}
	assert.Equal(t, uint32(4), p.RemoveTrailer(c))
	assert.Equal(t, byte(0x11), c.fill)
	assert.Equal(t, uint32(10), p.Size())
	assert.Equal(t, "Payload (size=10)", p.String())
}

func TestPacketRemoveMismatchKeepsBytes(t *testing.T) {
	f := NewMetadataFactory(lenientCfg)
	p := NewPacket(f, 10)
	p.AddHeader(&fixedHeader{tid: testHdrA, size: 4, fill: 0x33})
	p.AddTrailer(&fixedTrailer{tid: testTrlC, size: 2, fill: 0x44})
	items := p.Metadata().Items()

	assert.Equal(t, uint32(0), p.RemoveHeader(&fixedHeader{tid: testHdrB, size: 4}))
	assert.Equal(t, uint32(0), p.RemoveHeader(&fixedHeader{tid: testHdrA, size: 3}))
	assert.Equal(t, uint32(0), p.RemoveTrailer(&fixedTrailer{tid: testTrlD, size: 2}))
	assert.Equal(t, uint32(16), p.Size())
	assert.Equal(t, items, p.Metadata().Items())
	assert.Equal(t, p.Size(), p.Metadata().GetTotalSize())

	assert.Equal(t, uint32(4), p.RemoveHeader(&fixedHeader{tid: testHdrA, size: 4}))
	assert.Equal(t, uint32(2), p.RemoveTrailer(&fixedTrailer{tid: testTrlC, size: 2}))
	assert.Equal(t, "Payload (size=10)", p.String())
}

func TestPacketCopyIsIndependent(t *testing.T) {
	f := NewMetadataFactory(strictCfg)
	p := NewPacket(f, 50)
	c := p.Copy()
	assert.Equal(t, p.Uid(), c.Uid())

	c.AddHeader(&fixedHeader{tid: testHdrB, size: 6, fill: 1})
	p.AddPaddingAtEnd(5)
	assert.Equal(t, uint32(55), p.Size())
	assert.Equal(t, uint32(56), c.Size())
	assert.Equal(t, "Payload (size=50) Payload (size=5)", p.String())
	assert.Equal(t, "test.HeaderB (6) Payload (size=50)", c.String())

	c.RemoveAtStart(10)
	c.RemoveAtEnd(6)
	assert.Equal(t, uint32(40), c.Size())
	assert.Equal(t, "Payload Fragment [4:44]", c.String())
	assert.Panics(t, func() { c.RemoveAtEnd(41) })

	p.Release()
	c.Release()
}

func TestPacketUidsAreUnique(t *testing.T) {
	f := NewMetadataFactory(strictCfg)
	seen := map[uint64]bool{}
	for i := 0; i < 100; i++ {
		uid := NewPacket(f, 1).Uid()
		assert.False(t, seen[uid])
		seen[uid] = true
	}
}

func TestPacketMetadataDisabled(t *testing.T) {
	f := NewMetadataFactory(&Config{})
	p := NewPacket(f, 8)
	p.AddHeader(&fixedHeader{tid: testHdrA, size: 2, fill: 3})
	assert.Equal(t, uint32(10), p.Size())
	assert.Equal(t, 0, p.Metadata().Len())
	assert.Equal(t, "Packet{uid=1, size=10}", p.String())

	// mismatched removals only touch the bytes
	assert.Equal(t, uint32(4), p.RemoveHeader(&fixedHeader{tid: testHdrB, size: 4}))
	assert.Equal(t, uint32(6), p.Size())
}
