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

package pcap

import (
	"encoding/binary"
	"os"

	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"

	"github.com/openthread/nsim/types"
)

type LinkType int

const (
	LinkTypeOff LinkType = iota
	LinkTypeRaw
	LinkTypeEthernet
	LinkTypeUnknown
)

const (
	LinkTypeOffStr      string = "off"
	LinkTypeRawStr      string = "raw"
	LinkTypeEthernetStr string = "ethernet"
)

const (
	pcapMagicNumberNanos = 0xA1B23C4D
	pcapVersionMajor     = 2
	pcapVersionMinor     = 4
	pcapSnapLen          = 65535
	pcapFileHeaderSize   = 24
	pcapFrameHeaderSize  = 16
)

// File is a PCAP trace of simulated packets.
type File interface {
	AppendFrame(frame Frame) error
	Sync() error
	Close() error
}

// Frame is a single packet with the virtual time at which it was sent.
type Frame struct {
	Timestamp types.Time
	Data      []byte
}

type file struct {
	fd *os.File
}

// NewFile creates a PCAP file with nanosecond timestamps for frames of the given link type.
func NewFile(filename string, linkType LinkType) (File, error) {
	var dlt layers.LinkType
	switch linkType {
	case LinkTypeRaw:
		dlt = layers.LinkTypeRaw
	case LinkTypeEthernet:
		dlt = layers.LinkTypeEthernet
	default:
		return nil, errors.Errorf("invalid PCAP link type: %d", linkType)
	}

	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open pcap %s", filename)
	}

	pf := &file{
		fd: fd,
	}
	if err = pf.writeHeader(dlt); err != nil {
		_ = pf.Close()
		return nil, err
	}
	return pf, nil
}

func ParseLinkTypeStr(tp string) LinkType {
	switch tp {
	case LinkTypeOffStr, "":
		return LinkTypeOff
	case LinkTypeRawStr:
		return LinkTypeRaw
	case LinkTypeEthernetStr:
		return LinkTypeEthernet
	default:
		return LinkTypeUnknown
	}
}

func (pf *file) AppendFrame(frame Frame) error {
	if frame.Timestamp < 0 || frame.Timestamp == types.Never {
		return errors.Errorf("invalid frame timestamp: %v", frame.Timestamp)
	}
	ns := frame.Timestamp.Duration().Nanoseconds()

	var header [pcapFrameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], uint32(ns/1000000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(ns%1000000000))
	plen := uint32(len(frame.Data))
	caplen := plen
	if caplen > pcapSnapLen {
		caplen = pcapSnapLen
	}
	binary.LittleEndian.PutUint32(header[8:12], caplen)
	binary.LittleEndian.PutUint32(header[12:16], plen)

	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data[:caplen])
	return err
}

func (pf *file) Sync() error {
	return pf.fd.Sync()
}

func (pf *file) Close() error {
	return pf.fd.Close()
}

func (pf *file) writeHeader(dlt layers.LinkType) error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumberNanos)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(header[20:24], uint32(dlt))
	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	return pf.fd.Sync()
}
