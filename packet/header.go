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

// Header is a protocol header that can be added in front of a packet.
type Header interface {
	TypeId() TypeId
	SerializedSize() uint32
	// Serialize writes the header into the first SerializedSize bytes of start. The remaining
	// bytes of start are the packet content following the header.
	Serialize(start []byte)
	// Deserialize reads the header from the front of start and returns the number of bytes
	// read, or 0 when start holds no valid header.
	Deserialize(start []byte) uint32
}

// Trailer is a protocol trailer that can be added at the end of a packet.
type Trailer interface {
	TypeId() TypeId
	SerializedSize() uint32
	// Serialize writes the trailer into the last SerializedSize bytes of end. The preceding
	// bytes of end are the packet content before the trailer.
	Serialize(end []byte)
	// Deserialize reads the trailer from the back of end and returns the number of bytes read,
	// or 0 when end holds no valid trailer.
	Deserialize(end []byte) uint32
}
