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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterTypeId(t *testing.T) {
	id := RegisterTypeId("test.Registry", KindHeader)
	assert.NotEqual(t, PayloadTypeId, id)
	assert.Equal(t, id, RegisterTypeId("test.Registry", KindHeader))
	assert.Equal(t, "test.Registry", id.Name())
	assert.Equal(t, KindHeader, id.Kind())
	assert.Equal(t, "test.Registry", id.String())

	found, ok := LookupTypeIdByName("test.Registry")
	assert.True(t, ok)
	assert.Equal(t, id, found)

	_, ok = LookupTypeIdByName("test.Missing")
	assert.False(t, ok)

	assert.Panics(t, func() {
		RegisterTypeId("test.Registry", KindTrailer)
	})
	assert.Panics(t, func() {
		RegisterTypeId("", KindHeader)
	})
}

func TestPayloadTypeId(t *testing.T) {
	id, ok := LookupTypeIdByName("")
	assert.True(t, ok)
	assert.Equal(t, PayloadTypeId, id)
	assert.Equal(t, KindPayload, PayloadTypeId.Kind())
	assert.Equal(t, "", PayloadTypeId.Name())
	assert.Equal(t, "Payload", PayloadTypeId.String())
	assert.False(t, TypeId(1<<30).IsRegistered())
}

func TestIdAllocator(t *testing.T) {
	a := NewIdAllocator()
	assert.Equal(t, uint16(0), a.NextChunkUid())
	assert.Equal(t, uint16(1), a.NextChunkUid())
	assert.Equal(t, uint64(1), a.NextPacketUid())
	assert.Equal(t, uint64(2), a.NextPacketUid())

	a.nextChunk = 0xffff
	assert.Equal(t, uint16(0xffff), a.NextChunkUid())
	assert.Equal(t, uint16(0), a.NextChunkUid())
}
