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
	"sync"

	"github.com/openthread/nsim/logger"
)

// TypeKind tells whether a metadata item of some type sits at the start or the end of a packet.
type TypeKind uint8

const (
	KindPayload TypeKind = iota
	KindHeader
	KindTrailer
)

func (k TypeKind) String() string {
	switch k {
	case KindPayload:
		return "payload"
	case KindHeader:
		return "header"
	case KindTrailer:
		return "trailer"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// TypeId identifies a header or trailer type. It is stored shifted left by one bit in metadata
// records, so it must stay below 1<<31.
type TypeId uint32

const (
	PayloadTypeId TypeId = 0
	maxTypeId     TypeId = 1<<31 - 1
)

type typeInfo struct {
	name string
	kind TypeKind
}

var typeRegistry = struct {
	sync.RWMutex
	infos  []typeInfo
	byName map[string]TypeId
}{
	infos:  []typeInfo{{name: "", kind: KindPayload}},
	byName: map[string]TypeId{},
}

// RegisterTypeId registers a named header or trailer type. Registering a name again returns the existing
// TypeId; registering it again with another kind is fatal.
func RegisterTypeId(name string, kind TypeKind) TypeId {
	if name == "" || kind == KindPayload {
		logger.Panicf("invalid type registration: name=%q kind=%v", name, kind)
	}

	typeRegistry.Lock()
	defer typeRegistry.Unlock()

	if id, ok := typeRegistry.byName[name]; ok {
		if typeRegistry.infos[id].kind != kind {
			logger.Panicf("type %s registered as %v, now as %v", name, typeRegistry.infos[id].kind, kind)
		}
		return id
	}
	id := TypeId(len(typeRegistry.infos))
	if id > maxTypeId {
		logger.Panicf("too many registered types")
	}
	typeRegistry.infos = append(typeRegistry.infos, typeInfo{name: name, kind: kind})
	typeRegistry.byName[name] = id
	return id
}

// LookupTypeIdByName finds a registered type. The empty name is the payload type.
func LookupTypeIdByName(name string) (TypeId, bool) {
	if name == "" {
		return PayloadTypeId, true
	}
	typeRegistry.RLock()
	defer typeRegistry.RUnlock()

	id, ok := typeRegistry.byName[name]
	return id, ok
}

func (t TypeId) info() (typeInfo, bool) {
	typeRegistry.RLock()
	defer typeRegistry.RUnlock()

	if int(t) >= len(typeRegistry.infos) {
		return typeInfo{}, false
	}
	return typeRegistry.infos[t], true
}

// Name returns the registered name; the payload type has the empty name.
func (t TypeId) Name() string {
	info, _ := t.info()
	return info.name
}

func (t TypeId) Kind() TypeKind {
	info, _ := t.info()
	return info.kind
}

func (t TypeId) IsRegistered() bool {
	_, ok := t.info()
	return ok
}

func (t TypeId) String() string {
	if t == PayloadTypeId {
		return "Payload"
	}
	if info, ok := t.info(); ok {
		return info.name
	}
	return fmt.Sprintf("TypeId(%d)", uint32(t))
}
